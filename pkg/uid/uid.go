package uid

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// TimeID generates a time-derived identifier: the current wall clock in
// Unix milliseconds as a decimal string. Used for sale records, whose ids
// double as creation timestamps.
func TimeID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
