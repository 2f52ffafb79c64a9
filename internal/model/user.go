package model

import "strings"

// User is the current session identity. Its presence is the sole gate for
// loading, displaying, or syncing any other data.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// CloudKey returns the normalized identity used to scope cloud documents:
// the lower-cased, trimmed email. One document/namespace per key, no
// cross-user visibility.
func (u User) CloudKey() string {
	return strings.ToLower(strings.TrimSpace(u.Email))
}
