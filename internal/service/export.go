package service

import (
	"encoding/json"
	"fmt"
	"time"

	"nabil-inventory-api/internal/model"
)

// ExportFilename builds the date-stamped name for a manual backup file,
// e.g. "nabil_inventory_backup_2025-11-03.json".
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("nabil_inventory_backup_%s.json", now.Format("2006-01-02"))
}

// EncodeSnapshot serializes a snapshot as an indented, human-inspectable
// JSON document for export.
func EncodeSnapshot(snap model.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses an exported backup. Unknown fields are tolerated;
// a document with none of the expected keys is rejected so an arbitrary
// JSON file cannot silently wipe the dataset on import.
func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid backup file: %w", err)
	}

	known := false
	for _, key := range []string{"categories", "products", "sales", "earnings"} {
		if _, ok := probe[key]; ok {
			known = true
			break
		}
	}
	if !known {
		return model.Snapshot{}, fmt.Errorf("invalid backup file: no inventory collections found")
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid backup file: %w", err)
	}
	return snap, nil
}
