package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nabil-inventory-api/internal/model"
)

// SimulatedAdapter stores the entire dataset as one serialized JSON
// document per identity. It is the zero-infrastructure fallback: an
// in-memory map, optionally mirrored to a directory on disk so pulls
// survive a restart. No versioning, no live updates - push always
// performs a full overwrite.
type SimulatedAdapter struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// dir, when non-empty, receives one file per identity.
	dir string
}

// NewSimulatedAdapter creates a simulated cloud. dir may be "" for a
// purely in-memory cloud (used in tests).
func NewSimulatedAdapter(dir string) (*SimulatedAdapter, error) {
	a := &SimulatedAdapter{
		docs: make(map[string][]byte),
		dir:  dir,
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cloud dir: %w", err)
		}
		if err := a.loadFromDisk(); err != nil {
			return nil, err
		}
		log.Printf("[SimulatedAdapter] Initialized with dir: %s (%d stored datasets)", dir, len(a.docs))
	}

	return a, nil
}

// docName maps an identity to a safe file name.
func docName(identity string) string {
	return "USER_CLOUD_DATA_" + url.PathEscape(identity) + ".json"
}

func (a *SimulatedAdapter) loadFromDisk() error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("failed to read cloud dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const prefix, suffix = "USER_CLOUD_DATA_", ".json"
		if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
			continue
		}
		identity, err := url.PathUnescape(name[len(prefix) : len(name)-len(suffix)])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.dir, name))
		if err != nil {
			log.Printf("[SimulatedAdapter] Warning: skipping unreadable document %s: %v", name, err)
			continue
		}
		a.docs[identity] = data
	}
	return nil
}

// Push serializes the snapshot and overwrites the identity's document.
func (a *SimulatedAdapter) Push(ctx context.Context, identity string, snap model.Snapshot) error {
	if identity == "" {
		return fmt.Errorf("empty identity")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snap.LastSync = time.Now().UnixMilli()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.docs[identity] = data
	if a.dir != "" {
		if err := os.WriteFile(filepath.Join(a.dir, docName(identity)), data, 0o644); err != nil {
			return fmt.Errorf("failed to write cloud document: %w", err)
		}
	}
	return nil
}

// Pull returns the identity's last pushed snapshot, or (nil, nil) when
// nothing has ever been pushed.
func (a *SimulatedAdapter) Pull(ctx context.Context, identity string) (*model.Snapshot, error) {
	if identity == "" {
		return nil, fmt.Errorf("empty identity")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	data, ok := a.docs[identity]
	a.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt cloud document for %s: %w", identity, err)
	}
	return &snap, nil
}

// Close is a no-op; the simulated cloud has no connection to release.
func (a *SimulatedAdapter) Close() error {
	return nil
}

var _ Adapter = (*SimulatedAdapter)(nil)
