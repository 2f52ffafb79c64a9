package cloud

import (
	"context"
	"testing"

	"nabil-inventory-api/internal/model"
)

func TestSimulatedPushPullRoundTrip(t *testing.T) {
	a, err := NewSimulatedAdapter("")
	if err != nil {
		t.Fatalf("NewSimulatedAdapter: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	snap := model.Snapshot{
		Categories: []model.Category{{ID: "c1", Name: "Food"}},
		Products:   []model.Product{{ID: "p1", Name: "Sugar", CategoryID: "c1", Price: "120/kg", Quantity: 4}},
		Sales:      []model.SaleRecord{{ID: "s1", ProductID: "p1", Quantity: 1, SoldAtPrice: 120, Timestamp: 9}},
		Earnings:   120,
	}

	if err := a.Push(ctx, "nabil@example.com", snap); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := a.Pull(ctx, "nabil@example.com")
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got == nil {
		t.Fatal("Pull returned nil after push")
	}
	if got.LastSync == 0 {
		t.Error("push did not stamp lastSync")
	}
	if len(got.Categories) != 1 || got.Categories[0] != snap.Categories[0] {
		t.Errorf("categories = %+v, want %+v", got.Categories, snap.Categories)
	}
	if got.Earnings != 120 {
		t.Errorf("earnings = %v, want 120", got.Earnings)
	}
}

func TestSimulatedPullAbsentIdentity(t *testing.T) {
	a, _ := NewSimulatedAdapter("")
	defer a.Close()

	got, err := a.Pull(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got != nil {
		t.Errorf("Pull for absent identity = %+v, want nil", got)
	}
}

func TestSimulatedIdentityIsolation(t *testing.T) {
	a, _ := NewSimulatedAdapter("")
	defer a.Close()
	ctx := context.Background()

	a.Push(ctx, "a@example.com", model.Snapshot{Earnings: 1})
	a.Push(ctx, "b@example.com", model.Snapshot{Earnings: 2})

	got, _ := a.Pull(ctx, "a@example.com")
	if got == nil || got.Earnings != 1 {
		t.Errorf("a@example.com snapshot = %+v, want earnings 1", got)
	}
	got, _ = a.Pull(ctx, "b@example.com")
	if got == nil || got.Earnings != 2 {
		t.Errorf("b@example.com snapshot = %+v, want earnings 2", got)
	}
}

func TestSimulatedEmptyIdentityRejected(t *testing.T) {
	a, _ := NewSimulatedAdapter("")
	defer a.Close()
	ctx := context.Background()

	if err := a.Push(ctx, "", model.Snapshot{}); err == nil {
		t.Error("Push with empty identity succeeded")
	}
	if _, err := a.Pull(ctx, ""); err == nil {
		t.Error("Pull with empty identity succeeded")
	}
}

func TestSimulatedDiskMirrorSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := NewSimulatedAdapter(dir)
	if err != nil {
		t.Fatalf("NewSimulatedAdapter: %v", err)
	}
	if err := a.Push(ctx, "nabil@example.com", model.Snapshot{Earnings: 55}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	a.Close()

	// A fresh adapter over the same directory must see the document.
	b, err := NewSimulatedAdapter(dir)
	if err != nil {
		t.Fatalf("NewSimulatedAdapter (reopen): %v", err)
	}
	defer b.Close()

	got, err := b.Pull(ctx, "nabil@example.com")
	if err != nil {
		t.Fatalf("Pull after reopen: %v", err)
	}
	if got == nil || got.Earnings != 55 {
		t.Errorf("snapshot after reopen = %+v, want earnings 55", got)
	}
}
