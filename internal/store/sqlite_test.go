package store

import (
	"context"
	"path/filepath"
	"testing"

	"nabil-inventory-api/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "inventory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveDeleteNetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Arbitrary interleaving of saves and deletes on non-overlapping ids
	// must leave exactly the net set.
	ops := []struct {
		del  bool
		id   string
		name string
	}{
		{false, "a", "first"},
		{false, "b", "second"},
		{true, "a", ""},
		{false, "c", "third"},
		{true, "missing", ""}, // delete of absent id is a no-op
		{false, "b", "second-renamed"},
	}

	for _, op := range ops {
		var err error
		if op.del {
			err = s.DeleteCategory(ctx, op.id)
		} else {
			err = s.SaveCategory(ctx, model.Category{ID: op.id, Name: op.name})
		}
		if err != nil {
			t.Fatalf("op on %s: %v", op.id, err)
		}
	}

	got, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}

	want := map[string]string{"b": "second-renamed", "c": "third"}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d: %+v", len(got), len(want), got)
	}
	for _, c := range got {
		if want[c.ID] != c.Name {
			t.Errorf("category %s = %q, want %q", c.ID, c.Name, want[c.ID])
		}
	}
}

func TestSaveProductUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.Product{ID: "p1", Name: "Sugar", CategoryID: "c1", Price: "120/kg", Quantity: 10, Barcode: "619"}
	for i := 0; i < 3; i++ {
		if err := s.SaveProduct(ctx, p); err != nil {
			t.Fatalf("SaveProduct: %v", err)
		}
	}

	got, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d products after repeated upsert, want 1", len(got))
	}
	if got[0] != p {
		t.Errorf("product = %+v, want %+v", got[0], p)
	}
}

func TestEmptyCollectionsReturnEmptyNotError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cats, err := s.ListCategories(ctx)
	if err != nil || len(cats) != 0 {
		t.Errorf("ListCategories = %v, %v; want empty, nil", cats, err)
	}
	prods, err := s.ListProducts(ctx)
	if err != nil || len(prods) != 0 {
		t.Errorf("ListProducts = %v, %v; want empty, nil", prods, err)
	}
	sales, err := s.ListSales(ctx)
	if err != nil || len(sales) != 0 {
		t.Errorf("ListSales = %v, %v; want empty, nil", sales, err)
	}
}

func TestEarningsScalar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetEarnings(ctx)
	if err != nil || got != 0 {
		t.Fatalf("GetEarnings on fresh store = %v, %v; want 0, nil", got, err)
	}

	if err := s.SaveEarnings(ctx, 1234.5); err != nil {
		t.Fatalf("SaveEarnings: %v", err)
	}
	got, err = s.GetEarnings(ctx)
	if err != nil || got != 1234.5 {
		t.Fatalf("GetEarnings = %v, %v; want 1234.5, nil", got, err)
	}
}

func TestUserScalar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("GetUser on fresh store = %v, %v; want nil, nil", u, err)
	}

	want := model.User{Email: "nabil@example.com", Name: "Nabil"}
	if err := s.SaveUser(ctx, want); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	u, err = s.GetUser(ctx)
	if err != nil || u == nil || *u != want {
		t.Fatalf("GetUser = %v, %v; want %+v", u, err, want)
	}

	if err := s.DeleteUser(ctx); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	u, err = s.GetUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("GetUser after delete = %v, %v; want nil, nil", u, err)
	}
}

func TestApplySaleDecrement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.Product{ID: "p1", Name: "Oil", Quantity: 5}
	if err := s.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}

	sale := model.SaleRecord{ID: "1700000000000", ProductID: "p1", ProductName: "Oil", Quantity: 3, SoldAtPrice: 100, Timestamp: 1700000000000}
	updated := p
	updated.Quantity = 2
	if err := s.ApplySale(ctx, sale, &updated, "", 300); err != nil {
		t.Fatalf("ApplySale: %v", err)
	}

	prods, _ := s.ListProducts(ctx)
	if len(prods) != 1 || prods[0].Quantity != 2 {
		t.Errorf("product after sale = %+v, want quantity 2", prods)
	}
	sales, _ := s.ListSales(ctx)
	if len(sales) != 1 || sales[0] != sale {
		t.Errorf("sales after sale = %+v, want exactly %+v", sales, sale)
	}
	earnings, _ := s.GetEarnings(ctx)
	if earnings != 300 {
		t.Errorf("earnings = %v, want 300", earnings)
	}
}

func TestApplySaleRemovesSoldOutProduct(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := model.Product{ID: "p1", Name: "Oil", Quantity: 3}
	if err := s.SaveProduct(ctx, p); err != nil {
		t.Fatalf("SaveProduct: %v", err)
	}

	sale := model.SaleRecord{ID: "1700000000001", ProductID: "p1", Quantity: 3, SoldAtPrice: 50, Timestamp: 1700000000001}
	if err := s.ApplySale(ctx, sale, nil, "p1", 150); err != nil {
		t.Fatalf("ApplySale: %v", err)
	}

	prods, _ := s.ListProducts(ctx)
	if len(prods) != 0 {
		t.Errorf("sold-out product still present: %+v", prods)
	}
}

func TestDeleteCategoryCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveCategory(ctx, model.Category{ID: "food", Name: "Food"})
	s.SaveCategory(ctx, model.Category{ID: "tools", Name: "Tools"})
	s.SaveProduct(ctx, model.Product{ID: "p1", Name: "Sugar", CategoryID: "food", Quantity: 1})
	s.SaveProduct(ctx, model.Product{ID: "p2", Name: "Flour", CategoryID: "food", Quantity: 1})
	s.SaveProduct(ctx, model.Product{ID: "p3", Name: "Hammer", CategoryID: "tools", Quantity: 1})

	removed, err := s.DeleteCategoryCascade(ctx, "food")
	if err != nil {
		t.Fatalf("DeleteCategoryCascade: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed = %v, want 2 product ids", removed)
	}

	cats, _ := s.ListCategories(ctx)
	if len(cats) != 1 || cats[0].ID != "tools" {
		t.Errorf("categories after cascade = %+v, want only tools", cats)
	}
	prods, _ := s.ListProducts(ctx)
	if len(prods) != 1 || prods[0].ID != "p3" {
		t.Errorf("products after cascade = %+v, want only p3", prods)
	}
}

func TestOverwriteIsFullReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Pre-existing local records not present in the snapshot must be gone.
	s.SaveCategory(ctx, model.Category{ID: "old-cat", Name: "Old"})
	s.SaveProduct(ctx, model.Product{ID: "old-prod", Name: "Old", Quantity: 1})
	s.SaveSale(ctx, model.SaleRecord{ID: "old-sale", ProductID: "old-prod"})
	s.SaveEarnings(ctx, 999)

	snap := model.Snapshot{
		Categories: []model.Category{{ID: "c1", Name: "New"}},
		Products:   []model.Product{{ID: "p1", Name: "New", CategoryID: "c1", Quantity: 7}},
		Sales:      []model.SaleRecord{{ID: "s1", ProductID: "p1", Quantity: 1, SoldAtPrice: 10, Timestamp: 5}},
		Earnings:   42,
	}
	if err := s.Overwrite(ctx, snap); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	cats, _ := s.ListCategories(ctx)
	if len(cats) != 1 || cats[0].ID != "c1" {
		t.Errorf("categories = %+v, want exactly c1", cats)
	}
	prods, _ := s.ListProducts(ctx)
	if len(prods) != 1 || prods[0].ID != "p1" {
		t.Errorf("products = %+v, want exactly p1", prods)
	}
	sales, _ := s.ListSales(ctx)
	if len(sales) != 1 || sales[0].ID != "s1" {
		t.Errorf("sales = %+v, want exactly s1", sales)
	}
	earnings, _ := s.GetEarnings(ctx)
	if earnings != 42 {
		t.Errorf("earnings = %v, want 42", earnings)
	}
}

func TestClearAllResetsCollectionsAndEarnings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveCategory(ctx, model.Category{ID: "c1", Name: "Food"})
	s.SaveProduct(ctx, model.Product{ID: "p1", Name: "Sugar", Quantity: 1})
	s.SaveSale(ctx, model.SaleRecord{ID: "s1", ProductID: "p1"})
	s.SaveEarnings(ctx, 100)
	s.SaveUser(ctx, model.User{Email: "nabil@example.com"})

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.IsEmpty() {
		t.Errorf("snapshot after ClearAll not empty: %+v", snap)
	}

	// The session slot is wiped separately by logout, not by ClearAll.
	u, _ := s.GetUser(ctx)
	if u == nil {
		t.Error("ClearAll removed the session slot; logout owns that")
	}
}

func TestReplaceCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveProduct(ctx, model.Product{ID: "p1", Name: "Old", Quantity: 1})
	s.SaveCategory(ctx, model.Category{ID: "c1", Name: "Keep"})

	incoming := []model.Product{
		{ID: "p2", Name: "Remote A", Quantity: 2},
		{ID: "p3", Name: "Remote B", Quantity: 3},
	}
	if err := s.ReplaceCollection(ctx, model.CollectionProducts, nil, incoming, nil); err != nil {
		t.Fatalf("ReplaceCollection: %v", err)
	}

	prods, _ := s.ListProducts(ctx)
	if len(prods) != 2 {
		t.Fatalf("products = %+v, want the 2 remote ones", prods)
	}
	// Other collections untouched.
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 1 {
		t.Errorf("categories = %+v, want untouched c1", cats)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := model.Snapshot{
		Categories: []model.Category{{ID: "c1", Name: "Food", Image: "img"}},
		Products:   []model.Product{{ID: "p1", Name: "Sugar", CategoryID: "c1", Price: "120/kg", Quantity: 4, Barcode: "619"}},
		Sales:      []model.SaleRecord{{ID: "s1", ProductID: "p1", ProductName: "Sugar", Quantity: 1, SoldAtPrice: 120, Timestamp: 9}},
		Earnings:   120,
	}
	if err := s.Overwrite(ctx, want); err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	got, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got.Categories) != 1 || got.Categories[0] != want.Categories[0] {
		t.Errorf("categories = %+v, want %+v", got.Categories, want.Categories)
	}
	if len(got.Products) != 1 || got.Products[0] != want.Products[0] {
		t.Errorf("products = %+v, want %+v", got.Products, want.Products)
	}
	if len(got.Sales) != 1 || got.Sales[0] != want.Sales[0] {
		t.Errorf("sales = %+v, want %+v", got.Sales, want.Sales)
	}
	if got.Earnings != want.Earnings {
		t.Errorf("earnings = %v, want %v", got.Earnings, want.Earnings)
	}
}
