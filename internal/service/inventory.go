package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"nabil-inventory-api/internal/cloud"
	"nabil-inventory-api/internal/model"
	"nabil-inventory-api/internal/store"
	"nabil-inventory-api/pkg/uid"
)

var (
	// ErrProductNotFound is returned when a sale or lookup references an
	// unknown product.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidQuantity is returned when a sale quantity is below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// InventoryService owns the single in-memory state tree (categories,
// products, sales, earnings) and every entity mutation. Mutations are
// write-through: the local store commits first, memory updates second, and
// a dirty notification reaches the sync coordinator last. Nothing else
// writes to the state tree.
//
// Lock discipline: writeMu serializes each whole mutation - the read of
// current state, the derived computation, and the store commit - so
// overlapping requests cannot both derive from the same starting state and
// lose each other's updates. mu guards the tree for concurrent readers.
// Lock order is writeMu then mu; the dirty callback runs only after both
// are released.
type InventoryService struct {
	store store.Store

	writeMu sync.Mutex
	mu      sync.RWMutex

	categories []model.Category
	products   []model.Product
	sales      []model.SaleRecord
	earnings   float64

	// lastSaleMs is the commit clock of the newest sale, guarded by
	// writeMu. Sales committing inside the same millisecond bump forward
	// so ids stay unique.
	lastSaleMs int64

	// dirty is set by the coordinator; called after every successful
	// local mutation to arm the debounced push.
	dirty func()

	// now is swap-able for tests.
	now func() time.Time
}

// NewInventoryService creates the service. Returns nil if st is nil
// (required dependency).
func NewInventoryService(st store.Store) *InventoryService {
	if st == nil {
		return nil
	}
	return &InventoryService{
		store: st,
		now:   time.Now,
	}
}

// SetDirtyFunc registers the coordinator's change notification. Must be
// called before any mutation; a nil func disables notifications.
func (s *InventoryService) SetDirtyFunc(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = fn
}

func (s *InventoryService) markDirty() {
	s.mu.RLock()
	fn := s.dirty
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// LoadLocal replaces the in-memory state tree with the store's current
// contents. Sales are ordered newest first, the order the log displays.
func (s *InventoryService) LoadLocal(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sales: %w", err)
	}
	earnings, err := s.store.GetEarnings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load earnings: %w", err)
	}

	sort.Slice(sales, func(i, j int) bool { return sales[i].Timestamp > sales[j].Timestamp })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
	s.products = products
	s.sales = sales
	s.earnings = earnings
	return nil
}

// State returns a defensive copy of the current snapshot for the UI layer.
func (s *InventoryService) State() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.Snapshot{
		Categories: make([]model.Category, len(s.categories)),
		Products:   make([]model.Product, len(s.products)),
		Sales:      make([]model.SaleRecord, len(s.sales)),
		Earnings:   s.earnings,
	}
	copy(snap.Categories, s.categories)
	copy(snap.Products, s.products)
	copy(snap.Sales, s.sales)
	return snap
}

// ProductByBarcode returns the product carrying the scanned barcode, or
// ErrProductNotFound when no product has it.
func (s *InventoryService) ProductByBarcode(code string) (model.Product, error) {
	if code == "" {
		return model.Product{}, ErrProductNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Barcode == code {
			return p, nil
		}
	}
	return model.Product{}, ErrProductNotFound
}

// AddCategory upserts a category: store first, then memory. An empty id
// gets a generated one.
func (s *InventoryService) AddCategory(ctx context.Context, c model.Category) (model.Category, error) {
	if c.ID == "" {
		c.ID = uid.New()
	}

	s.writeMu.Lock()
	if err := s.store.SaveCategory(ctx, c); err != nil {
		s.writeMu.Unlock()
		return model.Category{}, err
	}

	s.mu.Lock()
	s.categories = upsertByID(s.categories, c, func(x model.Category) string { return x.ID })
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.markDirty()
	return c, nil
}

// AddProduct upserts a product (also the edit path).
func (s *InventoryService) AddProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if p.ID == "" {
		p.ID = uid.New()
	}

	s.writeMu.Lock()
	if err := s.store.SaveProduct(ctx, p); err != nil {
		s.writeMu.Unlock()
		return model.Product{}, err
	}

	s.mu.Lock()
	s.products = upsertByID(s.products, p, func(x model.Product) string { return x.ID })
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.markDirty()
	return p, nil
}

// RecordSale applies one sale as a single logical transaction with three
// effects: append the immutable sale record with denormalized product
// fields, increase the earnings total by unitPrice x qty, and either
// persist the decremented product or remove it when stock reaches zero.
// The store commits all three atomically, and concurrent sales are
// serialized so each derives from the state the previous one committed.
func (s *InventoryService) RecordSale(ctx context.Context, productID string, qty int, unitPrice float64) (model.SaleRecord, error) {
	if qty < 1 {
		return model.SaleRecord{}, ErrInvalidQuantity
	}

	s.writeMu.Lock()

	s.mu.RLock()
	var product *model.Product
	for i := range s.products {
		if s.products[i].ID == productID {
			p := s.products[i]
			product = &p
			break
		}
	}
	earnings := s.earnings
	s.mu.RUnlock()

	if product == nil {
		s.writeMu.Unlock()
		return model.SaleRecord{}, ErrProductNotFound
	}

	nowMs := s.now().UnixMilli()
	if nowMs <= s.lastSaleMs {
		nowMs = s.lastSaleMs + 1
	}
	s.lastSaleMs = nowMs

	sale := model.SaleRecord{
		ID:           uid.TimeID(time.UnixMilli(nowMs)),
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.Image,
		Quantity:     qty,
		SoldAtPrice:  unitPrice,
		Timestamp:    nowMs,
	}
	newEarnings := earnings + unitPrice*float64(qty)

	newQty := product.Quantity - qty
	var updated *model.Product
	removeID := ""
	if newQty <= 0 {
		removeID = product.ID
	} else {
		u := *product
		u.Quantity = newQty
		updated = &u
	}

	if err := s.store.ApplySale(ctx, sale, updated, removeID, newEarnings); err != nil {
		s.writeMu.Unlock()
		return model.SaleRecord{}, err
	}

	s.mu.Lock()
	s.sales = append([]model.SaleRecord{sale}, s.sales...)
	s.earnings = newEarnings
	if removeID != "" {
		s.products = removeByID(s.products, removeID, func(x model.Product) string { return x.ID })
	} else {
		s.products = upsertByID(s.products, *updated, func(x model.Product) string { return x.ID })
	}
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.markDirty()
	return sale, nil
}

// DeleteProduct removes a product by id.
func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	s.writeMu.Lock()
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		s.writeMu.Unlock()
		return err
	}

	s.mu.Lock()
	s.products = removeByID(s.products, id, func(x model.Product) string { return x.ID })
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.markDirty()
	return nil
}

// DeleteCategory removes a category and cascades to every product that
// references it. Products of other categories are untouched. The cascade
// commits as one store transaction; memory updates after the commit.
func (s *InventoryService) DeleteCategory(ctx context.Context, id string) error {
	s.writeMu.Lock()
	removed, err := s.store.DeleteCategoryCascade(ctx, id)
	if err != nil {
		s.writeMu.Unlock()
		return err
	}

	removedSet := make(map[string]bool, len(removed))
	for _, pid := range removed {
		removedSet[pid] = true
	}

	s.mu.Lock()
	s.categories = removeByID(s.categories, id, func(x model.Category) string { return x.ID })
	kept := s.products[:0]
	for _, p := range s.products {
		if !removedSet[p.ID] {
			kept = append(kept, p)
		}
	}
	s.products = kept
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.markDirty()
	return nil
}

// ApplyRemote handles one live-subscription delivery: the full remote
// contents of a single collection replace the local copy, store first,
// memory second. Remote deliveries never mark dirty - echoing them back as
// pushes would loop forever.
func (s *InventoryService) ApplyRemote(ctx context.Context, update cloud.CollectionUpdate) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.ReplaceCollection(ctx, update.Collection, update.Categories, update.Products, update.Sales); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch update.Collection {
	case model.CollectionCategories:
		s.categories = update.Categories
	case model.CollectionProducts:
		s.products = update.Products
	case model.CollectionSales:
		sales := make([]model.SaleRecord, len(update.Sales))
		copy(sales, update.Sales)
		sort.Slice(sales, func(i, j int) bool { return sales[i].Timestamp > sales[j].Timestamp })
		s.sales = sales
	default:
		return fmt.Errorf("unknown collection %q", update.Collection)
	}
	return nil
}

// Reset empties the in-memory state tree. Used on logout and when no user
// is present; the store is wiped separately.
func (s *InventoryService) Reset() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = nil
	s.products = nil
	s.sales = nil
	s.earnings = 0
}

func upsertByID[T any](items []T, item T, id func(T) string) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func removeByID[T any](items []T, target string, id func(T) string) []T {
	kept := items[:0]
	for _, it := range items {
		if id(it) != target {
			kept = append(kept, it)
		}
	}
	return kept
}
