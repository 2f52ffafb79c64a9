package store

import (
	"context"

	"nabil-inventory-api/internal/model"
)

// Store defines the on-device persistence contract: three keyed record
// collections plus two scalar slots (earnings total, current user). The
// store holds at most one user's data at a time; switching users goes
// through ClearAll.
type Store interface {
	// ListCategories returns every category; an empty slice, never an
	// error, when the collection is empty.
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListSales(ctx context.Context) ([]model.SaleRecord, error)

	// SaveCategory upserts by id: creates if absent, replaces if present.
	SaveCategory(ctx context.Context, c model.Category) error
	SaveProduct(ctx context.Context, p model.Product) error
	SaveSale(ctx context.Context, s model.SaleRecord) error

	// DeleteCategory removes by id; a no-op, not an error, when absent.
	DeleteCategory(ctx context.Context, id string) error
	DeleteProduct(ctx context.Context, id string) error

	// DeleteCategoryCascade removes the category and every product that
	// references it in one transaction. Returns the ids of the removed
	// products so in-memory state can be updated after commit.
	DeleteCategoryCascade(ctx context.Context, categoryID string) ([]string, error)

	// ApplySale commits the three effects of one sale atomically: append
	// the sale record, persist the earnings total, and either save the
	// decremented product (updated != nil) or delete it entirely
	// (removeProductID != ""). Exactly one of the two product arguments is
	// set per call.
	ApplySale(ctx context.Context, sale model.SaleRecord, updated *model.Product, removeProductID string, newEarnings float64) error

	GetEarnings(ctx context.Context) (float64, error)
	SaveEarnings(ctx context.Context, amount float64) error

	// GetUser returns the persisted session identity, or nil when no user
	// is logged in.
	GetUser(ctx context.Context) (*model.User, error)
	SaveUser(ctx context.Context, u model.User) error
	DeleteUser(ctx context.Context) error

	// ReplaceCollection wholesale-replaces one collection's contents in a
	// transaction. Only the slice matching the named collection is read.
	ReplaceCollection(ctx context.Context, collection string, categories []model.Category, products []model.Product, sales []model.SaleRecord) error

	// Overwrite clears the three collections and the earnings scalar, then
	// bulk-loads the snapshot, all in one transaction. A full replace:
	// local records absent from the snapshot are gone.
	Overwrite(ctx context.Context, snap model.Snapshot) error

	// ClearAll empties the three collections and resets earnings. It
	// honors the context deadline; logout paths bound it and treat failure
	// as best-effort.
	ClearAll(ctx context.Context) error

	// Snapshot assembles the full current dataset.
	Snapshot(ctx context.Context) (model.Snapshot, error)

	Close() error
}
