package cloud

import (
	"context"

	"nabil-inventory-api/internal/model"
)

// Adapter is the remote copy of one user's dataset. Implementations are
// swappable at startup; the coordinator never knows which backend it talks
// to. Every method reports failures as plain errors - never panics into
// caller code paths - and the coordinator owns user-visible messaging.
type Adapter interface {
	// Push persists the full snapshot under a key scoped to identity,
	// overwriting whatever was there. No versioning: last push wins.
	Push(ctx context.Context, identity string, snap model.Snapshot) error

	// Pull retrieves the last pushed snapshot for identity. (nil, nil)
	// means "nothing yet" - distinguishable from an empty dataset.
	Pull(ctx context.Context, identity string) (*model.Snapshot, error)

	Close() error
}

// CollectionUpdate is one live-subscription delivery: the FULL current
// contents of a single collection, not a delta. Only the slice matching
// Collection is populated.
type CollectionUpdate struct {
	Collection string
	Categories []model.Category
	Products   []model.Product
	Sales      []model.SaleRecord
}

// Subscription is the cancel handle returned by Subscribe. Cancel is
// idempotent; canceling after logout must not resurrect state.
type Subscription interface {
	Cancel()
}

// LiveAdapter is implemented by backends that can watch remote changes.
// The coordinator type-asserts for it after login.
type LiveAdapter interface {
	Adapter

	// Subscribe invokes onChange with the full current contents of the
	// named collection whenever the remote changes, until the returned
	// handle is canceled.
	Subscribe(ctx context.Context, identity, collection string, onChange func(CollectionUpdate)) (Subscription, error)
}
