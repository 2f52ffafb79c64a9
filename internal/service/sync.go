package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"nabil-inventory-api/internal/cloud"
	"nabil-inventory-api/internal/model"
	"nabil-inventory-api/internal/store"
)

var (
	// ErrSyncBusy is returned when a manual sync or import overlaps an
	// in-flight one.
	ErrSyncBusy = errors.New("a sync operation is already in progress")

	// ErrNoSession is returned when an operation requires a logged-in user.
	ErrNoSession = errors.New("no active session")
)

// SyncOptions holds coordinator timing knobs. Zero values fall back to the
// observed defaults.
type SyncOptions struct {
	// Debounce is the quiet period after the last change before a
	// background push fires.
	Debounce time.Duration

	// PushTimeout bounds one push or pull against the cloud.
	PushTimeout time.Duration

	// CleanupTimeout bounds the best-effort local wipe on logout.
	CleanupTimeout time.Duration
}

// SyncCoordinator decides when and how local and remote state are merged.
// It owns the session context explicitly - the current user is a field
// here, never an ambient global - and it is the only component besides the
// inventory service that touches the in-memory state tree.
//
// Conflict handling is deliberately coarse: login is remote-wins-if-present
// else empty, pushes carry the full snapshot so the last push wins, and
// live deliveries fully replace a collection. No field-level merge exists.
type SyncCoordinator struct {
	store   store.Store
	adapter cloud.Adapter
	inv     *InventoryService

	debounce       time.Duration
	pushTimeout    time.Duration
	cleanupTimeout time.Duration

	mu     sync.Mutex
	user   *model.User
	loaded bool
	busy   bool
	timer  *time.Timer
	subs   []cloud.Subscription

	// gen counts session transitions. In-flight pushes capture it with the
	// identity and re-verify before writing to the cloud, so a push that
	// straddles a logout or a user switch is dropped instead of landing
	// under the old identity's key.
	gen uint64
}

// NewSyncCoordinator wires the coordinator and registers itself as the
// inventory service's dirty listener. Returns nil if any dependency is nil.
func NewSyncCoordinator(st store.Store, adapter cloud.Adapter, inv *InventoryService, opts SyncOptions) *SyncCoordinator {
	if st == nil || adapter == nil || inv == nil {
		return nil
	}
	if opts.Debounce == 0 {
		opts.Debounce = 10 * time.Second
	}
	if opts.PushTimeout == 0 {
		opts.PushTimeout = 30 * time.Second
	}
	if opts.CleanupTimeout == 0 {
		opts.CleanupTimeout = 2 * time.Second
	}

	c := &SyncCoordinator{
		store:          st,
		adapter:        adapter,
		inv:            inv,
		debounce:       opts.Debounce,
		pushTimeout:    opts.PushTimeout,
		cleanupTimeout: opts.CleanupTimeout,
	}
	inv.SetDirtyFunc(c.MarkDirty)
	return c
}

// CurrentUser returns a copy of the active session identity, or nil.
func (c *SyncCoordinator) CurrentUser() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Resume restores a session persisted by a previous run: loads the stored
// user and local data without touching the cloud. Pull-on-login only
// happens on an explicit Login.
func (c *SyncCoordinator) Resume(ctx context.Context) error {
	user, err := c.store.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored session: %w", err)
	}
	if user == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.inv.LoadLocal(ctx); err != nil {
		return err
	}
	c.user = user
	c.startSubscriptionsLocked(user.CloudKey())
	c.loaded = true

	log.Printf("[SyncCoordinator] Resumed session for %s", user.CloudKey())
	return nil
}

// Login authenticates a new session: persists the user, pulls the remote
// snapshot for the identity, and either fully replaces local state with it
// or - when no snapshot exists yet - wipes local state so a new identity
// never inherits another identity's leftovers. This is the system's only
// conflict-resolution rule.
func (c *SyncCoordinator) Login(ctx context.Context, user model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSyncBusy
	}

	// Switching users: drop the old session's subscriptions first and
	// invalidate any push still in flight for it.
	c.cancelSubscriptionsLocked()
	c.stopTimerLocked()
	c.loaded = false
	c.gen++

	if err := c.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	identity := user.CloudKey()
	pullCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	snap, err := c.adapter.Pull(pullCtx, identity)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to fetch cloud snapshot: %w", err)
	}

	if snap != nil {
		if err := c.store.Overwrite(ctx, *snap); err != nil {
			return fmt.Errorf("failed to apply cloud snapshot: %w", err)
		}
		log.Printf("[SyncCoordinator] Login %s: cloud snapshot applied (%d categories, %d products, %d sales)",
			identity, len(snap.Categories), len(snap.Products), len(snap.Sales))
	} else {
		if err := c.store.ClearAll(ctx); err != nil {
			return fmt.Errorf("failed to reset local data: %w", err)
		}
		log.Printf("[SyncCoordinator] Login %s: no cloud snapshot, starting empty", identity)
	}

	if err := c.inv.LoadLocal(ctx); err != nil {
		return err
	}

	c.user = &user
	c.startSubscriptionsLocked(identity)
	c.loaded = true
	return nil
}

// Logout ends the session: subscriptions are canceled, local data is wiped
// best-effort under a bounded timeout, and the stored identity is removed.
// Wipe failures are logged and swallowed - leaving the account is a privacy
// transition that must never be blocked by a stuck store.
func (c *SyncCoordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelSubscriptionsLocked()
	c.stopTimerLocked()
	c.gen++

	wipeCtx, cancel := context.WithTimeout(ctx, c.cleanupTimeout)
	if err := c.store.ClearAll(wipeCtx); err != nil {
		log.Printf("[SyncCoordinator] Warning: local wipe on logout failed: %v", err)
	}
	cancel()

	if err := c.store.DeleteUser(ctx); err != nil {
		log.Printf("[SyncCoordinator] Warning: failed to remove stored session: %v", err)
	}

	c.inv.Reset()
	c.user = nil
	c.loaded = false
	log.Printf("[SyncCoordinator] Logged out, local data cleared")
}

// MarkDirty restarts the quiescence timer. Rapid successive edits collapse
// into a single trailing-edge push once the debounce window stays quiet.
// Armed only while a user is logged in and the initial load has completed.
func (c *SyncCoordinator) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user == nil || !c.loaded {
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.backgroundPush)
		return
	}
	c.timer.Reset(c.debounce)
}

// sessionValid reports whether the session captured at generation gen is
// still the active one.
func (c *SyncCoordinator) sessionValid(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.user != nil && c.loaded
}

// backgroundPush is the debounce expiry path: pushes the full current
// snapshot, logging failures silently. The next edit re-arms the timer, so
// a failed background push simply retries on the next quiet period.
func (c *SyncCoordinator) backgroundPush() {
	c.mu.Lock()
	if c.user == nil || !c.loaded || c.busy {
		c.mu.Unlock()
		return
	}
	identity := c.user.CloudKey()
	gen := c.gen
	c.mu.Unlock()

	snap := c.inv.State()

	// A logout or user switch may have landed while the snapshot was
	// taken; pushing it then would overwrite the identity's cloud data
	// with an empty or another session's tree.
	if !c.sessionValid(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
	defer cancel()

	if err := c.adapter.Push(ctx, identity, snap); err != nil {
		log.Printf("[SyncCoordinator] Warning: background push failed: %v", err)
		return
	}
	log.Printf("[SyncCoordinator] Background push completed for %s", identity)
}

// ManualSync pushes immediately, bypassing the debounce. The busy flag
// excludes overlapping manual pushes and imports; failures are returned to
// the caller, the one place sync errors become user-visible.
func (c *SyncCoordinator) ManualSync(ctx context.Context) error {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.busy {
		c.mu.Unlock()
		return ErrSyncBusy
	}
	c.busy = true
	c.stopTimerLocked()
	identity := c.user.CloudKey()
	gen := c.gen
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	snap := c.inv.State()
	if !c.sessionValid(gen) {
		return ErrNoSession
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()

	if err := c.adapter.Push(pushCtx, identity, snap); err != nil {
		return fmt.Errorf("cloud sync failed: %w", err)
	}
	log.Printf("[SyncCoordinator] Manual sync completed for %s", identity)
	return nil
}

// Import replaces the entire local dataset from an external snapshot (a
// backup file), following the same full-replace path as a cloud pull, then
// arms the debounce so the imported data propagates to the cloud. Mutually
// exclusive with an in-flight push via the shared busy flag.
func (c *SyncCoordinator) Import(ctx context.Context, snap model.Snapshot) error {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.busy {
		c.mu.Unlock()
		return ErrSyncBusy
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	if err := c.store.Overwrite(ctx, snap); err != nil {
		return fmt.Errorf("failed to import snapshot: %w", err)
	}
	if err := c.inv.LoadLocal(ctx); err != nil {
		return err
	}

	c.MarkDirty()
	log.Printf("[SyncCoordinator] Imported snapshot (%d categories, %d products, %d sales)",
		len(snap.Categories), len(snap.Products), len(snap.Sales))
	return nil
}

// startSubscriptionsLocked opens one live subscription per collection when
// the adapter supports it. Each delivery fully replaces the corresponding
// collection, local store first. Callers hold c.mu.
func (c *SyncCoordinator) startSubscriptionsLocked(identity string) {
	live, ok := c.adapter.(cloud.LiveAdapter)
	if !ok {
		return
	}

	for _, collection := range model.Collections {
		sub, err := live.Subscribe(context.Background(), identity, collection, c.onRemoteChange)
		if err != nil {
			log.Printf("[SyncCoordinator] Warning: subscribe %s failed: %v", collection, err)
			continue
		}
		c.subs = append(c.subs, sub)
	}
}

// onRemoteChange handles one live delivery. Deliveries that race a logout
// are dropped: the delivery is applied under the session lock, so once the
// logout wipe runs nothing can repopulate the store behind it.
func (c *SyncCoordinator) onRemoteChange(update cloud.CollectionUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user == nil || !c.loaded {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
	defer cancel()

	if err := c.inv.ApplyRemote(ctx, update); err != nil {
		log.Printf("[SyncCoordinator] Warning: failed to apply remote %s update: %v", update.Collection, err)
		return
	}
	log.Printf("[SyncCoordinator] Applied remote %s update", update.Collection)
}

// cancelSubscriptionsLocked cancels every open subscription. Cancel is
// idempotent, so racing a concurrent cancel is harmless. Callers hold c.mu.
func (c *SyncCoordinator) cancelSubscriptionsLocked() {
	for _, sub := range c.subs {
		sub.Cancel()
	}
	c.subs = nil
}

func (c *SyncCoordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Close stops the debounce timer and cancels subscriptions. It does not
// wipe data; that is Logout's job.
func (c *SyncCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelSubscriptionsLocked()
	c.stopTimerLocked()
}
