package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"nabil-inventory-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// CollectionsConfig holds settings for the Redis multi-collection backend.
type CollectionsConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// CollectionsAdapter stores each of the three collections as a separate
// addressable set of documents under a per-user namespace: one Redis hash
// per collection, one field per document id. Every document is individually
// creatable, updatable, and deletable, and a pub/sub channel per collection
// carries live change events. Earnings stays a stored scalar (never derived
// from the sales collection) so the two sources cannot drift.
type CollectionsAdapter struct {
	client    *redis.Client
	keyPrefix string

	// readTimeout bounds the re-read a subscription performs per event.
	readTimeout time.Duration
}

// NewCollectionsAdapter connects to Redis and verifies the connection.
func NewCollectionsAdapter(cfg CollectionsConfig) (*CollectionsAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "nabil:cloud"
	}

	log.Printf("[CollectionsAdapter] Initialized - addr:%s db:%d prefix:%s", cfg.Addr, cfg.DB, keyPrefix)
	return &CollectionsAdapter{
		client:      client,
		keyPrefix:   keyPrefix,
		readTimeout: 10 * time.Second,
	}, nil
}

func (a *CollectionsAdapter) collectionKey(identity, collection string) string {
	return a.keyPrefix + ":" + identity + ":" + collection
}

func (a *CollectionsAdapter) earningsKey(identity string) string {
	return a.keyPrefix + ":" + identity + ":earnings"
}

func (a *CollectionsAdapter) lastSyncKey(identity string) string {
	return a.keyPrefix + ":" + identity + ":last_sync"
}

func (a *CollectionsAdapter) channel(identity, collection string) string {
	return a.keyPrefix + ":" + identity + ":events:" + collection
}

// Push rewrites every per-user collection hash document by document and
// publishes one change event per collection.
func (a *CollectionsAdapter) Push(ctx context.Context, identity string, snap model.Snapshot) error {
	if identity == "" {
		return fmt.Errorf("empty identity")
	}

	now := time.Now().UnixMilli()

	pipe := a.client.Pipeline()
	for _, collection := range model.Collections {
		pipe.Del(ctx, a.collectionKey(identity, collection))
	}
	for _, c := range snap.Categories {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to serialize category %s: %w", c.ID, err)
		}
		pipe.HSet(ctx, a.collectionKey(identity, model.CollectionCategories), c.ID, data)
	}
	for _, p := range snap.Products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to serialize product %s: %w", p.ID, err)
		}
		pipe.HSet(ctx, a.collectionKey(identity, model.CollectionProducts), p.ID, data)
	}
	for _, rec := range snap.Sales {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to serialize sale %s: %w", rec.ID, err)
		}
		pipe.HSet(ctx, a.collectionKey(identity, model.CollectionSales), rec.ID, data)
	}
	pipe.Set(ctx, a.earningsKey(identity), strconv.FormatFloat(snap.Earnings, 'f', -1, 64), 0)
	pipe.Set(ctx, a.lastSyncKey(identity), strconv.FormatInt(now, 10), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push snapshot: %w", err)
	}

	// Notify subscribers after the write lands. Deliveries re-read the
	// full collection, so a lost event only delays convergence until the
	// next push.
	for _, collection := range model.Collections {
		if err := a.client.Publish(ctx, a.channel(identity, collection), now).Err(); err != nil {
			log.Printf("[CollectionsAdapter] Warning: publish %s failed: %v", collection, err)
		}
	}
	return nil
}

// Pull assembles the snapshot from the per-user hashes. (nil, nil) when the
// identity has never pushed - an existing-but-empty dataset still carries
// its last_sync marker and resolves to an empty snapshot instead.
func (a *CollectionsAdapter) Pull(ctx context.Context, identity string) (*model.Snapshot, error) {
	if identity == "" {
		return nil, fmt.Errorf("empty identity")
	}

	lastSyncRaw, err := a.client.Get(ctx, a.lastSyncKey(identity)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check remote dataset: %w", err)
	}
	lastSync, _ := strconv.ParseInt(lastSyncRaw, 10, 64)

	snap := model.Snapshot{
		Categories: []model.Category{},
		Products:   []model.Product{},
		Sales:      []model.SaleRecord{},
		LastSync:   lastSync,
	}

	for _, collection := range model.Collections {
		update, err := a.readCollection(ctx, identity, collection)
		if err != nil {
			return nil, err
		}
		switch collection {
		case model.CollectionCategories:
			snap.Categories = update.Categories
		case model.CollectionProducts:
			snap.Products = update.Products
		case model.CollectionSales:
			snap.Sales = update.Sales
		}
	}

	earningsRaw, err := a.client.Get(ctx, a.earningsKey(identity)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read earnings: %w", err)
	}
	if err == nil {
		snap.Earnings, _ = strconv.ParseFloat(earningsRaw, 64)
	}

	return &snap, nil
}

// readCollection fetches the full contents of one collection hash.
func (a *CollectionsAdapter) readCollection(ctx context.Context, identity, collection string) (CollectionUpdate, error) {
	update := CollectionUpdate{
		Collection: collection,
		Categories: []model.Category{},
		Products:   []model.Product{},
		Sales:      []model.SaleRecord{},
	}

	fields, err := a.client.HGetAll(ctx, a.collectionKey(identity, collection)).Result()
	if err != nil {
		return update, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	for id, raw := range fields {
		switch collection {
		case model.CollectionCategories:
			var c model.Category
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return update, fmt.Errorf("corrupt category document %s: %w", id, err)
			}
			update.Categories = append(update.Categories, c)
		case model.CollectionProducts:
			var p model.Product
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return update, fmt.Errorf("corrupt product document %s: %w", id, err)
			}
			update.Products = append(update.Products, p)
		case model.CollectionSales:
			var rec model.SaleRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return update, fmt.Errorf("corrupt sale document %s: %w", id, err)
			}
			update.Sales = append(update.Sales, rec)
		default:
			return update, fmt.Errorf("unknown collection %q", collection)
		}
	}
	return update, nil
}

// collectionsSubscription wraps a pub/sub channel with an idempotent Cancel.
type collectionsSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *collectionsSubscription) Cancel() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
}

// Subscribe watches one collection for the identity. Every change event
// triggers a re-read of the full collection, which is delivered to
// onChange. Delivery order is not guaranteed between events; each delivery
// carries complete contents, so the last arrival wins.
func (a *CollectionsAdapter) Subscribe(ctx context.Context, identity, collection string, onChange func(CollectionUpdate)) (Subscription, error) {
	if identity == "" {
		return nil, fmt.Errorf("empty identity")
	}

	pubsub := a.client.Subscribe(ctx, a.channel(identity, collection))

	// Force the subscription onto the wire before returning, so no event
	// published after this call is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	sub := &collectionsSubscription{pubsub: pubsub}

	go func() {
		for range pubsub.Channel() {
			readCtx, cancel := context.WithTimeout(context.Background(), a.readTimeout)
			update, err := a.readCollection(readCtx, identity, collection)
			cancel()
			if err != nil {
				log.Printf("[CollectionsAdapter] Warning: re-read of %s failed: %v", collection, err)
				continue
			}
			onChange(update)
		}
	}()

	log.Printf("[CollectionsAdapter] Subscribed to %s for %s", collection, identity)
	return sub, nil
}

// Close releases the Redis connection pool.
func (a *CollectionsAdapter) Close() error {
	return a.client.Close()
}

var _ LiveAdapter = (*CollectionsAdapter)(nil)
