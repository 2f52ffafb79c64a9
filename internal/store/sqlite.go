package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"nabil-inventory-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// Scalar slot keys. The prefix matches the app's historical on-device key
// space so a database carried over from an earlier build keeps its data.
const (
	statePrefix = "NabilInventory_"
	keyEarnings = statePrefix + "TOTAL_EARNINGS"
	keyUser     = statePrefix + "CURRENT_USER"
)

// SQLiteStore implements Store on a single on-device SQLite file.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the local database file.
// dbPath is the path to the SQLite database file (e.g., "./data/inventory.db")
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		barcode TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		product_image TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 0,
		sold_at_price REAL NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
	CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp);
	`
	_, err := db.Exec(query)
	return err
}

// execer covers both *sql.DB and *sql.Tx so the upsert helpers can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertCategory(ctx context.Context, e execer, c model.Category) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO categories (id, name, image) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, image = excluded.image`,
		c.ID, c.Name, c.Image)
	return err
}

func upsertProduct(ctx context.Context, e execer, p model.Product) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO products (id, name, category_id, price, quantity, barcode, image)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_id = excluded.category_id,
			price = excluded.price,
			quantity = excluded.quantity,
			barcode = excluded.barcode,
			image = excluded.image`,
		p.ID, p.Name, p.CategoryID, p.Price, p.Quantity, p.Barcode, p.Image)
	return err
}

func upsertSale(ctx context.Context, e execer, s model.SaleRecord) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO sales (id, product_id, product_name, product_image, quantity, sold_at_price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id,
			product_name = excluded.product_name,
			product_image = excluded.product_image,
			quantity = excluded.quantity,
			sold_at_price = excluded.sold_at_price,
			timestamp = excluded.timestamp`,
		s.ID, s.ProductID, s.ProductName, s.ProductImage, s.Quantity, s.SoldAtPrice, s.Timestamp)
	return err
}

func setState(ctx context.Context, e execer, key, value string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// ListCategories returns every category record.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, image FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListProducts returns every product record.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category_id, price, quantity, barcode, image FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Quantity, &p.Barcode, &p.Image); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSales returns every sale record.
func (s *SQLiteStore) ListSales(ctx context.Context) ([]model.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, product_id, product_name, product_image, quantity, sold_at_price, timestamp FROM sales`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	out := []model.SaleRecord{}
	for rows.Next() {
		var rec model.SaleRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.ProductImage, &rec.Quantity, &rec.SoldAtPrice, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveCategory upserts a category by id.
func (s *SQLiteStore) SaveCategory(ctx context.Context, c model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsertCategory(ctx, s.db, c); err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// SaveProduct upserts a product by id.
func (s *SQLiteStore) SaveProduct(ctx context.Context, p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsertProduct(ctx, s.db, p); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// SaveSale upserts a sale record by id.
func (s *SQLiteStore) SaveSale(ctx context.Context, rec model.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsertSale(ctx, s.db, rec); err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}
	return nil
}

// DeleteCategory removes a category by id; absent ids are a no-op.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// DeleteProduct removes a product by id; absent ids are a no-op.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// DeleteCategoryCascade removes the category and every product referencing
// it in a single transaction.
func (s *SQLiteStore) DeleteCategoryCascade(ctx context.Context, categoryID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM products WHERE category_id = ?`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find category products: %w", err)
	}
	removed := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE category_id = ?`, categoryID); err != nil {
		return nil, fmt.Errorf("failed to delete category products: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID); err != nil {
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// ApplySale commits the sale record, the earnings total, and the product
// decrement-or-removal in one transaction. Either all three effects land
// or none do.
func (s *SQLiteStore) ApplySale(ctx context.Context, sale model.SaleRecord, updated *model.Product, removeProductID string, newEarnings float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSale(ctx, tx, sale); err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	if err := setState(ctx, tx, keyEarnings, strconv.FormatFloat(newEarnings, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save earnings: %w", err)
	}

	switch {
	case updated != nil:
		if err := upsertProduct(ctx, tx, *updated); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
	case removeProductID != "":
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, removeProductID); err != nil {
			return fmt.Errorf("failed to remove sold-out product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetEarnings reads the running earnings total; 0 when never saved.
func (s *SQLiteStore) GetEarnings(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, keyEarnings).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get earnings: %w", err)
	}

	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt earnings value %q: %w", value, err)
	}
	return amount, nil
}

// SaveEarnings replaces the running earnings total.
func (s *SQLiteStore) SaveEarnings(ctx context.Context, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := setState(ctx, s.db, keyEarnings, strconv.FormatFloat(amount, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to save earnings: %w", err)
	}
	return nil
}

// GetUser reads the persisted session identity; nil when logged out.
func (s *SQLiteStore) GetUser(ctx context.Context) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, keyUser).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var u model.User
	if err := json.Unmarshal([]byte(value), &u); err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	return &u, nil
}

// SaveUser replaces the persisted session identity.
func (s *SQLiteStore) SaveUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	if err := setState(ctx, s.db, keyUser, string(data)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// DeleteUser removes the persisted session identity.
func (s *SQLiteStore) DeleteUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, keyUser); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ReplaceCollection wholesale-replaces one collection inside a transaction.
// Used by live-subscription deliveries, which always carry the full remote
// contents rather than deltas.
func (s *SQLiteStore) ReplaceCollection(ctx context.Context, collection string, categories []model.Category, products []model.Product, sales []model.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch collection {
	case model.CollectionCategories:
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return err
		}
		for _, c := range categories {
			if err := upsertCategory(ctx, tx, c); err != nil {
				return err
			}
		}
	case model.CollectionProducts:
		if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		for _, p := range products {
			if err := upsertProduct(ctx, tx, p); err != nil {
				return err
			}
		}
	case model.CollectionSales:
		if _, err := tx.ExecContext(ctx, `DELETE FROM sales`); err != nil {
			return err
		}
		for _, rec := range sales {
			if err := upsertSale(ctx, tx, rec); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Overwrite clears then bulk-loads all three collections and the earnings
// scalar from the snapshot in one transaction.
func (s *SQLiteStore) Overwrite(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"categories", "products", "sales"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Categories {
		if err := upsertCategory(ctx, tx, c); err != nil {
			return fmt.Errorf("failed to load category %s: %w", c.ID, err)
		}
	}
	for _, p := range snap.Products {
		if err := upsertProduct(ctx, tx, p); err != nil {
			return fmt.Errorf("failed to load product %s: %w", p.ID, err)
		}
	}
	for _, rec := range snap.Sales {
		if err := upsertSale(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to load sale %s: %w", rec.ID, err)
		}
	}
	if err := setState(ctx, tx, keyEarnings, strconv.FormatFloat(snap.Earnings, 'f', -1, 64)); err != nil {
		return fmt.Errorf("failed to load earnings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClearAll empties the three collections and resets the earnings scalar.
// The current-user slot is left alone; logout removes it separately.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"categories", "products", "sales"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, keyEarnings); err != nil {
		return fmt.Errorf("failed to reset earnings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Snapshot assembles the full current dataset.
func (s *SQLiteStore) Snapshot(ctx context.Context) (model.Snapshot, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	products, err := s.ListProducts(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	earnings, err := s.GetEarnings(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	return model.Snapshot{
		Categories: categories,
		Products:   products,
		Sales:      sales,
		Earnings:   earnings,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
