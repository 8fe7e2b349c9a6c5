package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/models"
)

// Connect opens a connection to the SQLite database and ensures the schema exists.
// It automatically applies recommended settings for concurrency (WAL mode).
func Connect(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	productTable := `
	CREATE TABLE IF NOT EXISTS product (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  category TEXT NOT NULL,
	  title TEXT NOT NULL,
	  description TEXT NOT NULL,
	  price REAL NOT NULL,
	  rating INTEGER NOT NULL,
	  num_of_reviews INTEGER NOT NULL,
	  first_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  last_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  is_active INTEGER DEFAULT 1,
	  UNIQUE (category, title, description)
	);
	CREATE INDEX IF NOT EXISTS idx_product_category ON product(category, is_active);
	`
	_, err := db.Exec(productTable)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MarkCategoryInactive sets is_active=0 for every product of a category.
// It is called before a category is re-scraped.
func MarkCategoryInactive(ctx context.Context, db execer, category string) error {
	_, err := db.ExecContext(ctx, `UPDATE product SET is_active = 0 WHERE category = ? AND is_active = 1;`, category)
	if err != nil {
		return fmt.Errorf("failed to mark %s products as inactive: %w", category, err)
	}
	return nil
}

// SaveProducts performs a batch UPSERT of a category's products.
// It marks saved items as active and updates their 'last_seen_at' timestamp.
func SaveProducts(ctx context.Context, db *sql.DB, category string, items []models.Product) (int64, error) {
	return inTx(ctx, db, func(tx *sql.Tx) (int64, error) {
		return upsertProducts(ctx, tx, category, items)
	})
}

// ReplaceCategory records a fresh scrape of a category: products not in
// items end up inactive. Either everything is applied or nothing is.
func ReplaceCategory(ctx context.Context, db *sql.DB, category string, items []models.Product) (int64, error) {
	return inTx(ctx, db, func(tx *sql.Tx) (int64, error) {
		if err := MarkCategoryInactive(ctx, tx, category); err != nil {
			return 0, err
		}
		return upsertProducts(ctx, tx, category, items)
	})
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (int64, error)) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	n, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func upsertProducts(ctx context.Context, tx *sql.Tx, category string, items []models.Product) (int64, error) {
	upsertSQL := `
	INSERT INTO product (
	  category, title, description, price, rating, num_of_reviews, last_seen_at, is_active
	) VALUES (
	  ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, 1
	) ON CONFLICT(category, title, description) DO UPDATE SET
	  price = excluded.price,
	  rating = excluded.rating,
	  num_of_reviews = excluded.num_of_reviews,
	  last_seen_at = CURRENT_TIMESTAMP,
	  is_active = 1;
	`

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64
	for _, item := range items {
		item = item.Sanitized()
		res, err := stmt.ExecContext(ctx,
			category,
			item.Title,
			item.Description,
			item.Price,
			item.Rating,
			item.NumReviews,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert %q: %w", item.Title, err)
		}
		rows, _ := res.RowsAffected()
		totalAffected += rows
	}
	return totalAffected, nil
}

// GetActiveProducts returns the products currently listed in a category,
// or in every category when category is empty.
func GetActiveProducts(db *sql.DB, category string) ([]StoredProduct, error) {
	rows, err := db.Query(`
		SELECT category, title, description, price, rating, num_of_reviews, last_seen_at
		FROM product
		WHERE is_active = 1 AND (? = '' OR category = ?)
		ORDER BY category, id
	`, category, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StoredProduct
	for rows.Next() {
		var sp StoredProduct
		p := &sp.Product
		if err := rows.Scan(&sp.Category, &p.Title, &p.Description, &p.Price, &p.Rating, &p.NumReviews, &sp.LastSeenAt); err != nil {
			return nil, err
		}
		items = append(items, sp)
	}
	return items, rows.Err()
}

// StoredProduct is a product row together with its bookkeeping columns.
type StoredProduct struct {
	models.Product
	Category   string
	LastSeenAt time.Time
}

// Sink adapts the store to the scraper's per-target save step.
type Sink struct {
	DB *sql.DB
}

func (s Sink) Save(ctx context.Context, target config.Target, products []models.Product) error {
	if _, err := ReplaceCategory(ctx, s.DB, target.Name, products); err != nil {
		return fmt.Errorf("failed to save %s products: %w", target.Name, err)
	}
	return nil
}
