package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storefront/internal/domain"
)

// DB wraps the SQL connection backing the stores.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// NewSQLite opens (or creates) the SQLite file at dbPath and migrates it.
func NewSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection prevents SQLITE_BUSY
	conn.SetMaxOpenConns(1)
	return newDB(conn, Dialect{Driver: domain.DatabaseDriverSQLite})
}

// Open connects to a SQL server with the given driver and DSN and
// migrates it. The driver package must be registered by the caller.
func Open(driver domain.DatabaseDriver, dsn string) (*DB, error) {
	if driver == domain.DatabaseDriverSQLite {
		return NewSQLite(dsn)
	}
	conn, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)
	return newDB(conn, Dialect{Driver: driver})
}

func newDB(conn *sql.DB, d Dialect) (*DB, error) {
	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

// tx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) migrate() error {
	d := db.dialect
	id := "VARCHAR(64)"
	ts := d.timestampType()
	text := d.longTextType()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			id ` + id + ` PRIMARY KEY,
			slug VARCHAR(191) NOT NULL UNIQUE,
			title TEXT NOT NULL,
			content_json ` + text + ` NOT NULL,
			published BOOLEAN NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS page_history (
			page_id ` + id + ` NOT NULL,
			seq INTEGER NOT NULL,
			snapshot_json ` + text + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			PRIMARY KEY (page_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS page_history_state (
			page_id ` + id + ` PRIMARY KEY,
			cursor_pos INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`ALTER TABLE page_history_state ADD COLUMN dirty BOOLEAN NOT NULL DEFAULT FALSE`,
		`CREATE TABLE IF NOT EXISTS products (
			id ` + id + ` PRIMARY KEY,
			slug VARCHAR(191) NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			image_url TEXT NOT NULL,
			affiliate_url TEXT NOT NULL,
			category VARCHAR(128) NOT NULL,
			featured BOOLEAN NOT NULL,
			active BOOLEAN NOT NULL,
			sort_order INTEGER NOT NULL,
			click_count BIGINT NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id ` + id + ` PRIMARY KEY,
			product_id ` + id + ` NOT NULL,
			referrer TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			rolled_up BOOLEAN NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		d.createIndex("idx_clicks_product", "clicks", "product_id"),
		d.createIndex("idx_clicks_rolled_up", "clicks", "rolled_up, created_at"),
		d.createIndex("idx_products_category", "products", "category"),
		`CREATE TABLE IF NOT EXISTS site_content (
			content_key VARCHAR(191) PRIMARY KEY,
			content_value TEXT NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nav_links (
			id ` + id + ` PRIMARY KEY,
			label TEXT NOT NULL,
			href TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			external BOOLEAN NOT NULL,
			visible BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			email VARCHAR(255) PRIMARY KEY,
			source VARCHAR(128) NOT NULL,
			synced BOOLEAN NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		d.createIndex("idx_subscribers_synced", "subscribers", "synced"),
		`CREATE TABLE IF NOT EXISTS mcp_approvals (
			id ` + id + ` PRIMARY KEY,
			tool VARCHAR(64) NOT NULL,
			description TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			metadata TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// MySQL has no CREATE INDEX IF NOT EXISTS, so an existing index is fine
			if strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			// ALTER TABLE fails once the column exists
			if strings.HasPrefix(m, "ALTER TABLE") && columnExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func columnExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}
