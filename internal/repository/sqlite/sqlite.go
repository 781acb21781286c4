// Package sqlite implements the repository interfaces (and the inline
// blob.Store) on SQLite.
//
// The pure-Go modernc.org/sqlite driver is used so the binary builds without
// a C toolchain. Queries go through sqlx, which scans rows straight into the
// db-tagged model structs.
//
// CONNECTION POOL:
// The pool is capped at one open connection. SQLite allows a single writer
// at a time anyway, and one connection means ":memory:" databases behave as
// one database instead of one per pooled connection. Code that holds a
// transaction must never call back into db.conn until it commits, or it
// would wait on itself.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps the sqlx connection and implements every repository interface.
type DB struct {
	conn *sqlx.DB
}

// New opens (creating if needed) the database at dbPath and runs
// migrations. Use ":memory:" for a throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       REAL NOT NULL DEFAULT 0,
			brand       TEXT NOT NULL DEFAULT '',
			image       TEXT NOT NULL DEFAULT '',
			search_key  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS featured_items (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image       TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating catalog tables: %w", err)
	}

	// email is stored lower-cased by the service, so a plain UNIQUE is
	// enough. google_id is NULL for password accounts; SQLite allows many
	// NULLs under a UNIQUE constraint.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			google_id       TEXT UNIQUE,
			name            TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL DEFAULT '',
			phone           TEXT NOT NULL DEFAULT '',
			gender          TEXT NOT NULL DEFAULT '',
			address         TEXT NOT NULL DEFAULT '',
			profile_picture TEXT,
			role            TEXT NOT NULL DEFAULT 'user',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// The UNIQUE(user_id, product_id) constraint is what the cart merge
	// upsert conflicts on.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS cart_items (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			product_id INTEGER NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			price      REAL NOT NULL DEFAULT 0,
			image      TEXT NOT NULL DEFAULT '',
			quantity   INTEGER NOT NULL CHECK (quantity >= 1),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, product_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating cart_items table: %w", err)
	}

	// Orders keep no foreign key to users: an order is a historical record
	// and survives an admin deleting the account.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			total      REAL NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id, created_at);

		CREATE TABLE IF NOT EXISTS order_items (
			order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			price      REAL NOT NULL,
			quantity   INTEGER NOT NULL,
			PRIMARY KEY (order_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating order tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			id           TEXT PRIMARY KEY,
			filename     TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL,
			size         INTEGER NOT NULL,
			uploaded_by  TEXT NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			data         BLOB NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure on
// table.column.
func uniqueViolation(err error, column string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// Code may be the primary or the extended result code depending on the
	// connection; the low byte is always the primary one.
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	msg := se.Error()
	return strings.Contains(msg, "UNIQUE") && strings.Contains(msg, column)
}
