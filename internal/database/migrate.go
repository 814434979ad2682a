package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the version the catalog file must be at before any other
// component may touch it. PRAGMA user_version carries the marker, so a file
// restored from an old backup migrates forward on the next start.
const SchemaVersion = 2

type migration struct {
	version    int
	statements []string
}

// Migrations are additive only. Existing files never lose data on upgrade,
// and every statement tolerates re-execution.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				sku TEXT UNIQUE,
				name TEXT NOT NULL,
				description TEXT,
				manufacturer TEXT,
				car_model TEXT,
				car_year TEXT,
				condition TEXT,
				purchase_price REAL DEFAULT 0,
				sale_price REAL DEFAULT 0,
				stock INTEGER DEFAULT 0,
				low_threshold INTEGER DEFAULT 3,
				image TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS customers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				phone TEXT,
				email TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS sales (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				product_id INTEGER,
				customer_id INTEGER,
				qty INTEGER,
				price REAL,
				sale_date TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_product_name ON products (name)`,
			`CREATE INDEX IF NOT EXISTS idx_product_sku ON products (sku)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS suppliers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				phone TEXT,
				email TEXT
			)`,
		},
	},
}

// Migrate brings the store forward to SchemaVersion. It runs synchronously
// before the handle is exposed to the rest of the application; a failure here
// must abort startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	if current > SchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := WithTransaction(ctx, db, DefaultTxOptions(), func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migrate to v%d: %w", m.version, err)
				}
			}
			// PRAGMA does not take bind parameters.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
				return fmt.Errorf("set schema version %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
