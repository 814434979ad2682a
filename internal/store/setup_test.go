package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rsouza/parts-catalog/internal/config"
	"github.com/rsouza/parts-catalog/internal/database"
	"github.com/rsouza/parts-catalog/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		BusyTimeout: time.Second,
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		t.Fatalf("Open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate test store: %v", err)
	}

	return db
}

func createTestProduct(t *testing.T, db *sql.DB, name string, salePrice string, stock int) *models.Product {
	t.Helper()

	product, err := CreateProduct(context.Background(), db, ProductInput{
		Name:          name,
		SalePrice:     decimal.RequireFromString(salePrice),
		PurchasePrice: decimal.Zero,
		Stock:         stock,
	})
	if err != nil {
		t.Fatalf("Create product %q: %v", name, err)
	}
	return product
}

// insertRawSale writes a sale row directly, bypassing RecordSale, so tests
// can control timestamps and reference products that no longer exist.
func insertRawSale(t *testing.T, db *sql.DB, productID interface{}, qty int, price string, saleDate interface{}) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO sales (product_id, customer_id, qty, price, sale_date)
		 VALUES (?, NULL, ?, ?, ?) RETURNING id`,
		productID, qty, price, saleDate).Scan(&id)
	if err != nil {
		t.Fatalf("Insert raw sale: %v", err)
	}
	return id
}

func countSales(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sales").Scan(&n); err != nil {
		t.Fatalf("Count sales: %v", err)
	}
	return n
}
