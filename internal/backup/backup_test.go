package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rsouza/parts-catalog/internal/config"
	"github.com/rsouza/parts-catalog/internal/database"
)

func TestSnapshotAndRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := &config.DatabaseConfig{
		Path:        filepath.Join(dir, "catalog.db"),
		BusyTimeout: time.Second,
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO products (sku, name, stock) VALUES ('1', 'Amortecedor', 4)"); err != nil {
		t.Fatalf("Insert product: %v", err)
	}

	backupPath := filepath.Join(dir, "backup.db")
	if err := Snapshot(ctx, db, backupPath); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Destination already exists now.
	if err := Snapshot(ctx, db, backupPath); err == nil {
		t.Error("Expected snapshot onto an existing file to fail")
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close store: %v", err)
	}

	// Restore onto a fresh store path and open it like a restarted process
	// would.
	restoredCfg := &config.DatabaseConfig{
		Path:        filepath.Join(dir, "restored.db"),
		BusyTimeout: time.Second,
	}
	if err := Restore(backupPath, restoredCfg.Path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored, err := database.NewConnection(restoredCfg)
	if err != nil {
		t.Fatalf("Open restored store: %v", err)
	}
	defer restored.Close()

	if err := database.Migrate(ctx, restored); err != nil {
		t.Fatalf("Migrate restored store: %v", err)
	}

	var name string
	if err := restored.QueryRowContext(ctx,
		"SELECT name FROM products WHERE sku = '1'").Scan(&name); err != nil {
		t.Fatalf("Read restored product: %v", err)
	}
	if name != "Amortecedor" {
		t.Errorf("Expected restored product name, got %q", name)
	}
}
