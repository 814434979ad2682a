// Package backup copies the catalog file to and from user-chosen locations.
// The store is a single SQLite file, so backup is a file-level concern; the
// ledger and analytics never see it.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
)

// Snapshot writes a consistent copy of the live store to destPath using
// VACUUM INTO, which is safe while the handle is open and mid-write. The
// destination must not already exist.
func Snapshot(ctx context.Context, db *sql.DB, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination %s already exists", destPath)
	}

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}

	return nil
}

// Restore copies a backup file over the store path. It must only run before
// the store is opened: restoring under an open handle is not supported, the
// process has to restart onto the restored file.
func Restore(backupPath, storePath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(storePath)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy backup: %w", err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}

	return nil
}
