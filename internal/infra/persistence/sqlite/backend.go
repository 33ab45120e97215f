// Package sqlite opens the profile store database with the pure-Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vnastore/internal/schema"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultFile is the database file name used under the data directory.
const DefaultFile = "hp8753.db"

// Backend opens a SQLite database file, creating its directory when absent.
type Backend struct {
	Path string
}

// New returns a backend for the database at path. An empty path selects DefaultPath.
func New(path string) *Backend {
	if path == "" {
		path = DefaultPath()
	}
	return &Backend{Path: path}
}

// DefaultPath resolves $XDG_DATA_HOME/hp8753/hp8753.db, falling back to
// ~/.local/share when XDG_DATA_HOME is unset.
func DefaultPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultFile
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "hp8753", DefaultFile)
}

// Name implements persistence.Backend.
func (b *Backend) Name() string { return "sqlite" }

// Connect creates the backing directory and opens the database file.
func (b *Backend) Connect(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(b.Path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", b.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single owner, single connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", b.Path, err)
	}
	return db, nil
}

// Schema implements persistence.Backend.
func (b *Backend) Schema() string { return schema.SQLite() }

// Rebind implements persistence.Backend; SQLite accepts '?' placeholders as written.
func (b *Backend) Rebind(query string) string { return query }
