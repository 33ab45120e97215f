// Package postgres opens the profile store database on PostgreSQL through pgx's
// database/sql driver and rewrites '?' placeholders into Postgres ordinal form.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"vnastore/internal/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/hp8753?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Backend opens a Postgres database.
type Backend struct {
	DSN string
}

// New returns a backend for dsn, falling back to DefaultDSN.
func New(dsn string) *Backend {
	if dsn == "" {
		dsn = DefaultDSN
	}
	return &Backend{DSN: dsn}
}

// Name implements persistence.Backend.
func (b *Backend) Name() string { return "postgres" }

// Connect opens and pings the database.
func (b *Backend) Connect(ctx context.Context) (*sql.DB, error) {
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, b.DSN)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema implements persistence.Backend.
func (b *Backend) Schema() string { return schema.Postgres() }

// Rebind implements persistence.Backend.
func (b *Backend) Rebind(query string) string { return Rebind(query) }

// Rebind converts '?' placeholders into $1, $2, ... leaving quoted literals untouched.
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var out strings.Builder
	out.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(n))
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
