// Package persistence implements the profile store: calibration kits, calibration
// profiles, trace profiles and program options kept in a relational backing store, with
// sorted in-memory inventories that always mirror what the store itself has written.
//
// A Store is owned by one goroutine at a time; callers serialize access.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vnastore/internal/schema"
	"vnastore/pkg/domain"
)

// Backend opens the database a Store persists to.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// Connect opens the database, creating its file or directory when the backend has one.
	Connect(ctx context.Context) (*sql.DB, error)
	// Schema returns the DDL script creating the profile tables when absent.
	Schema() string
	// Rebind rewrites '?' placeholders into the backend's native form.
	Rebind(query string) string
}

// State is the store lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Store is the profile store.
type Store struct {
	backend Backend
	opts    options
	db      *sql.DB
	state   State

	kits   []domain.KitSummary
	cals   []domain.CalibrationSummary
	traces []domain.TraceSummary
}

// New returns a closed store over backend.
func New(backend Backend, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{backend: backend, opts: o}
}

// State reports the lifecycle state.
func (s *Store) State() State { return s.state }

// Open connects to the backing store and creates any missing table. The store only becomes
// open when every table exists; on failure it returns to closed.
func (s *Store) Open(ctx context.Context) error {
	if s.state != StateClosed {
		return &StoreError{Op: "open", Name: s.backend.Name(), Err: fmt.Errorf("store is %s", s.state)}
	}
	s.state = StateOpening
	err := s.instrument(ctx, "open", s.backend.Name(), func(ctx context.Context) error {
		db, err := s.backend.Connect(ctx)
		if err != nil {
			return err
		}
		for _, stmt := range schema.SplitStatements(s.backend.Schema()) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				return fmt.Errorf("create schema: %w", err)
			}
		}
		s.db = db
		return nil
	})
	if err != nil {
		s.state = StateClosed
		return err
	}
	s.state = StateOpen
	s.opts.logger.Info("profile store open", "backend", s.backend.Name())
	return nil
}

// Close releases the database handle and drops the inventories.
func (s *Store) Close() error {
	if s.state != StateOpen {
		return &StoreError{Op: "close", Err: ErrClosed}
	}
	err := s.db.Close()
	s.db = nil
	s.state = StateClosed
	s.kits, s.cals, s.traces = nil, nil, nil
	if err != nil {
		return &StoreError{Op: "close", Name: s.backend.Name(), Err: err}
	}
	s.opts.logger.Info("profile store closed", "backend", s.backend.Name())
	return nil
}

// Inventory refreshes all three inventories, stopping at the first failure.
func (s *Store) Inventory(ctx context.Context) error {
	if err := s.InventoryKits(ctx); err != nil {
		return err
	}
	if err := s.InventoryCalibrations(ctx); err != nil {
		return err
	}
	return s.InventoryTraces(ctx)
}

// run executes an operation that requires an open store.
func (s *Store) run(ctx context.Context, op, name string, fn func(context.Context) error) error {
	return s.instrument(ctx, op, name, func(ctx context.Context) error {
		if s.state != StateOpen {
			return ErrClosed
		}
		return fn(ctx)
	})
}

func (s *Store) instrument(ctx context.Context, op, name string, fn func(context.Context) error) error {
	ctx, span := s.opts.tracer.Start(ctx, op)
	started := s.opts.clock.Now()
	err := fn(ctx)
	if err != nil {
		err = &StoreError{Op: op, Name: name, Err: err}
	}
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, s.opts.clock.Now().Sub(started))
	if err != nil {
		s.opts.logger.Error("store operation failed", "op", op, "name", name, "error", err)
	} else {
		s.opts.logger.Debug("store operation", "op", op, "name", name)
	}
	return err
}

// fallback logs a stored blob that did not match its expected size and was reset.
func (s *Store) fallback(table, name, column string, size int) {
	s.opts.logger.Warn("stored blob size mismatch, field reset",
		"table", table, "name", name, "column", column, "size", size)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// binding pairs a column with its bound value so statements and arguments are built from
// one list.
type binding struct {
	col string
	val any
}

// upsert writes row into table, replacing the row with the same key columns.
func (s *Store) upsert(ctx context.Context, ex execer, table string, keys []string, row []binding) error {
	cols := make([]string, len(row))
	marks := make([]string, len(row))
	args := make([]any, len(row))
	var sets []string
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	for i, b := range row {
		cols[i], marks[i], args[i] = b.col, "?", b.val
		if !isKey[b.col] {
			sets = append(sets, b.col+" = excluded."+b.col)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "), strings.Join(keys, ", "), strings.Join(sets, ", "))
	if _, err := ex.ExecContext(ctx, s.backend.Rebind(query), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", strings.ToLower(table), err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.backend.Rebind(query), args...)
}

// inTx runs fn inside a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// blobArg binds empty blobs as NULL.
func blobArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
