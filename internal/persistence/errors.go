package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation except Open while the store is not open.
	ErrClosed = errors.New("profile store is not open")
	// ErrUnknownTable is returned by DeleteEntry for tables that do not support deletion.
	ErrUnknownTable = errors.New("unknown or undeletable table")
	// ErrInvalidName rejects empty names and kit labels that exceed the stored width.
	ErrInvalidName = errors.New("invalid profile name")
	// ErrNilProfile is returned by the save operations when given a nil record.
	ErrNilProfile = errors.New("nil profile")
)

// StoreError wraps a failed store operation with the operation and entity it concerned.
// Err carries the backing engine's message unchanged.
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
