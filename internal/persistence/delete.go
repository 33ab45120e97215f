package persistence

import (
	"context"
	"fmt"
	"strings"
)

// Table selects the logical table DeleteEntry removes from.
type Table int

const (
	TableCalibration Table = iota
	TableTrace
	TableKit
	TableOptions
)

func (t Table) String() string {
	switch t {
	case TableCalibration:
		return calibrationTable
	case TableTrace:
		return traceTable
	case TableKit:
		return kitTable
	case TableOptions:
		return optionsTable
	default:
		return fmt.Sprintf("Table(%d)", int(t))
	}
}

// DeleteEntry removes every row stored under name in table and the matching inventory
// entry. Deleting a name that is not stored is not an error. The options singleton cannot
// be deleted.
func (s *Store) DeleteEntry(ctx context.Context, name string, table Table) error {
	return s.run(ctx, "delete_"+strings.ToLower(table.String()), name, func(ctx context.Context) error {
		var query string
		switch table {
		case TableCalibration:
			query = `DELETE FROM CALIBRATION WHERE name = ?`
		case TableTrace:
			query = `DELETE FROM TRACEDATA WHERE name = ?`
		case TableKit:
			query = `DELETE FROM CAL_KITS WHERE label = ?`
		default:
			return fmt.Errorf("%w: %s", ErrUnknownTable, table)
		}
		if _, err := s.db.ExecContext(ctx, s.backend.Rebind(query), name); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
		switch table {
		case TableCalibration:
			s.cals = dropSorted(s.cals, name, calKey)
		case TableTrace:
			s.traces = dropSorted(s.traces, name, traceKey)
		case TableKit:
			s.kits = dropSorted(s.kits, name, kitKey)
		}
		return nil
	})
}
