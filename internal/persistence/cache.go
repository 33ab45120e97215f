package persistence

import (
	"slices"
	"strings"

	"vnastore/pkg/domain"
)

// The inventories are sorted by case-sensitive comparison of their key; keys are primary
// keys so ties cannot occur.

func kitKey(k domain.KitSummary) string         { return k.Label }
func calKey(c domain.CalibrationSummary) string { return c.Name }
func traceKey(t domain.TraceSummary) string     { return t.Name }

func sortByKey[T any](list []T, key func(T) string) {
	slices.SortFunc(list, func(a, b T) int { return strings.Compare(key(a), key(b)) })
}

func search[T any](list []T, name string, key func(T) string) (int, bool) {
	return slices.BinarySearchFunc(list, name, func(e T, n string) int { return strings.Compare(key(e), n) })
}

// putSorted replaces the entry with item's key or inserts item at its sorted position.
func putSorted[T any](list []T, item T, key func(T) string) []T {
	i, found := search(list, key(item), key)
	if found {
		list[i] = item
		return list
	}
	return slices.Insert(list, i, item)
}

// dropSorted removes the entry with name, if any.
func dropSorted[T any](list []T, name string, key func(T) string) []T {
	if i, found := search(list, name, key); found {
		return slices.Delete(list, i, i+1)
	}
	return list
}

func find[T any](list []T, name string, key func(T) string) (T, bool) {
	if i, found := search(list, name, key); found {
		return list[i], true
	}
	var zero T
	return zero, false
}

// Kits returns a copy of the kit inventory in label order.
func (s *Store) Kits() []domain.KitSummary { return slices.Clone(s.kits) }

// Calibrations returns a copy of the calibration inventory in name order.
func (s *Store) Calibrations() []domain.CalibrationSummary { return slices.Clone(s.cals) }

// Traces returns a copy of the trace inventory in name order.
func (s *Store) Traces() []domain.TraceSummary { return slices.Clone(s.traces) }

// FindKit looks up a kit in the inventory.
func (s *Store) FindKit(label string) (domain.KitSummary, bool) { return find(s.kits, label, kitKey) }

// FindCalibration looks up a calibration profile in the inventory.
func (s *Store) FindCalibration(name string) (domain.CalibrationSummary, bool) {
	return find(s.cals, name, calKey)
}

// FindTrace looks up a trace profile in the inventory.
func (s *Store) FindTrace(name string) (domain.TraceSummary, bool) {
	return find(s.traces, name, traceKey)
}
