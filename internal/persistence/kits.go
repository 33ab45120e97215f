package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"vnastore/internal/calkit"
	"vnastore/pkg/domain"
)

const kitTable = "CAL_KITS"

// SaveKit upserts a flattened kit under its label and records it in the kit inventory.
func (s *Store) SaveKit(ctx context.Context, kit *domain.CalibrationKit) error {
	var label string
	if kit != nil {
		label = kit.Label
	}
	return s.run(ctx, "save_kit", label, func(ctx context.Context) error {
		if kit == nil {
			return ErrNilProfile
		}
		if err := validKitLabel(kit.Label); err != nil {
			return err
		}
		if utf8.RuneCountInString(kit.Description) > domain.MaxKitDescription {
			return fmt.Errorf("%w: description longer than %d characters", ErrInvalidName, domain.MaxKitDescription)
		}
		standards, err := calkit.EncodeStandards(kit)
		if err != nil {
			return err
		}
		classes, err := calkit.EncodeClasses(kit)
		if err != nil {
			return err
		}
		row := []binding{
			{"label", kit.Label},
			{"description", kit.Description},
			{"standards", standards},
			{"classes", classes},
		}
		if err := s.upsert(ctx, s.db, kitTable, []string{"label"}, row); err != nil {
			return err
		}
		s.kits = putSorted(s.kits, domain.KitSummary{Label: kit.Label, Description: kit.Description}, kitKey)
		return nil
	})
}

// RecoverKit reads the kit stored under label. found is false when no such kit exists.
func (s *Store) RecoverKit(ctx context.Context, label string) (domain.CalibrationKit, bool, error) {
	var kit domain.CalibrationKit
	found := false
	err := s.run(ctx, "recover_kit", label, func(ctx context.Context) error {
		rows, err := s.query(ctx, `SELECT label, description, standards, classes FROM CAL_KITS WHERE label = ?`, label)
		if err != nil {
			return fmt.Errorf("select kit: %w", err)
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			return rows.Err()
		}
		var (
			description        sql.NullString
			standards, classes []byte
		)
		if err := rows.Scan(&kit.Label, &description, &standards, &classes); err != nil {
			return fmt.Errorf("scan kit: %w", err)
		}
		kit.Description = description.String
		var ok bool
		if kit.Standards, ok = calkit.DecodeStandards(standards); !ok {
			s.fallback(kitTable, label, "standards", len(standards))
		}
		if kit.Classes, ok = calkit.DecodeClasses(classes); !ok {
			s.fallback(kitTable, label, "classes", len(classes))
		}
		found = true
		return rows.Err()
	})
	if err != nil || !found {
		return domain.CalibrationKit{}, false, err
	}
	return kit, true, nil
}

// InventoryKits replaces the kit inventory with the labels and descriptions of every stored
// kit. On failure the previous inventory is kept.
func (s *Store) InventoryKits(ctx context.Context) error {
	return s.run(ctx, "inventory_kits", "", func(ctx context.Context) error {
		rows, err := s.query(ctx, `SELECT label, description FROM CAL_KITS`)
		if err != nil {
			return fmt.Errorf("select kits: %w", err)
		}
		defer func() { _ = rows.Close() }()
		var out []domain.KitSummary
		for rows.Next() {
			var k domain.KitSummary
			var description sql.NullString
			if err := rows.Scan(&k.Label, &description); err != nil {
				return fmt.Errorf("scan kit: %w", err)
			}
			k.Description = description.String
			out = append(out, k)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate kits: %w", err)
		}
		sortByKey(out, kitKey)
		s.kits = out
		return nil
	})
}

func validKitLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: empty kit label", ErrInvalidName)
	}
	if utf8.RuneCountInString(label) > domain.MaxKitLabel {
		return fmt.Errorf("%w: kit label longer than %d characters", ErrInvalidName, domain.MaxKitLabel)
	}
	return nil
}
