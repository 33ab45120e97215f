package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vnastore/internal/block"
	"vnastore/pkg/domain"
)

const calibrationTable = "CALIBRATION"

var calibrationKeys = []string{"name", "channel"}

func coefficientColumn(i int) string { return fmt.Sprintf("cal%02d", i+1) }

// calibrationRow builds the row for one channel. Profile-scoped columns are bound on
// channel 0 and bound as NULL on channel 1.
func calibrationRow(name string, channel int, p *domain.CalibrationProfile) ([]binding, error) {
	c := &p.Channels[channel]
	var learn, notes, settings any
	if channel == 0 {
		if len(p.Learn) > 0 {
			b, err := block.Trim(p.Learn)
			if err != nil {
				return nil, fmt.Errorf("learn string: %w", err)
			}
			learn = b
		}
		notes = p.Notes
		settings = int64(p.Settings.Pack())
	}
	row := []binding{
		{"name", name},
		{"channel", int64(channel)},
		{"learn", learn},
		{"sweepStart", c.SweepStart},
		{"sweepStop", c.SweepStop},
		{"IFbandwidth", c.IFBandwidth},
		{"CWfrequency", c.CWFrequency},
		{"sweepType", int64(c.SweepType)},
		{"npoints", int64(c.NPoints)},
		{"calType", int64(c.CalType)},
	}
	for i, coeffs := range c.ErrorCoefficients {
		var v any
		if len(coeffs) > 0 {
			b, err := block.Trim(coeffs)
			if err != nil {
				return nil, fmt.Errorf("channel %d %s: %w", channel+1, coefficientColumn(i), err)
			}
			v = b
		}
		row = append(row, binding{coefficientColumn(i), v})
	}
	return append(row,
		binding{"notes", notes},
		binding{"perChannelCalSettings", int64(c.Settings.Pack())},
		binding{"calSettings", settings},
	), nil
}

// SaveCalibration upserts both channel rows of a calibration profile in one transaction
// and records the profile in the calibration inventory.
func (s *Store) SaveCalibration(ctx context.Context, name string, p *domain.CalibrationProfile) error {
	return s.run(ctx, "save_calibration", name, func(ctx context.Context) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty calibration name", ErrInvalidName)
		}
		if p == nil {
			return ErrNilProfile
		}
		var rows [domain.NumChannels][]binding
		for ch := range rows {
			row, err := calibrationRow(name, ch, p)
			if err != nil {
				return err
			}
			rows[ch] = row
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, row := range rows {
				if err := s.upsert(ctx, tx, calibrationTable, calibrationKeys, row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		summary := p.Summary()
		summary.Name = name
		s.cals = putSorted(s.cals, summary, calKey)
		return nil
	})
}

const calibrationSelect = `SELECT channel, learn, sweepStart, sweepStop, IFbandwidth, CWfrequency, sweepType,
	npoints, calType, cal01, cal02, cal03, cal04, cal05, cal06, cal07, cal08, cal09, cal10, cal11, cal12,
	notes, perChannelCalSettings, calSettings FROM CALIBRATION WHERE name = ? ORDER BY channel`

// RecoverCalibration reads both channel rows of the profile stored under name. found is false
// when no row exists. The point count of a channel is taken from its first error-coefficient
// block whenever that block is present.
func (s *Store) RecoverCalibration(ctx context.Context, name string) (domain.CalibrationProfile, bool, error) {
	var p domain.CalibrationProfile
	found := false
	err := s.run(ctx, "recover_calibration", name, func(ctx context.Context) error {
		rows, err := s.query(ctx, calibrationSelect, name)
		if err != nil {
			return fmt.Errorf("select calibration: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				channel                  int64
				learn                    []byte
				start, stop, ifbw, cw    sql.NullFloat64
				sweepType, npts, calType sql.NullInt64
				coeffs                   [domain.MaxCalArrays][]byte
				notes                    sql.NullString
				chSettings, profSettings sql.NullInt64
			)
			dest := []any{&channel, &learn, &start, &stop, &ifbw, &cw, &sweepType, &npts, &calType}
			for i := range coeffs {
				dest = append(dest, &coeffs[i])
			}
			dest = append(dest, &notes, &chSettings, &profSettings)
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scan calibration: %w", err)
			}
			found = true
			if channel < 0 || channel >= domain.NumChannels {
				s.opts.logger.Warn("ignoring calibration row with unknown channel", "name", name, "channel", channel)
				continue
			}
			c := &p.Channels[channel]
			c.SweepStart, c.SweepStop = start.Float64, stop.Float64
			c.IFBandwidth, c.CWFrequency = ifbw.Float64, cw.Float64
			c.SweepType = domain.SweepType(sweepType.Int64)
			c.NPoints = int(npts.Int64)
			c.CalType = domain.CalType(calType.Int64)
			c.Settings = domain.UnpackChannelCalSettings(uint32(chSettings.Int64))
			for i := range coeffs {
				c.ErrorCoefficients[i] = block.Clone(coeffs[i])
			}
			if n, err := block.Length(c.ErrorCoefficients[0]); err == nil {
				c.NPoints = n / block.BytesPerPoint
			}
			if channel == 0 {
				p.Learn = block.Clone(learn)
				p.Notes = notes.String
				p.Settings = domain.UnpackCalSettings(uint32(profSettings.Int64))
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate calibration: %w", err)
		}
		return nil
	})
	if err != nil || !found {
		return domain.CalibrationProfile{}, false, err
	}
	p.Name = name
	return p, true, nil
}

// InventoryCalibrations replaces the calibration inventory with a summary of every stored
// profile. On failure the previous inventory is kept.
func (s *Store) InventoryCalibrations(ctx context.Context) error {
	return s.run(ctx, "inventory_calibrations", "", func(ctx context.Context) error {
		rows, err := s.query(ctx, `SELECT name, channel, notes, sweepStart, sweepStop, IFbandwidth, CWfrequency,
			sweepType, npoints, calType, perChannelCalSettings, calSettings FROM CALIBRATION ORDER BY name, channel`)
		if err != nil {
			return fmt.Errorf("select calibrations: %w", err)
		}
		defer func() { _ = rows.Close() }()
		byName := make(map[string]*domain.CalibrationSummary)
		var out []domain.CalibrationSummary
		var order []string
		for rows.Next() {
			var (
				name                     string
				channel                  int64
				notes                    sql.NullString
				start, stop, ifbw, cw    sql.NullFloat64
				sweepType, npts, calType sql.NullInt64
				chSettings, profSettings sql.NullInt64
			)
			if err := rows.Scan(&name, &channel, &notes, &start, &stop, &ifbw, &cw,
				&sweepType, &npts, &calType, &chSettings, &profSettings); err != nil {
				return fmt.Errorf("scan calibration: %w", err)
			}
			sum, ok := byName[name]
			if !ok {
				sum = &domain.CalibrationSummary{Name: name}
				byName[name] = sum
				order = append(order, name)
			}
			if channel < 0 || channel >= domain.NumChannels {
				continue
			}
			sum.Channels[channel] = domain.ChannelSummary{
				SweepStart:  start.Float64,
				SweepStop:   stop.Float64,
				IFBandwidth: ifbw.Float64,
				CWFrequency: cw.Float64,
				SweepType:   domain.SweepType(sweepType.Int64),
				NPoints:     int(npts.Int64),
				CalType:     domain.CalType(calType.Int64),
				Settings:    domain.UnpackChannelCalSettings(uint32(chSettings.Int64)),
			}
			if channel == 0 {
				sum.Notes = notes.String
				sum.Settings = domain.UnpackCalSettings(uint32(profSettings.Int64))
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate calibrations: %w", err)
		}
		for _, name := range order {
			out = append(out, *byName[name])
		}
		sortByKey(out, calKey)
		s.cals = out
		return nil
	})
}
