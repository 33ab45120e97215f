package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"vnastore/internal/block"
	"vnastore/pkg/domain"
)

const traceTable = "TRACEDATA"

var traceKeys = []string{"name", "channel"}

// traceRow builds the row for one channel. Title, notes, general flags and time are bound
// on channel 0 and bound as NULL on channel 1.
func traceRow(name string, channel int, t *domain.TraceProfile) ([]binding, error) {
	c := &t.Channels[channel]
	markers, err := block.Marshal(&c.Markers)
	if err != nil {
		return nil, err
	}
	bandwidth, err := block.Marshal(&c.Bandwidth)
	if err != nil {
		return nil, err
	}
	segments, err := block.Marshal(&c.Segments)
	if err != nil {
		return nil, err
	}
	var title, notes, flags, stamp any
	if channel == 0 {
		title, notes, flags, stamp = t.Title, t.Notes, int64(t.Flags.Pack()), t.Timestamp
	}
	return []binding{
		{"name", name},
		{"channel", int64(channel)},
		{"sweepStart", c.SweepStart},
		{"sweepStop", c.SweepStop},
		{"IFbandwidth", c.IFBandwidth},
		{"CWfrequency", c.CWFrequency},
		{"sweepType", int64(c.SweepType)},
		{"npoints", int64(c.NPoints)},
		{"points", blobArg(block.EncodeComplex(c.Response))},
		{"stimulusPoints", blobArg(block.EncodeFloats(c.Stimulus))},
		{"format", int64(c.Format)},
		{"scaleVal", c.ScaleVal},
		{"scaleRefPos", c.ScaleRefPos},
		{"scaleRefVal", c.ScaleRefVal},
		{"sParamOrInputPort", int64(c.SParamOrInputPort)},
		{"markers", markers},
		{"activeMkr", int64(c.ActiveMarker)},
		{"deltaMkr", int64(c.DeltaMarker)},
		{"mkrType", int64(c.MarkerType)},
		{"bandwidth", bandwidth},
		{"nSegments", int64(c.NSegments)},
		{"segments", segments},
		{"title", title},
		{"notes", notes},
		{"perChannelFlags", int64(c.Flags.Pack())},
		{"generalFlags", flags},
		{"time", stamp},
	}, nil
}

// SaveTrace upserts both channel rows of a trace profile in one transaction and records the
// profile in the trace inventory.
func (s *Store) SaveTrace(ctx context.Context, name string, t *domain.TraceProfile) error {
	return s.run(ctx, "save_trace", name, func(ctx context.Context) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty trace name", ErrInvalidName)
		}
		if t == nil {
			return ErrNilProfile
		}
		var rows [domain.NumChannels][]binding
		for ch := range rows {
			row, err := traceRow(name, ch, t)
			if err != nil {
				return err
			}
			rows[ch] = row
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, row := range rows {
				if err := s.upsert(ctx, tx, traceTable, traceKeys, row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		summary := t.Summary()
		summary.Name = name
		s.traces = putSorted(s.traces, summary, traceKey)
		return nil
	})
}

const traceSelect = `SELECT channel, sweepStart, sweepStop, IFbandwidth, CWfrequency, sweepType, npoints,
	points, stimulusPoints, format, scaleVal, scaleRefPos, scaleRefVal, sParamOrInputPort, markers,
	activeMkr, deltaMkr, mkrType, bandwidth, nSegments, segments, title, notes, perChannelFlags,
	generalFlags, time FROM TRACEDATA WHERE name = ? ORDER BY channel`

// RecoverTrace reads both channel rows of the trace stored under name. found is false when
// no row exists. A marker, bandwidth or segment blob of the wrong size resets that field
// alone to its zero value.
func (s *Store) RecoverTrace(ctx context.Context, name string) (domain.TraceProfile, bool, error) {
	var t domain.TraceProfile
	found := false
	err := s.run(ctx, "recover_trace", name, func(ctx context.Context) error {
		rows, err := s.query(ctx, traceSelect, name)
		if err != nil {
			return fmt.Errorf("select trace: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				channel                          int64
				start, stop, ifbw, cw            sql.NullFloat64
				sweepType, npts, format          sql.NullInt64
				points, stimulus                 []byte
				scaleVal, scaleRefPos, scaleRef  sql.NullFloat64
				sparam, active, delta, mkrType   sql.NullInt64
				markers, bandwidth, segments     []byte
				nSegments, chFlags, generalFlags sql.NullInt64
				title, notes, stamp              sql.NullString
			)
			if err := rows.Scan(&channel, &start, &stop, &ifbw, &cw, &sweepType, &npts,
				&points, &stimulus, &format, &scaleVal, &scaleRefPos, &scaleRef, &sparam, &markers,
				&active, &delta, &mkrType, &bandwidth, &nSegments, &segments, &title, &notes, &chFlags,
				&generalFlags, &stamp); err != nil {
				return fmt.Errorf("scan trace: %w", err)
			}
			found = true
			if channel < 0 || channel >= domain.NumChannels {
				s.opts.logger.Warn("ignoring trace row with unknown channel", "name", name, "channel", channel)
				continue
			}
			c := &t.Channels[channel]
			c.SweepStart, c.SweepStop = start.Float64, stop.Float64
			c.IFBandwidth, c.CWFrequency = ifbw.Float64, cw.Float64
			c.SweepType = domain.SweepType(sweepType.Int64)
			c.NPoints = int(npts.Int64)
			c.Response = block.DecodeComplex(points)
			c.Stimulus = block.DecodeFloats(stimulus)
			c.Format = domain.Format(format.Int64)
			c.ScaleVal, c.ScaleRefPos, c.ScaleRefVal = scaleVal.Float64, scaleRefPos.Float64, scaleRef.Float64
			c.SParamOrInputPort = int(sparam.Int64)
			c.ActiveMarker, c.DeltaMarker, c.MarkerType = int(active.Int64), int(delta.Int64), int(mkrType.Int64)
			c.NSegments = int(nSegments.Int64)
			c.Flags = domain.UnpackChannelTraceFlags(uint32(chFlags.Int64))
			if !block.Unmarshal(markers, &c.Markers) {
				s.fallback(traceTable, name, "markers", len(markers))
			}
			if !block.Unmarshal(bandwidth, &c.Bandwidth) {
				s.fallback(traceTable, name, "bandwidth", len(bandwidth))
			}
			if !block.Unmarshal(segments, &c.Segments) {
				s.fallback(traceTable, name, "segments", len(segments))
			}
			if channel == 0 {
				t.Title, t.Notes, t.Timestamp = title.String, notes.String, stamp.String
				t.Flags = domain.UnpackTraceFlags(uint32(generalFlags.Int64))
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate trace: %w", err)
		}
		return nil
	})
	if err != nil || !found {
		return domain.TraceProfile{}, false, err
	}
	t.Name = name
	return t, true, nil
}

// InventoryTraces replaces the trace inventory with the channel 0 summary of every stored
// trace. On failure the previous inventory is kept.
func (s *Store) InventoryTraces(ctx context.Context) error {
	return s.run(ctx, "inventory_traces", "", func(ctx context.Context) error {
		rows, err := s.query(ctx, `SELECT name, title, notes, generalFlags, time FROM TRACEDATA WHERE channel = ?`, int64(0))
		if err != nil {
			return fmt.Errorf("select traces: %w", err)
		}
		defer func() { _ = rows.Close() }()
		var out []domain.TraceSummary
		for rows.Next() {
			var (
				sum                 domain.TraceSummary
				title, notes, stamp sql.NullString
				flags               sql.NullInt64
			)
			if err := rows.Scan(&sum.Name, &title, &notes, &flags, &stamp); err != nil {
				return fmt.Errorf("scan trace: %w", err)
			}
			sum.Title, sum.Notes, sum.Timestamp = title.String, notes.String, stamp.String
			sum.Flags = domain.UnpackTraceFlags(uint32(flags.Int64))
			out = append(out, sum)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate traces: %w", err)
		}
		sortByKey(out, traceKey)
		s.traces = out
		return nil
	})
}
