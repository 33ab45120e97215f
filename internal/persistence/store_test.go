package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"vnastore/internal/block"
	"vnastore/internal/calkit"
	"vnastore/internal/infra/persistence/sqlite"
	"vnastore/pkg/domain"
)

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s, path := newSQLiteStore(t)
	if s.State() != StateOpen {
		t.Fatalf("expected open, got %s", s.State())
	}
	if err := s.Open(ctx); err == nil {
		t.Fatalf("expected second open to fail")
	}
	kit := sampleKit(t)
	if err := s.SaveKit(ctx, &kit); err != nil {
		t.Fatalf("save kit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.State() != StateClosed || len(s.Kits()) != 0 {
		t.Fatalf("close should drop inventories and reach closed, state %s", s.State())
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on double close, got %v", err)
	}
	if _, _, err := s.RecoverKit(ctx, kit.Label); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.InventoryKits(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	reopened := New(sqlite.New(path))
	if err := reopened.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if err := reopened.Inventory(ctx); err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if _, ok := reopened.FindKit(kit.Label); !ok {
		t.Fatalf("kit not found after reopen: %v", reopened.Kits())
	}
}

func TestOpenFailureReturnsToClosed(t *testing.T) {
	ctx := context.Background()
	s := New(&failingBackend{err: errConnect})
	err := s.Open(ctx)
	if !errors.Is(err, errConnect) {
		t.Fatalf("expected connect error, got %v", err)
	}
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "open" {
		t.Fatalf("expected StoreError for open, got %#v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("expected closed after failed open, got %s", s.State())
	}

	bad := New(&failingBackend{
		inner:  sqlite.New(t.TempDir() + "/bad.db"),
		schema: "CREATE TABLE IF NOT EXISTS CAL_KITS (label TEXT PRIMARY KEY);\nCREATE TABLEX broken;",
	})
	if err := bad.Open(ctx); err == nil {
		t.Fatalf("expected schema failure")
	}
	if bad.State() != StateClosed {
		t.Fatalf("expected closed after schema failure, got %s", bad.State())
	}
}

func TestKitRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	kit := sampleKit(t)
	if kit.NumStandards() < 2 {
		t.Fatalf("fixture should have several standards")
	}
	if err := s.SaveKit(ctx, &kit); err != nil {
		t.Fatalf("save kit: %v", err)
	}
	got, found, err := s.RecoverKit(ctx, kit.Label)
	if err != nil || !found {
		t.Fatalf("recover kit: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(kit, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("kit mismatch (-want +got):\n%s", diff)
	}

	kit.Description = "re-imported"
	if err := s.SaveKit(ctx, &kit); err != nil {
		t.Fatalf("resave kit: %v", err)
	}
	if kits := s.Kits(); len(kits) != 1 || kits[0].Description != "re-imported" {
		t.Fatalf("expected in-place inventory update, got %+v", kits)
	}
}

func TestSaveKitRejectsBadLabels(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	for _, label := range []string{"", "   ", string(make([]rune, domain.MaxKitLabel+1))} {
		kit := domain.CalibrationKit{Label: label}
		if err := s.SaveKit(ctx, &kit); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("label %q: expected ErrInvalidName, got %v", label, err)
		}
	}
	if len(s.Kits()) != 0 {
		t.Fatalf("rejected kits must not reach the inventory")
	}
}

func TestSaveKitRejectsOutOfBoundRecords(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	cases := map[string]func(*domain.CalibrationKit){
		"split rune label": func(k *domain.CalibrationKit) {
			k.Standards[0].Label = strings.Repeat("a", 30) + "é"
		},
		"long class label": func(k *domain.CalibrationKit) {
			k.Classes[0].Label = strings.Repeat("X", domain.MaxClassLabel+1)
		},
		"too many class standards": func(k *domain.CalibrationKit) {
			k.Classes[0].Standards = []int{0, 1, 2, 3, 4, 5, 6, 7, 0, 1}
		},
		"slot index past the end": func(k *domain.CalibrationKit) {
			k.Classes[1].Standards = []int{300}
		},
		"negative slot index": func(k *domain.CalibrationKit) {
			k.Classes[1].Standards = []int{-1}
		},
	}
	for name, mutate := range cases {
		kit := sampleKit(t)
		kit.Label = "bound " + name
		mutate(&kit)
		if err := s.SaveKit(ctx, &kit); !errors.Is(err, calkit.ErrBoundExceeded) {
			t.Fatalf("%s: expected ErrBoundExceeded, got %v", name, err)
		}
	}
	if len(s.Kits()) != 0 {
		t.Fatalf("rejected kits must not reach the inventory, got %+v", s.Kits())
	}
	if got := tableNames(t, s, kitTable); len(got) != 0 {
		t.Fatalf("rejected kits must not be stored, got %v", got)
	}
}

func TestSaveRejectsNilProfiles(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	if err := s.SaveKit(ctx, nil); !errors.Is(err, ErrNilProfile) {
		t.Fatalf("kit: expected ErrNilProfile, got %v", err)
	}
	if err := s.SaveCalibration(ctx, "cal", nil); !errors.Is(err, ErrNilProfile) {
		t.Fatalf("calibration: expected ErrNilProfile, got %v", err)
	}
	if err := s.SaveTrace(ctx, "trace", nil); !errors.Is(err, ErrNilProfile) {
		t.Fatalf("trace: expected ErrNilProfile, got %v", err)
	}
	if err := s.SaveOptions(ctx, nil); !errors.Is(err, ErrNilProfile) {
		t.Fatalf("options: expected ErrNilProfile, got %v", err)
	}
	if len(s.Kits())+len(s.Calibrations())+len(s.Traces()) != 0 {
		t.Fatalf("nil saves must not touch the inventories")
	}
}

func TestRejectedIngestionPersistsNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	kit := sampleKit(t)
	if err := s.SaveKit(ctx, &kit); err != nil {
		t.Fatalf("save kit: %v", err)
	}
	before := len(s.Kits())
	if _, _, err := calkit.Import("../calkit/testdata/kit_nine_standards.xml"); err == nil {
		t.Fatalf("expected nine-standard kit to be rejected")
	}
	if err := s.InventoryKits(ctx); err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if got := len(s.Kits()); got != before {
		t.Fatalf("inventory changed from %d to %d", before, got)
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	p := sampleCalibration(t)
	if err := s.SaveCalibration(ctx, p.Name, &p); err != nil {
		t.Fatalf("save calibration: %v", err)
	}
	got, found, err := s.RecoverCalibration(ctx, p.Name)
	if err != nil || !found {
		t.Fatalf("recover calibration: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(p, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("calibration mismatch (-want +got):\n%s", diff)
	}
	if names := tableNames(t, s, calibrationTable); len(names) != 1 {
		t.Fatalf("expected one profile, got %v", names)
	}
	var rows int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM CALIBRATION WHERE name = ?`, p.Name).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != domain.NumChannels {
		t.Fatalf("expected one row per channel, got %d", rows)
	}
	var notes *string
	var learn []byte
	if err := s.db.QueryRow(`SELECT notes, learn FROM CALIBRATION WHERE name = ? AND channel = 1`, p.Name).Scan(&notes, &learn); err != nil {
		t.Fatalf("select channel 1: %v", err)
	}
	if notes != nil || learn != nil {
		t.Fatalf("profile-scoped columns must be empty on channel 1, got %v %d bytes", notes, len(learn))
	}
}

func TestCalibrationPointReconciliation(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	p := domain.CalibrationProfile{Name: "stale"}
	p.Channels[0].NPoints = 0
	p.Channels[0].ErrorCoefficients[0] = coefficientBlock(t, 201, 7)
	p.Channels[1].NPoints = 51
	if err := s.SaveCalibration(ctx, p.Name, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := s.RecoverCalibration(ctx, p.Name)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got.Channels[0].NPoints != 201 {
		t.Fatalf("expected 201 points from block length, got %d", got.Channels[0].NPoints)
	}
	if got.Channels[1].NPoints != 51 {
		t.Fatalf("channel without coefficients should keep its stored count, got %d", got.Channels[1].NPoints)
	}
}

func TestCalibrationBlocksStoredAtEmbeddedSize(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	learn := mustBlock(t, []byte("front-panel-state"))
	p := domain.CalibrationProfile{Learn: append(append([]byte{}, learn...), make([]byte, 64)...)}
	if err := s.SaveCalibration(ctx, "padded", &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := s.RecoverCalibration(ctx, "padded")
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if diff := cmp.Diff(learn, got.Learn); diff != "" {
		t.Fatalf("learn string mismatch (-want +got):\n%s", diff)
	}

	short := domain.CalibrationProfile{}
	short.Channels[1].ErrorCoefficients[4] = coefficientBlock(t, 10, 1)[:20]
	if err := s.SaveCalibration(ctx, "short", &short); !errors.Is(err, block.ErrShortBlock) {
		t.Fatalf("expected short block error, got %v", err)
	}
	if _, ok := s.FindCalibration("short"); ok {
		t.Fatalf("failed save must not reach the inventory")
	}
	if names := tableNames(t, s, calibrationTable); len(names) != 1 {
		t.Fatalf("failed save must not write rows, got %v", names)
	}
}

func TestRecoverNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	p := sampleCalibration(t)
	if err := s.SaveCalibration(ctx, p.Name, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	before := s.Calibrations()

	if _, found, err := s.RecoverCalibration(ctx, "nonexistent"); err != nil || found {
		t.Fatalf("expected not-found without error, got found=%v err=%v", found, err)
	}
	if _, found, err := s.RecoverTrace(ctx, "nonexistent"); err != nil || found {
		t.Fatalf("expected trace not-found, got found=%v err=%v", found, err)
	}
	if _, found, err := s.RecoverKit(ctx, "nonexistent"); err != nil || found {
		t.Fatalf("expected kit not-found, got found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(before, s.Calibrations()); diff != "" {
		t.Fatalf("inventory changed by not-found recover:\n%s", diff)
	}
}

func TestTraceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	tr := sampleTrace()
	if err := s.SaveTrace(ctx, tr.Name, &tr); err != nil {
		t.Fatalf("save trace: %v", err)
	}
	got, found, err := s.RecoverTrace(ctx, tr.Name)
	if err != nil || !found {
		t.Fatalf("recover trace: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(tr, got); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if got.Channels[1].Stimulus != nil {
		t.Fatalf("missing stimulus must recover as nil")
	}
	sum, ok := s.FindTrace(tr.Name)
	if !ok || sum.Title != tr.Title || sum.Timestamp != tr.Timestamp {
		t.Fatalf("unexpected trace summary %+v", sum)
	}
}

func TestTraceShapeMismatchFallback(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	s, _ := newSQLiteStore(t, WithLogger(logger))
	tr := sampleTrace()
	if err := s.SaveTrace(ctx, tr.Name, &tr); err != nil {
		t.Fatalf("save trace: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE TRACEDATA SET segments = ? WHERE name = ? AND channel = 0`,
		make([]byte, 17), tr.Name); err != nil {
		t.Fatalf("corrupt segments: %v", err)
	}
	got, found, err := s.RecoverTrace(ctx, tr.Name)
	if err != nil || !found {
		t.Fatalf("recover: found=%v err=%v", found, err)
	}
	if got.Channels[0].Segments != ([domain.MaxSegments]domain.Segment{}) {
		t.Fatalf("segments should be zeroed after size mismatch")
	}
	if got.Channels[0].Bandwidth != tr.Channels[0].Bandwidth {
		t.Fatalf("bandwidth must be unaffected by a segments mismatch: %+v", got.Channels[0].Bandwidth)
	}
	if got.Channels[0].Markers != tr.Channels[0].Markers {
		t.Fatalf("markers must be unaffected by a segments mismatch")
	}
	if logger.count("warn") != 1 {
		t.Fatalf("expected one fallback warning, got %+v", logger.entries)
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	got, found, err := s.RecoverOptions(ctx)
	if err != nil || found {
		t.Fatalf("expected defaults before first save, found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(domain.DefaultProgramOptions(), got); diff != "" {
		t.Fatalf("defaults mismatch:\n%s", diff)
	}

	opts := domain.ProgramOptions{
		Flags:              domain.OptionFlags{ShowHPLogo: true, LearnStringAnalyzed: true},
		GPIBDeviceName:     "hp8753es",
		GPIBControllerID:   1,
		GPIBDevicePID:      17,
		PrintSettings:      []byte("print-settings"),
		PageSetup:          []byte{0, 1, 2, 3},
		LastDirectory:      "/home/lab/cal",
		CalProfile:         "s11-full",
		TraceProfile:       "filter-sweep",
		LearnStringIndexes: domain.LearnStringIndexes{Firmware: 620, SweepStart: 10, NPoints: 88, Markers: 400},
		Product:            "HP8753E",
	}
	if err := s.SaveOptions(ctx, &opts); err != nil {
		t.Fatalf("save options: %v", err)
	}
	opts.Product = "HP8753ES"
	if err := s.SaveOptions(ctx, &opts); err != nil {
		t.Fatalf("resave options: %v", err)
	}
	got, found, err = s.RecoverOptions(ctx)
	if err != nil || !found {
		t.Fatalf("recover options: found=%v err=%v", found, err)
	}
	if diff := cmp.Diff(opts, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	if err := s.DeleteEntry(ctx, "x", TableOptions); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if err := s.DeleteEntry(ctx, "never-saved", TableTrace); err != nil {
		t.Fatalf("deleting an absent name should succeed: %v", err)
	}
	p := sampleCalibration(t)
	if err := s.SaveCalibration(ctx, p.Name, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeleteEntry(ctx, p.Name, TableCalibration); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.FindCalibration(p.Name); ok {
		t.Fatalf("deleted profile still in inventory")
	}
	if _, found, _ := s.RecoverCalibration(ctx, p.Name); found {
		t.Fatalf("deleted profile still recoverable")
	}
}

func TestCacheConsistencyAfterEveryOperation(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	kit := sampleKit(t)
	cal := sampleCalibration(t)
	tr := sampleTrace()

	kitLabels := func() []string {
		var out []string
		for _, k := range s.Kits() {
			out = append(out, k.Label)
		}
		return out
	}
	calNames := func() []string {
		var out []string
		for _, c := range s.Calibrations() {
			out = append(out, c.Name)
		}
		return out
	}
	traceNames := func() []string {
		var out []string
		for _, c := range s.Traces() {
			out = append(out, c.Name)
		}
		return out
	}
	check := func(step string) {
		t.Helper()
		if diff := cmp.Diff(tableNames(t, s, kitTable), kitLabels(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("%s: kit inventory diverged:\n%s", step, diff)
		}
		if diff := cmp.Diff(tableNames(t, s, calibrationTable), calNames(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("%s: calibration inventory diverged:\n%s", step, diff)
		}
		if diff := cmp.Diff(tableNames(t, s, traceTable), traceNames(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("%s: trace inventory diverged:\n%s", step, diff)
		}
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"save cal b", func() error { return s.SaveCalibration(ctx, "b", &cal) }},
		{"save cal a", func() error { return s.SaveCalibration(ctx, "a", &cal) }},
		{"save cal B", func() error { return s.SaveCalibration(ctx, "B", &cal) }},
		{"resave cal a", func() error { return s.SaveCalibration(ctx, "a", &cal) }},
		{"save trace z", func() error { return s.SaveTrace(ctx, "z", &tr) }},
		{"save kit", func() error { return s.SaveKit(ctx, &kit) }},
		{"delete cal a", func() error { return s.DeleteEntry(ctx, "a", TableCalibration) }},
		{"delete absent cal", func() error { return s.DeleteEntry(ctx, "a", TableCalibration) }},
		{"save trace y", func() error { return s.SaveTrace(ctx, "y", &tr) }},
		{"delete kit", func() error { return s.DeleteEntry(ctx, kit.Label, TableKit) }},
		{"delete trace z", func() error { return s.DeleteEntry(ctx, "z", TableTrace) }},
		{"inventory", func() error { return s.Inventory(ctx) }},
	}
	check("initial")
	for _, step := range steps {
		if err := step.fn(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		check(step.name)
	}
	if got := calNames(); !cmp.Equal(got, []string{"B", "b"}) {
		t.Fatalf("expected case-sensitive order [B b], got %v", got)
	}
}

func TestInstrumentation(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	logger := &captureLogger{}
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	})
	s, _ := newSQLiteStore(t, WithMetricsRecorder(metrics), WithTracer(tracer), WithLogger(logger), WithClock(clock))
	if _, _, err := s.RecoverKit(ctx, "missing"); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if err := s.DeleteEntry(ctx, "x", TableOptions); err == nil {
		t.Fatalf("expected delete failure")
	}
	want := []string{"open", "recover_kit", "delete_options"}
	if diff := cmp.Diff(want, tracer.started); diff != "" {
		t.Fatalf("span mismatch (-want +got):\n%s", diff)
	}
	if tracer.ended["recover_kit"] != nil || tracer.ended["delete_options"] == nil {
		t.Fatalf("unexpected span results %v", tracer.ended)
	}
	if len(metrics.calls) != 3 || !metrics.calls[1].success || metrics.calls[2].success {
		t.Fatalf("unexpected metric calls %+v", metrics.calls)
	}
	if metrics.calls[1].duration != 5*time.Millisecond {
		t.Fatalf("expected clock-derived duration, got %v", metrics.calls[1].duration)
	}
	if logger.count("error") != 1 {
		t.Fatalf("expected one error log, got %+v", logger.entries)
	}
}

func TestStoreErrorFormatting(t *testing.T) {
	err := &StoreError{Op: "save_trace", Name: "x", Err: fmt.Errorf("disk full")}
	if err.Error() != `save_trace "x": disk full` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if (&StoreError{Op: "open", Err: ErrClosed}).Error() != "open: "+ErrClosed.Error() {
		t.Fatalf("unexpected unnamed message")
	}
}
