package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"vnastore/internal/block"
	"vnastore/internal/calkit"
	"vnastore/internal/infra/persistence/postgres"
	"vnastore/internal/infra/persistence/postgres/testutil"
	"vnastore/internal/infra/persistence/sqlite"
	"vnastore/pkg/domain"
)

func newSQLiteStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hp8753", "hp8753.db")
	s := New(sqlite.New(path), opts...)
	if err := s.Open(context.Background()); err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() {
		if s.State() == StateOpen {
			_ = s.Close()
		}
	})
	return s, path
}

func newStubStore(t *testing.T, opts ...Option) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	s := New(postgres.New("stub"), opts...)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open stub store: %v", err)
	}
	return s, conn
}

func mustBlock(t *testing.T, payload []byte) []byte {
	t.Helper()
	b, err := block.Encode(payload)
	if err != nil {
		t.Fatalf("encode block: %v", err)
	}
	return b
}

// coefficientBlock returns an error-coefficient block holding n points.
func coefficientBlock(t *testing.T, n int, seed byte) []byte {
	t.Helper()
	payload := bytes.Repeat([]byte{seed}, n*block.BytesPerPoint)
	return mustBlock(t, payload)
}

func sampleKit(t *testing.T) domain.CalibrationKit {
	t.Helper()
	kit, _, err := calkit.Import("../calkit/testdata/kit_85033d.xml")
	if err != nil {
		t.Fatalf("import kit: %v", err)
	}
	return kit
}

func sampleCalibration(t *testing.T) domain.CalibrationProfile {
	t.Helper()
	p := domain.CalibrationProfile{
		Name:     "s11-full",
		Notes:    "port 1 one-port, 85033D",
		Settings: domain.CalSettings{DualChannel: true, SplitDisplay: true, ActiveChannel: 1},
		Learn:    mustBlock(t, bytes.Repeat([]byte("LRN"), 1000)),
	}
	p.Channels[0] = domain.ChannelCalibration{
		SweepStart:  300e3,
		SweepStop:   3e9,
		IFBandwidth: 3000,
		CWFrequency: 1e9,
		SweepType:   domain.SweepLinearFrequency,
		NPoints:     201,
		CalType:     domain.CalS11OnePort,
		Settings:    domain.ChannelCalSettings{Correction: true, Averaging: true},
	}
	for i := 0; i < 3; i++ {
		p.Channels[0].ErrorCoefficients[i] = coefficientBlock(t, 201, byte(i+1))
	}
	p.Channels[1] = domain.ChannelCalibration{
		SweepStart:  1e6,
		SweepStop:   6e9,
		IFBandwidth: 1000,
		SweepType:   domain.SweepLogFrequency,
		NPoints:     401,
		CalType:     domain.CalFullTwoPort,
		Settings:    domain.ChannelCalSettings{Correction: true, Interpolation: true, SourcePowerSet: true},
	}
	for i := 0; i < domain.MaxCalArrays; i++ {
		p.Channels[1].ErrorCoefficients[i] = coefficientBlock(t, 401, byte(0x40+i))
	}
	return p
}

func sampleTrace() domain.TraceProfile {
	tr := domain.TraceProfile{
		Name:      "filter-sweep",
		Title:     "BPF 1.5 GHz",
		Notes:     "after tuning",
		Flags:     domain.TraceFlags{DualChannel: true, MarkersCoupled: true},
		Timestamp: "2024-03-01 14:22:05",
	}
	ch0 := &tr.Channels[0]
	ch0.SweepStart, ch0.SweepStop, ch0.IFBandwidth = 1e9, 2e9, 3000
	ch0.SweepType = domain.SweepListFrequency
	ch0.NPoints = 4
	ch0.Response = []complex128{complex(0.1, -0.2), complex(0.5, 0.5), complex(-1, 0), complex(0, 1e-3)}
	ch0.Stimulus = []float64{1e9, 1.2e9, 1.7e9, 2e9}
	ch0.Format = domain.FormatSmith
	ch0.ScaleVal, ch0.ScaleRefPos, ch0.ScaleRefVal = 10, 5, -20
	ch0.SParamOrInputPort = 2
	ch0.Markers[0] = domain.Marker{Enabled: true, Point: 2, Stimulus: 1.7e9, Re: -1, Im: 0}
	ch0.Markers[3] = domain.Marker{Enabled: true, Point: 1, Stimulus: 1.2e9, Re: 0.5, Im: 0.5}
	ch0.ActiveMarker, ch0.DeltaMarker, ch0.MarkerType = 3, 0, 1
	ch0.Bandwidth = domain.BandwidthResult{Valid: true, Center: 1.5e9, Bandwidth: 1e8, Q: 15, Loss: -1.2}
	ch0.NSegments = 2
	ch0.Segments[0] = domain.Segment{Start: 1e9, Stop: 1.2e9, NPoints: 2, IFBandwidth: 3000, Power: -10}
	ch0.Segments[1] = domain.Segment{Start: 1.7e9, Stop: 2e9, NPoints: 2, IFBandwidth: 1000, Power: -5}
	ch0.Flags = domain.ChannelTraceFlags{ValidData: true, StimulusPoints: true}

	ch1 := &tr.Channels[1]
	ch1.SweepStart, ch1.SweepStop = 30e3, 6e9
	ch1.SweepType = domain.SweepLogFrequency
	ch1.NPoints = 3
	ch1.Response = []complex128{complex(1, 1), complex(2, 2), complex(3, 3)}
	ch1.Format = domain.FormatLogMag
	ch1.Flags = domain.ChannelTraceFlags{ValidData: true, Averaging: true}
	return tr
}

// tableNames returns the distinct names stored in table.
func tableNames(t *testing.T, s *Store, table string) []string {
	t.Helper()
	col := "name"
	if table == kitTable {
		col = "label"
	}
	rows, err := s.db.QueryContext(context.Background(), "SELECT DISTINCT "+col+" FROM "+table)
	if err != nil {
		t.Fatalf("select names from %s: %v", table, err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type failingBackend struct {
	err    error
	schema string
	inner  Backend
}

func (b *failingBackend) Name() string { return "failing" }

func (b *failingBackend) Connect(ctx context.Context) (*sql.DB, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.inner.Connect(ctx)
}

func (b *failingBackend) Schema() string { return b.schema }

func (b *failingBackend) Rebind(q string) string { return q }

var errConnect = errors.New("connect refused")

type logEntry struct {
	level string
	msg   string
	kv    []any
}

type captureLogger struct {
	entries []logEntry
}

func (l *captureLogger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *captureLogger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *captureLogger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *captureLogger) Error(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *captureLogger) add(level, msg string, kv []any) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *captureLogger) count(level string) int {
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetrics struct {
	calls []metricsCall
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, d time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: d})
}

type captureTracer struct {
	started []string
	ended   map[string]error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	if s.tracer.ended == nil {
		s.tracer.ended = make(map[string]error)
	}
	s.tracer.ended[s.op] = err
}
