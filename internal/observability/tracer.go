package observability

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"vnastore/internal/persistence"
)

// TraceEntry is one finished span.
type TraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes spans as JSON lines and retains them for inspection.
type JSONTracer struct {
	mu      sync.Mutex
	entries []TraceEntry
	enc     *json.Encoder
	now     func() time.Time
}

// NewJSONTracer returns a tracer writing to w; a nil writer only retains spans.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{now: func() time.Time { return time.Now().UTC() }}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of all recorded spans.
func (t *JSONTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements persistence.Tracer.
func (t *JSONTracer) Start(ctx context.Context, op string) (context.Context, persistence.TraceSpan) {
	return ctx, &span{tracer: t, op: op, started: t.now()}
}

type span struct {
	tracer  *JSONTracer
	op      string
	started time.Time
}

func (s *span) End(err error) {
	ended := s.tracer.now()
	entry := TraceEntry{
		Operation:  s.op,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}

var (
	_ persistence.Logger          = (*StoreLogger)(nil)
	_ persistence.MetricsRecorder = (*Metrics)(nil)
	_ persistence.Tracer          = (*JSONTracer)(nil)
)
