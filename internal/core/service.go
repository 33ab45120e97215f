// Package core assembles a running profile store from configuration: the database backend,
// the export target and the logging, metrics and tracing adapters.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"vnastore/internal/archive"
	"vnastore/internal/blob"
	"vnastore/internal/calkit"
	"vnastore/internal/config"
	"vnastore/internal/observability"
	"vnastore/internal/persistence"
	"vnastore/pkg/domain"
)

// ErrNotFound is returned when an export names a profile that is not stored.
var ErrNotFound = errors.New("profile not found")

// Service owns an open profile store and its export target.
type Service struct {
	store    *persistence.Store
	blobs    blob.Store
	exporter *archive.Exporter
	logger   zerolog.Logger
	metrics  *observability.Metrics
	tracer   *observability.JSONTracer

	metricsFile string
	traceFile   io.Closer
}

// Option customises Open.
type Option func(*openOptions)

type openOptions struct {
	logOut  io.Writer
	backend persistence.Backend
	blobs   blob.Store
}

// WithLogOutput sends console logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *openOptions) { o.logOut = w }
}

// WithBackend overrides the backend chosen from configuration.
func WithBackend(b persistence.Backend) Option {
	return func(o *openOptions) { o.backend = b }
}

// WithBlobStore overrides the export target chosen from configuration.
func WithBlobStore(st blob.Store) Option {
	return func(o *openOptions) { o.blobs = st }
}

// Open builds the service from cfg, opens the store and loads the inventories.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger, err := observability.InitLogger("vnastore", observability.LogOptions{
		Level:   cfg.Log.Level,
		NoColor: cfg.Log.NoColor,
		Out:     o.logOut,
	})
	if err != nil {
		return nil, err
	}
	backend := o.backend
	if backend == nil {
		if backend, err = OpenBackend(cfg.Storage); err != nil {
			return nil, err
		}
	}
	blobs := o.blobs
	if blobs == nil {
		if blobs, err = blob.Open(ctx, cfg.Blob); err != nil {
			return nil, fmt.Errorf("open export target: %w", err)
		}
	}

	s := &Service{
		blobs:       blobs,
		exporter:    archive.New(blobs),
		logger:      logger,
		metrics:     observability.NewMetrics(),
		metricsFile: cfg.MetricsFile,
	}
	var traceOut io.Writer
	if cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0o755); err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		traceOut, s.traceFile = f, f
	}
	s.tracer = observability.NewJSONTracer(traceOut)
	s.store = persistence.New(backend,
		persistence.WithLogger(observability.NewStoreLogger(logger)),
		persistence.WithMetricsRecorder(s.metrics),
		persistence.WithTracer(s.tracer),
	)
	if err := s.store.Open(ctx); err != nil {
		_ = s.closeTrace()
		return nil, err
	}
	if err := s.store.Inventory(ctx); err != nil {
		_ = s.store.Close()
		_ = s.closeTrace()
		return nil, err
	}
	logger.Debug().
		Str("backend", backend.Name()).
		Str("export", string(blobs.Driver())).
		Int("kits", len(s.store.Kits())).
		Int("calibrations", len(s.store.Calibrations())).
		Int("traces", len(s.store.Traces())).
		Msg("service ready")
	return s, nil
}

// Store returns the open profile store.
func (s *Service) Store() *persistence.Store { return s.store }

// Blobs returns the export target.
func (s *Service) Blobs() blob.Store { return s.blobs }

// Metrics returns the store metrics.
func (s *Service) Metrics() *observability.Metrics { return s.metrics }

// Tracer returns the span recorder.
func (s *Service) Tracer() *observability.JSONTracer { return s.tracer }

// ImportKit ingests a kit document and saves the flattened kit.
func (s *Service) ImportKit(ctx context.Context, path string) (domain.KitSummary, error) {
	kit, _, err := calkit.Import(path)
	if err != nil {
		return domain.KitSummary{}, err
	}
	if err := s.store.SaveKit(ctx, &kit); err != nil {
		return domain.KitSummary{}, err
	}
	summary, _ := s.store.FindKit(kit.Label)
	s.logger.Info().Str("kit", kit.Label).Str("source", path).Int("standards", kit.NumStandards()).Msg("kit imported")
	return summary, nil
}

// ExportKit writes a stored kit to the export target.
func (s *Service) ExportKit(ctx context.Context, label string) (blob.Info, error) {
	kit, ok, err := s.store.RecoverKit(ctx, label)
	if err != nil {
		return blob.Info{}, err
	}
	if !ok {
		return blob.Info{}, fmt.Errorf("kit %q: %w", label, ErrNotFound)
	}
	info, err := s.exporter.ExportKit(ctx, &kit)
	if err != nil {
		return blob.Info{}, err
	}
	s.logger.Info().Str("kit", label).Str("key", info.Key).Msg("kit exported")
	return info, nil
}

// ExportTrace writes one channel (zero based) of a stored trace to the export target.
func (s *Service) ExportTrace(ctx context.Context, name string, channel int) (blob.Info, error) {
	tr, ok, err := s.store.RecoverTrace(ctx, name)
	if err != nil {
		return blob.Info{}, err
	}
	if !ok {
		return blob.Info{}, fmt.Errorf("trace %q: %w", name, ErrNotFound)
	}
	info, err := s.exporter.ExportTrace(ctx, &tr, channel)
	if err != nil {
		return blob.Info{}, err
	}
	s.logger.Info().Str("trace", name).Int("channel", channel+1).Str("key", info.Key).Msg("trace exported")
	return info, nil
}

// Exports lists exported objects under prefix.
func (s *Service) Exports(ctx context.Context, prefix string) ([]blob.Info, error) {
	return s.blobs.List(ctx, prefix)
}

// Close closes the store, then flushes metrics and the trace file.
func (s *Service) Close() error {
	var errs []error
	if s.store.State() == persistence.StateOpen {
		errs = append(errs, s.store.Close())
	}
	if s.metricsFile != "" {
		errs = append(errs, s.metrics.WriteTextfile(s.metricsFile))
	}
	errs = append(errs, s.closeTrace())
	return errors.Join(errs...)
}

func (s *Service) closeTrace() error {
	if s.traceFile == nil {
		return nil
	}
	err := s.traceFile.Close()
	s.traceFile = nil
	return err
}
