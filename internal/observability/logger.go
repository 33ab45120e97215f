// Package observability builds the logger, metrics recorder and tracer the profile store
// reports through.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions configures InitLogger.
type LogOptions struct {
	Level   string
	NoColor bool
	// Out defaults to stderr so command output on stdout stays machine readable.
	Out io.Writer
}

// InitLogger builds the console logger for app and installs it as the global zerolog logger.
func InitLogger(app string, opts LogOptions) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, nil
}

// ParseLevel maps a level name onto a zerolog level; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// StoreLogger adapts a zerolog.Logger to the profile store's key/value logging interface.
type StoreLogger struct {
	logger zerolog.Logger
}

// NewStoreLogger tags every entry with the store component.
func NewStoreLogger(logger zerolog.Logger) *StoreLogger {
	return &StoreLogger{logger: logger.With().Str("component", "store").Logger()}
}

func (l *StoreLogger) Debug(msg string, kv ...any) { l.logger.Debug().Fields(kv).Msg(msg) }
func (l *StoreLogger) Info(msg string, kv ...any)  { l.logger.Info().Fields(kv).Msg(msg) }
func (l *StoreLogger) Warn(msg string, kv ...any)  { l.logger.Warn().Fields(kv).Msg(msg) }
func (l *StoreLogger) Error(msg string, kv ...any) { l.logger.Error().Fields(kv).Msg(msg) }
