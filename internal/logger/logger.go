// Package logger provides structured logging using rs/zerolog.
// It sets up a JSON logger with service-level context, routes the standard
// library's log package through it, and provides trace ID propagation
// through context.Context.
package logger

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init creates the process logger for service at level and installs it as
// the zerolog global and as the standard log output, so existing
// log.Printf("[component] ...") calls come out as structured lines.
func Init(service, level string) zerolog.Logger {
	return New(os.Stdout, service, level)
}

// New is Init with an explicit writer.
func New(w io.Writer, service, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(ParseLevel(level))

	l := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
	log.Logger = l

	stdlog.SetFlags(0)
	stdlog.SetOutput(l)
	return l
}

// ParseLevel maps a level name to a zerolog level. Unknown names give info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID returns a new random trace ID.
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext returns the global logger with the context's trace ID
// attached, if any.
// Usage: logger.FromContext(ctx).Info().Str("component", "qa").Msg("...")
func FromContext(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if tid := TraceID(ctx); tid != "" {
		l = l.With().Str("trace_id", tid).Logger()
	}
	return &l
}

// Component returns a logger tagged with a component name.
func Component(ctx context.Context, name string) *zerolog.Logger {
	l := FromContext(ctx).With().Str("component", name).Logger()
	return &l
}
