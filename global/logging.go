package global

import (
	"context"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// global Log
var Logger log.Logger

func init() {
	w := log.NewSyncWriter(os.Stderr)
	Logger = log.NewLogfmtLogger(w)
	Logger = log.With(Logger, "ts", log.DefaultTimestampUTC)
}

type loggerKey struct{}

// WithLogger attaches a request scoped logger to ctx
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the request scoped logger, or the global one
func LoggerFrom(ctx context.Context) log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(log.Logger); ok {
		return l
	}
	return Logger
}

// Span logs entering a named pipeline stage and returns the func that logs leaving it
func Span(ctx context.Context, name string) func() {
	logger := LoggerFrom(ctx)
	start := time.Now()
	level.Debug(logger).Log("span", name, "msg", "entering")
	return func() {
		level.Debug(logger).Log("span", name, "msg", "leaving", "ms_elapsed", time.Since(start).Milliseconds())
	}
}
