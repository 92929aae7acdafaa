package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	runIDKey  = ctxKey{"run_id"}
)

// WithLogger attaches logger to ctx. A nil logger attaches the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or the default.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// WithRunID tags ctx and its logger with the id of one sync or reset call.
func WithRunID(ctx context.Context, runID string) context.Context {
	return with(context.WithValue(ctx, runIDKey, runID), "run_id", runID)
}

// RunID returns the run id set by WithRunID.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithSource tags the logger with the activity source being merged.
func WithSource(ctx context.Context, source string) context.Context {
	return with(ctx, "source", source)
}

// WithPeriod tags the logger with the month being synced.
func WithPeriod(ctx context.Context, period string) context.Context {
	return with(ctx, "period", period)
}

func with(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}
