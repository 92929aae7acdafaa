package fitler

import (
	"time"

	"github.com/ckdake/fitler/internal/metrics"
	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/reconciler"
	"github.com/ckdake/fitler/pkg/sources"
)

// Defaults for the engine.
const (
	DefaultConcurrency  = 4
	DefaultFetchTimeout = 2 * time.Minute
)

// config holds everything New needs. Nothing is read from globals.
type config struct {
	sources      []sources.Source
	authority    authority.Authority
	strategy     reconciler.Strategy
	window       time.Duration
	tolerance    float64
	location     *time.Location
	concurrency  int
	fetchTimeout time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
}

func defaultConfig() *config {
	return &config{
		authority:    authority.Default(),
		strategy:     reconciler.NewFillEmptyStrategy(),
		window:       reconciler.DefaultMatchWindow,
		tolerance:    reconciler.DefaultDurationTolerance,
		location:     time.UTC,
		concurrency:  DefaultConcurrency,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
}

// Option is a function that configures a Fitler instance
type Option func(*config) error

// WithSources registers the adapters to sync from.
func WithSources(srcs ...sources.Source) Option {
	return func(c *config) error {
		for _, src := range srcs {
			if src == nil {
				return &errors.ValidationError{Field: "sources", Message: "cannot contain nil"}
			}
		}
		c.sources = append(c.sources, srcs...)
		return nil
	}
}

// WithAuthority sets the source precedence and per-field overrides.
func WithAuthority(a authority.Authority) Option {
	return func(c *config) error {
		if a == nil {
			return &errors.ValidationError{Field: "authority", Message: "cannot be nil"}
		}
		c.authority = a
		return nil
	}
}

// WithStrategy sets the merge strategy.
func WithStrategy(s reconciler.Strategy) Option {
	return func(c *config) error {
		if s == nil {
			return &errors.ValidationError{Field: "strategy", Message: "cannot be nil"}
		}
		c.strategy = s
		return nil
	}
}

// WithMatchWindow sets how far apart start times may be and still match.
func WithMatchWindow(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("match_window", d, "must be positive")
		}
		c.window = d
		return nil
	}
}

// WithDurationTolerance sets the duration tie-break tolerance.
func WithDurationTolerance(t float64) Option {
	return func(c *config) error {
		if t < 0 || t >= 1 {
			return errors.NewValidationError("duration_tolerance", t, "must be in [0, 1)")
		}
		c.tolerance = t
		return nil
	}
}

// WithLocation sets the home zone for naive timestamps and month bounds.
func WithLocation(loc *time.Location) Option {
	return func(c *config) error {
		if loc == nil {
			return &errors.ValidationError{Field: "location", Message: "cannot be nil"}
		}
		c.location = loc
		return nil
	}
}

// WithConcurrency bounds how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.NewValidationError("concurrency", n, "must be at least 1")
		}
		c.concurrency = n
		return nil
	}
}

// WithFetchTimeout bounds each source fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.NewValidationError("fetch_timeout", d, "must be non-negative")
		}
		c.fetchTimeout = d
		return nil
	}
}

// WithMetrics records sync and reset outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithClock overrides the time source used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		c.now = now
		return nil
	}
}
