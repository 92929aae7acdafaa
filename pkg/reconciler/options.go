package reconciler

import (
	"time"

	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
)

// Defaults for matching.
const (
	DefaultMatchWindow       = 15 * time.Minute
	DefaultDurationTolerance = 0.10
)

type options struct {
	strategy          Strategy
	authority         authority.Authority
	window            time.Duration
	durationTolerance float64
	location          *time.Location
}

func defaultOptions() *options {
	return &options{
		strategy:          NewFillEmptyStrategy(),
		authority:         authority.Default(),
		window:            DefaultMatchWindow,
		durationTolerance: DefaultDurationTolerance,
		location:          time.UTC,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithStrategy sets the merge strategy.
func WithStrategy(strategy Strategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{Field: "strategy", Message: "cannot be nil"}
		}
		o.strategy = strategy
		return nil
	}
}

// WithAuthority sets the source precedence used by the merger and to order
// incoming activities before matching.
func WithAuthority(a authority.Authority) Option {
	return func(o *options) error {
		if a == nil {
			return &errors.ValidationError{Field: "authority", Message: "cannot be nil"}
		}
		o.authority = a
		return nil
	}
}

// WithMatchWindow sets how far apart two start times may be and still match.
func WithMatchWindow(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("match_window", d, "must be positive")
		}
		o.window = d
		return nil
	}
}

// WithDurationTolerance sets the relative duration difference treated as
// the same activity when breaking ties.
func WithDurationTolerance(tolerance float64) Option {
	return func(o *options) error {
		if tolerance < 0 || tolerance >= 1 {
			return errors.NewValidationError("duration_tolerance", tolerance, "must be in [0, 1)")
		}
		o.durationTolerance = tolerance
		return nil
	}
}

// WithLocation sets the home zone used for naive timestamps and calendar days.
func WithLocation(loc *time.Location) Option {
	return func(o *options) error {
		if loc == nil {
			return &errors.ValidationError{Field: "location", Message: "cannot be nil"}
		}
		o.location = loc
		return nil
	}
}
