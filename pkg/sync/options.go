// Package sync provides options and results for reconciling one period
// across every configured source.
package sync

import (
	"fmt"
	"slices"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
)

// Options controls a single Sync call.
type Options struct {
	DryRun  bool          // Report what would change without writing
	Force   bool          // Fetch sources even if the ledger marks them synced
	Timeout time.Duration // Timeout for the entire sync operation

	// Sources limits the sync to these sources (empty means all)
	Sources []activities.Source
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	for _, src := range s.Sources {
		if !src.IsValid() {
			return &errors.ValidationError{
				Field:   "Sources",
				Value:   src,
				Message: fmt.Sprintf("unknown source '%s'", src),
			}
		}
	}
	return nil
}

// Includes reports whether source takes part in the sync.
func (s *Options) Includes(source activities.Source) bool {
	return len(s.Sources) == 0 || slices.Contains(s.Sources, source)
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithForce ignores the ledger and re-fetches synced sources.
func WithForce(force bool) Option {
	return func(opts *Options) {
		opts.Force = force
	}
}

// WithTimeout configures the sync timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithSources configures which sources to use.
func WithSources(sources ...activities.Source) Option {
	return func(opts *Options) {
		opts.Sources = sources
	}
}
