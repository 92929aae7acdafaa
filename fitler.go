// Package fitler reconciles fitness activities reported by several
// sources into one canonical record per real-world activity.
//
// A sync fetches one calendar month from every configured source, matches
// the raw activities against stored records, merges them field by field by
// source precedence and marks the month synced per source in a ledger. A
// reset undoes a month so it can be rebuilt.
//
// Example usage:
//
//	st, _ := sqlite.Open("fitler.db")
//	f, _ := fitler.New(st,
//	    fitler.WithSources(local.New(activities.Strava, "./exports/strava")),
//	    fitler.WithLocation(eastern),
//	)
//	report, err := f.Sync(ctx, period.MustParse("2024-08"))
package fitler

import (
	"context"
	"sync"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/reconciler"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
	pkgsync "github.com/ckdake/fitler/pkg/sync"
)

// Fitler syncs, resets and queries canonical activity records.
type Fitler interface {
	// Sync reconciles one month across every configured source.
	Sync(ctx context.Context, p period.Period, opts ...pkgsync.Option) (*pkgsync.Report, error)

	// SyncRange syncs every month from "from" to "to" inclusive.
	SyncRange(ctx context.Context, from, to period.Period, opts ...pkgsync.Option) ([]*pkgsync.Report, error)

	// Reset clears the ledger for a month and strips the links it produced.
	Reset(ctx context.Context, p period.Period) (*ledger.ResetResult, error)

	// ResetRange resets every month from "from" to "to" inclusive.
	ResetRange(ctx context.Context, from, to period.Period) ([]*ledger.ResetResult, error)

	// Records runs a read-only export query.
	Records(ctx context.Context, q store.Query) ([]activities.Record, error)

	// Changes lists provider-side edits needed to agree with the records
	// linked in a month.
	Changes(ctx context.Context, p period.Period) ([]Change, error)

	// Ledger lists every ledger entry, newest month first.
	Ledger(ctx context.Context) ([]ledger.Entry, error)

	// OnRecordCreated registers a callback for when records are created
	OnRecordCreated(RecordCreatedHook)

	// OnRecordUpdated registers a callback for when records are updated
	OnRecordUpdated(RecordUpdatedHook)

	// OnRecordDeleted registers a callback for when records are deleted
	OnRecordDeleted(RecordDeletedHook)

	// Close releases resources held by the sources. The store is not closed.
	Close() error
}

// fitler is the internal implementation of the Fitler interface
type fitler struct {
	store      store.Store
	config     *config
	sources    *sources.Sources
	reconciler reconciler.Reconciler

	// Event hooks
	*hooks

	mu      sync.Mutex
	periods map[period.Period]*sync.Mutex

	// writes serializes load, merge and commit across months, since a
	// month's candidates reach into its neighbours.
	writes sync.Mutex
}

// New creates a new Fitler instance backed by st.
func New(st store.Store, opts ...Option) (Fitler, error) {
	if st == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errors.NewConfigError("fitler", "applying options", err)
		}
	}

	rec, err := reconciler.New(
		reconciler.WithStrategy(cfg.strategy),
		reconciler.WithAuthority(cfg.authority),
		reconciler.WithMatchWindow(cfg.window),
		reconciler.WithDurationTolerance(cfg.tolerance),
		reconciler.WithLocation(cfg.location),
	)
	if err != nil {
		return nil, errors.NewConfigError("reconciler", "creating reconciler", err)
	}

	return &fitler{
		store:      st,
		config:     cfg,
		sources:    sources.NewSources(cfg.sources...),
		reconciler: rec,
		hooks:      newHooks(),
		periods:    make(map[period.Period]*sync.Mutex),
	}, nil
}

// lock serializes syncs and resets of the same month.
func (f *fitler) lock(p period.Period) func() {
	f.mu.Lock()
	m, ok := f.periods[p]
	if !ok {
		m = &sync.Mutex{}
		f.periods[p] = m
	}
	f.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Records runs a read-only export query.
func (f *fitler) Records(ctx context.Context, q store.Query) ([]activities.Record, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, errors.NewValidationError("to", q.To, "must not be before from")
	}
	return f.store.Records(ctx, q)
}

// Ledger lists every ledger entry.
func (f *fitler) Ledger(ctx context.Context) ([]ledger.Entry, error) {
	return f.store.Entries(ctx)
}

// Close releases resources held by the sources.
func (f *fitler) Close() error {
	return cleanup(f.sources.Ordered(f.config.authority.Precedence()))
}

func validPeriod(p period.Period) error {
	if !p.Valid() {
		return errors.NewValidationError("period", p.String(), "not a calendar month")
	}
	return nil
}
