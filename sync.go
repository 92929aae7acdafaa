package fitler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ckdake/fitler/pkg/activities"
	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/logging"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/reconciler"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
	pkgsync "github.com/ckdake/fitler/pkg/sync"
)

// Sync reconciles one month across every configured source.
//
// Sources already marked synced for the month are skipped unless forced.
// The rest are fetched concurrently, then merged one source at a time in
// precedence order; each source's writes and its ledger flip commit
// together. A source that fails to fetch is reported and left unsynced so
// the next run retries it. Store failures and ledger corruption abort the
// month and are returned alongside the partial report.
func (f *fitler) Sync(ctx context.Context, p period.Period, opts ...pkgsync.Option) (*pkgsync.Report, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse and validate options
	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if err := validPeriod(p); err != nil {
		return nil, err
	}

	// Step 2: Setup run context with timeout
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithPeriod(ctx, p.String())
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {} // No-op cancel if no timeout
	}
	defer cancel()

	logger := logging.FromContext(ctx)
	report := pkgsync.NewReport(runID, p.String(), f.config.now())
	report.DryRun = options.DryRun
	defer func() {
		report.Duration = f.config.now().Sub(report.StartedAt)
		f.config.metrics.ObserveSync(report)
	}()

	unlock := f.lock(p)
	defer unlock()

	// Step 3: Consult the ledger
	plan, err := f.plan(ctx, p, options)
	if err != nil {
		report.Err = err
		logger.Error().Err(err).Msg("Sync aborted")
		return report, err
	}

	// Step 4: Fetch pending sources concurrently
	var pending []sources.Source
	for _, step := range plan {
		if !step.skip {
			pending = append(pending, step.source)
		}
	}
	results := make(map[activities.Source]fetched, len(pending))
	for _, r := range fetch(ctx, pending, p, f.config.concurrency, f.config.fetchTimeout) {
		results[r.source] = r
	}

	// Step 5: Merge and commit source by source in precedence order
	for _, step := range plan {
		id := step.source.ID()
		sr := report.Add(id)
		if step.skip {
			sr.Status = pkgsync.StatusSkipped
			logger.Debug().Str("source", id.String()).Msg("Already synced, skipping")
			continue
		}

		res := results[id]
		if res.err == nil && ctx.Err() != nil {
			res.err = pkgerrors.WrapSource(id.String(), p.String(), ctx.Err())
		}
		if res.err != nil {
			sr.Fail(res.err)
			continue
		}

		if err := f.syncSource(ctx, p, id, res.raws, sr, options); err != nil {
			sr.Fail(err)
			if ctx.Err() != nil {
				// Canceled mid-commit: nothing was written for this source.
				continue
			}
			report.Err = err
			logger.Error().Err(err).Str("source", id.String()).Msg("Sync aborted")
			return report, err
		}
	}

	logger.Info().
		Int("sources", len(report.Sources)).
		Int("failed", len(report.Failed())).
		Bool("dry_run", options.DryRun).
		Msg(report.Summary())
	return report, nil
}

// SyncRange syncs every month from "from" to "to" inclusive. A month that
// aborts does not stop the others; their errors are joined.
func (f *fitler) SyncRange(ctx context.Context, from, to period.Period, opts ...pkgsync.Option) ([]*pkgsync.Report, error) {
	if err := validPeriod(from); err != nil {
		return nil, err
	}
	if err := validPeriod(to); err != nil {
		return nil, err
	}
	months, err := period.Range(from, to)
	if err != nil {
		return nil, pkgerrors.WrapValidation("to", err)
	}

	var (
		reports []*pkgsync.Report
		errs    []error
	)
	for _, p := range months {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := f.Sync(ctx, p, opts...)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// step is one source's part in a sync.
type step struct {
	source sources.Source
	skip   bool
}

// plan orders the participating sources and decides which are skipped.
// A synced entry whose links have vanished is corruption and aborts the
// month before anything is fetched.
func (f *fitler) plan(ctx context.Context, p period.Period, options *pkgsync.Options) ([]step, error) {
	// Ledger reads still run after cancellation so the report lists every
	// source; the fetch step then fails them.
	ctx = context.WithoutCancel(ctx)

	var plan []step
	for _, src := range f.sources.Ordered(f.config.authority.Precedence()) {
		id := src.ID()
		if !options.Includes(id) {
			continue
		}
		if options.Force {
			plan = append(plan, step{source: src})
			continue
		}

		entry, err := f.store.Entry(ctx, id, p)
		if err != nil {
			return nil, err
		}
		if !entry.IsSynced() {
			plan = append(plan, step{source: src})
			continue
		}
		if entry.Links > 0 {
			found, err := f.store.CountLinks(ctx, id, p)
			if err != nil {
				return nil, err
			}
			if found == 0 {
				return nil, &pkgerrors.LedgerCorruptionError{
					Source:   id.String(),
					Period:   p.String(),
					Expected: entry.Links,
					Found:    found,
				}
			}
		}
		plan = append(plan, step{source: src, skip: true})
	}
	return plan, nil
}

// syncSource merges one source's activities and commits them with its
// ledger flip.
func (f *fitler) syncSource(ctx context.Context, p period.Period, id activities.Source, raws []activities.RawActivity, sr *pkgsync.SourceResult, options *pkgsync.Options) error {
	logger := logging.FromContext(ctx).With().Str("source", id.String()).Logger()

	f.writes.Lock()
	updates, err := f.mergeAndCommit(ctx, p, id, raws, sr, options, &logger)
	f.writes.Unlock()
	if err != nil {
		return err
	}

	for _, u := range updates {
		if u.Changed() {
			f.triggerCommitted(u.Record, u.Previous)
		}
	}
	logger.Info().Msg(sr.Summary())
	return nil
}

// mergeAndCommit loads the candidates for raws, reconciles and commits
// them. Callers hold f.writes. A dry run returns no updates.
func (f *fitler) mergeAndCommit(ctx context.Context, p period.Period, id activities.Source, raws []activities.RawActivity, sr *pkgsync.SourceResult, options *pkgsync.Options, logger *zerolog.Logger) ([]reconciler.Update, error) {
	existing, err := f.candidates(ctx, p, id, raws)
	if err != nil {
		return nil, err
	}

	result := f.reconciler.Reconcile(existing, raws)
	sr.Fetched = result.Stats.Fetched
	sr.Matched = result.Stats.Matched
	sr.Created = result.Stats.Created
	sr.Updated = result.Stats.Updated
	for _, w := range result.Warnings {
		sr.Warn(w)
		logger.Warn().Err(w).Msg("Reconciliation warning")
	}

	if options.DryRun {
		sr.Status = pkgsync.StatusPreview
		return nil, nil
	}

	updates := result.Updates
	writes := make([]store.Write, len(updates))
	for i := range updates {
		writes[i] = store.Write{
			Record:    &updates[i].Record,
			Raws:      updates[i].Raws,
			LinksOnly: !updates[i].Changed(),
		}
	}
	err = f.store.Apply(ctx, store.Batch{
		Period:   p,
		Source:   id,
		Writes:   writes,
		Mark:     true,
		SyncedAt: f.config.now(),
	})
	if err != nil {
		return nil, pkgerrors.WrapResource("commit", "source", id.String(), err)
	}
	sr.Status = pkgsync.StatusSynced
	return updates, nil
}

// candidates loads the records raws may match: everything starting within
// the month widened by the match window, plus records already linked to
// any of the incoming ids.
func (f *fitler) candidates(ctx context.Context, p period.Period, id activities.Source, raws []activities.RawActivity) ([]activities.Record, error) {
	start, end := p.Bounds(f.config.location)
	margin := f.config.window
	if margin < 24*time.Hour {
		// Date-only activities match anything on the same local day.
		margin = 24 * time.Hour
	}
	existing, err := f.store.LoadRange(ctx, start.Add(-margin), end.Add(margin))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raws))
	for _, raw := range raws {
		keys = append(keys, raw.Normalize(f.config.location).LinkKey())
	}
	linked, err := f.store.RecordsByLink(ctx, id, keys)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(existing))
	for _, rec := range existing {
		seen[rec.ID] = true
	}
	for _, rec := range linked {
		if !seen[rec.ID] {
			existing = append(existing, rec)
			seen[rec.ID] = true
		}
	}
	return existing, nil
}
