// Package reconciler matches raw activities from several sources to
// canonical records and merges them field by field.
//
// Matching and merging are pure: they take the current records and a batch
// of raw activities and describe the records that should exist afterwards.
// Persisting the result is the caller's job.
package reconciler

import (
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
)

// Reconciler matches and merges raw activities into records.
type Reconciler interface {
	// Match groups incoming activities with existing records.
	Match(existing []activities.Record, incoming []activities.RawActivity) *MatchResult

	// Merge folds one raw activity into a record.
	Merge(target activities.Record, raw activities.RawActivity) (activities.Record, []*errors.ConflictError)

	// Reconcile matches then merges a batch.
	Reconcile(existing []activities.Record, incoming []activities.RawActivity) *Result

	// Strategy returns the merge strategy in use.
	Strategy() Strategy

	// Authority returns the source precedence in use.
	Authority() authority.Authority
}

type reconciler struct {
	matcher  *Matcher
	merger   *Merger
	strategy Strategy
	auth     authority.Authority
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		matcher:  newMatcher(o),
		merger:   newMerger(o),
		strategy: o.strategy,
		auth:     o.authority,
	}, nil
}

func (r *reconciler) Match(existing []activities.Record, incoming []activities.RawActivity) *MatchResult {
	return r.matcher.Match(existing, incoming)
}

func (r *reconciler) Merge(target activities.Record, raw activities.RawActivity) (activities.Record, []*errors.ConflictError) {
	return r.merger.Merge(target, raw)
}

func (r *reconciler) Strategy() Strategy {
	return r.strategy
}

func (r *reconciler) Authority() authority.Authority {
	return r.auth
}

// Reconcile matches incoming against existing and merges every group.
func (r *reconciler) Reconcile(existing []activities.Record, incoming []activities.RawActivity) *Result {
	result := newResult()
	defer result.finalize()

	matched := r.matcher.Match(existing, incoming)
	result.Warnings = append(result.Warnings, matched.Warnings...)
	result.Stats.Fetched = len(incoming)
	result.Stats.Ambiguous = len(matched.Warnings)

	for _, group := range matched.Groups {
		var rec activities.Record
		if group.Record != nil {
			rec = *group.Record
			result.Stats.Matched += len(group.Raws)
		}
		for _, raw := range group.Raws {
			var conflicts []*errors.ConflictError
			rec, conflicts = r.merger.Merge(rec, raw)
			for _, c := range conflicts {
				result.Warnings = append(result.Warnings, c)
			}
			result.Stats.Conflicts += len(conflicts)
		}

		update := Update{Record: rec, Previous: group.Record, Raws: group.Raws}
		switch {
		case update.Created():
			result.Stats.Created++
		case update.Changed():
			result.Stats.Updated++
		default:
			result.Stats.Unchanged++
		}
		result.Updates = append(result.Updates, update)
	}
	return result
}
