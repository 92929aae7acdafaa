package fitler

import (
	"context"

	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/logging"
	"github.com/ckdake/fitler/pkg/period"
)

// Reset clears every ledger entry for the month, strips the links syncing
// it produced and deletes records left without links. Records still linked
// from other months keep their merged fields. It is all or nothing.
func (f *fitler) Reset(ctx context.Context, p period.Period) (*ledger.ResetResult, error) {
	if err := validPeriod(p); err != nil {
		return nil, err
	}
	ctx = logging.WithPeriod(ctx, p.String())
	logger := logging.FromContext(ctx)

	unlock := f.lock(p)
	defer unlock()

	f.writes.Lock()
	result, err := f.store.Reset(ctx, p)
	f.writes.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("Reset failed")
		return nil, pkgerrors.WrapResource("reset", "period", p.String(), err)
	}

	f.config.metrics.ObserveReset(result)
	f.triggerDeleted(result.RecordsDeleted)
	logger.Info().
		Int("entries", result.Entries).
		Int("links_removed", result.LinksRemoved).
		Int("records_deleted", len(result.RecordsDeleted)).
		Int("records_kept", result.RecordsKept).
		Msg("Reset period")
	return result, nil
}

// ResetRange resets every month from "from" to "to" inclusive, stopping at
// the first failure.
func (f *fitler) ResetRange(ctx context.Context, from, to period.Period) ([]*ledger.ResetResult, error) {
	months, err := period.Range(from, to)
	if err != nil {
		return nil, pkgerrors.WrapValidation("to", err)
	}
	var results []*ledger.ResetResult
	for _, p := range months {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := f.Reset(ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
