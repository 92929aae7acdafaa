package fitler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/ckdake/fitler/pkg/activities"
	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/logging"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
)

// fetched is the outcome of one source fetch.
type fetched struct {
	source   activities.Source
	raws     []activities.RawActivity
	err      error
	duration time.Duration
}

// fetch fetches the period from all sources concurrently and waits for
// every one of them. Results keep the order of srcs.
func fetch(ctx context.Context, srcs []sources.Source, p period.Period, concurrency int, timeout time.Duration) []fetched {
	logger := logging.FromContext(ctx)
	results := make([]fetched, len(srcs))

	workers := pool.New().WithMaxGoroutines(concurrency)
	for i, src := range srcs {
		workers.Go(func() {
			id := src.ID()
			started := time.Now()
			logger.Info().Str("source", id.String()).Msg("Fetching")

			fctx := logging.WithSource(ctx, id.String())
			cancel := func() {}
			if timeout > 0 {
				fctx, cancel = context.WithTimeout(fctx, timeout)
			}
			defer cancel()

			var (
				raws    []activities.RawActivity
				err     error
				catcher panics.Catcher
			)
			catcher.Try(func() {
				raws, err = src.Fetch(fctx, p)
			})
			if r := catcher.Recovered(); r != nil {
				err = r.AsError()
			}
			// A fetch that outlived its deadline reports the deadline even if
			// the adapter swallowed it.
			if err == nil && fctx.Err() != nil {
				err = fctx.Err()
			}
			if err == nil {
				raws, err = tagSource(id, raws)
			}
			if err != nil {
				raws = nil
				err = pkgerrors.WrapSource(id.String(), p.String(), err)
				logger.Warn().Err(err).Str("source", id.String()).Msg("Source fetch failed")
			} else {
				logger.Debug().
					Str("source", id.String()).
					Int("activities", len(raws)).
					Dur("duration", time.Since(started)).
					Msg("Fetched source")
			}
			results[i] = fetched{source: id, raws: raws, err: err, duration: time.Since(started)}
		})
	}
	workers.Wait()
	return results
}

// tagSource returns a copy of raws attributed to id. Untagged activities
// take id; an activity tagged with another source fails the fetch.
func tagSource(id activities.Source, raws []activities.RawActivity) ([]activities.RawActivity, error) {
	out := slices.Clone(raws)
	for i := range out {
		switch out[i].Source {
		case "":
			out[i].Source = id
		case id:
		default:
			return nil, pkgerrors.NewValidationError("source", out[i].Source.String(),
				fmt.Sprintf("activity %q returned by the %s adapter", out[i].SourceID, id))
		}
	}
	return out, nil
}

// cleanup cleans up all sources concurrently, logging and collecting any errors.
func cleanup(srcs []sources.Source) error {
	var (
		errs     []error
		errMutex sync.Mutex
	)

	workers := pool.New()
	for _, src := range srcs {
		c, ok := src.(sources.Cleaner)
		if !ok {
			continue
		}
		workers.Go(func() {
			if err := c.Cleanup(); err != nil {
				logging.Warn().
					Err(err).
					Str("source", src.ID().String()).
					Msg("Cleanup failed")

				wrappedErr := pkgerrors.WrapResource("cleanup", "source", src.ID().String(), err)
				errMutex.Lock()
				errs = append(errs, wrappedErr)
				errMutex.Unlock()
			}
		})
	}
	workers.Wait()

	return errors.Join(errs...)
}
