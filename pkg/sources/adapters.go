package sources

import (
	"context"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
)

// FetchFunc fetches one month of activities.
type FetchFunc func(ctx context.Context, p period.Period) ([]activities.RawActivity, error)

type funcSource struct {
	id    activities.Source
	fetch FetchFunc
}

// Func adapts a function into a Source.
func Func(id activities.Source, fetch FetchFunc) Source {
	return &funcSource{id: id, fetch: fetch}
}

func (f *funcSource) ID() activities.Source { return f.id }

func (f *funcSource) Fetch(ctx context.Context, p period.Period) ([]activities.RawActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.fetch(ctx, p)
}

// StaticSource serves a fixed list of activities, filtered to the month
// requested. It backs manual entries and tests.
type StaticSource struct {
	id   activities.Source
	loc  *time.Location
	raws []activities.RawActivity
}

// Static returns a source serving raws. Each raw is tagged with id.
func Static(id activities.Source, loc *time.Location, raws ...activities.RawActivity) *StaticSource {
	if loc == nil {
		loc = time.UTC
	}
	tagged := make([]activities.RawActivity, len(raws))
	for i, r := range raws {
		r.Source = id
		tagged[i] = r
	}
	return &StaticSource{id: id, loc: loc, raws: tagged}
}

// ID returns the source tag.
func (s *StaticSource) ID() activities.Source { return s.id }

// Fetch returns the activities in p.
func (s *StaticSource) Fetch(ctx context.Context, p period.Period) ([]activities.RawActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []activities.RawActivity
	for _, r := range s.raws {
		if InPeriod(r, p, s.loc) {
			out = append(out, r)
		}
	}
	return out, nil
}
