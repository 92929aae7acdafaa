package sources_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
)

type cleanupSource struct {
	sources.Source
	err     error
	cleaned bool
}

func (c *cleanupSource) Cleanup() error {
	c.cleaned = true
	return c.err
}

func TestSourcesContainer(t *testing.T) {
	garmin := sources.Static(activities.Garmin, nil)
	strava := sources.Static(activities.Strava, nil)
	file := sources.Static(activities.File, nil)

	srcs := sources.NewSources(garmin, file, strava, nil)
	assert.Equal(t, 3, srcs.Len())
	assert.Equal(t, []activities.Source{activities.File, activities.Garmin, activities.Strava}, srcs.IDs())

	got, ok := srcs.Get(activities.Strava)
	require.True(t, ok)
	assert.Same(t, strava, got)

	srcs.Delete(activities.File)
	_, ok = srcs.Get(activities.File)
	assert.False(t, ok)

	srcs.Set(file)
	assert.Equal(t, 3, srcs.Len())
}

func TestOrdered(t *testing.T) {
	srcs := sources.NewSources(
		sources.Static(activities.File, nil),
		sources.Static(activities.Garmin, nil),
		sources.Static(activities.Strava, nil),
	)

	ids := func(list []sources.Source) []activities.Source {
		out := make([]activities.Source, len(list))
		for i, s := range list {
			out[i] = s.ID()
		}
		return out
	}

	assert.Equal(t,
		[]activities.Source{activities.Strava, activities.Garmin, activities.File},
		ids(srcs.Ordered(activities.Sources())))

	assert.Equal(t,
		[]activities.Source{activities.Garmin, activities.File, activities.Strava},
		ids(srcs.Ordered([]activities.Source{activities.Garmin})),
		"unlisted sources follow by name")
}

func TestStaticFiltersByPeriod(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	src := sources.Static(activities.Strava, eastern,
		activities.RawActivity{SourceID: "a", StartTime: time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)},
		// 2024-09-01 02:00 UTC is still August in New York.
		activities.RawActivity{SourceID: "b", StartTime: time.Date(2024, 9, 1, 2, 0, 0, 0, time.UTC)},
		activities.RawActivity{SourceID: "c", StartTime: time.Date(2024, 9, 1, 2, 0, 0, 0, time.UTC), Naive: true},
		activities.RawActivity{SourceID: "d", StartTime: time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC), DateOnly: true},
	)

	raws, err := src.Fetch(context.Background(), period.MustParse("2024-08"))
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "a", raws[0].SourceID)
	assert.Equal(t, "b", raws[1].SourceID)
	assert.Equal(t, activities.Strava, raws[0].Source)
}

func TestFuncHonorsContext(t *testing.T) {
	called := false
	src := sources.Func(activities.Garmin, func(context.Context, period.Period) ([]activities.RawActivity, error) {
		called = true
		return nil, nil
	})
	assert.Equal(t, activities.Garmin, src.ID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, period.MustParse("2024-08"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCleanup(t *testing.T) {
	boom := errors.New("boom")
	a := &cleanupSource{Source: sources.Static(activities.Strava, nil), err: boom}
	b := &cleanupSource{Source: sources.Static(activities.Garmin, nil)}

	srcs := sources.NewSources(a, b)
	assert.ErrorIs(t, srcs.Cleanup(), boom)
	assert.True(t, a.cleaned)
	assert.True(t, b.cleaned)
}
