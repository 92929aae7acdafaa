package fitler_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/internal/store/sqlite"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
)

var (
	aug = period.MustParse("2024-08")
	sep = period.MustParse("2024-09")
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "fitler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newFitler(t *testing.T, st store.Store, opts ...fitler.Option) fitler.Fitler {
	t.Helper()
	opts = append([]fitler.Option{fitler.WithLocation(eastern(t))}, opts...)
	f, err := fitler.New(st, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// August fixtures: one ride reported by strava, garmin and an id-less file,
// plus a second strava-only ride a week later.
func stravaSource(t *testing.T) sources.Source {
	loc := eastern(t)
	return sources.Static(activities.Strava, loc,
		activities.RawActivity{
			SourceID:  "s1",
			StartTime: time.Date(2024, 8, 3, 7, 0, 0, 0, loc),
			Duration:  3600,
			Distance:  32000,
			Name:      "Morning Ride",
			Equipment: "Road Bike",
		},
		activities.RawActivity{
			SourceID:  "s2",
			StartTime: time.Date(2024, 8, 10, 18, 0, 0, 0, loc),
			Duration:  1800,
			Name:      "Evening Spin",
		},
	)
}

func garminSource(t *testing.T) sources.Source {
	loc := eastern(t)
	return sources.Static(activities.Garmin, loc,
		activities.RawActivity{
			SourceID:  "g1",
			StartTime: time.Date(2024, 8, 3, 7, 2, 0, 0, loc),
			Duration:  3590,
			Name:      "Cycling",
			Extra:     activities.Extra{"calories": activities.IntValue(800), "device": activities.StringValue("edge")},
		},
	)
}

func fileSource(t *testing.T) sources.Source {
	return sources.Static(activities.File, eastern(t),
		activities.RawActivity{
			// Naive wall clock, read in the home zone.
			StartTime: time.Date(2024, 8, 3, 7, 1, 0, 0, time.UTC),
			Naive:     true,
			Duration:  3605,
			Notes:     "Tailwind on the way back",
		},
	)
}

func allSources(t *testing.T) fitler.Option {
	return fitler.WithSources(stravaSource(t), garminSource(t), fileSource(t))
}

func TestNew(t *testing.T) {
	_, err := fitler.New(nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = fitler.New(newStore(t), fitler.WithConcurrency(0))
	require.Error(t, err)

	_, err = fitler.New(newStore(t), fitler.WithSources(nil))
	require.Error(t, err)

	_, err = fitler.New(newStore(t), fitler.WithMatchWindow(-time.Minute))
	require.Error(t, err)
}

func TestRecordsQuery(t *testing.T) {
	ctx := context.Background()
	f := newFitler(t, newStore(t), allSources(t))
	_, err := f.Sync(ctx, aug)
	require.NoError(t, err)

	loc := eastern(t)
	recs, err := f.Records(ctx, store.Query{From: time.Date(2024, 8, 5, 0, 0, 0, 0, loc)})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Evening Spin", recs[0].Name)

	recs, err = f.Records(ctx, store.Query{Sources: []activities.Source{activities.Garmin}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Morning Ride", recs[0].Name)

	_, err = f.Records(ctx, store.Query{From: time.Date(2024, 9, 1, 0, 0, 0, 0, loc), To: time.Date(2024, 8, 1, 0, 0, 0, 0, loc)})
	assert.True(t, errors.IsValidationError(err))
}
