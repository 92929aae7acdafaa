package fitler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/pkg/activities"
	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
	pkgsync "github.com/ckdake/fitler/pkg/sync"
)

// view keeps the fields a reset and re-sync must reproduce.
type view struct {
	Start     time.Time
	Name      string
	Equipment string
	Calories  float64
	Notes     string
	SourceIDs map[activities.Source]string
}

func snapshot(t *testing.T, f fitler.Fitler) []view {
	t.Helper()
	recs, err := f.Records(context.Background(), store.Query{})
	require.NoError(t, err)
	out := make([]view, len(recs))
	for i, r := range recs {
		out[i] = view{r.StartTime.UTC(), r.Name, r.Equipment, r.Calories, r.Notes, r.SourceIDs}
	}
	return out
}

func TestResetIsReversible(t *testing.T) {
	ctx := context.Background()
	f := newFitler(t, newStore(t), allSources(t))

	_, err := f.Sync(ctx, aug)
	require.NoError(t, err)
	before := snapshot(t, f)
	oldRecs, err := f.Records(ctx, store.Query{})
	require.NoError(t, err)

	var deleted []int64
	f.OnRecordDeleted(func(id int64) { deleted = append(deleted, id) })

	result, err := f.Reset(ctx, aug)
	require.NoError(t, err)
	assert.Equal(t, "2024-08", result.Period)
	assert.Equal(t, 3, result.Entries)
	assert.Equal(t, 4, result.LinksRemoved)
	assert.Len(t, result.RecordsDeleted, 2)
	assert.ElementsMatch(t, result.RecordsDeleted, deleted)

	entries, err := f.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, snapshot(t, f))

	_, err = f.Sync(ctx, aug)
	require.NoError(t, err)
	assert.Equal(t, before, snapshot(t, f))

	newRecs, err := f.Records(ctx, store.Query{})
	require.NoError(t, err)
	for i := range newRecs {
		assert.Greater(t, newRecs[i].ID, oldRecs[len(oldRecs)-1].ID, "ids are never reused")
	}
}

func TestResetKeepsRecordsLinkedElsewhere(t *testing.T) {
	ctx := context.Background()
	loc := eastern(t)

	// A ride starting just before midnight on Aug 31 that garmin reports
	// with a start a few minutes later, in September.
	strava := sources.Static(activities.Strava, loc, activities.RawActivity{
		SourceID: "s9", StartTime: time.Date(2024, 8, 31, 23, 50, 0, 0, loc), Duration: 1200, Name: "Midnight Ride",
	})
	garmin := sources.Func(activities.Garmin, func(_ context.Context, p period.Period) ([]activities.RawActivity, error) {
		if p != sep {
			return nil, nil
		}
		return []activities.RawActivity{{
			Source: activities.Garmin, SourceID: "g9", StartTime: time.Date(2024, 9, 1, 0, 1, 0, 0, loc), Duration: 1190,
		}}, nil
	})
	f := newFitler(t, newStore(t), fitler.WithSources(strava, garmin))

	_, err := f.SyncRange(ctx, aug, sep)
	require.NoError(t, err)
	recs, err := f.Records(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Len(t, recs[0].SourceIDs, 2)

	result, err := f.Reset(ctx, aug)
	require.NoError(t, err)
	assert.Empty(t, result.RecordsDeleted)
	assert.Equal(t, 1, result.RecordsKept)

	recs, err = f.Records(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, map[activities.Source]string{activities.Garmin: "g9"}, recs[0].SourceIDs)
	assert.Equal(t, "Midnight Ride", recs[0].Name, "merged fields survive")

	report, err := f.Sync(ctx, aug)
	require.NoError(t, err)
	sr, _ := report.Source(activities.Strava)
	assert.Equal(t, 1, sr.Matched, "strava relinks to the surviving record")
	assert.Zero(t, sr.Created)
	sr, _ = report.Source(activities.Garmin)
	assert.Equal(t, pkgsync.StatusSynced, sr.Status)
}

func TestResetRange(t *testing.T) {
	ctx := context.Background()
	f := newFitler(t, newStore(t), allSources(t))

	_, err := f.SyncRange(ctx, aug, sep)
	require.NoError(t, err)

	results, err := f.ResetRange(ctx, aug, sep)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2024-08", results[0].Period)
	assert.Equal(t, 3, results[1].Entries)

	_, err = f.ResetRange(ctx, sep, aug)
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestResetRejectsInvalidPeriod(t *testing.T) {
	f := newFitler(t, newStore(t))
	_, err := f.Reset(context.Background(), period.Period{})
	assert.True(t, pkgerrors.IsValidationError(err))
}
