package sync

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/internal/cmd/application"
	"github.com/ckdake/fitler/internal/store/sqlite"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
	"github.com/ckdake/fitler/pkg/store"
)

func newFitler(t *testing.T, srcs ...sources.Source) fitler.Fitler {
	t.Helper()
	st, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f, err := fitler.New(st, fitler.WithSources(srcs...))
	require.NoError(t, err)
	return f
}

func execute(t *testing.T, f fitler.Fitler, args ...string) (string, error) {
	t.Helper()
	mock := &application.Mock{
		FitlerFunc:       func() (fitler.Fitler, error) { return f, nil },
		OutputFormatFunc: func() string { return "csv" },
	}
	cmd := NewCommand(mock)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func ride(id string, start time.Time) activities.RawActivity {
	return activities.RawActivity{SourceID: id, StartTime: start, Duration: 3600, Name: "Ride " + id}
}

func TestSyncCommand(t *testing.T) {
	strava := sources.Static(activities.Strava, time.UTC,
		ride("s1", time.Date(2024, 8, 3, 11, 0, 0, 0, time.UTC)),
		ride("s2", time.Date(2024, 9, 3, 11, 0, 0, 0, time.UTC)),
	)
	f := newFitler(t, strava)

	out, err := execute(t, f, "2024-08", "--to", "2024-09")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-08,strava,synced,1,0,1,0,0,-")
	assert.Contains(t, out, "2024-09,strava,synced,1,0,1,0,0,-")

	recs, err := f.Records(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSyncCommandDryRun(t *testing.T) {
	f := newFitler(t, sources.Static(activities.Strava, time.UTC, ride("s1", time.Date(2024, 8, 3, 11, 0, 0, 0, time.UTC))))

	out, err := execute(t, f, "2024-08", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-08,strava,would_sync,1,0,1,0,0,-")
	assert.NotContains(t, out, ",synced,")

	entries, err := f.Ledger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSyncCommandSourceFailure(t *testing.T) {
	broken := sources.Func(activities.Garmin, func(context.Context, period.Period) ([]activities.RawActivity, error) {
		return nil, errors.New("garmin is down")
	})
	f := newFitler(t, sources.Static(activities.Strava, time.UTC), broken)

	out, err := execute(t, f, "2024-08")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 source syncs failed")
	assert.Contains(t, out, "2024-08,garmin,failed")
	assert.Contains(t, out, "2024-08,strava,synced")
}

func TestSyncCommandRejectsBadInput(t *testing.T) {
	f := newFitler(t)
	for _, args := range [][]string{
		{"2024-13"},
		{"2024-08", "--to", "2024-01"},
		{"2024-08", "--source", "polar"},
		{},
	} {
		_, err := execute(t, f, args...)
		assert.Error(t, err, "%v", args)
	}
}
