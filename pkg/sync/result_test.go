package sync_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/sync"
)

func TestReport(t *testing.T) {
	r := sync.NewReport("run-1", "2024-08", time.Now())

	strava := r.Add(activities.Strava)
	strava.Status = sync.StatusSynced
	strava.Fetched, strava.Created = 4, 3
	strava.Warn(&pkgerrors.ConflictError{Field: "equipment"})

	garmin := r.Add(activities.Garmin)
	garmin.Fail(pkgerrors.WrapSource("garmin", "2024-08", pkgerrors.NewAPIError("garmin", 429, "slow down")))

	r.Add(activities.File).Status = sync.StatusSkipped

	assert.True(t, r.HasErrors())
	assert.True(t, r.HasChanges())
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, "rate_limited", garmin.Reason)

	got, ok := r.Source(activities.Garmin)
	require.True(t, ok)
	assert.Same(t, garmin, got)

	totals := r.Totals()
	assert.Equal(t, 4, totals.Fetched)
	assert.Len(t, totals.Warnings, 1)

	assert.Equal(t, "2024-08: 4 fetched, 3 created, 0 updated 1 sources failed", r.Summary())
	assert.Equal(t, "file: already synced", r.Sources[2].Summary())
	assert.Contains(t, garmin.Summary(), "failed (rate_limited)")
}

func TestReportPeriodError(t *testing.T) {
	r := sync.NewReport("run-2", "2024-05", time.Now())
	r.Err = errors.New("ledger corruption")
	assert.True(t, r.HasErrors())
	assert.False(t, r.HasChanges())
	assert.Contains(t, r.Summary(), "period failed")
}

func TestOptions(t *testing.T) {
	opts := sync.Defaults().Apply(
		sync.WithSources(activities.Strava),
		sync.WithTimeout(time.Minute),
		sync.WithDryRun(true),
		sync.WithForce(true),
	)
	require.NoError(t, opts.Validate())
	assert.True(t, opts.Includes(activities.Strava))
	assert.False(t, opts.Includes(activities.Garmin))
	assert.True(t, sync.Defaults().Includes(activities.Garmin))

	assert.Error(t, sync.Defaults().Apply(sync.WithTimeout(-time.Second)).Validate())
	assert.Error(t, sync.Defaults().Apply(sync.WithSources("polar")).Validate())
}
