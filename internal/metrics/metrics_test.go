package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/sync"
)

func testReport() *sync.Report {
	r := sync.NewReport("run-1", "2024-08", time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC))
	r.Duration = 2 * time.Second

	strava := r.Add(activities.Strava)
	strava.Status = sync.StatusSynced
	strava.Fetched, strava.Created, strava.Updated = 5, 3, 1
	strava.Warn(errors.New("conflict"))

	garmin := r.Add(activities.Garmin)
	garmin.Fail(errors.New("boom"))

	file := r.Add(activities.File)
	file.Status = sync.StatusSkipped
	return r
}

func TestObserveSync(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSync(testReport())

	assert.Equal(t, 5.0, testutil.ToFloat64(m.fetched.WithLabelValues("strava")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.created.WithLabelValues("strava")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updated.WithLabelValues("strava")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warnings.WithLabelValues("strava")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("garmin", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("file")))
	assert.Equal(t, float64(time.Date(2024, 9, 1, 12, 0, 2, 0, time.UTC).Unix()),
		testutil.ToFloat64(m.lastSynced.WithLabelValues("strava")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.lastSynced), "only synced sources get a timestamp")
}

func TestObserveSyncIgnoresDryRun(t *testing.T) {
	m := New(nil)
	r := testReport()
	r.DryRun = true
	m.ObserveSync(r)

	assert.Equal(t, 0, testutil.CollectAndCount(m.fetched))
	assert.Equal(t, 0, testutil.CollectAndCount(m.failures))
}

func TestObserveReset(t *testing.T) {
	m := New(nil)
	m.ObserveReset(&ledger.ResetResult{Period: "2024-08", LinksRemoved: 4, RecordsDeleted: []int64{1, 2}})
	m.ObserveReset(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.linksRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsDeleted))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSync(testReport())
		m.ObserveReset(&ledger.ResetResult{})
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New(nil)
	m.ObserveSync(testReport())

	path := filepath.Join(t.TempDir(), "fitler.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fitler_sync_activities_fetched_total{source="strava"} 5`)
	assert.Contains(t, string(data), "fitler_sync_period_duration_seconds_count 1")
}
