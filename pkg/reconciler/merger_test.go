package reconciler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/authority"
	pkgerrors "github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/reconciler"
)

func newMerger(t *testing.T, opts ...reconciler.Option) *reconciler.Merger {
	t.Helper()
	m, err := reconciler.NewMerger(opts...)
	require.NoError(t, err)
	return m
}

func stravaRide() activities.RawActivity {
	return activities.RawActivity{
		Source:       activities.Strava,
		SourceID:     "111",
		StartTime:    morning,
		Duration:     3600,
		Distance:     30000,
		Name:         "Morning Ride",
		ActivityType: "Ride",
		Equipment:    "Road Bike",
		Notes:        "windy",
		Extra: activities.Extra{
			"kudos":          activities.IntValue(4),
			"avg_heart_rate": activities.FloatValue(142),
		},
	}
}

func fileRide() activities.RawActivity {
	return activities.RawActivity{
		Source:       activities.File,
		SourceID:     "ride.fit",
		StartTime:    morning.Add(3 * time.Minute),
		Duration:     3590,
		Distance:     30010,
		Name:         "Ride",
		LocationName: "Atlanta",
		Equipment:    "Gravel Bike",
		Notes:        "flat tire at mile 12",
		Extra: activities.Extra{
			"kudos":       activities.IntValue(0),
			"device":      activities.StringValue("Edge 530"),
			"avg_cadence": activities.FloatValue(88),
		},
	}
}

func TestMergeSeedsNewRecord(t *testing.T) {
	rec, conflicts := newMerger(t).Merge(activities.Record{}, stravaRide())

	assert.Empty(t, conflicts)
	assert.Equal(t, activities.Strava, rec.Source)
	assert.Equal(t, morning, rec.StartTime)
	assert.Equal(t, "2024-08-03", rec.Date)
	assert.Equal(t, "Morning Ride", rec.Name)
	assert.Equal(t, 142.0, rec.AvgHeartRate, "well-known extra keys are promoted")
	assert.NotContains(t, rec.Extra, "avg_heart_rate")
	assert.Equal(t, activities.IntValue(4), rec.Extra["kudos"])
	assert.Equal(t, map[activities.Source]string{activities.Strava: "111"}, rec.SourceIDs)
	assert.Equal(t, activities.Strava, rec.Provenance[activities.FieldEquipment])
}

func TestMergeFillEmpty(t *testing.T) {
	m := newMerger(t)
	seeded, _ := m.Merge(activities.Record{}, stravaRide())

	rec, conflicts := m.Merge(seeded, fileRide())

	assert.Equal(t, "Morning Ride", rec.Name, "lower precedence never overwrites")
	assert.Equal(t, "Road Bike", rec.Equipment)
	assert.Equal(t, "Atlanta", rec.LocationName, "empty fields are filled")
	assert.Equal(t, 88.0, rec.AvgCadence)
	assert.Equal(t, 3600.0, rec.Duration)
	assert.Equal(t, "windy\n\nflat tire at mile 12", rec.Notes)
	assert.Equal(t, activities.IntValue(4), rec.Extra["kudos"], "extra is first-wins")
	assert.Equal(t, activities.StringValue("Edge 530"), rec.Extra["device"])
	assert.Equal(t, activities.Main, rec.Source)
	assert.Equal(t, "ride.fit", rec.SourceIDs[activities.File])
	assert.Empty(t, conflicts, "lower precedence disagreement is not a conflict")

	// Precedence disagreement in the other direction is reported.
	fileFirst, _ := m.Merge(activities.Record{}, fileRide())
	rec, conflicts = m.Merge(fileFirst, stravaRide())
	assert.Equal(t, "Gravel Bike", rec.Equipment, "fill-empty keeps the first value")
	require.NotEmpty(t, conflicts)

	fields := map[string]*pkgerrors.ConflictError{}
	for _, c := range conflicts {
		fields[c.Field] = c
	}
	require.Contains(t, fields, "equipment")
	assert.Equal(t, "Gravel Bike", fields["equipment"].Kept)
	assert.Equal(t, "Road Bike", fields["equipment"].Rejected)
	assert.NotContains(t, fields, "distance", "readings within 1% agree")
}

func TestMergeFieldAuthority(t *testing.T) {
	m := newMerger(t, reconciler.WithStrategy(reconciler.NewAuthorityStrategy()))

	fileFirst, _ := m.Merge(activities.Record{}, fileRide())
	rec, conflicts := m.Merge(fileFirst, stravaRide())

	assert.Empty(t, conflicts)
	assert.Equal(t, "Road Bike", rec.Equipment)
	assert.Equal(t, "Morning Ride", rec.Name)
	assert.Equal(t, activities.Strava, rec.Provenance[activities.FieldName])
	assert.Equal(t, morning, rec.StartTime, "higher precedence start time wins")

	// And a lower source still cannot undo it.
	again, _ := m.Merge(rec, fileRide())
	assert.Equal(t, "Road Bike", again.Equipment)
}

func TestMergePerFieldOverride(t *testing.T) {
	auth, err := authority.New(activities.Sources(),
		authority.Field{Path: "*_heart_rate", Source: activities.Garmin, Priority: 100})
	require.NoError(t, err)
	m := newMerger(t,
		reconciler.WithAuthority(auth),
		reconciler.WithStrategy(reconciler.NewAuthorityStrategy()))

	seeded, _ := m.Merge(activities.Record{}, stravaRide())
	garmin := raw(activities.Garmin, "g1", morning, 3600)
	garmin.Extra = activities.Extra{"avg_heart_rate": activities.FloatValue(150)}
	garmin.Equipment = "Trainer"

	rec, _ := m.Merge(seeded, garmin)
	assert.Equal(t, 150.0, rec.AvgHeartRate)
	assert.Equal(t, "Road Bike", rec.Equipment)
}

func TestMergeIsPureAndIdempotent(t *testing.T) {
	m := newMerger(t)
	seeded, _ := m.Merge(activities.Record{}, stravaRide())
	snapshot := seeded.Clone()

	merged, _ := m.Merge(seeded, fileRide())
	assert.Equal(t, snapshot, seeded, "target must not be mutated")

	again, conflicts := m.Merge(merged, fileRide())
	assert.Equal(t, merged, again)
	assert.Empty(t, conflicts)
}

func TestMergeTimedStartReplacesDateOnly(t *testing.T) {
	m := newMerger(t)
	sheet := activities.RawActivity{
		Source:    activities.Spreadsheet,
		SourceID:  "row-3",
		StartTime: time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC),
		DateOnly:  true,
		Name:      "Commute",
	}
	rec, _ := m.Merge(activities.Record{}, sheet)
	require.True(t, rec.DateOnly)

	rec, _ = m.Merge(rec, stravaRide())
	assert.False(t, rec.DateOnly)
	assert.Equal(t, morning, rec.StartTime)
	assert.Equal(t, "Commute", rec.Name, "spreadsheet outranks strava")
}

func TestMergeKeepsExistingSourceID(t *testing.T) {
	m := newMerger(t)
	rec, _ := m.Merge(activities.Record{}, stravaRide())

	other := stravaRide()
	other.SourceID = "222"
	rec, _ = m.Merge(rec, other)
	assert.Equal(t, "111", rec.SourceIDs[activities.Strava])
}

func TestMergeWithoutSourceID(t *testing.T) {
	gpx := fileRide()
	gpx.SourceID = ""
	rec, _ := newMerger(t).Merge(activities.Record{}, gpx)
	assert.Equal(t, gpx.LinkKey(), rec.SourceIDs[activities.File])
	assert.NotEmpty(t, rec.SourceIDs[activities.File])
}

func TestMergeKeepsNonNumericExtraForNumericField(t *testing.T) {
	m := newMerger(t)

	raw := stravaRide()
	raw.Extra["calories"] = activities.StringValue("n/a")
	rec, conflicts := m.Merge(activities.Record{}, raw)
	assert.Empty(t, conflicts)
	assert.Zero(t, rec.Calories)
	assert.NotContains(t, rec.Provenance, activities.FieldCalories)
	assert.Equal(t, "n/a", rec.Extra["calories"].String())

	garmin := fileRide()
	garmin.Source = activities.Garmin
	garmin.Extra["calories"] = activities.IntValue(750)
	rec, _ = m.Merge(rec, garmin)
	assert.InDelta(t, 750, rec.Calories, 0)
	assert.Equal(t, activities.Garmin, rec.Provenance[activities.FieldCalories])
}
