package activities_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
)

func TestNormalize(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("naive wall clock is read in the home zone", func(t *testing.T) {
		raw := activities.RawActivity{StartTime: time.Date(2024, 8, 3, 7, 0, 0, 0, time.UTC), Naive: true}
		got := raw.Normalize(ny)
		assert.False(t, got.Naive)
		assert.True(t, got.StartTime.Equal(time.Date(2024, 8, 3, 11, 0, 0, 0, time.UTC)))
		assert.Equal(t, 7, got.StartTime.Hour())
	})

	t.Run("aware instants keep their instant", func(t *testing.T) {
		start := time.Date(2024, 8, 3, 11, 2, 0, 0, time.UTC)
		got := activities.RawActivity{StartTime: start}.Normalize(ny)
		assert.True(t, got.StartTime.Equal(start))
		assert.Equal(t, ny, got.StartTime.Location())
	})

	t.Run("date only keeps the written day", func(t *testing.T) {
		raw := activities.RawActivity{StartTime: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), DateOnly: true}
		got := raw.Normalize(ny)
		assert.Equal(t, "2024-08-01", got.StartTime.Format(activities.DateLayout))
		assert.Equal(t, 0, got.StartTime.Hour())
	})

	t.Run("extra is copied", func(t *testing.T) {
		raw := activities.RawActivity{Extra: activities.Extra{"power": activities.IntValue(200)}}
		got := raw.Normalize(nil)
		got.Extra["power"] = activities.IntValue(1)
		assert.Equal(t, "200", raw.Extra["power"].String())
	})
}

func TestLinkKey(t *testing.T) {
	start := time.Date(2024, 8, 3, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, "s1", activities.RawActivity{SourceID: "s1", StartTime: start}.LinkKey())

	a := activities.RawActivity{StartTime: start, Name: "Ride", Duration: 3600}
	b := a
	b.Name = "Run"
	assert.Equal(t, a.LinkKey(), a.LinkKey())
	assert.Regexp(t, `^t1722682800-[0-9a-f]{8}$`, a.LinkKey())
	assert.NotEqual(t, a.LinkKey(), b.LinkKey())
}

func TestRecordValues(t *testing.T) {
	rec := activities.Record{Name: "Ride", SourceIDs: map[activities.Source]string{activities.Strava: "s1"}}

	assert.Equal(t, "Ride", rec.Value(activities.FieldName).String())
	assert.True(t, rec.Value(activities.FieldStartTime).IsZero())

	rec.SetValue(activities.FieldDistance, activities.StringValue(" 12.5 "))
	assert.InDelta(t, 12.5, rec.Distance, 0)
	rec.SetValue(activities.FieldDistance, activities.StringValue("far"))
	assert.InDelta(t, 12.5, rec.Distance, 0)
	assert.False(t, rec.Accepts(activities.FieldDistance, activities.StringValue("far")))
	assert.True(t, rec.Accepts(activities.FieldDistance, activities.StringValue("12")))
	assert.True(t, rec.Accepts(activities.FieldCity, activities.IntValue(30306)))
	rec.SetValue(activities.FieldCity, activities.StringValue("Atlanta"))
	assert.Equal(t, "Atlanta", rec.City)

	clone := rec.Clone()
	clone.SourceIDs[activities.Garmin] = "g1"
	_, linked := rec.LinkedTo(activities.Garmin)
	assert.False(t, linked)
	id, linked := clone.LinkedTo(activities.Garmin)
	assert.True(t, linked)
	assert.Equal(t, "g1", id)
}

func TestParseSources(t *testing.T) {
	s, err := activities.ParseSource(" RWGPS ")
	require.NoError(t, err)
	assert.Equal(t, activities.RideWithGPS, s)

	_, err = activities.ParseSource("bogus")
	assert.Error(t, err)

	list, err := activities.ParseSources("strava, garmin", "sheet", "")
	require.NoError(t, err)
	assert.Equal(t, []activities.Source{activities.Strava, activities.Garmin, activities.Spreadsheet}, list)

	assert.Equal(t, activities.Main, activities.Sources()[0])
	assert.True(t, activities.IsTracked("calories"))
	assert.True(t, activities.IsTracked("notes"))
	assert.False(t, activities.IsTracked("power"))
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b activities.Value
		want bool
	}{
		{"case and space", activities.StringValue(" Morning Ride "), activities.StringValue("morning ride"), true},
		{"different strings", activities.StringValue("Tarmac"), activities.StringValue("Roubaix"), false},
		{"within one percent", activities.FloatValue(100), activities.FloatValue(100.5), true},
		{"outside one percent", activities.FloatValue(100), activities.FloatValue(102), false},
		{"int and float", activities.IntValue(3), activities.FloatValue(3), true},
		{"bool and string", activities.BoolValue(true), activities.StringValue("true"), false},
		{"both empty", activities.StringValue(" "), activities.Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestValueZeroAndConversion(t *testing.T) {
	assert.False(t, activities.BoolValue(false).IsZero())
	assert.True(t, activities.StringValue("  ").IsZero())
	assert.True(t, activities.FloatValue(0).IsZero())

	_, err := activities.ValueOf([]int{1})
	assert.Error(t, err)

	v, err := activities.ValueOf(uint64(7))
	require.NoError(t, err)
	assert.Equal(t, activities.KindInt, v.Kind())
}

func TestExtraJSON(t *testing.T) {
	var extra activities.Extra
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":1.5,"c":"x","d":true}`), &extra))

	assert.Equal(t, activities.KindInt, extra["a"].Kind())
	assert.Equal(t, activities.KindFloat, extra["b"].Kind())
	assert.Equal(t, activities.KindString, extra["c"].Kind())
	assert.Equal(t, activities.KindBool, extra["d"].Kind())

	data, err := json.Marshal(extra)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":1.5,"c":"x","d":true}`, string(data))
}
