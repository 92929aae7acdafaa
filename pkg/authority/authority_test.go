package authority_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/authority"
)

func TestDefaultPrecedence(t *testing.T) {
	a := authority.Default()
	order := a.Precedence()
	require.Equal(t, activities.Sources(), order)

	for i := 1; i < len(order); i++ {
		assert.Greater(t,
			a.Rank(activities.FieldEquipment, order[i-1]),
			a.Rank(activities.FieldEquipment, order[i]),
			"%s should outrank %s", order[i-1], order[i])
	}
	assert.Zero(t, a.Rank(activities.FieldName, activities.Source("unknown")))
}

func TestNew(t *testing.T) {
	t.Run("main is prepended", func(t *testing.T) {
		a, err := authority.New([]activities.Source{activities.Strava, activities.Garmin})
		require.NoError(t, err)
		assert.Equal(t, []activities.Source{activities.Main, activities.Strava, activities.Garmin}, a.Precedence())
		assert.Zero(t, a.Rank(activities.FieldName, activities.File))
	})

	t.Run("rejects duplicates and unknowns", func(t *testing.T) {
		_, err := authority.New([]activities.Source{activities.Strava, activities.Strava})
		assert.Error(t, err)
		_, err = authority.New([]activities.Source{"polar"})
		assert.Error(t, err)
		_, err = authority.New(nil)
		assert.Error(t, err)
	})
}

func TestOverrides(t *testing.T) {
	a, err := authority.New(activities.Sources(),
		authority.Field{Path: "*_heart_rate", Source: activities.Garmin, Priority: 100},
		authority.Field{Path: "max_*", Source: activities.File, Priority: 95},
	)
	require.NoError(t, err)

	assert.Equal(t, 100, a.Rank(activities.FieldAvgHeartRate, activities.Garmin))
	assert.Greater(t,
		a.Rank(activities.FieldAvgHeartRate, activities.Garmin),
		a.Rank(activities.FieldAvgHeartRate, activities.Strava))
	assert.Less(t,
		a.Rank(activities.FieldName, activities.Garmin),
		a.Rank(activities.FieldName, activities.Strava))

	found := a.Find(activities.FieldMaxHeartRate)
	require.NotNil(t, found)
	assert.Equal(t, activities.Garmin, found.Source)
	assert.Nil(t, a.Find(activities.FieldName))
}

func TestFieldMatches(t *testing.T) {
	tests := []struct {
		field   activities.Field
		pattern string
		want    bool
	}{
		{activities.FieldName, "name", true},
		{activities.FieldMaxSpeed, "max_*", true},
		{activities.FieldAvgHeartRate, "*_heart_rate", true},
		{activities.FieldDistance, "dist?nce", true},
		{activities.FieldName, "equipment", false},
		{activities.FieldName, "[", false},
	}
	for _, tt := range tests {
		o := authority.Field{Path: tt.pattern, Source: activities.Garmin}
		assert.Equal(t, tt.want, o.Matches(tt.field), "%s ~ %s", tt.field, tt.pattern)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := authority.New(activities.Sources(), authority.Field{Path: "max_[", Source: activities.Garmin})
	assert.Error(t, err)
}

func TestOverrideSpecificity(t *testing.T) {
	a, err := authority.New(activities.Sources(),
		authority.Field{Path: "*", Source: activities.File, Priority: 90},
		authority.Field{Path: "max_*", Source: activities.Garmin, Priority: 90},
	)
	require.NoError(t, err)

	found := a.Find(activities.FieldMaxSpeed)
	require.NotNil(t, found)
	assert.Equal(t, activities.Garmin, found.Source, "longer pattern wins a priority tie")
	assert.Equal(t, 90, a.Rank(activities.FieldName, activities.File))
}
