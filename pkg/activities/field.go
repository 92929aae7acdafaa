package activities

import "slices"

// Field names a tracked attribute of a Record.
type Field string

// Tracked fields.
const (
	FieldStartTime     Field = "start_time"
	FieldName          Field = "name"
	FieldActivityType  Field = "activity_type"
	FieldLocationName  Field = "location_name"
	FieldCity          Field = "city"
	FieldState         Field = "state"
	FieldEquipment     Field = "equipment"
	FieldNotes         Field = "notes"
	FieldDuration      Field = "duration"
	FieldDistance      Field = "distance"
	FieldCalories      Field = "calories"
	FieldAvgHeartRate  Field = "avg_heart_rate"
	FieldMaxHeartRate  Field = "max_heart_rate"
	FieldMaxSpeed      Field = "max_speed"
	FieldElevationGain Field = "elevation_gain"
	FieldMaxElevation  Field = "max_elevation"
	FieldAvgCadence    Field = "avg_cadence"
	FieldTemperature   Field = "temperature"
)

// ScalarFields returns the fields merged by value, in a stable order.
// Start time and notes have their own merge rules and are excluded.
func ScalarFields() []Field {
	return []Field{
		FieldName,
		FieldActivityType,
		FieldLocationName,
		FieldCity,
		FieldState,
		FieldEquipment,
		FieldDuration,
		FieldDistance,
		FieldCalories,
		FieldAvgHeartRate,
		FieldMaxHeartRate,
		FieldMaxSpeed,
		FieldElevationGain,
		FieldMaxElevation,
		FieldAvgCadence,
		FieldTemperature,
	}
}

// IsTracked reports whether name is a field with a dedicated Record slot.
// Extra keys with these names are promoted instead of copied into Extra.
func IsTracked(name string) bool {
	f := Field(name)
	return f == FieldNotes || f == FieldStartTime || slices.Contains(ScalarFields(), f)
}

// String returns the field name.
func (f Field) String() string {
	return string(f)
}
