// Package activities defines the data model shared by sources, the
// reconciler and the store: raw activities as sources report them and the
// canonical records they are merged into.
package activities

import (
	"fmt"
	"hash/fnv"
	"time"
)

// DateLayout is the calendar day format used for Record.Date.
const DateLayout = "2006-01-02"

// RawActivity is one activity exactly as a source reported it.
// Sources produce these and never mutate them afterwards.
type RawActivity struct {
	Source    Source    `json:"source" yaml:"source"`
	SourceID  string    `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`

	// Naive marks a timestamp that carried no offset. Its wall clock is read
	// in the home zone.
	Naive bool `json:"naive,omitempty" yaml:"naive,omitempty"`

	// DateOnly marks a source that only knows the calendar day.
	DateOnly bool `json:"date_only,omitempty" yaml:"date_only,omitempty"`

	Duration     float64 `json:"duration,omitempty" yaml:"duration,omitempty"` // seconds
	Distance     float64 `json:"distance,omitempty" yaml:"distance,omitempty"` // meters
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	ActivityType string  `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`
	LocationName string  `json:"location_name,omitempty" yaml:"location_name,omitempty"`
	Equipment    string  `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Notes        string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Extra        Extra   `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Normalize returns a copy with StartTime fixed to an absolute instant in
// loc. Naive times are re-read as wall clock in loc. A date-only value keeps
// its calendar day as written and becomes local midnight.
func (a RawActivity) Normalize(loc *time.Location) RawActivity {
	if loc == nil {
		loc = time.UTC
	}
	t := a.StartTime
	if a.Naive {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	} else {
		t = t.In(loc)
	}
	if a.DateOnly {
		d := a.StartTime
		t = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	a.StartTime = t
	a.Naive = false
	a.Extra = a.Extra.Clone()
	return a
}

// LinkKey returns the identifier recorded in Record.SourceIDs for this
// activity. Sources without stable IDs get a key derived from the start
// instant and a hash of the descriptive fields.
func (a RawActivity) LinkKey() string {
	if a.SourceID != "" {
		return a.SourceID
	}
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s|%s|%.0f|%.0f", a.Name, a.ActivityType, a.Duration, a.Distance)
	return fmt.Sprintf("t%d-%08x", a.StartTime.Unix(), h.Sum32())
}

// Value returns the raw value for a tracked field. Fields without a
// dedicated slot are read from Extra.
func (a RawActivity) Value(f Field) Value {
	switch f {
	case FieldName:
		return StringValue(a.Name)
	case FieldActivityType:
		return StringValue(a.ActivityType)
	case FieldLocationName:
		return StringValue(a.LocationName)
	case FieldEquipment:
		return StringValue(a.Equipment)
	case FieldNotes:
		return StringValue(a.Notes)
	case FieldDuration:
		return FloatValue(a.Duration)
	case FieldDistance:
		return FloatValue(a.Distance)
	}
	if v, ok := a.Extra[string(f)]; ok {
		return v
	}
	return Value{}
}

// Record is the canonical, merged view of one real-world activity.
type Record struct {
	// ID is assigned by the store, grows monotonically and is never reused.
	ID        int64     `json:"id" yaml:"id"`
	Date      string    `json:"date" yaml:"date"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	DateOnly  bool      `json:"date_only,omitempty" yaml:"date_only,omitempty"`
	Source    Source    `json:"source" yaml:"source"`

	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	ActivityType string `json:"activity_type,omitempty" yaml:"activity_type,omitempty"`
	LocationName string `json:"location_name,omitempty" yaml:"location_name,omitempty"`
	City         string `json:"city,omitempty" yaml:"city,omitempty"`
	State        string `json:"state,omitempty" yaml:"state,omitempty"`
	Equipment    string `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Notes        string `json:"notes,omitempty" yaml:"notes,omitempty"`

	Duration      float64 `json:"duration,omitempty" yaml:"duration,omitempty"` // seconds
	Distance      float64 `json:"distance,omitempty" yaml:"distance,omitempty"` // meters
	Calories      float64 `json:"calories,omitempty" yaml:"calories,omitempty"`
	AvgHeartRate  float64 `json:"avg_heart_rate,omitempty" yaml:"avg_heart_rate,omitempty"`
	MaxHeartRate  float64 `json:"max_heart_rate,omitempty" yaml:"max_heart_rate,omitempty"`
	MaxSpeed      float64 `json:"max_speed,omitempty" yaml:"max_speed,omitempty"`
	ElevationGain float64 `json:"elevation_gain,omitempty" yaml:"elevation_gain,omitempty"`
	MaxElevation  float64 `json:"max_elevation,omitempty" yaml:"max_elevation,omitempty"`
	AvgCadence    float64 `json:"avg_cadence,omitempty" yaml:"avg_cadence,omitempty"`
	Temperature   float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	Extra Extra `json:"extra,omitempty" yaml:"extra,omitempty"`

	// SourceIDs maps each contributing source to its identifier. Sync only
	// ever adds entries.
	SourceIDs map[Source]string `json:"source_ids" yaml:"source_ids"`

	// Provenance records which source wrote each field.
	Provenance map[Field]Source `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Extra = r.Extra.Clone()
	if r.SourceIDs != nil {
		ids := make(map[Source]string, len(r.SourceIDs))
		for k, v := range r.SourceIDs {
			ids[k] = v
		}
		r.SourceIDs = ids
	}
	if r.Provenance != nil {
		prov := make(map[Field]Source, len(r.Provenance))
		for k, v := range r.Provenance {
			prov[k] = v
		}
		r.Provenance = prov
	}
	return r
}

// LinkedTo reports whether the record carries an identifier for source.
func (r Record) LinkedTo(source Source) (string, bool) {
	id, ok := r.SourceIDs[source]
	return id, ok
}

// Value returns the record's value for a tracked field.
func (r *Record) Value(f Field) Value {
	if s := r.stringSlot(f); s != nil {
		return StringValue(*s)
	}
	if n := r.numberSlot(f); n != nil {
		return FloatValue(*n)
	}
	return Value{}
}

// SetValue stores v into the slot for f. Numeric fields accept numeric
// strings; anything else is ignored.
func (r *Record) SetValue(f Field, v Value) {
	if s := r.stringSlot(f); s != nil {
		*s = v.String()
		return
	}
	if n := r.numberSlot(f); n != nil {
		if x, ok := v.Float(); ok {
			*n = x
		}
	}
}

// Accepts reports whether SetValue would store v for f. Numeric slots only
// take values that read as numbers.
func (r *Record) Accepts(f Field, v Value) bool {
	if r.numberSlot(f) != nil {
		_, ok := v.Float()
		return ok
	}
	return true
}

func (r *Record) stringSlot(f Field) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldActivityType:
		return &r.ActivityType
	case FieldLocationName:
		return &r.LocationName
	case FieldCity:
		return &r.City
	case FieldState:
		return &r.State
	case FieldEquipment:
		return &r.Equipment
	case FieldNotes:
		return &r.Notes
	}
	return nil
}

func (r *Record) numberSlot(f Field) *float64 {
	switch f {
	case FieldDuration:
		return &r.Duration
	case FieldDistance:
		return &r.Distance
	case FieldCalories:
		return &r.Calories
	case FieldAvgHeartRate:
		return &r.AvgHeartRate
	case FieldMaxHeartRate:
		return &r.MaxHeartRate
	case FieldMaxSpeed:
		return &r.MaxSpeed
	case FieldElevationGain:
		return &r.ElevationGain
	case FieldMaxElevation:
		return &r.MaxElevation
	case FieldAvgCadence:
		return &r.AvgCadence
	case FieldTemperature:
		return &r.Temperature
	}
	return nil
}
