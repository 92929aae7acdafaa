package reconciler

import (
	"strings"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
)

// notesSeparator joins notes contributed by different sources.
const notesSeparator = "\n\n"

// Merger folds raw activities into canonical records.
type Merger struct {
	strategy  Strategy
	authority authority.Authority
	location  *time.Location
}

// NewMerger creates a Merger from reconciler options.
func NewMerger(opts ...Option) (*Merger, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newMerger(o), nil
}

func newMerger(o *options) *Merger {
	return &Merger{strategy: o.strategy, authority: o.authority, location: o.location}
}

// Merge returns target with raw folded in. target is not modified.
//
// Empty fields are always filled. A differing non-empty value replaces the
// current one only when the strategy allows it; otherwise, if the incoming
// source ranks at least as high as the field's writer, the disagreement is
// returned as a conflict and the current value is kept. Notes accumulate,
// Extra keeps the first value seen per key, and SourceIDs only grow. An
// Extra value under a numeric field name that is not a number stays in
// Extra.
func (m *Merger) Merge(target activities.Record, raw activities.RawActivity) (activities.Record, []*errors.ConflictError) {
	rec := target.Clone()
	if rec.SourceIDs == nil {
		rec.SourceIDs = make(map[activities.Source]string)
	}
	if rec.Provenance == nil {
		rec.Provenance = make(map[activities.Field]activities.Source)
	}
	raw = raw.Normalize(m.location)

	seeding := rec.StartTime.IsZero()
	if seeding {
		rec.Source = raw.Source
	}
	m.mergeStart(&rec, raw, seeding)

	var conflicts []*errors.ConflictError
	for _, f := range activities.ScalarFields() {
		in := raw.Value(f)
		if in.IsZero() || !rec.Accepts(f, in) {
			continue
		}
		cur := rec.Value(f)
		if cur.IsZero() {
			rec.SetValue(f, in)
			rec.Provenance[f] = raw.Source
			continue
		}
		if cur.Equal(in) {
			continue
		}

		writer := m.writer(rec, f)
		inRank, curRank := m.authority.Rank(f, raw.Source), m.authority.Rank(f, writer)
		if m.strategy.ShouldOverwrite(inRank, curRank) {
			rec.SetValue(f, in)
			rec.Provenance[f] = raw.Source
			continue
		}
		if inRank >= curRank {
			conflicts = append(conflicts, &errors.ConflictError{
				RecordID: rec.ID,
				Field:    f.String(),
				Kept:     cur.String(),
				KeptBy:   writer.String(),
				Rejected: in.String(),
				Source:   raw.Source.String(),
			})
		}
	}

	m.mergeNotes(&rec, raw)

	for k, v := range raw.Extra {
		if v.IsZero() || (activities.IsTracked(k) && rec.Accepts(activities.Field(k), v)) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(activities.Extra)
		}
		if _, ok := rec.Extra[k]; !ok {
			rec.Extra[k] = v
		}
	}

	if _, ok := rec.SourceIDs[raw.Source]; !ok {
		rec.SourceIDs[raw.Source] = raw.LinkKey()
	}
	if len(rec.SourceIDs) > 1 {
		rec.Source = activities.Main
	}
	return rec, conflicts
}

// mergeStart seeds the start time and lets a timed source replace a
// date-only start.
func (m *Merger) mergeStart(rec *activities.Record, raw activities.RawActivity, seeding bool) {
	switch {
	case seeding:
		rec.StartTime, rec.DateOnly = raw.StartTime, raw.DateOnly
	case rec.DateOnly && !raw.DateOnly:
		rec.StartTime, rec.DateOnly = raw.StartTime, false
	case !rec.DateOnly && !raw.DateOnly && !rec.StartTime.Equal(raw.StartTime):
		f := activities.FieldStartTime
		if !m.strategy.ShouldOverwrite(m.authority.Rank(f, raw.Source), m.authority.Rank(f, m.writer(*rec, f))) {
			return
		}
		rec.StartTime = raw.StartTime
	default:
		return
	}
	rec.Provenance[activities.FieldStartTime] = raw.Source
	rec.Date = rec.StartTime.In(m.location).Format(activities.DateLayout)
}

func (m *Merger) mergeNotes(rec *activities.Record, raw activities.RawActivity) {
	in := strings.TrimSpace(raw.Notes)
	if in == "" || strings.Contains(rec.Notes, in) {
		return
	}
	if strings.TrimSpace(rec.Notes) == "" {
		rec.Notes = in
		rec.Provenance[activities.FieldNotes] = raw.Source
		return
	}
	rec.Notes += notesSeparator + in
}

// writer returns the source that last wrote f. Records loaded without
// provenance fall back to their seeding source.
func (m *Merger) writer(rec activities.Record, f activities.Field) activities.Source {
	if s, ok := rec.Provenance[f]; ok {
		return s
	}
	return rec.Source
}
