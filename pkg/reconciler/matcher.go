package reconciler

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/authority"
	"github.com/ckdake/fitler/pkg/errors"
)

// MatchGroup is a set of raw activities describing one real-world activity,
// together with the existing record they belong to, if any.
type MatchGroup struct {
	// Record is the existing record, nil when the group needs a new one.
	Record *activities.Record
	Raws   []activities.RawActivity
}

// MatchResult is the output of Matcher.Match.
type MatchResult struct {
	Groups   []MatchGroup
	Warnings []error
}

// Matcher decides which incoming raw activities belong to existing records
// and which describe activities not seen before.
type Matcher struct {
	window    time.Duration
	tolerance float64
	location  *time.Location
	authority authority.Authority
}

// NewMatcher creates a Matcher from reconciler options.
func NewMatcher(opts ...Option) (*Matcher, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newMatcher(o), nil
}

func newMatcher(o *options) *Matcher {
	return &Matcher{
		window:    o.window,
		tolerance: o.durationTolerance,
		location:  o.location,
		authority: o.authority,
	}
}

// candidate is an existing record or a group seeded earlier in the batch.
type candidate struct {
	group    *MatchGroup
	order    int64
	existing bool
	start    time.Time
	dateOnly bool
	duration float64
	linked   map[activities.Source]string
}

// Match assigns every incoming activity to exactly one group.
//
// An activity already linked to a record by (source, id) always joins that
// record. Otherwise it joins the closest record or batch group whose start
// time is within the window, skipping any that already carry a different
// id from the same source. Duration agreement is preferred, then time
// proximity, then the oldest record. Two equally good candidates produce an
// AmbiguousMatch warning. Anything left over seeds a new group.
func (m *Matcher) Match(existing []activities.Record, incoming []activities.RawActivity) *MatchResult {
	result := &MatchResult{}

	var (
		candidates []*candidate
		byLink     = make(map[activities.Source]map[string]*candidate)
		maxID      int64
	)
	link := func(c *candidate, source activities.Source, key string) {
		c.linked[source] = key
		if byLink[source] == nil {
			byLink[source] = make(map[string]*candidate)
		}
		byLink[source][key] = c
	}

	sorted := slices.Clone(existing)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i := range sorted {
		rec := sorted[i]
		c := &candidate{
			order:    rec.ID,
			existing: true,
			start:    rec.StartTime,
			dateOnly: rec.DateOnly,
			duration: rec.Duration,
			linked:   make(map[activities.Source]string, len(rec.SourceIDs)),
		}
		for source, key := range rec.SourceIDs {
			link(c, source, key)
		}
		c.group = &MatchGroup{Record: &rec}
		candidates = append(candidates, c)
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}

	raws := m.normalize(incoming)
	var touched []*candidate
	assign := func(c *candidate, raw activities.RawActivity, key string) {
		if len(c.group.Raws) == 0 {
			touched = append(touched, c)
		}
		c.group.Raws = append(c.group.Raws, raw)
		link(c, raw.Source, key)
		if c.dateOnly && !raw.DateOnly {
			c.start, c.dateOnly = raw.StartTime, false
		}
		if c.duration == 0 {
			c.duration = raw.Duration
		}
	}

	for _, raw := range raws {
		key := raw.LinkKey()
		if c, ok := byLink[raw.Source][key]; ok {
			assign(c, raw, key)
			continue
		}

		best, ambiguous := m.best(candidates, raw)
		if best == nil {
			maxID++
			c := &candidate{
				group:    &MatchGroup{},
				order:    maxID,
				start:    raw.StartTime,
				dateOnly: raw.DateOnly,
				linked:   make(map[activities.Source]string),
			}
			candidates = append(candidates, c)
			assign(c, raw, key)
			continue
		}
		if len(ambiguous) > 1 {
			result.Warnings = append(result.Warnings, &errors.AmbiguousMatchError{
				Source:     raw.Source.String(),
				SourceID:   key,
				Candidates: ambiguous,
				Chosen:     best.recordID(),
			})
		}
		assign(best, raw, key)
	}

	// Existing records first by id, then new groups in creation order.
	sort.SliceStable(touched, func(i, j int) bool { return touched[i].order < touched[j].order })
	for _, c := range touched {
		result.Groups = append(result.Groups, *c.group)
	}
	return result
}

func (c *candidate) recordID() int64 {
	if c.existing {
		return c.group.Record.ID
	}
	return 0
}

// normalize fixes naive and date-only times and orders the batch so higher
// precedence sources claim records first.
func (m *Matcher) normalize(incoming []activities.RawActivity) []activities.RawActivity {
	precedence := m.authority.Precedence()
	rank := func(s activities.Source) int {
		if i := slices.Index(precedence, s); i >= 0 {
			return i
		}
		return len(precedence)
	}

	raws := make([]activities.RawActivity, len(incoming))
	for i, raw := range incoming {
		raws[i] = raw.Normalize(m.location)
	}
	sort.SliceStable(raws, func(i, j int) bool {
		if ri, rj := rank(raws[i].Source), rank(raws[j].Source); ri != rj {
			return ri < rj
		}
		if !raws[i].StartTime.Equal(raws[j].StartTime) {
			return raws[i].StartTime.Before(raws[j].StartTime)
		}
		return raws[i].LinkKey() < raws[j].LinkKey()
	})
	return raws
}

type scored struct {
	c        *candidate
	mismatch bool
	delta    time.Duration
}

// best returns the winning candidate for raw and the record ids of every
// candidate tied with it. Groups new in this batch report id 0.
func (m *Matcher) best(candidates []*candidate, raw activities.RawActivity) (*candidate, []int64) {
	var pool []scored
	for _, c := range candidates {
		if _, taken := c.linked[raw.Source]; taken {
			continue
		}
		delta, ok := m.distance(c, raw)
		if !ok {
			continue
		}
		pool = append(pool, scored{c: c, mismatch: m.durationMismatch(c.duration, raw.Duration), delta: delta})
	}
	if len(pool) == 0 {
		return nil, nil
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.mismatch != b.mismatch {
			return !a.mismatch
		}
		if a.delta != b.delta {
			return a.delta < b.delta
		}
		return a.c.order < b.c.order
	})

	winner := pool[0]
	var tied []int64
	for _, s := range pool {
		if s.mismatch != winner.mismatch || s.delta != winner.delta {
			break
		}
		tied = append(tied, s.c.recordID())
	}
	return winner.c, tied
}

// dateOnlyDelta ranks same-day matches behind every timed match.
const dateOnlyDelta = 24 * time.Hour

// distance reports how far apart c and raw are, and whether they are close
// enough to be the same activity at all.
func (m *Matcher) distance(c *candidate, raw activities.RawActivity) (time.Duration, bool) {
	if c.dateOnly || raw.DateOnly {
		a, b := c.start.In(m.location), raw.StartTime.In(m.location)
		if a.Year() != b.Year() || a.YearDay() != b.YearDay() {
			return 0, false
		}
		delta := dateOnlyDelta
		if c.duration > 0 && raw.Duration > 0 {
			delta += time.Duration(math.Abs(c.duration-raw.Duration) * float64(time.Second))
		}
		return delta, true
	}
	delta := c.start.Sub(raw.StartTime)
	if delta < 0 {
		delta = -delta
	}
	return delta, delta <= m.window
}

// durationMismatch reports whether two known durations differ by more than
// the tolerance. Unknown durations never mismatch.
func (m *Matcher) durationMismatch(a, b float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	return math.Abs(a-b) > math.Max(a, b)*m.tolerance
}
