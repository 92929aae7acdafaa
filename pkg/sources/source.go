// Package sources defines the adapter contract for activity providers.
// An adapter fetches the raw activities of one calendar month; the engine
// owns matching, merging and persistence.
//
// Example usage:
//
//	srcs := sources.NewSources(
//	    sources.Func(activities.Strava, fetchStrava),
//	    local.New(activities.File, "./exports"),
//	)
//	for _, src := range srcs.Ordered(authority.Default().Precedence()) {
//	    raws, err := src.Fetch(ctx, period.MustParse("2024-08"))
//	    ...
//	}
package sources

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
)

// Source represents one activity provider.
type Source interface {
	// ID returns the source tag the adapter reports under.
	ID() activities.Source

	// Fetch returns the raw activities of the month. It must honor ctx and
	// may return a partial list only together with an error.
	Fetch(ctx context.Context, p period.Period) ([]activities.RawActivity, error)
}

// Cleaner is implemented by sources holding resources between fetches.
type Cleaner interface {
	Cleanup() error
}

// Sources is a thread-safe container for managing multiple data sources.
type Sources struct {
	mu      sync.RWMutex
	sources map[activities.Source]Source
}

// NewSources creates a new Sources instance. Later sources replace earlier
// ones with the same ID.
func NewSources(srcs ...Source) *Sources {
	s := &Sources{
		sources: make(map[activities.Source]Source, len(srcs)),
	}
	for _, src := range srcs {
		if src != nil {
			s.sources[src.ID()] = src
		}
	}
	return s
}

// Get returns a source by ID.
func (s *Sources) Get(id activities.Source) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a source by ID.
func (s *Sources) Set(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID()] = src
}

// Delete deletes a source by ID.
func (s *Sources) Delete(id activities.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// IDs returns the registered source IDs sorted by name.
func (s *Sources) IDs() []activities.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]activities.Source, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Ordered returns the sources in precedence order. Sources missing from
// precedence follow, sorted by name.
func (s *Sources) Ordered(precedence []activities.Source) []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Source, 0, len(s.sources))
	seen := make(map[activities.Source]bool, len(s.sources))
	for _, id := range precedence {
		if src, ok := s.sources[id]; ok && !seen[id] {
			out = append(out, src)
			seen[id] = true
		}
	}
	var rest []activities.Source
	for id := range s.sources {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	for _, id := range rest {
		out = append(out, s.sources[id])
	}
	return out
}

// Cleanup calls Cleanup on every source that holds resources and returns
// the first error.
func (s *Sources) Cleanup() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first error
	for _, src := range s.sources {
		if c, ok := src.(Cleaner); ok {
			if err := c.Cleanup(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// InPeriod reports whether raw belongs to p as seen in loc. Naive and
// date-only times are judged by the calendar they were written in.
func InPeriod(raw activities.RawActivity, p period.Period, loc *time.Location) bool {
	if raw.Naive || raw.DateOnly {
		t := raw.StartTime
		return t.Year() == p.Year && t.Month() == p.Month
	}
	return p.Contains(raw.StartTime, loc)
}
