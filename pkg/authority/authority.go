// Package authority decides which source wins when sources disagree.
// A precedence list ranks sources for every field; per-field overrides can
// promote a source for specific fields, for example trusting Garmin for
// heart rate while Strava stays authoritative for names.
package authority

import (
	"fmt"
	"path"
	"slices"

	"github.com/ckdake/fitler/pkg/activities"
)

// rankStep separates precedence slots so overrides can sit between them.
const rankStep = 10

// Authority determines which source is authoritative for each field.
type Authority interface {
	// Rank returns how authoritative source is for field. Higher wins;
	// zero means the source is unranked.
	Rank(field activities.Field, source activities.Source) int

	// Precedence returns the sources from most to least authoritative.
	Precedence() []activities.Source

	// Find returns the override configured for a field, if any.
	Find(field activities.Field) *Field
}

// Field defines source priority for a specific field.
type Field struct {
	Path     string            `json:"path" yaml:"path"`         // e.g. "avg_heart_rate", "max_*"
	Source   activities.Source `json:"source" yaml:"source"`     // Which source is authoritative
	Priority int               `json:"priority" yaml:"priority"` // Priority (higher = more authoritative)
}

type authority struct {
	precedence []activities.Source
	overrides  []Field
}

// Default returns the standard precedence:
// Main > Spreadsheet > Strava > RideWithGPS > Garmin > File.
func Default() Authority {
	return &authority{precedence: activities.Sources()}
}

// New creates an Authority from a precedence list and optional overrides.
// Main is always the most authoritative source and is added when missing.
func New(precedence []activities.Source, overrides ...Field) (Authority, error) {
	if len(precedence) == 0 {
		return nil, fmt.Errorf("precedence must list at least one source")
	}
	order := make([]activities.Source, 0, len(precedence)+1)
	if !slices.Contains(precedence, activities.Main) {
		order = append(order, activities.Main)
	}
	for _, s := range precedence {
		if !s.IsValid() {
			return nil, fmt.Errorf("unknown source %q in precedence", s)
		}
		if slices.Contains(order, s) {
			return nil, fmt.Errorf("source %q listed twice in precedence", s)
		}
		order = append(order, s)
	}
	for _, o := range overrides {
		if !o.Source.IsValid() {
			return nil, fmt.Errorf("unknown source %q in override for %s", o.Source, o.Path)
		}
		if o.Path == "" {
			return nil, fmt.Errorf("override for %s has an empty path", o.Source)
		}
		if _, err := path.Match(o.Path, ""); err != nil {
			return nil, fmt.Errorf("override pattern %q: %w", o.Path, err)
		}
	}
	return &authority{precedence: order, overrides: slices.Clone(overrides)}, nil
}

// Rank returns how authoritative source is for field.
func (a *authority) Rank(field activities.Field, source activities.Source) int {
	if o := a.override(field, func(o Field) bool { return o.Source == source }); o != nil {
		return o.Priority
	}
	i := slices.Index(a.precedence, source)
	if i < 0 {
		return 0
	}
	return (len(a.precedence) - i) * rankStep
}

// Precedence returns the sources from most to least authoritative.
func (a *authority) Precedence() []activities.Source {
	return slices.Clone(a.precedence)
}

// Find returns the highest priority override for a field.
func (a *authority) Find(field activities.Field) *Field {
	return a.override(field, nil)
}

// override picks the matching override with the highest priority, then the
// longest pattern, then the first listed. keep filters candidates when set.
func (a *authority) override(field activities.Field, keep func(Field) bool) *Field {
	var best *Field
	for i := range a.overrides {
		o := &a.overrides[i]
		if (keep != nil && !keep(*o)) || !o.Matches(field) {
			continue
		}
		if best == nil || o.Priority > best.Priority ||
			(o.Priority == best.Priority && len(o.Path) > len(best.Path)) {
			best = o
		}
	}
	return best
}

// Matches reports whether the override's path pattern covers field.
// Patterns use path.Match syntax, so "max_*" covers every max_ field.
func (o Field) Matches(field activities.Field) bool {
	ok, err := path.Match(o.Path, string(field))
	return err == nil && ok
}
