package activities

import (
	"fmt"
	"slices"
	"strings"
)

// Source identifies where an activity came from.
type Source string

// Known sources, listed from most to least authoritative by default.
const (
	// Main marks canonical data: manual edits and records merged from
	// more than one source.
	Main        Source = "main"
	Spreadsheet Source = "spreadsheet"
	Strava      Source = "strava"
	RideWithGPS Source = "ridewithgps"
	Garmin      Source = "garmin"
	File        Source = "file"
)

// Sources returns every known source in default precedence order.
func Sources() []Source {
	return []Source{Main, Spreadsheet, Strava, RideWithGPS, Garmin, File}
}

// String returns the string representation of a source.
func (s Source) String() string {
	return string(s)
}

// IsValid returns true if the source is one of the defined constants.
func (s Source) IsValid() bool {
	return slices.Contains(Sources(), s)
}

var sourceAliases = map[string]Source{
	"rwgps":          RideWithGPS,
	"sheet":          Spreadsheet,
	"files":          File,
	"garmin connect": Garmin,
}

// ParseSource resolves a case-insensitive source name or alias.
func ParseSource(name string) (Source, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if s := Source(n); s.IsValid() {
		return s, nil
	}
	if s, ok := sourceAliases[n]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown source %q", name)
}

// ParseSources resolves a list of names, or one comma separated string.
func ParseSources(names ...string) ([]Source, error) {
	var out []Source
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := ParseSource(part)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
