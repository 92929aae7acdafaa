// Package local reads raw activities from YAML or JSON export files on disk.
// Each file holds either a list of activities or a document with an
// "activities" key. Files are read on every fetch.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/logging"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/sources"
)

// Timestamp layouts accepted for start_time, most specific first. Layouts
// without an offset are naive; a bare date is date-only.
var (
	awareLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05Z07:00"}
	naiveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"}
)

// Source loads activities from export files.
type Source struct {
	id   activities.Source
	fsys fs.FS
	root string
	loc  *time.Location
}

var _ sources.Source = (*Source)(nil)

// Option configures a local source.
type Option func(*Source)

// WithLocation sets the zone months are judged in.
func WithLocation(loc *time.Location) Option {
	return func(s *Source) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a source reading the files under dir.
func New(id activities.Source, dir string, opts ...Option) *Source {
	s := NewFS(id, os.DirFS(dir), opts...)
	s.root = dir
	return s
}

// NewFS creates a source reading from fsys.
func NewFS(id activities.Source, fsys fs.FS, opts ...Option) *Source {
	s := &Source{id: id, fsys: fsys, root: ".", loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the source tag.
func (s *Source) ID() activities.Source {
	return s.id
}

// Fetch returns the activities in p from every export file.
func (s *Source) Fetch(ctx context.Context, p period.Period) ([]activities.RawActivity, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	var out []activities.RawActivity
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			return nil, errors.WrapIO("read", path.Join(s.root, name), err)
		}
		raws, err := s.parse(name, data)
		if err != nil {
			return nil, err
		}
		kept := 0
		for _, raw := range raws {
			if sources.InPeriod(raw, p, s.loc) {
				out = append(out, raw)
				kept++
			}
		}
		logger.Debug().
			Str("file", name).
			Int("activities", len(raws)).
			Int("in_period", kept).
			Msg("Read export file")
	}
	return out, nil
}

// files lists export files in lexical order.
func (s *Source) files() ([]string, error) {
	var files []string
	err := fs.WalkDir(s.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(name)) {
		case ".yaml", ".yml", ".json":
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("walk", s.root, err)
	}
	sort.Strings(files)
	return files, nil
}

// entry is the on-disk shape of one activity.
type entry struct {
	ID           string         `yaml:"id"`
	StartTime    string         `yaml:"start_time"`
	Duration     float64        `yaml:"duration"`
	Distance     float64        `yaml:"distance"`
	Name         string         `yaml:"name"`
	ActivityType string         `yaml:"activity_type"`
	LocationName string         `yaml:"location_name"`
	Equipment    string         `yaml:"equipment"`
	Notes        string         `yaml:"notes"`
	Extra        map[string]any `yaml:"extra"`
}

type document struct {
	Activities []entry `yaml:"activities"`
}

func (s *Source) parse(name string, data []byte) ([]activities.RawActivity, error) {
	var entries []entry
	var doc document
	if err := yaml.Unmarshal(data, &doc); err == nil && doc.Activities != nil {
		entries = doc.Activities
	} else if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.WrapParse(strings.TrimPrefix(path.Ext(name), "."), name, err)
	}

	out := make([]activities.RawActivity, 0, len(entries))
	for i, e := range entries {
		raw, err := s.convert(e)
		if err != nil {
			return nil, errors.NewParseError("activity", name, fmt.Sprintf("entry %d", i), err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *Source) convert(e entry) (activities.RawActivity, error) {
	start, naive, dateOnly, err := parseStart(e.StartTime)
	if err != nil {
		return activities.RawActivity{}, err
	}
	raw := activities.RawActivity{
		Source:       s.id,
		SourceID:     e.ID,
		StartTime:    start,
		Naive:        naive,
		DateOnly:     dateOnly,
		Duration:     e.Duration,
		Distance:     e.Distance,
		Name:         e.Name,
		ActivityType: e.ActivityType,
		LocationName: e.LocationName,
		Equipment:    e.Equipment,
		Notes:        e.Notes,
	}
	if len(e.Extra) > 0 {
		raw.Extra = make(activities.Extra, len(e.Extra))
		for k, v := range e.Extra {
			val, err := activities.ValueOf(v)
			if err != nil {
				return activities.RawActivity{}, fmt.Errorf("extra %q: %w", k, err)
			}
			raw.Extra[k] = val
		}
	}
	return raw, nil
}

// parseStart reads a start_time and reports whether it was naive or
// date-only.
func parseStart(v string) (t time.Time, naive, dateOnly bool, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false, false, errors.NewValidationError("start_time", v, "is required")
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, false, false, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true, false, nil
		}
	}
	if t, err := time.Parse(activities.DateLayout, v); err == nil {
		return t, false, true, nil
	}
	return time.Time{}, false, false, errors.NewValidationError("start_time", v, "unrecognized timestamp")
}
