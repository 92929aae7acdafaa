package fitler

import (
	"context"
	"slices"
	"sort"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/store"
)

// ChangeKind names a provider-side edit.
type ChangeKind string

// Change kinds.
const (
	ChangeUpdateName      ChangeKind = "update_name"
	ChangeUpdateEquipment ChangeKind = "update_equipment"
	ChangeAddActivity     ChangeKind = "add_activity"
)

// Change is one edit a provider needs to agree with its canonical record.
type Change struct {
	Kind     ChangeKind        `json:"kind" yaml:"kind"`
	RecordID int64             `json:"record_id" yaml:"record_id"`
	Source   activities.Source `json:"source" yaml:"source"`
	SourceID string            `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	Old      string            `json:"old,omitempty" yaml:"old,omitempty"`
	New      string            `json:"new,omitempty" yaml:"new,omitempty"`
}

// Changes compares the raw snapshot stored on each link of the month with
// its canonical record. A differing name or equipment becomes an update for
// that source. When a spreadsheet source is configured, records it does not
// know yet become add_activity changes.
func (f *fitler) Changes(ctx context.Context, p period.Period) ([]Change, error) {
	if err := validPeriod(p); err != nil {
		return nil, err
	}
	links, err := f.store.Links(ctx, p)
	if err != nil {
		return nil, err
	}

	byRecord := make(map[int64][]store.Link)
	var ids []int64
	for _, l := range links {
		if _, ok := byRecord[l.RecordID]; !ok {
			ids = append(ids, l.RecordID)
		}
		byRecord[l.RecordID] = append(byRecord[l.RecordID], l)
	}
	slices.Sort(ids)

	precedence := f.config.authority.Precedence()
	rank := func(s activities.Source) int {
		if i := slices.Index(precedence, s); i >= 0 {
			return i
		}
		return len(precedence)
	}
	_, hasSheet := f.sources.Get(activities.Spreadsheet)

	var changes []Change
	for _, id := range ids {
		rec, err := f.store.Record(ctx, id)
		if err != nil {
			return nil, err
		}
		recLinks := byRecord[id]
		sort.SliceStable(recLinks, func(i, j int) bool { return rank(recLinks[i].Source) < rank(recLinks[j].Source) })

		for _, l := range recLinks {
			if rec.Name != "" && l.Raw.Name != rec.Name {
				changes = append(changes, Change{
					Kind: ChangeUpdateName, RecordID: id, Source: l.Source, SourceID: l.SourceID,
					Old: l.Raw.Name, New: rec.Name,
				})
			}
			if rec.Equipment != "" && l.Raw.Equipment != rec.Equipment {
				changes = append(changes, Change{
					Kind: ChangeUpdateEquipment, RecordID: id, Source: l.Source, SourceID: l.SourceID,
					Old: l.Raw.Equipment, New: rec.Equipment,
				})
			}
		}
		if _, linked := rec.LinkedTo(activities.Spreadsheet); hasSheet && !linked {
			changes = append(changes, Change{
				Kind: ChangeAddActivity, RecordID: id, Source: activities.Spreadsheet, New: rec.Name,
			})
		}
	}
	return changes, nil
}
