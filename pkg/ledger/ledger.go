// Package ledger tracks, per source and calendar month, whether that source
// has been fully fetched and merged. Sync consults it to skip work that is
// already done; reset clears it so a month can be rebuilt.
package ledger

import (
	"context"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/period"
)

// Status is the sync state of one (source, period) pair.
type Status string

// Ledger statuses. A pair with no row is NotSynced.
const (
	NotSynced Status = "not_synced"
	Synced    Status = "synced"
)

// Entry is one ledger row.
type Entry struct {
	Source       activities.Source `json:"source" yaml:"source"`
	Period       string            `json:"period" yaml:"period"`
	Status       Status            `json:"status" yaml:"status"`
	LastSyncedAt time.Time         `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`

	// Links is how many source links the period held when it was marked.
	// A synced entry with links but none left in the store is corrupt.
	Links int `json:"links" yaml:"links"`
}

// IsSynced reports whether the entry is marked synced.
func (e Entry) IsSynced() bool {
	return e.Status == Synced
}

// ResetResult describes what a reset removed.
type ResetResult struct {
	Period         string  `json:"period" yaml:"period"`
	Entries        int     `json:"entries" yaml:"entries"`
	LinksRemoved   int     `json:"links_removed" yaml:"links_removed"`
	RecordsDeleted []int64 `json:"records_deleted" yaml:"records_deleted"`
	RecordsKept    int     `json:"records_kept" yaml:"records_kept"`
}

// Ledger records per-source sync progress.
type Ledger interface {
	// Entry returns the row for source and p, or a NotSynced entry.
	Entry(ctx context.Context, source activities.Source, p period.Period) (Entry, error)

	// MarkSynced flips the pair to Synced.
	MarkSynced(ctx context.Context, source activities.Source, p period.Period, at time.Time) error

	// Entries lists every row, newest period first.
	Entries(ctx context.Context) ([]Entry, error)

	// Reset clears every row for p and strips the links that syncing p
	// produced, deleting records left with no links. It is all or nothing.
	Reset(ctx context.Context, p period.Period) (*ResetResult, error)
}
