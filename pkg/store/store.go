// Package store defines the persistence contract for canonical records,
// their source links and the sync ledger.
package store

import (
	"context"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/period"
)

// Link ties one source activity to the record it was merged into.
type Link struct {
	Source   activities.Source      `json:"source" yaml:"source"`
	SourceID string                 `json:"source_id" yaml:"source_id"`
	RecordID int64                  `json:"record_id" yaml:"record_id"`
	Period   string                 `json:"period" yaml:"period"`
	Raw      activities.RawActivity `json:"raw" yaml:"raw"`
}

// Query selects records for export. Zero values mean no bound.
type Query struct {
	From    time.Time
	To      time.Time // exclusive
	Sources []activities.Source
	Limit   int
}

// Write is one record to persist together with the raw activities that
// were folded into it. A zero Record.ID inserts a new record.
type Write struct {
	Record *activities.Record
	Raws   []activities.RawActivity

	// LinksOnly leaves the record row as is and only refreshes the raw
	// snapshots on its links.
	LinksOnly bool
}

// Batch is applied atomically: every write lands and, when Mark is set, the
// ledger row for (Source, Period) flips to Synced, or nothing changes.
type Batch struct {
	Period   period.Period
	Source   activities.Source
	Writes   []Write
	Mark     bool
	SyncedAt time.Time
}

// Store persists records, links and the ledger.
type Store interface {
	ledger.Ledger

	// LoadRange returns records starting in [from, to).
	LoadRange(ctx context.Context, from, to time.Time) ([]activities.Record, error)

	// RecordsByLink returns the records linked to any of the given ids.
	RecordsByLink(ctx context.Context, source activities.Source, ids []string) ([]activities.Record, error)

	// Records runs an export query.
	Records(ctx context.Context, q Query) ([]activities.Record, error)

	// Record returns one record by id.
	Record(ctx context.Context, id int64) (activities.Record, error)

	// Upsert inserts or updates a single record, assigning its ID on insert.
	Upsert(ctx context.Context, rec *activities.Record) error

	// Delete removes a record and its links.
	Delete(ctx context.Context, id int64) error

	// Apply commits a batch atomically.
	Apply(ctx context.Context, b Batch) error

	// Links returns the links produced by syncing p.
	Links(ctx context.Context, p period.Period) ([]Link, error)

	// CountLinks counts links for source produced by syncing p.
	CountLinks(ctx context.Context, source activities.Source, p period.Period) (int, error)

	// Close releases the underlying resources.
	Close() error
}
