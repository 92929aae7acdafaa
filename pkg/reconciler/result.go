package reconciler

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
)

// Update is the outcome for one match group.
type Update struct {
	// Record is the merged record. ID is zero for new records.
	Record activities.Record

	// Previous is the stored record before merging, nil for new records.
	Previous *activities.Record

	// Raws are the activities folded into Record.
	Raws []activities.RawActivity
}

// Created reports whether the update introduces a new record.
func (u Update) Created() bool {
	return u.Previous == nil
}

// Changed reports whether the merge altered a stored record.
func (u Update) Changed() bool {
	if u.Previous == nil {
		return true
	}
	return !sameRecord(*u.Previous, u.Record)
}

// Result represents the outcome of reconciling one batch.
type Result struct {
	Updates  []Update
	Warnings []error
	Stats    Statistics

	StartTime time.Time
	Duration  time.Duration
}

// Statistics counts what a reconciliation did.
type Statistics struct {
	Fetched   int
	Matched   int
	Created   int
	Updated   int
	Unchanged int
	Conflicts int
	Ambiguous int
}

// HasChanges returns true if anything needs to be written.
func (r *Result) HasChanges() bool {
	return r.Stats.Created > 0 || r.Stats.Updated > 0
}

// Changes returns only the updates that must be persisted.
func (r *Result) Changes() []Update {
	var out []Update
	for _, u := range r.Updates {
		if u.Changed() {
			out = append(out, u)
		}
	}
	return out
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d fetched, %d matched, %d created, %d updated",
		r.Stats.Fetched, r.Stats.Matched, r.Stats.Created, r.Stats.Updated)
	if len(r.Warnings) > 0 {
		s += fmt.Sprintf(", %d warnings", len(r.Warnings))
	}
	return s
}

func newResult() *Result {
	return &Result{StartTime: time.Now()}
}

func (r *Result) finalize() {
	r.Duration = time.Since(r.StartTime)
}

// sameRecord compares records ignoring nil-versus-empty map differences.
func sameRecord(a, b activities.Record) bool {
	return reflect.DeepEqual(normalized(a), normalized(b))
}

func normalized(r activities.Record) activities.Record {
	if len(r.Extra) == 0 {
		r.Extra = nil
	}
	if len(r.SourceIDs) == 0 {
		r.SourceIDs = nil
	}
	if len(r.Provenance) == 0 {
		r.Provenance = nil
	}
	return r
}
