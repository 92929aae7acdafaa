package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
)

// Status is the outcome of one source in one sync.
type Status string

// Source statuses.
const (
	StatusSkipped Status = "skipped" // already synced for the period
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
	StatusPreview Status = "would_sync" // dry run; nothing was written
)

// Report is the result of syncing one period.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Period    string        `json:"period" yaml:"period"`
	DryRun    bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	// Sources holds one result per participating source, in precedence order.
	Sources []*SourceResult `json:"sources" yaml:"sources"`

	// Err is set when the period itself could not be synced, for example
	// after ledger corruption. Per-source failures never set it.
	Err error `json:"-" yaml:"-"`
}

// SourceResult represents sync results for a single source.
type SourceResult struct {
	Source   activities.Source `json:"source" yaml:"source"`
	Status   Status            `json:"status" yaml:"status"`
	Fetched  int               `json:"fetched" yaml:"fetched"`
	Matched  int               `json:"matched" yaml:"matched"`
	Created  int               `json:"created" yaml:"created"`
	Updated  int               `json:"updated" yaml:"updated"`
	Warnings []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
	Reason   string            `json:"reason,omitempty" yaml:"reason,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// NewReport creates an empty report for a run.
func NewReport(runID, period string, started time.Time) *Report {
	return &Report{RunID: runID, Period: period, StartedAt: started}
}

// Add appends a result for source and returns it.
func (r *Report) Add(source activities.Source) *SourceResult {
	sr := &SourceResult{Source: source}
	r.Sources = append(r.Sources, sr)
	return sr
}

// Source returns the result for a source, if present.
func (r *Report) Source(source activities.Source) (*SourceResult, bool) {
	for _, sr := range r.Sources {
		if sr.Source == source {
			return sr, true
		}
	}
	return nil, false
}

// Failed returns the results of sources that did not sync.
func (r *Report) Failed() []*SourceResult {
	var out []*SourceResult
	for _, sr := range r.Sources {
		if sr.Status == StatusFailed {
			out = append(out, sr)
		}
	}
	return out
}

// HasErrors reports whether any source failed or the period itself failed.
func (r *Report) HasErrors() bool {
	return r.Err != nil || len(r.Failed()) > 0
}

// HasChanges returns true if the sync created or updated any record.
func (r *Report) HasChanges() bool {
	for _, sr := range r.Sources {
		if sr.HasChanges() {
			return true
		}
	}
	return false
}

// Totals sums the per-source counts.
func (r *Report) Totals() SourceResult {
	var t SourceResult
	for _, sr := range r.Sources {
		t.Fetched += sr.Fetched
		t.Matched += sr.Matched
		t.Created += sr.Created
		t.Updated += sr.Updated
		t.Warnings = append(t.Warnings, sr.Warnings...)
	}
	return t
}

// Summary returns a human-readable summary of the report.
func (r *Report) Summary() string {
	t := r.Totals()
	var parts []string
	if r.DryRun {
		parts = append(parts, "(Dry run)")
	}
	if failed := len(r.Failed()); failed > 0 {
		parts = append(parts, fmt.Sprintf("%d sources failed", failed))
	}
	if r.Err != nil {
		parts = append(parts, "period failed: "+r.Err.Error())
	}

	summary := fmt.Sprintf("%s: %d fetched, %d created, %d updated", r.Period, t.Fetched, t.Created, t.Updated)
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, ", ")
	}
	return summary
}

// Fail marks the source as failed with err.
func (sr *SourceResult) Fail(err error) {
	sr.Status = StatusFailed
	sr.Err = err
	sr.Error = err.Error()
	sr.Reason = errors.Reason(err)
}

// Warn records a non-fatal problem.
func (sr *SourceResult) Warn(err error) {
	sr.Warnings = append(sr.Warnings, err.Error())
}

// HasChanges returns true if the source created or updated records.
func (sr *SourceResult) HasChanges() bool {
	return sr.Created > 0 || sr.Updated > 0
}

// Summary returns a human-readable summary of the source result.
func (sr *SourceResult) Summary() string {
	switch sr.Status {
	case StatusSkipped:
		return fmt.Sprintf("%s: already synced", sr.Source)
	case StatusFailed:
		return fmt.Sprintf("%s: failed (%s): %s", sr.Source, sr.Reason, sr.Error)
	case StatusPreview:
		return fmt.Sprintf("%s: would fetch %d, match %d, create %d, update %d",
			sr.Source, sr.Fetched, sr.Matched, sr.Created, sr.Updated)
	}
	return fmt.Sprintf("%s: %d fetched, %d matched, %d created, %d updated",
		sr.Source, sr.Fetched, sr.Matched, sr.Created, sr.Updated)
}
