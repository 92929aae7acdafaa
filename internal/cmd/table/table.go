// Package table turns fitler results into rows for the CLI table output.
package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ckdake/fitler"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/ledger"
	pkgsync "github.com/ckdake/fitler/pkg/sync"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// RecordsToTableData converts canonical records to table format.
func RecordsToTableData(records []activities.Record, loc *time.Location) Data {
	headers := []string{"ID", "Date", "Start", "Name", "Type", "Duration", "Distance", "Equipment", "Sources"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		start := "-"
		if !rec.DateOnly && !rec.StartTime.IsZero() {
			start = rec.StartTime.In(loc).Format("15:04")
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Date,
			start,
			orDash(rec.Name),
			orDash(rec.ActivityType),
			FormatDuration(rec.Duration),
			FormatDistance(rec.Distance),
			orDash(rec.Equipment),
			FormatSources(rec.SourceIDs),
		})
	}
	return Data{
		Headers: headers,
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft,
			AlignRight, AlignRight, AlignLeft, AlignLeft,
		},
	}
}

// EntriesToTableData converts ledger entries to table format.
func EntriesToTableData(entries []ledger.Entry, loc *time.Location) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		synced := "-"
		if !e.LastSyncedAt.IsZero() {
			synced = e.LastSyncedAt.In(loc).Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{e.Period, e.Source.String(), string(e.Status), strconv.Itoa(e.Links), synced})
	}
	return Data{
		Headers:         []string{"Period", "Source", "Status", "Links", "Last Synced"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

// ReportsToTableData converts sync reports to one row per source.
func ReportsToTableData(reports []*pkgsync.Report) Data {
	var rows [][]string
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.Err != nil && len(r.Sources) == 0 {
			rows = append(rows, []string{r.Period, "-", string(pkgsync.StatusFailed), "0", "0", "0", "0", "0", r.Err.Error()})
			continue
		}
		for _, sr := range r.Sources {
			note := sr.Error
			if note == "" && len(sr.Warnings) > 0 {
				note = fmt.Sprintf("%d warnings", len(sr.Warnings))
			}
			rows = append(rows, []string{
				r.Period,
				sr.Source.String(),
				string(sr.Status),
				strconv.Itoa(sr.Fetched),
				strconv.Itoa(sr.Matched),
				strconv.Itoa(sr.Created),
				strconv.Itoa(sr.Updated),
				strconv.Itoa(len(sr.Warnings)),
				orDash(note),
			})
		}
	}
	return Data{
		Headers: []string{"Period", "Source", "Status", "Fetched", "Matched", "Created", "Updated", "Warnings", "Note"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight,
			AlignRight, AlignRight, AlignRight, AlignLeft,
		},
	}
}

// ResetsToTableData converts reset results to table format.
func ResetsToTableData(results []*ledger.ResetResult) Data {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			r.Period,
			strconv.Itoa(r.Entries),
			strconv.Itoa(r.LinksRemoved),
			strconv.Itoa(len(r.RecordsDeleted)),
			strconv.Itoa(r.RecordsKept),
		})
	}
	return Data{
		Headers:         []string{"Period", "Ledger Entries", "Links Removed", "Records Deleted", "Records Kept"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// ChangesToTableData converts needed provider changes to table format.
func ChangesToTableData(changes []fitler.Change) Data {
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{
			strconv.FormatInt(c.RecordID, 10),
			string(c.Kind),
			c.Source.String(),
			orDash(c.SourceID),
			orDash(c.Old),
			orDash(c.New),
		})
	}
	return Data{
		Headers:         []string{"Record", "Change", "Source", "Source ID", "Current", "Wanted"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
	}
}

// FormatDuration renders seconds as h:mm:ss.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatDistance renders meters as kilometers.
func FormatDistance(meters float64) string {
	if meters <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatSources lists the linked sources in name order.
func FormatSources(ids map[activities.Source]string) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, 0, len(ids))
	for s := range ids {
		names = append(names, s.String())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
