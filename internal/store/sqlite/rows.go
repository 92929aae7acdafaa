package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/period"
)

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execerContext is satisfied by both *sql.DB and *sql.Tx.
type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func upsertRecord(ctx context.Context, tx execerContext, rec *activities.Record, now time.Time) error {
	if rec.Date == "" && !rec.StartTime.IsZero() {
		rec.Date = rec.StartTime.Format(activities.DateLayout)
	}
	if rec.Source == "" {
		rec.Source = activities.Main
	}
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	if rec.ID == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO activities(start_ns, date, source, name, activity_type, equipment, data_json, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.StartTime.UnixNano(), rec.Date, string(rec.Source), rec.Name, rec.ActivityType, rec.Equipment, data, ts(rec.CreatedAt), ts(rec.UpdatedAt))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rec.ID = id
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE activities
		SET start_ns = ?, date = ?, source = ?, name = ?, activity_type = ?, equipment = ?, data_json = ?, updated_at = ?
		WHERE id = ?
	`, rec.StartTime.UnixNano(), rec.Date, string(rec.Source), rec.Name, rec.ActivityType, rec.Equipment, data, ts(rec.UpdatedAt), rec.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// encodeRecord serializes the record body. Identity, links and timestamps
// live in their own columns.
func encodeRecord(rec *activities.Record) (string, error) {
	body := rec.Clone()
	body.ID = 0
	body.SourceIDs = nil
	body.CreatedAt = time.Time{}
	body.UpdatedAt = time.Time{}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

func insertLink(ctx context.Context, tx execerContext, recordID int64, p period.Period, raw activities.RawActivity, now time.Time) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw activity: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO activity_links(source, source_id, record_id, period, raw_json, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_id) DO UPDATE SET raw_json = excluded.raw_json
		WHERE activity_links.record_id = excluded.record_id
	`, string(raw.Source), raw.LinkKey(), recordID, p.String(), string(payload), ts(now))
	if err != nil {
		return err
	}
	// An existing link to another record is left untouched and reported.
	if rowsAffected(res) == 0 {
		return fmt.Errorf("%s %q is already linked to another record", raw.Source, raw.LinkKey())
	}
	return nil
}

func markSynced(ctx context.Context, tx interface {
	queryRower
	execerContext
}, source activities.Source, p period.Period, at time.Time) error {
	links, err := countLinks(ctx, tx, source, p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_ledger(source, period, status, last_synced_at, links)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(source, period) DO UPDATE SET
			status = excluded.status,
			last_synced_at = excluded.last_synced_at,
			links = excluded.links
	`, string(source), p.String(), string(ledger.Synced), ts(at), links)
	return err
}

func countLinks(ctx context.Context, q queryRower, source activities.Source, p period.Period) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity_links WHERE source = ? AND period = ?
	`, string(source), p.String()).Scan(&n)
	if err != nil {
		return 0, errors.WrapResource("count", "link", source.String()+"/"+p.String(), err)
	}
	return n, nil
}

func scanEntry(row scanner) (ledger.Entry, error) {
	var (
		e        ledger.Entry
		source   string
		status   string
		syncedAt sql.NullString
	)
	if err := row.Scan(&source, &e.Period, &status, &syncedAt, &e.Links); err != nil {
		return ledger.Entry{}, err
	}
	e.Source = activities.Source(source)
	e.Status = ledger.Status(status)
	if syncedAt.Valid && syncedAt.String != "" {
		t, err := parseTS(syncedAt.String)
		if err != nil {
			return ledger.Entry{}, err
		}
		e.LastSyncedAt = t
	}
	return e, nil
}

// queryRecords runs a record query and attaches each record's links.
func (s *Store) queryRecords(ctx context.Context, q queryRower, query string, args ...any) ([]activities.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapResource("query", "record", "", err)
	}

	var (
		out   []activities.Record
		index = map[int64]int{}
	)
	for rows.Next() {
		var (
			id                   int64
			startNS              int64
			data                 string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &startNS, &data, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		var rec activities.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			_ = rows.Close()
			return nil, errors.WrapParse("json", fmt.Sprintf("activities[%d].data_json", id), err)
		}
		rec.ID = id
		if rec.StartTime.IsZero() {
			rec.StartTime = time.Unix(0, startNS).UTC()
		}
		if rec.CreatedAt, err = parseTS(createdAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if rec.UpdatedAt, err = parseTS(updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		rec.SourceIDs = make(map[activities.Source]string)
		index[id] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// The single connection must be released before the links query.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return out, nil
	}
	ids := make([]any, 0, len(out))
	for _, rec := range out {
		ids = append(ids, rec.ID)
	}
	linkRows, err := q.QueryContext(ctx, `
		SELECT record_id, source, source_id FROM activity_links
		WHERE record_id IN (`+placeholders(len(ids))+`)
	`, ids...)
	if err != nil {
		return nil, errors.WrapResource("query", "link", "", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var (
			recordID         int64
			source, sourceID string
		)
		if err := linkRows.Scan(&recordID, &source, &sourceID); err != nil {
			return nil, err
		}
		if i, ok := index[recordID]; ok {
			out[i].SourceIDs[activities.Source(source)] = sourceID
		}
	}
	return out, linkRows.Err()
}

func queryIDs(ctx context.Context, q queryRower, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// translateNoRows maps a write that touched nothing to ErrNotFound.
func translateNoRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return t, nil
}
