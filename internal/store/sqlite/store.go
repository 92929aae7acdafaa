// Package sqlite implements store.Store on SQLite using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/ledger"
	"github.com/ckdake/fitler/pkg/period"
	"github.com/ckdake/fitler/pkg/store"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// pragmas are applied to every connection through the DSN.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Store is a SQLite backed store.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewConfigError("store", "sqlite path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}
	return open("file:" + path + "?" + pragmas)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Store, error) {
	return open("file:fitler-" + uuid.NewString() + "?mode=memory&cache=shared&" + pragmas)
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps in-memory databases alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_ns INTEGER NOT NULL,
			date TEXT NOT NULL,
			source TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			activity_type TEXT NOT NULL DEFAULT '',
			equipment TEXT NOT NULL DEFAULT '',
			data_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS activity_links (
			source TEXT NOT NULL,
			source_id TEXT NOT NULL,
			record_id INTEGER NOT NULL,
			period TEXT NOT NULL,
			raw_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			PRIMARY KEY(source, source_id),
			UNIQUE(record_id, source),
			FOREIGN KEY(record_id) REFERENCES activities(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS sync_ledger (
			source TEXT NOT NULL,
			period TEXT NOT NULL,
			status TEXT NOT NULL,
			last_synced_at TEXT,
			links INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(source, period)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_start ON activities(start_ns, id);`,
		`CREATE INDEX IF NOT EXISTS idx_links_period ON activity_links(period, source);`,
		`CREATE INDEX IF NOT EXISTS idx_links_record ON activity_links(record_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, start_ns, data_json, created_at, updated_at`

// LoadRange returns records starting in [from, to).
func (s *Store) LoadRange(ctx context.Context, from, to time.Time) ([]activities.Record, error) {
	return s.Records(ctx, store.Query{From: from, To: to})
}

// Records runs an export query ordered by start time.
func (s *Store) Records(ctx context.Context, q store.Query) ([]activities.Record, error) {
	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		where = append(where, "start_ns >= ?")
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		where = append(where, "start_ns < ?")
		args = append(args, q.To.UnixNano())
	}
	if len(q.Sources) > 0 {
		ph := make([]string, len(q.Sources))
		for i, src := range q.Sources {
			ph[i] = "?"
			args = append(args, string(src))
		}
		where = append(where, "(source IN ("+strings.Join(ph, ",")+") OR id IN (SELECT record_id FROM activity_links WHERE source IN ("+strings.Join(ph, ",")+")))")
		for _, src := range q.Sources {
			args = append(args, string(src))
		}
	}

	query := `SELECT ` + recordColumns + ` FROM activities`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_ns ASC, id ASC`
	if q.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(q.Limit)
	}
	return s.queryRecords(ctx, s.db, query, args...)
}

// Record returns one record by id.
func (s *Store) Record(ctx context.Context, id int64) (activities.Record, error) {
	recs, err := s.queryRecords(ctx, s.db, `SELECT `+recordColumns+` FROM activities WHERE id = ?`, id)
	if err != nil {
		return activities.Record{}, err
	}
	if len(recs) == 0 {
		return activities.Record{}, errors.NewNotFoundError("record", strconv.FormatInt(id, 10))
	}
	return recs[0], nil
}

// RecordsByLink returns the records linked to any of ids for source.
func (s *Store) RecordsByLink(ctx context.Context, source activities.Source, ids []string) ([]activities.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := []any{string(source)}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + recordColumns + ` FROM activities WHERE id IN (
		SELECT record_id FROM activity_links WHERE source = ? AND source_id IN (` + placeholders(len(ids)) + `)
	) ORDER BY id ASC`
	return s.queryRecords(ctx, s.db, query, args...)
}

// Upsert writes a single record without touching links or the ledger.
func (s *Store) Upsert(ctx context.Context, rec *activities.Record) error {
	return s.Apply(ctx, store.Batch{Writes: []store.Write{{Record: rec}}})
}

// Delete removes a record and, by cascade, its links.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return errors.WrapResource("delete", "record", strconv.FormatInt(id, 10), err)
	}
	if err := translateNoRows(res); err != nil {
		return errors.NewNotFoundError("record", strconv.FormatInt(id, 10))
	}
	return nil
}

// Apply writes every record and link in b and, when b.Mark is set, flips
// the ledger row, all in one transaction. Inserted records get their IDs
// assigned in place.
func (s *Store) Apply(ctx context.Context, b store.Batch) (err error) {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapResource("begin", "batch", b.Source.String(), err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Ids assigned during this transaction are only kept on commit.
	var inserted []*activities.Record
	defer func() {
		if err != nil {
			for _, rec := range inserted {
				rec.ID = 0
			}
		}
	}()

	for _, w := range b.Writes {
		if w.Record == nil {
			continue
		}
		isNew := w.Record.ID == 0
		if !w.LinksOnly || isNew {
			if err = upsertRecord(ctx, tx, w.Record, now); err != nil {
				return errors.WrapResource("upsert", "record", strconv.FormatInt(w.Record.ID, 10), err)
			}
		}
		if isNew {
			inserted = append(inserted, w.Record)
		}
		for _, raw := range w.Raws {
			if err = insertLink(ctx, tx, w.Record.ID, b.Period, raw, now); err != nil {
				return errors.WrapResource("link", "record", strconv.FormatInt(w.Record.ID, 10), err)
			}
			if w.Record.SourceIDs == nil {
				w.Record.SourceIDs = make(map[activities.Source]string)
			}
			if _, ok := w.Record.SourceIDs[raw.Source]; !ok {
				w.Record.SourceIDs[raw.Source] = raw.LinkKey()
			}
		}
	}

	if b.Mark {
		synced := b.SyncedAt
		if synced.IsZero() {
			synced = now
		}
		if err = markSynced(ctx, tx, b.Source, b.Period, synced); err != nil {
			return errors.WrapResource("mark", "ledger", b.Source.String()+"/"+b.Period.String(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.WrapResource("commit", "batch", b.Source.String(), err)
	}
	return nil
}

// Links returns the links produced by syncing p.
func (s *Store) Links(ctx context.Context, p period.Period) ([]store.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, source_id, record_id, period, raw_json
		FROM activity_links
		WHERE period = ?
		ORDER BY record_id ASC, source ASC
	`, p.String())
	if err != nil {
		return nil, errors.WrapResource("load", "link", p.String(), err)
	}
	defer rows.Close()

	var out []store.Link
	for rows.Next() {
		var (
			l       store.Link
			source  string
			rawJSON string
		)
		if err := rows.Scan(&source, &l.SourceID, &l.RecordID, &l.Period, &rawJSON); err != nil {
			return nil, err
		}
		l.Source = activities.Source(source)
		if err := json.Unmarshal([]byte(rawJSON), &l.Raw); err != nil {
			return nil, errors.WrapParse("json", "activity_links.raw_json", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountLinks counts links for source produced by syncing p.
func (s *Store) CountLinks(ctx context.Context, source activities.Source, p period.Period) (int, error) {
	return countLinks(ctx, s.db, source, p)
}

// Entry returns the ledger row for source and p.
func (s *Store) Entry(ctx context.Context, source activities.Source, p period.Period) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source, period, status, last_synced_at, links
		FROM sync_ledger
		WHERE source = ? AND period = ?
	`, string(source), p.String())
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return ledger.Entry{Source: source, Period: p.String(), Status: ledger.NotSynced}, nil
	}
	if err != nil {
		return ledger.Entry{}, errors.WrapResource("load", "ledger", source.String()+"/"+p.String(), err)
	}
	return e, nil
}

// MarkSynced flips (source, p) to Synced outside of a batch.
func (s *Store) MarkSynced(ctx context.Context, source activities.Source, p period.Period, at time.Time) error {
	return s.Apply(ctx, store.Batch{Period: p, Source: source, Mark: true, SyncedAt: at})
}

// Entries lists every ledger row, newest period first.
func (s *Store) Entries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, period, status, last_synced_at, links
		FROM sync_ledger
		ORDER BY period DESC, source ASC
	`)
	if err != nil {
		return nil, errors.WrapResource("list", "ledger", "", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset clears the ledger for p, strips the links syncing p produced and
// deletes records left without links, all in one transaction.
func (s *Store) Reset(ctx context.Context, p period.Period) (result *ledger.ResetResult, err error) {
	key := p.String()
	result = &ledger.ResetResult{Period: key, RecordsDeleted: []int64{}}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapResource("begin", "reset", key, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			result = nil
		}
	}()

	affected, err := queryIDs(ctx, tx, `SELECT DISTINCT record_id FROM activity_links WHERE period = ? ORDER BY record_id`, key)
	if err != nil {
		return nil, errors.WrapResource("reset", "link", key, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sync_ledger WHERE period = ?`, key)
	if err != nil {
		return nil, errors.WrapResource("reset", "ledger", key, err)
	}
	result.Entries = rowsAffected(res)

	res, err = tx.ExecContext(ctx, `DELETE FROM activity_links WHERE period = ?`, key)
	if err != nil {
		return nil, errors.WrapResource("reset", "link", key, err)
	}
	result.LinksRemoved = rowsAffected(res)

	for _, id := range affected {
		var remaining int
		if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_links WHERE record_id = ?`, id).Scan(&remaining); err != nil {
			return nil, errors.WrapResource("reset", "record", strconv.FormatInt(id, 10), err)
		}
		if remaining > 0 {
			result.RecordsKept++
			continue
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id); err != nil {
			return nil, errors.WrapResource("reset", "record", strconv.FormatInt(id, 10), err)
		}
		result.RecordsDeleted = append(result.RecordsDeleted, id)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.WrapResource("commit", "reset", key, err)
	}
	return result, nil
}
