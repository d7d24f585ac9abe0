package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ketracker/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_rows (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT    NOT NULL,
	fields      TEXT    NOT NULL,
	appended_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_rows_kind ON journal_rows(kind, id);
`

// SQLiteJournal appends rows to a sqlite table
type SQLiteJournal struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the journal database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLiteJournal{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// AppendRow inserts row under kind.
func (j *SQLiteJournal) AppendRow(ctx context.Context, kind domain.JournalKind, row []string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownJournal, kind)
	}
	fields, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode journal row: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO journal_rows (kind, fields, appended_at) VALUES (?, ?, ?)`,
		string(kind), string(fields), j.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert journal row: %w", err)
	}
	return nil
}

// Rows returns up to limit of the newest rows of kind, oldest first. limit <= 0 means all.
func (j *SQLiteJournal) Rows(ctx context.Context, kind domain.JournalKind, limit int) ([]domain.JournalRow, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownJournal, kind)
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT fields, appended_at FROM (
			SELECT id, fields, appended_at FROM journal_rows
			WHERE kind = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query journal rows: %w", err)
	}
	defer rows.Close()

	out := []domain.JournalRow{}
	for rows.Next() {
		var (
			fields string
			ms     int64
		)
		if err := rows.Scan(&fields, &ms); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		r := domain.JournalRow{Kind: kind, AppendedAt: time.UnixMilli(ms)}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("decode journal row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
