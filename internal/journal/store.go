// Package journal records committed text edits in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Commit kinds.
const (
	KindAccept = "accept"
	KindDelete = "delete"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one committed edit.
type Entry struct {
	SessionID   string
	Kind        string
	Letter      string
	Buffer      string
	CommittedAt time.Time
}

// LetterStat is the number of accepts of one letter.
type LetterStat struct {
	Letter string
	Count  int
}

// Summary aggregates the whole journal.
type Summary struct {
	Sessions int
	Accepts  int
	Deletes  int
	First    time.Time
	Last     time.Time
}

// Store wraps SQLite access for the commit journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commits (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			letter TEXT NOT NULL,
			buffer TEXT NOT NULL,
			committed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commits_committed_at ON commits(committed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_commits_session_id ON commits(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores entries in a single transaction.
func (s *Store) Insert(ctx context.Context, entries ...Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO commits (session_id, kind, letter, buffer, committed_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err = stmt.ExecContext(ctx,
			e.SessionID, e.Kind, e.Letter, e.Buffer, formatTime(e.CommittedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LetterStats returns accept counts per letter since the given time, most
// frequent first. A zero since covers the whole journal.
func (s *Store) LetterStats(ctx context.Context, since time.Time) ([]LetterStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT letter, COUNT(*) FROM commits
		 WHERE kind = ? AND committed_at >= ?
		 GROUP BY letter
		 ORDER BY COUNT(*) DESC, letter ASC`,
		KindAccept, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LetterStat
	for rows.Next() {
		var st LetterStat
		if err := rows.Scan(&st.Letter, &st.Count); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Summary returns journal-wide totals.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var (
		sum         Summary
		first, last sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT session_id),
		        COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
		        MIN(committed_at), MAX(committed_at)
		 FROM commits`,
		KindAccept, KindDelete,
	).Scan(&sum.Sessions, &sum.Accepts, &sum.Deletes, &first, &last)
	if err != nil {
		return Summary{}, err
	}
	if first.Valid {
		if sum.First, err = parseTime(first.String); err != nil {
			return Summary{}, err
		}
	}
	if last.Valid {
		if sum.Last, err = parseTime(last.String); err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
