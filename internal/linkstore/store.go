// Package linkstore keeps canonicalization results in SQLite so scrapers can
// look up a raw reference without resolving it again.
package linkstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS links (
	run_id        TEXT NOT NULL,
	raw_url       TEXT NOT NULL,
	canonical_url TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, raw_url)
);
CREATE INDEX IF NOT EXISTS links_raw_url ON links (raw_url, created_at);
`

// Link is one canonicalized reference.
type Link struct {
	RunID     string
	Raw       string
	Canonical string
	Error     string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open links db: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create links schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewRun returns a fresh run identifier.
func (s *Store) NewRun() string {
	return uuid.NewString()
}

// Save records l, replacing the row of the same run and raw URL.
func (s *Store) Save(ctx context.Context, l Link) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO links (run_id, raw_url, canonical_url, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.RunID, l.Raw, l.Canonical, l.Error, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save link %s: %w", l.Raw, err)
	}
	return nil
}

// Canonical returns the latest successful canonical URL recorded for raw.
func (s *Store) Canonical(ctx context.Context, raw string) (string, bool, error) {
	var canonical string
	err := s.db.QueryRowContext(ctx,
		`SELECT canonical_url FROM links WHERE raw_url = ? AND error = '' ORDER BY created_at DESC LIMIT 1`,
		raw,
	).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup link %s: %w", raw, err)
	}
	return canonical, true, nil
}

// Links lists a run in insertion order.
func (s *Store) Links(ctx context.Context, runID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, raw_url, canonical_url, error, created_at FROM links WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.RunID, &l.Raw, &l.Canonical, &l.Error, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
