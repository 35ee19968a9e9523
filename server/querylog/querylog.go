// Package querylog persists every query served over HTTP -- the query
// text, the k requested, the results actually emitted, how long the
// parse took, and whether it hit its deadline -- for offline grammar-
// quality review: the natural "what did users actually type" companion
// a deployed instance of this system would carry. Grounded on the
// teacher's server/dao/sqlite store: database/sql over modernc.org/
// sqlite, with the result set rezi-encoded into a binary blob column
// rather than normalized into its own table.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/corvidic/corvid/query"
)

// Entry is one served /parse call.
type Entry struct {
	Query    string
	K        int
	Results  []query.Result
	Duration time.Duration
	Partial  bool
}

// Store persists Entries to a SQLite database, one row per served
// query.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the query log database under dir.
func Open(dir string) (*Store, error) {
	path := filepath.Join(dir, "querylog.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("querylog: open %s: %w", path, err)
	}
	st := &Store{db: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS queries (
		id TEXT NOT NULL PRIMARY KEY,
		query TEXT NOT NULL,
		k INTEGER NOT NULL,
		results BLOB NOT NULL,
		duration_ms INTEGER NOT NULL,
		partial INTEGER NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("querylog: init schema: %w", err)
	}
	return nil
}

// Record writes e as a new row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("querylog: generate id: %w", err)
	}

	blob := rezi.EncBinary(e.Results)

	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO queries
		(id, query, k, results, duration_ms, partial, created)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("querylog: prepare insert: %w", err)
	}
	defer stmt.Close()

	partialInt := 0
	if e.Partial {
		partialInt = 1
	}
	_, err = stmt.ExecContext(ctx, id.String(), e.Query, e.K, blob,
		e.Duration.Milliseconds(), partialInt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("querylog: insert: %w", err)
	}
	return nil
}

// Recent returns the n most recently recorded entries, most recent
// first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, k, results, duration_ms, partial FROM queries
		ORDER BY created DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querylog: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var blob []byte
		var durationMs int64
		var partialInt int
		if err := rows.Scan(&e.Query, &e.K, &blob, &durationMs, &partialInt); err != nil {
			return nil, fmt.Errorf("querylog: scan row: %w", err)
		}
		if _, err := rezi.DecBinary(blob, &e.Results); err != nil {
			return nil, fmt.Errorf("querylog: decode results: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Partial = partialInt != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
