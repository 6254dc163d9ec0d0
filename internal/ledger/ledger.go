// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records which books have already been acquired so batch
// runs do not download them again. Entries live in a SQLite database and
// are keyed by the requested title, case-folded with whitespace collapsed.
package ledger

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// Entry is one acquired book.
type Entry struct {
	Title      string    `json:"title" yaml:"title"`
	Author     string    `json:"author,omitempty" yaml:"author,omitempty"`
	Format     string    `json:"format,omitempty" yaml:"format,omitempty"`
	Path       string    `json:"path,omitempty" yaml:"path,omitempty"`
	SourceURL  string    `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`
}

// Store is the SQLite-backed ledger.
type Store struct {
	db   *sql.DB
	path string
}

var fold = cases.Fold()

// Key returns the lookup key for title.
func Key(title string) string {
	return fold.String(strings.Join(strings.Fields(title), " "))
}

// Open opens or creates the ledger database at path, creating its parent
// directory and schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT,
			format TEXT,
			path TEXT,
			source_url TEXT,
			acquired_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_acquired_at ON books(acquired_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Contains reports whether title has been recorded.
func (s *Store) Contains(ctx context.Context, title string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books WHERE key = ?`, Key(title)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}
	return n > 0, nil
}

// Record adds e, replacing any entry with the same title key. A zero
// AcquiredAt is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("ledger entry has no title")
	}
	if e.AcquiredAt.IsZero() {
		e.AcquiredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (key, title, author, format, path, source_url, acquired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			format = excluded.format,
			path = excluded.path,
			source_url = excluded.source_url,
			acquired_at = excluded.acquired_at`,
		Key(e.Title), e.Title, e.Author, e.Format, e.Path, e.SourceURL,
		e.AcquiredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %q: %w", e.Title, err)
	}
	return nil
}

// Remove deletes title from the ledger and reports whether it was present.
func (s *Store) Remove(ctx context.Context, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE key = ?`, Key(title))
	if err != nil {
		return false, fmt.Errorf("removing %q: %w", title, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing %q: %w", title, err)
	}
	return n > 0, nil
}

// List returns every entry, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, author, format, path, source_url, acquired_at
		FROM books ORDER BY acquired_at, title`)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                   Entry
			author, format, path, src, acquired sql.NullString
		)
		if err := rows.Scan(&e.Title, &author, &format, &path, &src, &acquired); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		e.Author = author.String
		e.Format = format.String
		e.Path = path.String
		e.SourceURL = src.String
		if t, err := time.Parse(time.RFC3339Nano, acquired.String); err == nil {
			e.AcquiredAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ImportText records one title per line from r, the plain-text format
// used by older download lists. Blank lines and lines starting with "#"
// are ignored, as are titles already present. It returns the number of
// titles added.
func (s *Store) ImportText(ctx context.Context, r io.Reader) (int, error) {
	added := 0
	now := time.Now()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		title := strings.TrimSpace(scanner.Text())
		if title == "" || strings.HasPrefix(title, "#") {
			continue
		}
		exists, err := s.Contains(ctx, title)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}
		if err := s.Record(ctx, Entry{Title: title, AcquiredAt: now}); err != nil {
			return added, err
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("reading import: %w", err)
	}
	return added, nil
}
