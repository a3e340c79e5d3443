// Package store keeps converted documents in a SQLite database. Each row
// holds the document JSON together with its title and source location.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gaurav-prasanna/flatdoc/core"
	"github.com/gaurav-prasanna/flatdoc/core/doc"
)

// timeLayout is fixed width so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_updated_at ON documents (updated_at);
`

// SQLite is a core.Store backed by modernc.org/sqlite.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ core.Store = (*SQLite)(nil)

// Open opens or creates the database at path. An empty path means
// ~/.flatdoc/documents.db.
func Open(path string) (*SQLite, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".flatdoc", "documents.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Save inserts d or replaces the stored copy with the same id. The
// creation time of a replaced document is kept.
func (s *SQLite) Save(ctx context.Context, d *doc.Document, source string) error {
	if d.ID == "" {
		return errors.New("saving document: empty id")
	}
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	now := s.now().UTC().Format(timeLayout)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, d.ID, d.Title(), source, string(body), now, now)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Load returns the document with the given id, or core.ErrNotFound.
func (s *SQLite) Load(ctx context.Context, id string) (*doc.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE id = ?", id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}

	d := &doc.Document{}
	if err := json.Unmarshal([]byte(body), d); err != nil {
		return nil, fmt.Errorf("unmarshaling document %s: %w", id, err)
	}
	return d, nil
}

// List returns every stored document, most recently updated first.
func (s *SQLite) List(ctx context.Context) ([]core.StoredDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, source, created_at, updated_at
		FROM documents ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []core.StoredDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sd core.StoredDocument
		var createdAt, updatedAt string
		if err := rows.Scan(&sd.ID, &sd.Title, &sd.Source, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		sd.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		sd.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		out = append(out, sd)
	}
	return out, rows.Err()
}

// Delete removes a document, returning core.ErrNotFound when none matched.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return nil
}
