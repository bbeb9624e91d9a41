// Package index keeps a queryable SQLite mirror of the markdown learning
// records and answers relevance queries over it.
//
// The markdown files are the source of truth; the database is derived state.
// Every record has one row in sessions plus child rows in files, tags, and
// errors, and one entry in the sessions_fts full-text table. The store also
// owns an in-memory TF-IDF index that is rebuilt from the database on open
// and updated on every upsert.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sanae-abe/cldev/internal/tfidf"
)

// ErrNotFound is returned by direct lookups when the session id has no row.
// Searches return empty result sets instead.
var ErrNotFound = errors.New("session not found")

// SessionMetadata is the index-store projection of a record.
type SessionMetadata struct {
	ID              string
	SessionType     string
	Priority        string
	Timestamp       string
	Resolved        bool
	DurationMinutes *int64
	Title           string
	Description     string
	MarkdownPath    string
	MarkdownMtime   int64
	HotspotScore    float64
	CreatedAt       string
	UpdatedAt       string
}

// QueryResult pairs a session with its matched sub-entities and a relevance
// score. Score semantics differ by query mode (FTS rank, hotspot, similarity,
// or composite weight); scores from different modes are not comparable.
type QueryResult struct {
	Session        SessionMetadata
	MatchedFiles   []string
	MatchedTags    []string
	RelevanceScore float64
}

// Hotspot aggregates problem density per file across sessions.
type Hotspot struct {
	FilePath        string
	SessionCount    int
	AvgHotspotScore float64
	LastAccessed    string
}

// Store is the learning record index: an embedded SQLite database plus the
// TF-IDF cache, both keyed to one markdown records directory.
type Store struct {
	db         *sql.DB
	dbPath     string
	recordsDir string
	search     *tfidf.Index
	mu         sync.RWMutex
}

// DefaultDir returns the default records directory, ~/.cldev/learning-records.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cldev", "learning-records")
	}
	return filepath.Join(home, ".cldev", "learning-records")
}

// Open creates or opens the index database at dbPath, mirroring the markdown
// files under recordsDir. It creates parent directories, enables WAL mode so
// concurrent CLI invocations are safe, initializes the schema, and rebuilds
// the in-memory TF-IDF index from the existing rows.
func Open(dbPath, recordsDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Cross-process safety relies on SQLite's own locking; WAL is required,
	// not assumed.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{
		db:         conn,
		dbPath:     dbPath,
		recordsDir: recordsDir,
		search:     tfidf.New(),
	}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := s.rebuildSearchIndex(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// RecordsDir returns the markdown records directory this index mirrors.
func (s *Store) RecordsDir() string {
	return s.recordsDir
}

// rebuildSearchIndex repopulates the TF-IDF cache from the sessions, tags,
// and errors tables. The cache has no persistence of its own.
func (s *Store) rebuildSearchIndex() error {
	rows, err := s.db.Query(`
		SELECT s.id,
			   s.title || ' ' || s.description
				 || ' ' || COALESCE((SELECT GROUP_CONCAT(t.tag, ' ') FROM tags t WHERE t.session_id = s.id), '')
				 || ' ' || COALESCE((SELECT GROUP_CONCAT(e.error_pattern, ' ') FROM errors e WHERE e.session_id = s.id), '')
		FROM sessions s
	`)
	if err != nil {
		return fmt.Errorf("load search corpus: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return fmt.Errorf("scan search corpus: %w", err)
		}
		s.search.Add(id, text)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate search corpus: %w", err)
	}

	return nil
}

// Helper functions

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// parseTime parses a stored RFC3339 timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullString converts a *string to sql.NullString.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullInt converts a *int64 to sql.NullInt64.
func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
