package index

import "fmt"

// schemaSQL creates the four relational tables and the full-text virtual
// table. sessions_fts stores its own copy of the indexed text: the tags and
// error_patterns columns are composed from child-table rows at upsert time,
// so no single content table could back them. Storing the text also lets the
// synchronizer delete FTS entries by id. Porter stemming keeps keyword
// queries tolerant of inflection.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	session_type TEXT NOT NULL,
	priority TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	resolved BOOLEAN NOT NULL DEFAULT 0,
	duration_minutes INTEGER,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	markdown_path TEXT NOT NULL,
	markdown_mtime INTEGER NOT NULL,
	hotspot_score REAL NOT NULL DEFAULT 0.0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_type ON sessions(session_type);
CREATE INDEX IF NOT EXISTS idx_sessions_priority ON sessions(priority);
CREATE INDEX IF NOT EXISTS idx_sessions_resolved ON sessions(resolved);
CREATE INDEX IF NOT EXISTS idx_sessions_hotspot ON sessions(hotspot_score DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS sessions_fts USING fts5(
	id UNINDEXED,
	title,
	description,
	tags,
	error_patterns,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS files (
	session_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	role TEXT NOT NULL,
	hotspot_score REAL NOT NULL DEFAULT 0.0,
	PRIMARY KEY (session_id, file_path),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(file_path);
CREATE INDEX IF NOT EXISTS idx_files_hotspot ON files(hotspot_score DESC);

CREATE TABLE IF NOT EXISTS tags (
	session_id TEXT NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (session_id, tag),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS errors (
	session_id TEXT NOT NULL,
	error_pattern TEXT NOT NULL,
	stack_trace_hash TEXT,
	PRIMARY KEY (session_id, error_pattern),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_errors_pattern ON errors(error_pattern);
CREATE INDEX IF NOT EXISTS idx_errors_hash ON errors(stack_trace_hash);
`

// initSchema creates tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}
