package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sanae-abe/cldev/internal/record"
)

// BuildStats tallies the outcome of a bulk rebuild.
type BuildStats struct {
	Inserted int
	Updated  int
	// Skipped counts markdown files that failed to read or parse. A bulk
	// rebuild continues past them; SkipReasons keeps one message per file.
	Skipped     int
	SkipReasons []string
}

// UpsertSession writes a record into the index, keyed by its session id.
// The session row, all child rows (files, tags, errors), and the FTS entry
// are replaced in one transaction; a crash mid-upsert can never mix old and
// new child rows. The TF-IDF update happens after commit, outside the
// transaction, since that index is in-memory and rebuilt on open anyway.
//
// It reports whether the session already existed.
func (s *Store) UpsertSession(rec *record.Record, markdownPath string) (bool, error) {
	mtime, err := fileMtime(markdownPath)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := rec.SessionMeta.ID
	hotspot := hotspotScore(rec, time.Now())
	now := formatTime(time.Now())

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existed bool
	err = tx.QueryRow("SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(new(int))
	switch {
	case err == nil:
		existed = true
	case errors.Is(err, sql.ErrNoRows):
		existed = false
	default:
		return false, fmt.Errorf("check session existence: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (
			id, session_type, priority, timestamp, resolved, duration_minutes,
			title, description, markdown_path, markdown_mtime, hotspot_score,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_type = excluded.session_type,
			priority = excluded.priority,
			timestamp = excluded.timestamp,
			resolved = excluded.resolved,
			duration_minutes = excluded.duration_minutes,
			title = excluded.title,
			description = excluded.description,
			markdown_path = excluded.markdown_path,
			markdown_mtime = excluded.markdown_mtime,
			hotspot_score = excluded.hotspot_score,
			updated_at = excluded.updated_at
	`,
		sessionID,
		string(rec.SessionMeta.SessionType),
		string(rec.SessionMeta.Priority),
		formatTime(rec.SessionMeta.Timestamp),
		rec.SessionMeta.Resolved,
		nullInt(rec.SessionMeta.DurationMinutes),
		rec.Problem.Title,
		rec.Problem.Description,
		markdownPath,
		mtime,
		hotspot,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("upsert session: %w", err)
	}

	for _, table := range []string{"files", "tags", "errors"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE session_id = ?", sessionID); err != nil {
			return false, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM sessions_fts WHERE id = ?", sessionID); err != nil {
		return false, fmt.Errorf("clear fts entry: %w", err)
	}

	for _, f := range rec.Context.FilesAffected {
		_, err := tx.Exec(
			"INSERT INTO files (session_id, file_path, role, hotspot_score) VALUES (?, ?, ?, ?)",
			sessionID, f.Path, string(f.Role), f.HotspotScore,
		)
		if err != nil {
			return false, fmt.Errorf("insert file: %w", err)
		}
	}

	for _, tag := range rec.Context.Tags {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO tags (session_id, tag) VALUES (?, ?)",
			sessionID, tag,
		)
		if err != nil {
			return false, fmt.Errorf("insert tag: %w", err)
		}
	}

	for _, sig := range rec.Problem.ErrorSignatures {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO errors (session_id, error_pattern, stack_trace_hash) VALUES (?, ?, ?)",
			sessionID, sig.Pattern, nullString(sig.StackTraceHash),
		)
		if err != nil {
			return false, fmt.Errorf("insert error: %w", err)
		}
	}

	tagsText := strings.Join(rec.Context.Tags, " ")
	patterns := make([]string, 0, len(rec.Problem.ErrorSignatures))
	for _, sig := range rec.Problem.ErrorSignatures {
		patterns = append(patterns, sig.Pattern)
	}
	errorsText := strings.Join(patterns, " ")

	_, err = tx.Exec(
		"INSERT INTO sessions_fts (id, title, description, tags, error_patterns) VALUES (?, ?, ?, ?, ?)",
		sessionID, rec.Problem.Title, rec.Problem.Description, tagsText, errorsText,
	)
	if err != nil {
		return false, fmt.Errorf("insert fts entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	if existed {
		s.search.Remove(sessionID)
	}
	s.search.Add(sessionID, rec.SearchText())

	return existed, nil
}

// hotspotScore derives the session's hotspot score from priority, recency,
// affected-file count, and resolution state.
func hotspotScore(rec *record.Record, now time.Time) float64 {
	priorityWeight := rec.SessionMeta.Priority.Weight()

	ageDays := float64(int64(now.Sub(rec.SessionMeta.Timestamp).Hours() / 24))
	recencyWeight := 1 / (1 + ageDays*0.1)
	if recencyWeight < 0.1 {
		recencyWeight = 0.1
	}

	fileWeight := float64(len(rec.Context.FilesAffected))
	if fileWeight > 10 {
		fileWeight = 10
	}

	unresolvedWeight := 2.0
	if rec.SessionMeta.Resolved {
		unresolvedWeight = 1.0
	}

	return priorityWeight * recencyWeight * (1 + fileWeight*0.1) * unresolvedWeight
}

// BuildFromMarkdown rescans the records directory and upserts every markdown
// file. Files that fail to read or parse are skipped with their reason
// recorded; the rebuild continues. Used for full rebuilds and for recovering
// from missed updates.
func (s *Store) BuildFromMarkdown() (BuildStats, error) {
	var stats BuildStats

	if _, err := os.Stat(s.recordsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(s.recordsDir, 0o755); err != nil {
			return stats, fmt.Errorf("create records directory: %w", err)
		}
		return stats, nil
	}

	entries, err := os.ReadDir(s.recordsDir)
	if err != nil {
		return stats, fmt.Errorf("read records directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		path := filepath.Join(s.recordsDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			stats.Skipped++
			stats.SkipReasons = append(stats.SkipReasons, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		rec, err := record.ParseAny(content)
		if err != nil {
			stats.Skipped++
			stats.SkipReasons = append(stats.SkipReasons, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		existed, err := s.UpsertSession(rec, path)
		if err != nil {
			stats.Skipped++
			stats.SkipReasons = append(stats.SkipReasons, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		if existed {
			stats.Updated++
		} else {
			stats.Inserted++
		}
	}

	return stats, nil
}

// IsStale reports whether any markdown file has been modified since its last
// sync, or exists with no corresponding row. It returns true at the first
// divergence found.
func (s *Store) IsStale() (bool, error) {
	if _, err := os.Stat(s.recordsDir); os.IsNotExist(err) {
		return false, nil
	}

	entries, err := os.ReadDir(s.recordsDir)
	if err != nil {
		return false, fmt.Errorf("read records directory: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		path := filepath.Join(s.recordsDir, entry.Name())
		mtime, err := fileMtime(path)
		if err != nil {
			return false, err
		}

		var dbMtime int64
		err = s.db.QueryRow("SELECT markdown_mtime FROM sessions WHERE markdown_path = ?", path).Scan(&dbMtime)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return true, nil // file not indexed yet
		case err != nil:
			return false, fmt.Errorf("check mtime: %w", err)
		case dbMtime < mtime:
			return true, nil // file modified since last sync
		}
	}

	return false, nil
}

// DeleteSession removes a session's rows, FTS entry, and TF-IDF document.
// The markdown file is untouched. Returns ErrNotFound when the id has no row.
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSessionLocked(sessionID)
}

func (s *Store) deleteSessionLocked(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	// Child rows cascade; the FTS virtual table does not.
	if _, err := tx.Exec("DELETE FROM sessions_fts WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("delete fts entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.search.Remove(sessionID)
	return nil
}

// RemoveRecord destroys a record: the markdown file and the index rows.
// Both deletions are attempted even if one fails, and every failure is
// reported rather than swallowed.
func (s *Store) RemoveRecord(sessionID string) error {
	meta, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	var fileErr error
	if err := os.Remove(meta.MarkdownPath); err != nil && !os.IsNotExist(err) {
		fileErr = fmt.Errorf("remove markdown file: %w", err)
	}

	return errors.Join(fileErr, s.DeleteSession(sessionID))
}

// fileMtime returns a file's modification time as a Unix timestamp.
func fileMtime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime().Unix(), nil
}
