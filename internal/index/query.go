package index

import (
	"database/sql"
	"errors"
	"fmt"
)

// sessionColumns is the column list every session scan uses, kept in one
// place so scanSession stays in sync with the queries.
const sessionColumns = `id, session_type, priority, timestamp, resolved, duration_minutes,
	title, description, markdown_path, markdown_mtime, hotspot_score, created_at, updated_at`

// GetSession looks up one session by id. Returns ErrNotFound when absent.
func (s *Store) GetSession(sessionID string) (*SessionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", sessionID)
	meta, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return meta, nil
}

// QueryByKeyword runs a full-text search over titles, descriptions, tags,
// and error patterns. Results are ordered by FTS relevance first, hotspot
// second, so among equally relevant sessions the hotter one wins. An
// unknown keyword yields an empty slice, not an error.
func (s *Store) QueryByKeyword(keyword string, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+prefixColumns("s")+`, rank
		FROM sessions_fts
		JOIN sessions s ON s.id = sessions_fts.id
		WHERE sessions_fts MATCH ?
		ORDER BY rank, s.hotspot_score DESC
		LIMIT ?
	`, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()

	results, err := collectScoredResults(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(results)
}

// QueryByFile finds sessions that touched files whose path contains the
// given fragment. Ordered by the matched file's hotspot first, then the
// session's.
func (s *Store) QueryByFile(pathFragment string, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+prefixColumns("s")+`, MAX(f.hotspot_score)
		FROM files f
		JOIN sessions s ON s.id = f.session_id
		WHERE f.file_path LIKE ?
		GROUP BY s.id
		ORDER BY MAX(f.hotspot_score) DESC, s.hotspot_score DESC
		LIMIT ?
	`, "%"+pathFragment+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("file query: %w", err)
	}
	defer rows.Close()

	results, err := collectScoredResults(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(results)
}

// QueryByTag finds sessions carrying exactly the given tag, hottest first.
func (s *Store) QueryByTag(tag string, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+prefixColumns("s")+`
		FROM tags t
		JOIN sessions s ON s.id = t.session_id
		WHERE t.tag = ?
		ORDER BY s.hotspot_score DESC
		LIMIT ?
	`, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("tag query: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(results)
}

// QueryByError finds sessions whose recorded error patterns contain the
// given fragment, hottest first. For fuzzy matching use FindSimilarErrors.
func (s *Store) QueryByError(fragment string, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT DISTINCT `+prefixColumns("s")+`
		FROM errors e
		JOIN sessions s ON s.id = e.session_id
		WHERE e.error_pattern LIKE ?
		ORDER BY s.hotspot_score DESC
		LIMIT ?
	`, "%"+fragment+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("error query: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(results)
}

// Unresolved lists sessions still marked unresolved, hottest first.
func (s *Store) Unresolved(limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE resolved = 0
		ORDER BY hotspot_score DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("unresolved query: %w", err)
	}
	defer rows.Close()

	results, err := collectResults(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrateLocked(results)
}

// Hotspots aggregates problem density per file: how many sessions touched
// it, the average hotspot score of those sessions, and the most recent one.
// Ordered by average score, then by session count to break ties.
func (s *Store) Hotspots(limit int) ([]Hotspot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT f.file_path,
			   COUNT(DISTINCT f.session_id),
			   AVG(s.hotspot_score),
			   MAX(s.timestamp)
		FROM files f
		JOIN sessions s ON s.id = f.session_id
		GROUP BY f.file_path
		ORDER BY AVG(s.hotspot_score) DESC, COUNT(DISTINCT f.session_id) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("hotspot query: %w", err)
	}
	defer rows.Close()

	var hotspots []Hotspot
	for rows.Next() {
		var h Hotspot
		if err := rows.Scan(&h.FilePath, &h.SessionCount, &h.AvgHotspotScore, &h.LastAccessed); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		hotspots = append(hotspots, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hotspots: %w", err)
	}
	return hotspots, nil
}

// SessionCount returns the number of indexed sessions.
func (s *Store) SessionCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession reads the sessionColumns set from a row; extra receives any
// trailing columns the query selected beyond them.
func scanSession(row rowScanner, extra ...any) (*SessionMetadata, error) {
	var meta SessionMetadata
	var duration sql.NullInt64
	dest := []any{
		&meta.ID,
		&meta.SessionType,
		&meta.Priority,
		&meta.Timestamp,
		&meta.Resolved,
		&duration,
		&meta.Title,
		&meta.Description,
		&meta.MarkdownPath,
		&meta.MarkdownMtime,
		&meta.HotspotScore,
		&meta.CreatedAt,
		&meta.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if duration.Valid {
		meta.DurationMinutes = &duration.Int64
	}
	return &meta, nil
}

// collectResults scans session rows into results for the query modes whose
// relevance score is the session's own hotspot score (tag, error,
// unresolved).
func collectResults(rows *sql.Rows) ([]QueryResult, error) {
	var results []QueryResult
	for rows.Next() {
		meta, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		results = append(results, QueryResult{
			Session:        *meta,
			RelevanceScore: meta.HotspotScore,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return results, nil
}

// collectScoredResults scans session rows whose query selected a trailing
// relevance column (FTS rank for keyword mode, matched-file hotspot for
// file mode).
func collectScoredResults(rows *sql.Rows) ([]QueryResult, error) {
	var results []QueryResult
	for rows.Next() {
		var score float64
		meta, err := scanSession(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		results = append(results, QueryResult{
			Session:        *meta,
			RelevanceScore: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return results, nil
}

// hydrateLocked fills in each result's file paths and tags. Callers hold at
// least the read lock.
func (s *Store) hydrateLocked(results []QueryResult) ([]QueryResult, error) {
	for i := range results {
		files, err := s.sessionFilesLocked(results[i].Session.ID)
		if err != nil {
			return nil, err
		}
		tags, err := s.sessionTagsLocked(results[i].Session.ID)
		if err != nil {
			return nil, err
		}
		results[i].MatchedFiles = files
		results[i].MatchedTags = tags
	}
	return results, nil
}

func (s *Store) sessionFilesLocked(sessionID string) ([]string, error) {
	rows, err := s.db.Query("SELECT file_path FROM files WHERE session_id = ? ORDER BY hotspot_score DESC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session files: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (s *Store) sessionTagsLocked(sessionID string) ([]string, error) {
	rows, err := s.db.Query("SELECT tag FROM tags WHERE session_id = ? ORDER BY tag", sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session tags: %w", err)
	}
	defer rows.Close()
	return collectStrings(rows)
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return out, nil
}

// prefixColumns qualifies sessionColumns with a table alias for joins.
func prefixColumns(alias string) string {
	return alias + ".id, " + alias + ".session_type, " + alias + ".priority, " +
		alias + ".timestamp, " + alias + ".resolved, " + alias + ".duration_minutes, " +
		alias + ".title, " + alias + ".description, " + alias + ".markdown_path, " +
		alias + ".markdown_mtime, " + alias + ".hotspot_score, " + alias + ".created_at, " +
		alias + ".updated_at"
}
