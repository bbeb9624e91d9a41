package index

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Composite suggestion weights. They sum to 1.0 so a session matching every
// signal perfectly scores exactly 1.0.
const (
	weightFile    = 0.4
	weightError   = 0.3
	weightTag     = 0.2
	weightRecency = 0.1
)

// A session with several recorded errors scores by its single best match
// against the query error rather than summing, so error-heavy sessions
// cannot dominate on volume.
const errorScoreKeepMax = true

// WorkContext describes what the caller is currently working on. Any field
// may be empty; empty signals contribute nothing.
type WorkContext struct {
	Files        []string
	ErrorMessage string
	Tags         []string
}

// SuggestByContext scores every session that matches at least one context
// signal and returns the top suggestions. The composite score is a weighted
// sum: file overlap 0.4 (binary), error similarity 0.3 (token overlap of the
// best pattern containing the query as a substring), tag overlap 0.2
// (matched fraction of query tags), and recency 0.1 (linear decay over a
// year). Matched candidates always receive the recency component.
func (s *Store) SuggestByContext(wc WorkContext, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string]float64)

	if len(wc.Files) > 0 {
		matched, err := s.fileMatchesLocked(wc.Files)
		if err != nil {
			return nil, err
		}
		for sessionID := range matched {
			scores[sessionID] += weightFile
		}
	}

	if wc.ErrorMessage != "" {
		errScores, err := s.errorOverlapLocked(wc.ErrorMessage)
		if err != nil {
			return nil, err
		}
		for sessionID, overlap := range errScores {
			scores[sessionID] += overlap * weightError
		}
	}

	if len(wc.Tags) > 0 {
		tagScores, err := s.tagOverlapLocked(wc.Tags)
		if err != nil {
			return nil, err
		}
		for sessionID, ratio := range tagScores {
			scores[sessionID] += ratio * weightTag
		}
	}

	if len(scores) == 0 {
		return nil, nil
	}

	now := time.Now()
	results := make([]QueryResult, 0, len(scores))
	for sessionID, score := range scores {
		row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", sessionID)
		meta, err := scanSession(row)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", sessionID, err)
		}
		results = append(results, QueryResult{
			Session:        *meta,
			RelevanceScore: score + recencyScore(meta.Timestamp, now),
		})
	}

	sortByRelevance(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return s.hydrateLocked(results)
}

// fileMatchesLocked returns the set of sessions that touched any of the
// given files. File matching is binary: one overlapping path is as good as
// ten.
func (s *Store) fileMatchesLocked(files []string) (map[string]bool, error) {
	matched := make(map[string]bool)
	for _, file := range files {
		rows, err := s.db.Query("SELECT session_id FROM files WHERE file_path LIKE ?", "%"+file+"%")
		if err != nil {
			return nil, fmt.Errorf("match files: %w", err)
		}
		for rows.Next() {
			var sessionID string
			if err := rows.Scan(&sessionID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan file match: %w", err)
			}
			matched[sessionID] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate file matches: %w", err)
		}
		rows.Close()
	}
	return matched, nil
}

// errorOverlapLocked scores recorded error patterns that contain the query
// error as a substring, by whitespace-token overlap, keeping the best
// pattern per session. Patterns without the substring contribute nothing
// and do not make their session a candidate.
func (s *Store) errorOverlapLocked(errorMsg string) (map[string]float64, error) {
	queryTokens := fieldTokens(errorMsg)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(
		"SELECT session_id, error_pattern FROM errors WHERE error_pattern LIKE ?",
		"%"+errorMsg+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("load error patterns: %w", err)
	}
	defer rows.Close()

	overlap := make(map[string]float64)
	for rows.Next() {
		var sessionID, pattern string
		if err := rows.Scan(&sessionID, &pattern); err != nil {
			return nil, fmt.Errorf("scan error pattern: %w", err)
		}
		score := tokenJaccard(queryTokens, fieldTokens(pattern))
		if errorScoreKeepMax {
			if score > overlap[sessionID] {
				overlap[sessionID] = score
			}
		} else {
			overlap[sessionID] += score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error patterns: %w", err)
	}
	return overlap, nil
}

// tagOverlapLocked returns, per session, the fraction of query tags the
// session carries.
func (s *Store) tagOverlapLocked(tags []string) (map[string]float64, error) {
	counts := make(map[string]int)
	for _, tag := range tags {
		rows, err := s.db.Query("SELECT session_id FROM tags WHERE tag = ?", tag)
		if err != nil {
			return nil, fmt.Errorf("match tags: %w", err)
		}
		for rows.Next() {
			var sessionID string
			if err := rows.Scan(&sessionID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan tag match: %w", err)
			}
			counts[sessionID]++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate tag matches: %w", err)
		}
		rows.Close()
	}

	ratios := make(map[string]float64, len(counts))
	for sessionID, n := range counts {
		ratios[sessionID] = float64(n) / float64(len(tags))
	}
	return ratios, nil
}

// recencyScore decays linearly from weightRecency for a session recorded
// today to zero at one year old.
func recencyScore(timestamp string, now time.Time) float64 {
	ts, err := parseTime(timestamp)
	if err != nil {
		return 0
	}
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	frac := ageDays / 365
	if frac > 1 {
		frac = 1
	}
	return (1 - frac) * weightRecency
}

// fieldTokens splits a message into its whitespace-separated word set.
func fieldTokens(msg string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(msg) {
		tokens[w] = true
	}
	return tokens
}

// tokenJaccard computes intersection-over-union of two token sets.
func tokenJaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func sortByRelevance(results []QueryResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
}
