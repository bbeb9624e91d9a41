package index

import (
	"fmt"

	"github.com/sanae-abe/cldev/internal/similarity"
	"github.com/sanae-abe/cldev/internal/tfidf"
)

// FindSimilarErrors fuzzy-matches an error message against every recorded
// error pattern. Each session appears at most once, scored by its best
// matching pattern; results below threshold are dropped. Scores are
// normalized edit-distance similarity in [0,1].
func (s *Store) FindSimilarErrors(errorMsg string, threshold float64, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT session_id, error_pattern FROM errors")
	if err != nil {
		return nil, fmt.Errorf("load error patterns: %w", err)
	}
	defer rows.Close()

	best := make(map[string]float64)
	for rows.Next() {
		var sessionID, pattern string
		if err := rows.Scan(&sessionID, &pattern); err != nil {
			return nil, fmt.Errorf("scan error pattern: %w", err)
		}
		score := similarity.Compare(errorMsg, pattern).Value
		if score >= threshold && score > best[sessionID] {
			best[sessionID] = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error patterns: %w", err)
	}

	results := make([]QueryResult, 0, len(best))
	for sessionID, score := range best {
		row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", sessionID)
		meta, err := scanSession(row)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", sessionID, err)
		}
		results = append(results, QueryResult{Session: *meta, RelevanceScore: score})
	}

	sortByRelevance(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return s.hydrateLocked(results)
}

// SearchTFIDF ranks sessions against a free-text query using the in-memory
// TF-IDF index. Complements the FTS keyword query: FTS matches exact stemmed
// terms, TF-IDF weighs how characteristic the terms are of each session.
func (s *Store) SearchTFIDF(query string, limit int) ([]QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.search.Search(query, limit)

	results := make([]QueryResult, 0, len(hits))
	for _, hit := range hits {
		row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", hit.DocID)
		meta, err := scanSession(row)
		if err != nil {
			// The TF-IDF cache can briefly reference a session whose row was
			// just deleted; skip rather than fail the whole search.
			continue
		}
		results = append(results, QueryResult{Session: *meta, RelevanceScore: hit.Score})
	}
	return s.hydrateLocked(results)
}

// TFIDFStats exposes the search cache's corpus statistics.
func (s *Store) TFIDFStats() tfidf.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search.Stats()
}
