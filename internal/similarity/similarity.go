// Package similarity provides fuzzy matching for error messages.
//
// Error messages that describe the same failure usually differ only in
// volatile details: file paths, line numbers, hashes, addresses, timestamps.
// Normalize strips those away so that edit distance over what remains
// measures structural similarity.
package similarity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Score is a normalized similarity result in [0,1], 1 meaning identical
// after normalization. The normalized forms are kept for diagnostics.
type Score struct {
	Value            float64
	NormalizedQuery  string
	NormalizedTarget string
}

// Volatile-substring patterns, applied in order. Timestamps go first so
// later number patterns don't chew through their fragments.
var (
	reBracketTimestamp = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}[Tt ]\d{2}:\d{2}:\d{2}\]`)
	reTimestamp        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[Tt ]\d{2}:\d{2}:\d{2}`)
	reClock            = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	rePathLine         = regexp.MustCompile(`[a-zA-Z0-9_/.\-]+\.[a-z]+:\d+(:\d+)?`)
	reLineRef          = regexp.MustCompile(`:\d+(:\d+)?`)
	reHexAddr          = regexp.MustCompile(`\b0x[a-f0-9]+\b`)
	reHexRun           = regexp.MustCompile(`\b[a-f0-9]{8,}\b`)
	reVersion          = regexp.MustCompile(`\bv?\d+\.\d+(\.\d+)?\b`)
	reNumericID        = regexp.MustCompile(`\bid:\s*\d+\b`)
	reLongNumber       = regexp.MustCompile(`\b\d{3,}\b`)
	rePunct            = regexp.MustCompile(`[^\w\s]`)
	reSpaces           = regexp.MustCompile(`\s+`)
)

// Normalize lowercases an error message and removes volatile substrings so
// that structurally identical errors compare equal.
func Normalize(msg string) string {
	s := strings.ToLower(msg)

	s = reBracketTimestamp.ReplaceAllString(s, "")
	s = reTimestamp.ReplaceAllString(s, "")
	s = reClock.ReplaceAllString(s, "")
	s = rePathLine.ReplaceAllString(s, "")
	s = reLineRef.ReplaceAllString(s, "")
	s = reHexAddr.ReplaceAllString(s, "")
	s = reHexRun.ReplaceAllString(s, "")
	s = reVersion.ReplaceAllString(s, "")
	s = reNumericID.ReplaceAllString(s, "")
	s = reLongNumber.ReplaceAllString(s, "")
	s = rePunct.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Compare computes the normalized edit-distance similarity of two error
// messages: 1 - distance/maxLen over the normalized forms. Two messages that
// normalize to nothing count as identical; one empty side scores zero.
func Compare(query, target string) Score {
	nq := Normalize(query)
	nt := Normalize(target)

	switch {
	case nq == "" && nt == "":
		return Score{Value: 1, NormalizedQuery: nq, NormalizedTarget: nt}
	case nq == "" || nt == "":
		return Score{Value: 0, NormalizedQuery: nq, NormalizedTarget: nt}
	}

	distance := levenshtein.ComputeDistance(nq, nt)
	maxLen := len([]rune(nq))
	if l := len([]rune(nt)); l > maxLen {
		maxLen = l
	}

	return Score{
		Value:            1 - float64(distance)/float64(maxLen),
		NormalizedQuery:  nq,
		NormalizedTarget: nt,
	}
}

// Match pairs a candidate string with its similarity to a query.
type Match struct {
	Candidate string
	Score     float64
}

// FindSimilar returns the candidates scoring at or above threshold against
// the query, sorted by score descending.
func FindSimilar(query string, candidates []string, threshold float64) []Match {
	var matches []Match
	for _, c := range candidates {
		if score := Compare(query, c); score.Value >= threshold {
			matches = append(matches, Match{Candidate: c, Score: score.Value})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}
