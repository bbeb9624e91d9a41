// Package tfidf maintains an in-memory term-frequency/inverse-document-
// frequency index over learning records.
//
// The index is a cache, not a store: it is rebuilt from the durable index on
// process start and updated incrementally on every upsert, so it is
// eventually consistent with the database but never atomically so.
package tfidf

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Index holds postings and corpus statistics for TF-IDF scoring.
type Index struct {
	docCount int
	// termDocFreq counts documents containing each term.
	termDocFreq map[string]int
	// docTermFreq maps document id to per-term counts.
	docTermFreq map[string]map[string]int
	// docWordCount maps document id to its total token count.
	docWordCount map[string]int
}

// Result is one scored document from a search.
type Result struct {
	DocID string
	Score float64
}

// Stats summarizes the index for diagnostics.
type Stats struct {
	DocCount     int
	TermCount    int
	AvgDocLength float64
}

// New creates an empty index.
func New() *Index {
	return &Index{
		termDocFreq:  make(map[string]int),
		docTermFreq:  make(map[string]map[string]int),
		docWordCount: make(map[string]int),
	}
}

// Add indexes a document's text under the given id. Adding an id that is
// already present double-counts it; callers remove the old entry first.
func (ix *Index) Add(docID, text string) {
	terms := tokenize(text)
	if len(terms) == 0 {
		return
	}

	termFreq := make(map[string]int)
	for _, term := range terms {
		termFreq[term]++
	}

	ix.docTermFreq[docID] = termFreq
	ix.docWordCount[docID] = len(terms)

	for term := range termFreq {
		ix.termDocFreq[term]++
	}

	ix.docCount++
}

// Remove drops a document and decrements the document frequency of every
// term it contained, deleting postings that reach zero. It reports whether
// the document was present.
func (ix *Index) Remove(docID string) bool {
	termFreq, ok := ix.docTermFreq[docID]
	if !ok {
		return false
	}

	for term := range termFreq {
		if ix.termDocFreq[term]--; ix.termDocFreq[term] <= 0 {
			delete(ix.termDocFreq, term)
		}
	}

	delete(ix.docTermFreq, docID)
	delete(ix.docWordCount, docID)
	ix.docCount--
	return true
}

// Contains reports whether a document id is indexed.
func (ix *Index) Contains(docID string) bool {
	_, ok := ix.docTermFreq[docID]
	return ok
}

// Search scores every document against the query terms and returns the top
// limit results by descending TF-IDF score. Documents with zero score are
// omitted.
func (ix *Index) Search(query string, limit int) []Result {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	var results []Result
	for docID := range ix.docTermFreq {
		if score := ix.score(docID, queryTerms); score > 0 {
			results = append(results, Result{DocID: docID, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// score sums tf*idf over the query terms for one document.
func (ix *Index) score(docID string, queryTerms []string) float64 {
	termFreq := ix.docTermFreq[docID]
	wordCount := ix.docWordCount[docID]
	if wordCount == 0 {
		return 0
	}

	score := 0.0
	for _, term := range queryTerms {
		count, ok := termFreq[term]
		if !ok {
			continue
		}
		tf := float64(count) / float64(wordCount)
		idf := ix.idf(term)
		score += tf * idf
	}
	return score
}

// idf computes log(totalDocs/docsWithTerm), returning 0 for unseen terms so
// they contribute nothing rather than dividing by zero.
func (ix *Index) idf(term string) float64 {
	docFreq := ix.termDocFreq[term]
	if docFreq == 0 {
		return 0
	}
	return math.Log(float64(ix.docCount) / float64(docFreq))
}

// Stats returns document count, distinct term count, and average document
// length in tokens.
func (ix *Index) Stats() Stats {
	st := Stats{
		DocCount:  ix.docCount,
		TermCount: len(ix.termDocFreq),
	}
	if ix.docCount > 0 {
		total := 0
		for _, n := range ix.docWordCount {
			total += n
		}
		st.AvgDocLength = float64(total) / float64(ix.docCount)
	}
	return st
}

// tokenize lowercases text and splits on anything that is not a letter,
// digit, underscore, or hyphen, dropping single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
