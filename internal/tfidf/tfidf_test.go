package tfidf

import "testing"

func TestAddAndSearch(t *testing.T) {
	ix := New()
	ix.Add("s1", "goroutine deadlock in worker pool")
	ix.Add("s2", "nil pointer dereference in http handler")
	ix.Add("s3", "worker pool sizing and backpressure")

	results := ix.Search("worker pool", 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.DocID == "s2" {
			t.Error("s2 should not match 'worker pool'")
		}
		if r.Score <= 0 {
			t.Errorf("%s: expected positive score, got %v", r.DocID, r.Score)
		}
	}
}

func TestSearchRanksRarerTermsHigher(t *testing.T) {
	ix := New()
	ix.Add("common1", "database timeout error")
	ix.Add("common2", "database connection error")
	ix.Add("rare", "database quorum loss")

	// "quorum" appears in one document only, so its idf dwarfs "database",
	// which appears in all three.
	results := ix.Search("quorum", 10)
	if len(results) != 1 || results[0].DocID != "rare" {
		t.Fatalf("expected only the rare doc, got %+v", results)
	}

	results = ix.Search("database", 10)
	if len(results) != 0 {
		t.Errorf("a term in every document has zero idf and should score nothing, got %+v", results)
	}
}

func TestSearchUnknownTerm(t *testing.T) {
	ix := New()
	ix.Add("s1", "something indexed")

	if results := ix.Search("nonexistent", 10); len(results) != 0 {
		t.Errorf("expected no results for unseen term, got %+v", results)
	}
	if results := ix.Search("", 10); results != nil {
		t.Errorf("expected nil for empty query, got %+v", results)
	}
}

func TestSearchLimit(t *testing.T) {
	ix := New()
	ix.Add("a", "panic recovered")
	ix.Add("b", "panic in init")
	ix.Add("c", "panic on shutdown")
	// A doc without the term keeps its idf above zero.
	ix.Add("d", "graceful termination")

	results := ix.Search("panic", 2)
	if len(results) != 2 {
		t.Errorf("expected limit to cap results at 2, got %d", len(results))
	}
}

func TestRemove(t *testing.T) {
	ix := New()
	ix.Add("s1", "flaky integration test")
	ix.Add("s2", "flaky unit test")
	// A third doc keeps "unit" rarer than the whole corpus after s1 goes.
	ix.Add("s3", "database migration error")

	if !ix.Remove("s1") {
		t.Fatal("expected Remove to report the doc was present")
	}
	if ix.Remove("s1") {
		t.Error("expected second Remove to report absence")
	}
	if ix.Contains("s1") {
		t.Error("removed doc still reported present")
	}

	// With s1 gone, "integration" has no postings left.
	if results := ix.Search("integration", 10); len(results) != 0 {
		t.Errorf("expected no matches after removal, got %+v", results)
	}

	// s2 is still searchable by its now-unique term.
	if results := ix.Search("unit", 10); len(results) != 1 || results[0].DocID != "s2" {
		t.Errorf("surviving doc lost: %+v", results)
	}
}

func TestStats(t *testing.T) {
	ix := New()

	st := ix.Stats()
	if st.DocCount != 0 || st.TermCount != 0 || st.AvgDocLength != 0 {
		t.Errorf("expected zero stats for empty index, got %+v", st)
	}

	ix.Add("s1", "one two three four")
	ix.Add("s2", "five six")

	st = ix.Stats()
	if st.DocCount != 2 {
		t.Errorf("expected 2 docs, got %d", st.DocCount)
	}
	if st.TermCount != 6 {
		t.Errorf("expected 6 distinct terms, got %d", st.TermCount)
	}
	if st.AvgDocLength != 3 {
		t.Errorf("expected avg length 3, got %v", st.AvgDocLength)
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Error: connection_refused at host-name (port 8080), x!")

	want := map[string]bool{
		"error": true, "connection_refused": true, "at": true,
		"host-name": true, "port": true, "8080": true,
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), tokens)
	}
	for _, tok := range tokens {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}
