package similarity

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bracket timestamp", "[2025-01-10T14:30:15] connection lost", "connection lost"},
		{"bare timestamp", "2025-01-10 14:30:15 connection lost", "connection lost"},
		{"clock", "at 14:30:15 the pool drained", "at the pool drained"},
		{"path with line", "panic in /app/src/main.go:42:7", "panic in"},
		{"hex address", "invalid memory address 0xdeadbeef", "invalid memory address"},
		{"long hex run", "commit deadbeefcafe1234 failed", "commit failed"},
		{"version", "requires v1.2.3 or newer", "requires or newer"},
		{"numeric id", "record id: 12345 missing", "record missing"},
		{"long number", "allocated 65536 bytes", "allocated bytes"},
		{"short number survives", "panic at index 9", "panic at index 9"},
		{"punctuation", "error: something (bad) happened!", "error something bad happened"},
		{"case folding", "PANIC: Stack Overflow", "panic stack overflow"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCompareIdenticalAfterNormalization(t *testing.T) {
	a := "connection refused at /srv/app/conn.go:120"
	b := "connection refused at /home/dev/conn.go:366"

	score := Compare(a, b)
	if score.Value != 1 {
		t.Errorf("expected 1.0 for messages identical after normalization, got %v (%q vs %q)",
			score.Value, score.NormalizedQuery, score.NormalizedTarget)
	}
}

func TestCompareNearMatch(t *testing.T) {
	score := Compare("panic at index 9", "panic at index 5")

	if score.Value < 0.5 {
		t.Errorf("expected near-identical messages to score at least 0.5, got %v", score.Value)
	}
	if score.Value >= 1 {
		t.Errorf("differing messages must not score 1.0, got %v", score.Value)
	}
}

func TestCompareUnrelated(t *testing.T) {
	score := Compare("connection refused", "yaml unmarshal failure")
	if score.Value > 0.5 {
		t.Errorf("expected unrelated messages to score low, got %v", score.Value)
	}
}

func TestCompareEmptyCases(t *testing.T) {
	// Both sides normalize to nothing.
	if score := Compare("12345", "0xdeadbeef"); score.Value != 1 {
		t.Errorf("expected 1.0 when both normalize empty, got %v", score.Value)
	}

	// One side normalizes to nothing.
	if score := Compare("12345", "connection refused"); score.Value != 0 {
		t.Errorf("expected 0.0 when one side normalizes empty, got %v", score.Value)
	}
}

func TestCompareBounds(t *testing.T) {
	pairs := [][2]string{
		{"a short one", "a considerably longer error message about something else"},
		{"xyz", "abc"},
		{"same", "same"},
	}
	for _, p := range pairs {
		score := Compare(p[0], p[1])
		if score.Value < 0 || score.Value > 1 {
			t.Errorf("Compare(%q, %q) = %v, out of [0,1]", p[0], p[1], score.Value)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{
		"panic: runtime error: index out of range [9]",
		"panic: runtime error: index out of range [5]",
		"yaml: line 12: could not find expected ':'",
	}

	matches := FindSimilar("panic: runtime error: index out of range [7]", candidates, 0.7)

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches above threshold, got %d: %+v", len(matches), matches)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("matches not sorted by descending score")
		}
	}
}

func TestFindSimilarNoMatches(t *testing.T) {
	matches := FindSimilar("connection refused", []string{"yaml parse failure"}, 0.9)
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %+v", matches)
	}
}
