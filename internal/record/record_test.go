package record

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuilderGeneratesID(t *testing.T) {
	rec := NewBuilder(SessionDebug, PriorityHigh, "Deadlock in worker pool", "two goroutines wait on each other", SeverityError).Build()

	if !strings.HasPrefix(rec.ID(), "debug_") {
		t.Errorf("expected id prefixed with session type, got %q", rec.ID())
	}

	if rec.Problem.Title != "Deadlock in worker pool" {
		t.Errorf("unexpected title %q", rec.Problem.Title)
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	hash := "abc123"
	rec := NewBuilder(SessionFix, PriorityCritical, "Nil map write", "concurrent map write in cache layer", SeverityCritical).
		ID("fix_20250110_143015_250").
		Timestamp(time.Date(2025, 1, 10, 14, 30, 15, 0, time.UTC)).
		Tags([]string{"concurrency", "cache"}).
		Files([]FileAffected{{Path: "internal/cache/cache.go", Role: RolePrimary, HotspotScore: 8.5}}).
		Error(ErrorSignature{ErrorType: "runtime", Pattern: "fatal error: concurrent map writes", StackTraceHash: &hash}).
		Solution(Solution{Summary: "guard the map with a mutex", Steps: []string{"add sync.Mutex", "lock around writes"}}).
		Resolved(45).
		Learning(Insight{Insight: "maps are never safe for concurrent writes", Category: "concurrency", Reusability: ReusabilityHigh}).
		Build()

	content, err := rec.Markdown()
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}

	parsed, err := ParseMarkdown(content)
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}

	if parsed.ID() != rec.ID() {
		t.Errorf("id changed: %q != %q", parsed.ID(), rec.ID())
	}
	if parsed.Problem.Title != rec.Problem.Title {
		t.Errorf("title changed: %q != %q", parsed.Problem.Title, rec.Problem.Title)
	}
	if !parsed.SessionMeta.Resolved {
		t.Error("resolved flag lost")
	}
	if parsed.SessionMeta.DurationMinutes == nil || *parsed.SessionMeta.DurationMinutes != 45 {
		t.Error("duration lost")
	}
	if len(parsed.Context.FilesAffected) != 1 || parsed.Context.FilesAffected[0].Path != "internal/cache/cache.go" {
		t.Errorf("files lost: %+v", parsed.Context.FilesAffected)
	}
	if len(parsed.Problem.ErrorSignatures) != 1 {
		t.Fatalf("error signatures lost: %+v", parsed.Problem.ErrorSignatures)
	}
	if parsed.Problem.ErrorSignatures[0].StackTraceHash == nil || *parsed.Problem.ErrorSignatures[0].StackTraceHash != "abc123" {
		t.Error("stack trace hash lost")
	}
	if len(parsed.Learnings) != 1 || parsed.Learnings[0].Reusability != ReusabilityHigh {
		t.Errorf("learnings lost: %+v", parsed.Learnings)
	}
}

func TestParseMarkdownErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "# just a heading\n"},
		{"unterminated frontmatter", "---\nid: x\n"},
		{"bad yaml", "---\nsession_meta: [unclosed\n---\nbody\n"},
		{"missing id", "---\nsession_meta:\n  priority: high\n---\nbody\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMarkdown([]byte(tc.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("expected FormatError, got %T: %v", err, err)
			}
		})
	}
}

func TestNoteRoundTrip(t *testing.T) {
	conf := 0.9
	dur := int64(30)
	note := NewNote("lr-a1b2c3d4", "# Fixed flaky websocket test\n\nThe test raced the dial.")
	note.Created = time.Date(2025, 3, 4, 9, 15, 0, 0, time.Local)
	note.AutoGenerated = true
	note.Confidence = &conf
	note.Tags = []string{"websocket", "testing"}
	note.Status = StatusResolved
	note.DurationMin = &dur

	content, err := note.Markdown()
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}

	parsed, err := ParseNote(content)
	if err != nil {
		t.Fatalf("ParseNote: %v", err)
	}

	if parsed.ID != note.ID {
		t.Errorf("id changed: %q", parsed.ID)
	}
	if !parsed.Created.Equal(note.Created) {
		t.Errorf("created changed: %v != %v", parsed.Created, note.Created)
	}
	if !parsed.AutoGenerated {
		t.Error("auto_generated lost")
	}
	if parsed.Confidence == nil || *parsed.Confidence != 0.9 {
		t.Error("confidence lost")
	}
	if parsed.Status != StatusResolved {
		t.Errorf("status lost: %q", parsed.Status)
	}
	if parsed.DurationMin == nil || *parsed.DurationMin != 30 {
		t.Error("duration lost")
	}
	if !strings.Contains(parsed.Body, "raced the dial") {
		t.Errorf("body lost: %q", parsed.Body)
	}
}

func TestParseNoteDateOnlyFallback(t *testing.T) {
	content := "---\nid: lr-x\ncreated: 2025-03-04\nstatus: pending\n---\n\nsome notes\n"

	note, err := ParseNote([]byte(content))
	if err != nil {
		t.Fatalf("ParseNote: %v", err)
	}

	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.Local)
	if !note.Created.Equal(want) {
		t.Errorf("expected midnight date, got %v", note.Created)
	}
}

func TestNoteTitle(t *testing.T) {
	note := NewNote("lr-x", "intro line\n\n## The real heading\n\nmore text")
	if got := note.Title(); got != "The real heading" {
		t.Errorf("expected heading, got %q", got)
	}

	note = NewNote("lr-y", "no headings here")
	if got := note.Title(); got != "lr-y" {
		t.Errorf("expected id fallback, got %q", got)
	}
}

func TestNoteRecordProjection(t *testing.T) {
	note := NewNote("lr-p1", "# Cache stampede on cold start\n\nDetails.")
	note.Tags = []string{"cache"}
	note.Status = StatusResolved

	rec := note.Record()

	if rec.ID() != "lr-p1" {
		t.Errorf("id lost: %q", rec.ID())
	}
	if rec.SessionMeta.SessionType != SessionLearning {
		t.Errorf("expected learning session type, got %q", rec.SessionMeta.SessionType)
	}
	if !rec.SessionMeta.Resolved {
		t.Error("resolved status not projected")
	}
	if rec.Problem.Title != "Cache stampede on cold start" {
		t.Errorf("title not taken from heading: %q", rec.Problem.Title)
	}
	if !strings.Contains(rec.Problem.Description, "Details.") {
		t.Error("body not projected into description")
	}
	if len(rec.Context.Tags) != 1 || rec.Context.Tags[0] != "cache" {
		t.Errorf("tags not projected: %v", rec.Context.Tags)
	}
}

func TestParseAnyDispatch(t *testing.T) {
	structured := "---\nsession_meta:\n  id: debug_1\n  session_type: debug\n  priority: high\n  timestamp: 2025-01-10T14:30:15Z\nproblem:\n  title: T\n  description: D\n  severity: error\n---\nbody\n"

	rec, err := ParseAny([]byte(structured))
	if err != nil {
		t.Fatalf("ParseAny structured: %v", err)
	}
	if rec.ID() != "debug_1" || rec.SessionMeta.SessionType != SessionDebug {
		t.Errorf("structured variant mishandled: %+v", rec.SessionMeta)
	}

	note := "---\nid: lr-n1\ncreated: 2025-03-04 09:15\nstatus: pending\n---\n\n# A note\n"

	rec, err = ParseAny([]byte(note))
	if err != nil {
		t.Fatalf("ParseAny note: %v", err)
	}
	if rec.ID() != "lr-n1" || rec.SessionMeta.SessionType != SessionLearning {
		t.Errorf("note variant mishandled: %+v", rec.SessionMeta)
	}
}

func TestSearchText(t *testing.T) {
	rec := NewBuilder(SessionDebug, PriorityHigh, "Title here", "description here", SeverityError).
		Tag("networking").
		Error(ErrorSignature{Pattern: "connection refused"}).
		Build()

	text := rec.SearchText()
	for _, want := range []string{"Title here", "description here", "networking", "connection refused"} {
		if !strings.Contains(text, want) {
			t.Errorf("search text missing %q: %q", want, text)
		}
	}
}

func TestPriorityWeight(t *testing.T) {
	cases := map[Priority]float64{
		PriorityCritical: 10,
		PriorityHigh:     7,
		PriorityMedium:   4,
		PriorityLow:      1,
		Priority("bogus"): 1,
	}
	for p, want := range cases {
		if got := p.Weight(); got != want {
			t.Errorf("%s: expected weight %v, got %v", p, want, got)
		}
	}
}
