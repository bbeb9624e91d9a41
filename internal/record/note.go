// Package record models learning records and their on-disk markdown form.
package record

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status tracks the lifecycle of a human-first note.
type Status string

// Note statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// createdLayout is the timestamp format used in note frontmatter.
const createdLayout = "2006-01-02 15:04"

// Note is the human-first record variant: a minimal frontmatter plus a
// free-form markdown body where all the substance lives.
type Note struct {
	ID            string
	Created       time.Time
	AutoGenerated bool
	Confidence    *float64
	Tags          []string
	Status        Status
	DurationMin   *int64
	Body          string
}

// noteFrontmatter is the YAML shape of a note's frontmatter.
type noteFrontmatter struct {
	ID            string   `yaml:"id"`
	Created       string   `yaml:"created"`
	AutoGenerated bool     `yaml:"auto_generated"`
	Confidence    *float64 `yaml:"confidence,omitempty"`
	Tags          []string `yaml:"tags"`
	Status        Status   `yaml:"status"`
	DurationMin   *int64   `yaml:"duration_min,omitempty"`
}

// NewNote creates a pending note with the given id and body.
func NewNote(id, body string) *Note {
	return &Note{
		ID:      id,
		Created: time.Now(),
		Status:  StatusPending,
		Body:    body,
	}
}

// ParseNote parses a human-first note from its markdown form.
// The created timestamp accepts "2006-01-02 15:04" with a date-only fallback.
func ParseNote(content []byte) (*Note, error) {
	yamlPart, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, err
	}

	var fm noteFrontmatter
	if err := yaml.Unmarshal([]byte(yamlPart), &fm); err != nil {
		return nil, &FormatError{Reason: "malformed YAML frontmatter", Err: err}
	}
	if fm.ID == "" {
		return nil, &FormatError{Reason: "frontmatter has no id"}
	}

	created, err := time.ParseInLocation(createdLayout, fm.Created, time.Local)
	if err != nil {
		created, err = time.ParseInLocation("2006-01-02", fm.Created, time.Local)
		if err != nil {
			return nil, &FormatError{Reason: "unparseable created timestamp", Err: err}
		}
	}

	return &Note{
		ID:            fm.ID,
		Created:       created,
		AutoGenerated: fm.AutoGenerated,
		Confidence:    fm.Confidence,
		Tags:          fm.Tags,
		Status:        fm.Status,
		DurationMin:   fm.DurationMin,
		Body:          strings.TrimSpace(body),
	}, nil
}

// Markdown serializes the note to its on-disk form.
func (n *Note) Markdown() ([]byte, error) {
	fm, err := yaml.Marshal(noteFrontmatter{
		ID:            n.ID,
		Created:       n.Created.Format(createdLayout),
		AutoGenerated: n.AutoGenerated,
		Confidence:    n.Confidence,
		Tags:          n.Tags,
		Status:        n.Status,
		DurationMin:   n.DurationMin,
	})
	if err != nil {
		return nil, &FormatError{Reason: "marshal frontmatter", Err: err}
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelim)
	sb.Write(fm)
	sb.WriteString(frontmatterDelim)
	sb.WriteString("\n")
	sb.WriteString(n.Body)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// Title returns the note's first markdown heading, or the id when the body
// has none.
func (n *Note) Title() string {
	for _, line := range strings.Split(n.Body, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "#"); ok {
			return strings.TrimSpace(strings.TrimLeft(after, "#"))
		}
	}
	return n.ID
}

// Record projects the note into the structured shape the index understands.
// The body becomes the description so its prose stays searchable.
func (n *Note) Record() *Record {
	return &Record{
		SessionMeta: SessionMeta{
			ID:              n.ID,
			SessionType:     SessionLearning,
			Priority:        PriorityMedium,
			Timestamp:       n.Created,
			DurationMinutes: n.DurationMin,
			Resolved:        n.Status == StatusResolved,
		},
		Problem: Problem{
			Title:       n.Title(),
			Description: n.Body,
			Severity:    SeverityInfo,
		},
		Context: Context{
			Tags: n.Tags,
		},
	}
}
