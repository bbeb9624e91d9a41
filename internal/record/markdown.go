// Package record models learning records and their on-disk markdown form.
package record

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterDelim separates YAML frontmatter from the markdown body.
const frontmatterDelim = "---\n"

// defaultBody is written below the frontmatter when a structured record is
// first serialized. Humans edit it freely; the adapter never parses it back.
const defaultBody = "\n# Session Notes\n\nAdd your notes here...\n"

// FormatError reports malformed frontmatter or YAML. It is not recoverable:
// the file needs a human edit before it can be indexed.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid record format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid record format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// splitFrontmatter extracts the YAML frontmatter and the body from a
// markdown document delimited by "---" lines.
func splitFrontmatter(content string) (yamlPart, body string, err error) {
	if !strings.HasPrefix(content, frontmatterDelim) {
		return "", "", &FormatError{Reason: "missing frontmatter delimiter"}
	}

	parts := strings.SplitN(content, frontmatterDelim, 3)
	if len(parts) < 3 {
		return "", "", &FormatError{Reason: "incomplete frontmatter"}
	}

	return parts[1], parts[2], nil
}

// ParseMarkdown parses a structured record from its markdown form.
// The body below the frontmatter is ignored; the frontmatter owns all fields.
func ParseMarkdown(content []byte) (*Record, error) {
	yamlPart, _, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := yaml.Unmarshal([]byte(yamlPart), &rec); err != nil {
		return nil, &FormatError{Reason: "malformed YAML frontmatter", Err: err}
	}
	if rec.SessionMeta.ID == "" {
		return nil, &FormatError{Reason: "frontmatter has no session id"}
	}

	return &rec, nil
}

// Markdown serializes the record to its on-disk form: YAML frontmatter
// followed by a notes body. Parsing the output yields an equal record for
// every field the frontmatter owns.
func (r *Record) Markdown() ([]byte, error) {
	fm, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelim)
	sb.Write(fm)
	sb.WriteString(frontmatterDelim)
	sb.WriteString(defaultBody)
	return []byte(sb.String()), nil
}

// variantProbe sniffs which record variant a frontmatter block holds.
// Structured records nest everything under session_meta; human-first notes
// carry a top-level id and created field.
type variantProbe struct {
	SessionMeta *struct {
		ID string `yaml:"id"`
	} `yaml:"session_meta"`
	ID      string `yaml:"id"`
	Created string `yaml:"created"`
}

// ParseAny parses either record variant, returning a Record in both cases.
// Human-first notes are projected through Note.Record.
func ParseAny(content []byte) (*Record, error) {
	yamlPart, _, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, err
	}

	var probe variantProbe
	if err := yaml.Unmarshal([]byte(yamlPart), &probe); err != nil {
		return nil, &FormatError{Reason: "malformed YAML frontmatter", Err: err}
	}

	if probe.SessionMeta != nil {
		return ParseMarkdown(content)
	}

	note, err := ParseNote(content)
	if err != nil {
		return nil, err
	}
	return note.Record(), nil
}
