// Package record models learning records and their on-disk markdown form.
//
// A learning record captures one debugging or development session: what the
// problem was, which files were touched, which errors fired, and what was
// learned. Records live as markdown files with YAML frontmatter; this package
// owns the bidirectional mapping between those files and the in-memory types.
package record

import (
	"fmt"
	"time"
)

// SessionType classifies what kind of work session produced a record.
type SessionType string

// Session types.
const (
	SessionLearning SessionType = "learning"
	SessionUrgent   SessionType = "urgent"
	SessionFix      SessionType = "fix"
	SessionDebug    SessionType = "debug"
	SessionFeature  SessionType = "feature"
	SessionRefactor SessionType = "refactor"
	SessionOptimize SessionType = "optimize"
	SessionResearch SessionType = "research"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case SessionLearning, SessionUrgent, SessionFix, SessionDebug,
		SessionFeature, SessionRefactor, SessionOptimize, SessionResearch:
		return true
	}
	return false
}

// Priority ranks how urgently a session's problem needed attention.
type Priority string

// Priorities, lowest to highest.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Weight returns the hotspot weight for this priority.
// Unknown priorities weigh the same as low.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 10
	case PriorityHigh:
		return 7
	case PriorityMedium:
		return 4
	default:
		return 1
	}
}

// Severity describes how bad the recorded problem was.
type Severity string

// Severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// FileRole describes how a file relates to the session.
type FileRole string

// File roles.
const (
	RolePrimary   FileRole = "primary"
	RoleSecondary FileRole = "secondary"
	RoleRelated   FileRole = "related"
)

// Reusability grades how broadly an insight applies.
type Reusability string

// Reusability grades.
const (
	ReusabilityLow    Reusability = "low"
	ReusabilityMedium Reusability = "medium"
	ReusabilityHigh   Reusability = "high"
)

// SessionMeta identifies a session and its basic attributes.
type SessionMeta struct {
	ID              string      `yaml:"id"`
	SessionType     SessionType `yaml:"session_type"`
	Priority        Priority    `yaml:"priority"`
	Timestamp       time.Time   `yaml:"timestamp"`
	DurationMinutes *int64      `yaml:"duration_minutes"`
	Resolved        bool        `yaml:"resolved"`
}

// Problem describes what went wrong and how it manifested.
type Problem struct {
	Title           string           `yaml:"title"`
	Description     string           `yaml:"description"`
	Severity        Severity         `yaml:"severity"`
	ErrorSignatures []ErrorSignature `yaml:"error_signatures"`
}

// ErrorSignature is a searchable fingerprint of one error seen in a session.
type ErrorSignature struct {
	ErrorType      string  `yaml:"error_type"`
	Pattern        string  `yaml:"pattern"`
	StackTraceHash *string `yaml:"stack_trace_hash"`
}

// Solution records how the problem was resolved.
type Solution struct {
	Summary      string   `yaml:"summary"`
	RootCause    *string  `yaml:"root_cause"`
	Steps        []string `yaml:"steps"`
	Verification []string `yaml:"verification"`
}

// FileAffected ties a file to a session with an author-supplied weight.
// HotspotScore here is per-file and independent of the derived session score.
type FileAffected struct {
	Path           string   `yaml:"path"`
	Role           FileRole `yaml:"role"`
	ChangesSummary *string  `yaml:"changes_summary"`
	HotspotScore   float64  `yaml:"hotspot_score"`
}

// Dependency names a package or tool relevant to the session.
type Dependency struct {
	Name      string  `yaml:"name"`
	Version   *string `yaml:"version"`
	Relevance string  `yaml:"relevance"`
}

// Context carries the session's surroundings: files, tags, environment.
type Context struct {
	Tags          []string       `yaml:"tags"`
	FilesAffected []FileAffected `yaml:"files_affected"`
	Dependencies  []Dependency   `yaml:"dependencies"`
	Environment   *string        `yaml:"environment"`
}

// Insight is one reusable takeaway from a session.
type Insight struct {
	Insight      string      `yaml:"insight"`
	Category     string      `yaml:"category"`
	Reusability  Reusability `yaml:"reusability"`
	ApplicableTo []string    `yaml:"applicable_to"`
}

// Record is the fully structured learning record variant.
// All fields live in YAML frontmatter; the markdown body is free-form notes.
type Record struct {
	SessionMeta SessionMeta `yaml:"session_meta"`
	Problem     Problem     `yaml:"problem"`
	Solution    *Solution   `yaml:"solution"`
	Context     Context     `yaml:"context"`
	Learnings   []Insight   `yaml:"learnings"`
}

// ID returns the record's session id.
func (r *Record) ID() string {
	return r.SessionMeta.ID
}

// SearchText concatenates the fields that feed full-text and TF-IDF indexing:
// title, description, tags, and error patterns.
func (r *Record) SearchText() string {
	text := r.Problem.Title + " " + r.Problem.Description
	for _, tag := range r.Context.Tags {
		text += " " + tag
	}
	for _, sig := range r.Problem.ErrorSignatures {
		text += " " + sig.Pattern
	}
	return text
}

// Builder assembles a Record step by step.
type Builder struct {
	record Record
}

// NewBuilder starts a record for the given session. The generated id embeds
// the session type and a millisecond timestamp, e.g. "debug_20250110_143015_250".
func NewBuilder(sessionType SessionType, priority Priority, title, description string, severity Severity) *Builder {
	now := time.Now()
	id := fmt.Sprintf("%s_%s", sessionType, now.Format("20060102_150405_000"))

	return &Builder{record: Record{
		SessionMeta: SessionMeta{
			ID:          id,
			SessionType: sessionType,
			Priority:    priority,
			Timestamp:   now,
		},
		Problem: Problem{
			Title:       title,
			Description: description,
			Severity:    severity,
		},
	}}
}

// ID overrides the generated session id.
func (b *Builder) ID(id string) *Builder {
	b.record.SessionMeta.ID = id
	return b
}

// Timestamp overrides the session timestamp.
func (b *Builder) Timestamp(t time.Time) *Builder {
	b.record.SessionMeta.Timestamp = t
	return b
}

// Tag appends a single tag.
func (b *Builder) Tag(tag string) *Builder {
	b.record.Context.Tags = append(b.record.Context.Tags, tag)
	return b
}

// Tags replaces the tag list.
func (b *Builder) Tags(tags []string) *Builder {
	b.record.Context.Tags = tags
	return b
}

// Files replaces the affected-file list.
func (b *Builder) Files(files []FileAffected) *Builder {
	b.record.Context.FilesAffected = files
	return b
}

// Error appends an error signature.
func (b *Builder) Error(sig ErrorSignature) *Builder {
	b.record.Problem.ErrorSignatures = append(b.record.Problem.ErrorSignatures, sig)
	return b
}

// Solution sets the solution section.
func (b *Builder) Solution(sol Solution) *Builder {
	b.record.Solution = &sol
	return b
}

// Resolved marks the session resolved with its duration.
func (b *Builder) Resolved(durationMinutes int64) *Builder {
	b.record.SessionMeta.Resolved = true
	b.record.SessionMeta.DurationMinutes = &durationMinutes
	return b
}

// Learning appends an insight.
func (b *Builder) Learning(in Insight) *Builder {
	b.record.Learnings = append(b.record.Learnings, in)
	return b
}

// Build returns the assembled record.
func (b *Builder) Build() *Record {
	rec := b.record
	return &rec
}
