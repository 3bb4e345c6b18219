// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// CitationEntry is one rendered bibliography entry. Entries are ordered by
// first appearance across the assembled document, not per section.
// Per prd005-citations R2.1, R2.3.
type CitationEntry struct {
	// RecordID is the cited ResearchRecord's ID.
	RecordID string `json:"record_id" yaml:"record_id"`

	// Marker is the inline citation marker as it appears in section text.
	Marker string `json:"marker" yaml:"marker"`

	// Rendered is the bibliography line in the configured style.
	Rendered string `json:"rendered" yaml:"rendered"`

	// Order is the entry's one-based position in the bibliography.
	Order int `json:"order" yaml:"order"`
}

// Document is the assembled output of a pipeline run. It exists only once
// every outline node reached a terminal draft, and is immutable.
type Document struct {
	// Request is the originating generation request.
	Request GenerationRequest `json:"request" yaml:"request"`

	// Sections holds the terminal drafts in outline order.
	Sections []SectionDraft `json:"sections" yaml:"sections"`

	// Citations is the bibliography in first-appearance order.
	Citations []CitationEntry `json:"citations" yaml:"citations"`

	// Markdown is the full rendered document: title block, table of
	// contents, sections, bibliography.
	Markdown string `json:"markdown" yaml:"markdown"`

	// WordCount is the total words across section bodies.
	WordCount int `json:"word_count" yaml:"word_count"`

	// Shortfalls lists section IDs that finished Exhausted without
	// clearing the acceptance threshold. Non-fatal (prd001-pipeline R4.3).
	Shortfalls []string `json:"shortfalls,omitempty" yaml:"shortfalls,omitempty"`

	// Generated is the assembly timestamp.
	Generated time.Time `json:"generated" yaml:"generated"`
}

// HasShortfalls reports whether any section was emitted below the
// acceptance threshold.
func (d Document) HasShortfalls() bool {
	return len(d.Shortfalls) > 0
}

// CountWords counts whitespace-separated words. The single definition used
// everywhere a budget or tolerance is checked, so every stage agrees on
// what a word is.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
