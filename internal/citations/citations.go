// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citations resolves inline citation markers against the research
// corpus and renders the bibliography. Markers use the inline grammar
// [refID] with multi-citations [id1; id2]; refIDs are ResearchRecord IDs.
// Implements: prd005-citations (R1-R4); docs/ARCHITECTURE § Citations.
package citations

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// markerPattern matches inline citations: [id] or [id1; id2].
var markerPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// UnresolvedFlag replaces markers whose record ID is not in the corpus.
// Neutral inline text, never a dangling marker (R4.1).
const UnresolvedFlag = "[unverified source]"

// ExtractIDs finds all citation record IDs in text, in order of first
// appearance. It handles both single markers [id] and multi-markers
// [id1; id2], and ignores bracket content that does not look like a
// record ID.
func ExtractIDs(text string) []string {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var ids []string
	for _, m := range matches {
		for _, p := range strings.Split(m[1], ";") {
			id := strings.TrimSpace(p)
			if id == "" || !isRecordID(id) || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// isRecordID checks whether a string looks like a ResearchRecord ID: a
// 12-character lowercase hex string. It rejects Markdown links, image
// references, and other bracket content.
func isRecordID(s string) bool {
	if len(s) != 12 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

// Resolve scans the accepted drafts in document order, assigns each cited
// record a first-appearance bibliography position, and rewrites section
// text: known IDs become numbered markers [n], unknown IDs become the
// neutral unresolved flag (R2.1, R4.1). It returns the rewritten drafts
// and the ordered bibliography.
func Resolve(drafts []types.SectionDraft, corpus types.ResearchCorpus, style types.CitationStyle) ([]types.SectionDraft, []types.CitationEntry) {
	order := make(map[string]int) // record ID → one-based bibliography position
	var entries []types.CitationEntry

	resolved := make([]types.SectionDraft, len(drafts))
	for i, d := range drafts {
		resolved[i] = d
		resolved[i].Text = markerPattern.ReplaceAllStringFunc(d.Text, func(m string) string {
			inner := strings.TrimSpace(m[1 : len(m)-1])
			parts := strings.Split(inner, ";")

			// Classify the whole marker before touching the bibliography:
			// prose brackets stay intact, markers with any unknown ID are
			// flagged, and only fully resolvable markers assign numbers.
			records := make([]types.ResearchRecord, 0, len(parts))
			ids := make([]string, 0, len(parts))
			for _, p := range parts {
				id := strings.TrimSpace(p)
				if !isRecordID(id) {
					return m
				}
				record, ok := corpus.Record(id)
				if !ok {
					return UnresolvedFlag
				}
				records = append(records, record)
				ids = append(ids, id)
			}

			var nums []string
			for j, id := range ids {
				record := records[j]
				n, seen := order[id]
				if !seen {
					n = len(entries) + 1
					order[id] = n
					entries = append(entries, types.CitationEntry{
						RecordID: id,
						Marker:   fmt.Sprintf("[%d]", n),
						Rendered: Render(record, style),
						Order:    n,
					})
				}
				nums = append(nums, fmt.Sprintf("%d", n))
			}
			return "[" + strings.Join(nums, ", ") + "]"
		})
	}

	return resolved, entries
}

// Render produces one bibliography line for a record in the given style.
// Search snippets carry no author metadata, so entries lead with the title
// the way anonymous works do in each style.
func Render(r types.ResearchRecord, style types.CitationStyle) string {
	title := strings.TrimSpace(r.Title)
	year := r.Retrieved.Year()

	switch style {
	case types.StyleMLA:
		return fmt.Sprintf("%q. %s. Web. Accessed %s.", title, r.URL, r.Retrieved.Format("2 Jan. 2006"))
	case types.StyleChicago:
		return fmt.Sprintf("%q. Accessed %s. %s.", title, r.Retrieved.Format("January 2, 2006"), r.URL)
	default: // APA
		return fmt.Sprintf("%s. (%d). Retrieved from %s", title, year, r.URL)
	}
}

// Bibliography renders the References section body from ordered entries.
func Bibliography(entries []types.CitationEntry) string {
	if len(entries) == 0 {
		return "No sources were cited in this document."
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", e.Order, e.Rendered)
	}
	return strings.TrimRight(b.String(), "\n")
}
