// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble renders terminal section drafts into the final
// document: outline-order concatenation, table of contents, bibliography,
// and the structural checks that make assembly all-or-nothing.
// Implements: prd006-assembly (R1-R3); docs/ARCHITECTURE § Assembly.
package assemble

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/thesis-engine/internal/citations"
	"github.com/pdiddy/thesis-engine/pkg/types"
)

// docTypeLabels maps document types to display names for the title block.
var docTypeLabels = map[types.DocumentType]string{
	types.DocThesis:           "Thesis",
	types.DocSynopsis:         "Synopsis",
	types.DocDissertation:     "Dissertation",
	types.DocResearchPaper:    "Research Paper",
	types.DocLiteratureReview: "Literature Review",
	types.DocResearchProposal: "Research Proposal",
}

var levelLabels = map[types.AcademicLevel]string{
	types.LevelUndergraduate: "Undergraduate",
	types.LevelMasters:       "Master's",
	types.LevelPhD:           "Doctoral",
}

// Assemble validates the terminal drafts against the outline and renders
// the document. Drafts must already be citation-resolved. It fails with
// AssemblyError when any outline node lacks a terminal draft, when two
// sections share a title, when a raw citation marker survived resolution,
// or when the total word count falls outside the tolerance band; a
// document is never emitted partially (R1.2).
func Assemble(req types.GenerationRequest, out types.Outline, drafts []types.SectionDraft, entries []types.CitationEntry, cfg types.AssemblyConfig, w io.Writer) (types.Document, error) {
	byID := make(map[string]types.SectionDraft, len(drafts))
	for _, d := range drafts {
		byID[d.SectionID] = d
	}

	var (
		ordered    []types.SectionDraft
		shortfalls []string
		seenTitles = map[string]bool{}
	)
	for _, node := range out.Nodes {
		if seenTitles[node.Title] {
			return types.Document{}, &types.AssemblyError{
				Reason: fmt.Sprintf("duplicate section title %q", node.Title),
			}
		}
		seenTitles[node.Title] = true

		if node.Role == types.RoleReferences {
			continue // rendered from the bibliography, never drafted
		}

		draft, ok := byID[node.ID]
		if !ok {
			return types.Document{}, &types.AssemblyError{
				Reason: fmt.Sprintf("section %s has no draft", node.ID),
			}
		}
		if !draft.State.Terminal() {
			return types.Document{}, &types.AssemblyError{
				Reason: fmt.Sprintf("section %s is still %s", node.ID, draft.State),
			}
		}
		if draft.State == types.StateFailed {
			return types.Document{}, &types.AssemblyError{
				Reason: fmt.Sprintf("section %s failed drafting", node.ID),
			}
		}
		if leftover := citations.ExtractIDs(draft.Text); len(leftover) > 0 {
			return types.Document{}, &types.AssemblyError{
				Reason: fmt.Sprintf("section %s has unresolved citation markers: %s", node.ID, strings.Join(leftover, ", ")),
			}
		}
		if draft.Shortfall {
			shortfalls = append(shortfalls, node.ID)
		}
		ordered = append(ordered, draft)
	}

	words := 0
	for _, d := range ordered {
		words += d.WordCount()
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 0.25
	}
	if deviation := math.Abs(float64(words-req.TargetWords)) / float64(req.TargetWords); deviation > tolerance {
		return types.Document{}, &types.AssemblyError{
			Reason: fmt.Sprintf("word count %d deviates %.0f%% from target %d (tolerance %.0f%%)",
				words, deviation*100, req.TargetWords, tolerance*100),
		}
	}

	doc := types.Document{
		Request:    req,
		Sections:   ordered,
		Citations:  entries,
		WordCount:  words,
		Shortfalls: shortfalls,
		Generated:  time.Now().UTC(),
	}
	doc.Markdown = render(doc, out)

	fmt.Fprintf(w, "assembled %d sections, %d words, %d bibliography entries\n",
		len(ordered), words, len(entries))
	for _, id := range shortfalls {
		fmt.Fprintf(w, "warning: section %s finished below the acceptance threshold\n", id)
	}
	return doc, nil
}

// render produces the full Markdown document: title block, table of
// contents, sections as level-two headings, bibliography, metadata footer.
func render(doc types.Document, out types.Outline) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", titleCase(doc.Request.Topic))
	fmt.Fprintf(&b, "*A %s %s*\n\n", levelLabels[doc.Request.AcademicLevel], docTypeLabels[doc.Request.DocumentType])

	b.WriteString("## Contents\n\n")
	for i, node := range out.Nodes {
		fmt.Fprintf(&b, "%d. [%s](#%s)\n", i+1, node.Title, anchor(node.Title))
	}
	b.WriteString("\n")

	byID := make(map[string]types.SectionDraft, len(doc.Sections))
	for _, d := range doc.Sections {
		byID[d.SectionID] = d
	}
	for _, node := range out.Nodes {
		fmt.Fprintf(&b, "## %s\n\n", node.Title)
		if node.Role == types.RoleReferences {
			b.WriteString(citations.Bibliography(doc.Citations))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(strings.TrimSpace(byID[node.ID].Text))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "---\n\n*Generated %s · %d words · %d sources cited*\n",
		doc.Generated.Format("2 January 2006"), doc.WordCount, len(doc.Citations))
	return b.String()
}

// titleCase capitalizes the first letter of each word for the title block.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if r[0] >= 'a' && r[0] <= 'z' {
			r[0] -= 'a' - 'A'
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// anchor derives the heading's link fragment: lowercase, spaces to
// hyphens, punctuation dropped.
func anchor(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ExportHTML converts the document Markdown to a standalone HTML page.
func ExportHTML(markdown, title string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", title)
	page.WriteString("<style>body{max-width:46em;margin:2em auto;padding:0 1em;font-family:Georgia,serif;line-height:1.6}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}
