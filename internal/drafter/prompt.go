// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drafter

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// systemPrompt frames every drafting call. Wording follows the original
// product's register: scholarly tone, natural flow, grounded citations.
const systemPrompt = "You are an expert academic writer who produces rigorous, well-sourced " +
	"document sections in a natural scholarly voice. You cite only the sources you are given, " +
	"using their identifiers verbatim."

// draftPromptTmpl is the prompt template for an initial section draft.
// Per prd004-drafting R2.1-R2.3.
var draftPromptTmpl = template.Must(template.New("draft").Parse(`Write the "{{.Title}}" section of a {{.Level}}-level {{.DocType}} on the topic: "{{.Topic}}".

Requirements:
- Length: about {{.Budget}} words (stay within {{.TolerancePct}}% of that).
- Role of this section: {{.Role}}.
- Academic register appropriate for {{.Level}} level, with varied sentence structure.
- Cite sources inline as [id] using ONLY the source identifiers listed below. Multi-citations use [id1; id2]. Do not invent identifiers.
- Do not include the section heading; write only the body text.
{{if .Excerpts}}
Research sources:
{{range .Excerpts}}- id {{.ID}}: {{.Title}} — {{.Snippet}}
{{end}}{{else}}
No research sources are available for this section; write from general academic knowledge and cite nothing.
{{end}}
Begin the section body below:
`))

// excerpt is one research source as presented in the prompt.
type excerpt struct {
	ID      string
	Title   string
	Snippet string
}

// buildPrompt renders the drafting prompt for one outline node.
func buildPrompt(req types.GenerationRequest, node types.OutlineNode, records []types.ResearchRecord, cfg types.DraftConfig) (string, error) {
	maxExcerpts := cfg.MaxExcerpts
	if maxExcerpts <= 0 {
		maxExcerpts = 6
	}

	var excerpts []excerpt
	for _, r := range records {
		if len(excerpts) >= maxExcerpts {
			break
		}
		snippet := r.Snippet
		if len(snippet) > 400 {
			snippet = snippet[:400] + "..."
		}
		excerpts = append(excerpts, excerpt{ID: r.ID, Title: r.Title, Snippet: snippet})
	}

	tolerance := cfg.BudgetTolerance
	if tolerance <= 0 {
		tolerance = 0.15
	}

	data := struct {
		Topic        string
		DocType      types.DocumentType
		Level        types.AcademicLevel
		Title        string
		Role         types.SectionRole
		Budget       int
		TolerancePct int
		Excerpts     []excerpt
	}{
		Topic:        req.Topic,
		DocType:      req.DocumentType,
		Level:        req.AcademicLevel,
		Title:        node.Title,
		Role:         node.Role,
		Budget:       node.WordBudget,
		TolerancePct: int(tolerance * 100),
		Excerpts:     excerpts,
	}

	var buf bytes.Buffer
	if err := draftPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering draft prompt: %w", err)
	}
	return buf.String(), nil
}
