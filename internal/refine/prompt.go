// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// rewriteSystemPrompt frames every rewrite call.
const rewriteSystemPrompt = "You are an expert academic editor. You revise draft text to read " +
	"naturally while preserving its meaning, length, structure, and every inline [id] citation marker exactly as written."

// rewritePromptTmpl is the rewrite prompt. It names only the failing
// dimensions so the model corrects those and leaves the rest alone
// (prd004-refinement R4.2).
var rewritePromptTmpl = template.Must(template.New("rewrite").Parse(`Revise the draft section below. Keep its meaning, approximate length, and every [id] citation marker unchanged. Correct ONLY these problems:
{{range .Problems}}- {{.}}
{{end}}
Draft section:
{{.Text}}

Return only the revised section body:
`))

// failingDimensions converts sub-scores into rewrite instructions for the
// dimensions that dragged the composite down. A dimension counts as
// failing below 0.8.
func failingDimensions(sub types.SubScores, level types.AcademicLevel) []string {
	const bar = 0.8
	var problems []string
	if sub.Readability < bar {
		problems = append(problems,
			fmt.Sprintf("the reading level does not match %s-level academic writing; adjust vocabulary and sentence complexity accordingly", level))
	}
	if sub.Burstiness < bar {
		problems = append(problems,
			"sentence lengths are too uniform and some phrases repeat; vary sentence length and rhythm, and remove repeated phrasing")
	}
	if sub.Originality < bar {
		problems = append(problems,
			"passages track the source material too closely; paraphrase in your own words while keeping the citations")
	}
	if len(problems) == 0 {
		// Composite can miss the bar while every signal sits near it.
		problems = append(problems, "the prose reads mechanically overall; make it flow more naturally")
	}
	return problems
}

// buildRewritePrompt renders the rewrite prompt for one attempt.
func buildRewritePrompt(text string, sub types.SubScores, level types.AcademicLevel) (string, error) {
	data := struct {
		Problems []string
		Text     string
	}{
		Problems: failingDimensions(sub, level),
		Text:     text,
	}
	var buf bytes.Buffer
	if err := rewritePromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering rewrite prompt: %w", err)
	}
	return buf.String(), nil
}
