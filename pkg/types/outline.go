// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionRole identifies a section's function within the document. The
// outline planner's templates are ordered lists of roles.
// Per prd003-outline R1.1.
type SectionRole string

const (
	RoleAbstract         SectionRole = "abstract"
	RoleIntroduction     SectionRole = "introduction"
	RoleObjectives       SectionRole = "objectives"
	RoleLiteratureReview SectionRole = "literature-review"
	RoleThematicReview   SectionRole = "thematic-review"
	RoleMethodology      SectionRole = "methodology"
	RoleResults          SectionRole = "results"
	RoleSynthesis        SectionRole = "synthesis"
	RoleResearchGaps     SectionRole = "research-gaps"
	RoleDiscussion       SectionRole = "discussion"
	RoleExpectedOutcomes SectionRole = "expected-outcomes"
	RoleConclusion       SectionRole = "conclusion"
	RoleReferences       SectionRole = "references"
)

// OutlineNode is one planned section with its word budget.
// Per prd003-outline R2.1-R2.3.
type OutlineNode struct {
	// ID is unique within a document (e.g. "03-methodology").
	ID string `json:"id" yaml:"id"`

	// Title is the section heading.
	Title string `json:"title" yaml:"title"`

	// Role is the section's function in the document.
	Role SectionRole `json:"role" yaml:"role"`

	// WordBudget is the section's share of the document's target word
	// count. Budgets across an outline sum exactly to the target.
	WordBudget int `json:"word_budget" yaml:"word_budget"`

	// Position is the section's zero-based ordinal in the document.
	Position int `json:"position" yaml:"position"`
}

// Outline is the ordered section plan for one document.
type Outline struct {
	// Nodes lists the planned sections in document order.
	Nodes []OutlineNode `json:"nodes" yaml:"nodes"`
}

// TotalBudget sums the word budgets across all nodes.
func (o Outline) TotalBudget() int {
	total := 0
	for _, n := range o.Nodes {
		total += n.WordBudget
	}
	return total
}
