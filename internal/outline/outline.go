// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline plans the section structure for a document: which
// sections a document type gets, in what order, and how the target word
// count is divided among them.
// Implements: prd003-outline (R1-R3); docs/ARCHITECTURE § Outline.
package outline

import (
	"fmt"
	"strings"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// sectionTemplates maps each document type to its ordered role list (R1.1).
var sectionTemplates = map[types.DocumentType][]types.SectionRole{
	types.DocThesis: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleLiteratureReview,
		types.RoleMethodology, types.RoleResults, types.RoleDiscussion,
		types.RoleConclusion, types.RoleReferences,
	},
	types.DocDissertation: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleLiteratureReview,
		types.RoleMethodology, types.RoleResults, types.RoleDiscussion,
		types.RoleConclusion, types.RoleReferences,
	},
	types.DocResearchPaper: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleLiteratureReview,
		types.RoleMethodology, types.RoleResults, types.RoleDiscussion,
		types.RoleConclusion, types.RoleReferences,
	},
	types.DocSynopsis: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleObjectives,
		types.RoleLiteratureReview, types.RoleMethodology,
		types.RoleExpectedOutcomes, types.RoleReferences,
	},
	types.DocResearchProposal: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleObjectives,
		types.RoleLiteratureReview, types.RoleMethodology,
		types.RoleExpectedOutcomes, types.RoleReferences,
	},
	types.DocLiteratureReview: {
		types.RoleAbstract, types.RoleIntroduction, types.RoleThematicReview,
		types.RoleSynthesis, types.RoleResearchGaps, types.RoleConclusion,
		types.RoleReferences,
	},
}

// sectionWeights assigns each role its relative share of the word budget.
// The References section gets a small fixed share; its text is rendered
// from the bibliography, not drafted.
var sectionWeights = map[types.SectionRole]float64{
	types.RoleAbstract:         4,
	types.RoleIntroduction:     12,
	types.RoleObjectives:       8,
	types.RoleLiteratureReview: 22,
	types.RoleThematicReview:   30,
	types.RoleMethodology:      18,
	types.RoleResults:          16,
	types.RoleSynthesis:        20,
	types.RoleResearchGaps:     12,
	types.RoleDiscussion:       16,
	types.RoleExpectedOutcomes: 14,
	types.RoleConclusion:       9,
	types.RoleReferences:       3,
}

// levelBoosts shifts weight toward analytic sections at higher academic
// levels. The adjustment multiplies the base weight before normalization,
// so the budget invariant is unaffected.
var levelBoosts = map[types.AcademicLevel]map[types.SectionRole]float64{
	types.LevelPhD: {
		types.RoleMethodology: 1.3,
		types.RoleDiscussion:  1.3,
		types.RoleSynthesis:   1.2,
	},
	types.LevelMasters: {
		types.RoleMethodology: 1.1,
		types.RoleDiscussion:  1.1,
	},
}

// sectionTitles maps roles to display headings.
var sectionTitles = map[types.SectionRole]string{
	types.RoleAbstract:         "Abstract",
	types.RoleIntroduction:     "Introduction",
	types.RoleObjectives:       "Research Objectives",
	types.RoleLiteratureReview: "Literature Review",
	types.RoleThematicReview:   "Thematic Review",
	types.RoleMethodology:      "Methodology",
	types.RoleResults:          "Results",
	types.RoleSynthesis:        "Synthesis",
	types.RoleResearchGaps:     "Research Gaps",
	types.RoleDiscussion:       "Discussion",
	types.RoleExpectedOutcomes: "Expected Outcomes",
	types.RoleConclusion:       "Conclusion",
	types.RoleReferences:       "References",
}

// Plan derives the ordered outline for a request. Section budgets are
// proportional to the (level-adjusted) role weights and sum exactly to the
// request's target word count: each section gets its rounded-down share
// and the remainder goes to the largest-weighted section (R2.3).
func Plan(req types.GenerationRequest, cfg types.OutlineConfig) (types.Outline, error) {
	template, ok := sectionTemplates[req.DocumentType]
	if !ok {
		return types.Outline{}, &types.InvalidRequestError{
			Reason: fmt.Sprintf("no section template for document type %q", req.DocumentType),
		}
	}

	floor := cfg.SectionFloor
	if floor <= 0 {
		floor = 120
	}
	if minimum := len(template) * floor; req.TargetWords < minimum {
		return types.Outline{}, &types.InvalidRequestError{
			Reason: fmt.Sprintf("target %d words is below the minimum %d for a %s (%d sections × %d words)",
				req.TargetWords, minimum, req.DocumentType, len(template), floor),
		}
	}

	weights := make([]float64, len(template))
	total := 0.0
	largest := 0
	for i, role := range template {
		w := sectionWeights[role]
		if boost, ok := levelBoosts[req.AcademicLevel][role]; ok {
			w *= boost
		}
		weights[i] = w
		total += w
		if w > weights[largest] {
			largest = i
		}
	}

	nodes := make([]types.OutlineNode, len(template))
	allocated := 0
	for i, role := range template {
		budget := int(float64(req.TargetWords) * weights[i] / total)
		nodes[i] = types.OutlineNode{
			ID:         nodeID(i, role),
			Title:      sectionTitles[role],
			Role:       role,
			WordBudget: budget,
			Position:   i,
		}
		allocated += budget
	}

	// Rounding remainder goes to the largest-weighted section so the
	// budgets sum exactly to the target (R2.3).
	nodes[largest].WordBudget += req.TargetWords - allocated

	return types.Outline{Nodes: nodes}, nil
}

// nodeID builds the section identifier, e.g. "03-methodology".
func nodeID(position int, role types.SectionRole) string {
	return fmt.Sprintf("%02d-%s", position, strings.ReplaceAll(string(role), " ", "-"))
}
