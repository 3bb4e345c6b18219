// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionState tracks a section draft through the refinement state machine:
// Drafted → Scoring → {Accepted | Rewriting → Scoring | Exhausted}.
// Failed is a drafting outcome, reached when the generation capability
// never produced initial text. Per prd004-refinement R1.1.
type SectionState string

const (
	StateDrafted   SectionState = "drafted"
	StateScoring   SectionState = "scoring"
	StateRewriting SectionState = "rewriting"
	StateAccepted  SectionState = "accepted"
	StateExhausted SectionState = "exhausted"
	StateFailed    SectionState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s SectionState) Terminal() bool {
	return s == StateAccepted || s == StateExhausted || s == StateFailed
}

// SubScores holds the three humanization signals, each in [0, 1].
// Per prd004-refinement R2.1-R2.3.
type SubScores struct {
	// Readability measures grade-level fit against the academic level.
	Readability float64 `json:"readability" yaml:"readability"`

	// Burstiness measures sentence-length variation; uniform sentence
	// lengths and repeated phrases pull it down.
	Burstiness float64 `json:"burstiness" yaml:"burstiness"`

	// Originality measures n-gram distance from the research snippets;
	// heavy verbatim overlap pulls it down.
	Originality float64 `json:"originality" yaml:"originality"`
}

// SectionDraft holds one section's text and refinement state. A draft is
// owned exclusively by its section task until it reaches a terminal state,
// after which it is immutable.
type SectionDraft struct {
	// SectionID matches the outline node's ID.
	SectionID string `json:"section_id" yaml:"section_id"`

	// Text is the current (or, once terminal, final) section body.
	Text string `json:"text" yaml:"text"`

	// Score is the composite humanization score of Text.
	Score float64 `json:"score" yaml:"score"`

	// SubScores are the signals behind Score.
	SubScores SubScores `json:"sub_scores" yaml:"sub_scores"`

	// Attempts counts scoring passes, including the initial draft.
	Attempts int `json:"attempts" yaml:"attempts"`

	// CitedIDs lists the ResearchRecord IDs cited by Text, in first
	// appearance order.
	CitedIDs []string `json:"cited_ids,omitempty" yaml:"cited_ids,omitempty"`

	// State is the refinement state machine state.
	State SectionState `json:"state" yaml:"state"`

	// Shortfall marks a section emitted without clearing the acceptance
	// threshold (state Exhausted).
	Shortfall bool `json:"shortfall,omitempty" yaml:"shortfall,omitempty"`
}

// WordCount returns the number of whitespace-separated words in Text.
func (d SectionDraft) WordCount() int {
	return CountWords(d.Text)
}
