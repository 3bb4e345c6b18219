// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "thesis-engine/0.1"). Per prd002-research R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResearchConfig holds settings for the research aggregation stage.
// Per prd002-research R1.2, R3.1-R3.3, R5.1-R5.4.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ResultCap is the maximum results kept per query (default 10).
	ResultCap int `json:"result_cap" yaml:"result_cap"`

	// MinSnippetLen discards results whose snippet is shorter than this
	// many runes (default 40).
	MinSnippetLen int `json:"min_snippet_len" yaml:"min_snippet_len"`

	// SimilarityThreshold treats two snippets above this 3-gram Jaccard
	// similarity as duplicates regardless of URL (default 0.85).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// MaxRetries is the retry count for a failed or empty query (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// RatePerSecond caps search capability calls across all workers
	// (default 2).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// OutlineConfig holds settings for the outline planning stage.
// Per prd003-outline R3.1-R3.2.
type OutlineConfig struct {
	// SectionFloor is the minimum viable words per mandatory section
	// (default 120). A target below sections × floor is an invalid request.
	SectionFloor int `json:"section_floor" yaml:"section_floor"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "llama-3.3-70b-versatile").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers
	// (e.g. "https://api.groq.com/openai/v1").
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DraftConfig holds settings for the section drafting stage.
// Per prd004-drafting R2.1-R2.4.
type DraftConfig struct {
	AIConfig `yaml:",inline"`

	// MaxExcerpts caps the research excerpts included per drafting prompt
	// (default 6).
	MaxExcerpts int `json:"max_excerpts" yaml:"max_excerpts"`

	// BudgetTolerance is the acceptable fraction above or below a
	// section's word budget (default 0.15).
	BudgetTolerance float64 `json:"budget_tolerance" yaml:"budget_tolerance"`

	// RatePerSecond caps generation capability calls across all workers
	// (default 1).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// RefineConfig holds settings for the humanization refinement stage.
// The thresholds and weights are tunable; the state machine's termination
// does not depend on their values. Per prd004-refinement R3.1-R3.4.
type RefineConfig struct {
	// AcceptThreshold is the composite score at which a draft is accepted
	// (default 0.70).
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold"`

	// HardFailThreshold is the floor below which text is never accepted,
	// even at retry exhaustion (default 0.40).
	HardFailThreshold float64 `json:"hard_fail_threshold" yaml:"hard_fail_threshold"`

	// MaxAttempts bounds scoring passes per section, initial draft
	// included (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// ReadabilityWeight, BurstinessWeight, and OriginalityWeight combine
	// the sub-scores into the composite (defaults 0.35, 0.35, 0.30).
	ReadabilityWeight float64 `json:"readability_weight" yaml:"readability_weight"`
	BurstinessWeight  float64 `json:"burstiness_weight" yaml:"burstiness_weight"`
	OriginalityWeight float64 `json:"originality_weight" yaml:"originality_weight"`

	// OverlapLimit is the corpus 5-gram overlap fraction above which the
	// originality sub-score decays toward zero (default 0.20).
	OverlapLimit float64 `json:"overlap_limit" yaml:"overlap_limit"`
}

// AssemblyConfig holds settings for document assembly.
// Per prd006-assembly R2.2.
type AssemblyConfig struct {
	// Tolerance is the acceptable fraction between the assembled word
	// count and the request target (default 0.25).
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// PipelineConfig groups all stage configurations. It is passed by value
// through the pipeline so concurrent runs with different parameters never
// interfere.
type PipelineConfig struct {
	Research ResearchConfig `json:"research" yaml:"research"`
	Outline  OutlineConfig  `json:"outline" yaml:"outline"`
	Draft    DraftConfig    `json:"draft" yaml:"draft"`
	Refine   RefineConfig   `json:"refine" yaml:"refine"`
	Assembly AssemblyConfig `json:"assembly" yaml:"assembly"`

	// Workers bounds concurrent section tasks, which also bounds peak
	// concurrent capability calls (default 3).
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the tuned default configuration.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Research: ResearchConfig{
			HTTPConfig:          HTTPConfig{Timeout: 30 * time.Second, UserAgent: "thesis-engine/0.1"},
			ResultCap:           10,
			MinSnippetLen:       40,
			SimilarityThreshold: 0.85,
			MaxRetries:          2,
			EnableArxiv:         true,
			EnableOpenAlex:      true,
			RatePerSecond:       2,
		},
		Outline: OutlineConfig{SectionFloor: 120},
		Draft: DraftConfig{
			AIConfig: AIConfig{
				Model:      "llama-3.3-70b-versatile",
				BaseURL:    "https://api.groq.com/openai/v1",
				MaxRetries: 3,
			},
			MaxExcerpts:     6,
			BudgetTolerance: 0.15,
			RatePerSecond:   1,
		},
		Refine: RefineConfig{
			AcceptThreshold:   0.70,
			HardFailThreshold: 0.40,
			MaxAttempts:       3,
			ReadabilityWeight: 0.35,
			BurstinessWeight:  0.35,
			OriginalityWeight: 0.30,
			OverlapLimit:      0.20,
		},
		Assembly: AssemblyConfig{Tolerance: 0.25},
		Workers:  3,
	}
}
