// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package drafter produces initial section text through the text-generation
// capability, constrained to the section's word budget and the supplied
// research sources. Quality is the refiner's concern, not the drafter's.
// Implements: prd004-drafting (R1-R3); docs/ARCHITECTURE § Drafting.
package drafter

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/thesis-engine/internal/citations"
	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Generator abstracts the text-generation capability so tests can supply a
// mock. Per Strategy pattern (prd004-drafting R1.2).
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// backoffBase controls the base duration for generation retry backoff.
// Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Drafter turns outline nodes into initial section drafts.
type Drafter struct {
	Generator Generator

	// Limiter, when set, paces calls to the generation capability across
	// all workers.
	Limiter *rate.Limiter
}

// Draft generates the initial text for one outline node. Generation
// failures are retried with exponential backoff up to cfg.MaxRetries; once
// exhausted the returned draft is in state Failed and the error is a
// DraftFailedError, never silent empty output (R3.2).
func (d *Drafter) Draft(ctx context.Context, req types.GenerationRequest, node types.OutlineNode, records []types.ResearchRecord, cfg types.DraftConfig) (types.SectionDraft, error) {
	prompt, err := buildPrompt(req, node, records, cfg)
	if err != nil {
		return failed(node), &types.DraftFailedError{SectionID: node.ID, Err: err}
	}

	text, err := d.callWithRetry(ctx, prompt, cfg)
	if err != nil {
		return failed(node), &types.DraftFailedError{SectionID: node.ID, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return failed(node), &types.DraftFailedError{
			SectionID: node.ID,
			Err:       fmt.Errorf("generation returned empty text"),
		}
	}

	return types.SectionDraft{
		SectionID: node.ID,
		Text:      text,
		CitedIDs:  citations.ExtractIDs(text),
		State:     types.StateDrafted,
	}, nil
}

// callWithRetry calls the generation capability with exponential backoff.
func (d *Drafter) callWithRetry(ctx context.Context, prompt string, cfg types.DraftConfig) (string, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := d.Generator.Generate(ctx, systemPrompt, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = &types.CapabilityError{Capability: "generation", Err: err}
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// WithinBudget reports whether a draft's word count lands inside the
// tolerance band around the node's budget. Informational: the refiner
// preserves length, so the band is checked once here and at assembly.
func WithinBudget(draft types.SectionDraft, node types.OutlineNode, cfg types.DraftConfig) bool {
	tolerance := cfg.BudgetTolerance
	if tolerance <= 0 {
		tolerance = 0.15
	}
	words := float64(draft.WordCount())
	budget := float64(node.WordBudget)
	return words >= budget*(1-tolerance) && words <= budget*(1+tolerance)
}

// failed returns the terminal Failed draft for a node.
func failed(node types.OutlineNode) types.SectionDraft {
	return types.SectionDraft{SectionID: node.ID, State: types.StateFailed}
}
