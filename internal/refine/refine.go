// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine pushes drafted sections toward a natural-writing target.
// Each section runs a bounded state machine:
//
//	Drafted → Scoring → {Accepted | Rewriting → Scoring | Exhausted}
//
// A section is accepted the moment its composite score clears the
// acceptance threshold; after the attempt budget it is returned Exhausted
// with its best-scoring attempt and a quality-shortfall flag. It is never
// blocked indefinitely, and never accepted below the hard-failure floor.
// Implements: prd004-refinement (R1-R5); docs/ARCHITECTURE § Refinement.
package refine

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Rewriter abstracts the text-generation capability for rewrite requests.
// The drafter's OpenAI generator satisfies it.
type Rewriter interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// backoffBase controls the base duration for rewrite retry backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// attempt is one scored candidate text.
type attempt struct {
	text  string
	score float64
	sub   types.SubScores
}

// Refiner runs the refinement state machine for section drafts.
type Refiner struct {
	Rewriter Rewriter
	Scorer   Scorer

	// Limiter, when set, paces rewrite calls to the generation capability.
	Limiter *rate.Limiter

	// MaxRewriteRetries bounds retries of a single failing rewrite call
	// (default 2). Distinct from the attempt budget, which bounds scoring
	// passes.
	MaxRewriteRetries int
}

// Refine drives one drafted section to a terminal state. The input draft
// must be in state Drafted; the returned draft is Accepted or Exhausted.
// Only context cancellation is returned as an error: a failing rewrite
// capability ends the loop early with the best attempt so far, because a
// drafted section always has at least one usable candidate (R5.3).
func (r *Refiner) Refine(ctx context.Context, draft types.SectionDraft, level types.AcademicLevel, cfg types.RefineConfig, w io.Writer) (types.SectionDraft, error) {
	if draft.State != types.StateDrafted {
		return draft, fmt.Errorf("refining section %s: state %s is not %s", draft.SectionID, draft.State, types.StateDrafted)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var attempts []attempt
	text := draft.Text

	for len(attempts) < maxAttempts {
		if err := ctx.Err(); err != nil {
			return draft, err
		}

		draft.State = types.StateScoring
		score, sub := r.Scorer.Score(text)
		attempts = append(attempts, attempt{text: text, score: score, sub: sub})
		fmt.Fprintf(w, "scored %s attempt %d: %.2f (readability %.2f, burstiness %.2f, originality %.2f)\n",
			draft.SectionID, len(attempts), score, sub.Readability, sub.Burstiness, sub.Originality)

		if score >= cfg.AcceptThreshold {
			return finalize(draft, attempts[len(attempts)-1], len(attempts), types.StateAccepted), nil
		}
		if len(attempts) >= maxAttempts {
			break
		}

		draft.State = types.StateRewriting
		rewritten, err := r.rewrite(ctx, text, sub, level)
		if err != nil {
			if ctx.Err() != nil {
				return draft, ctx.Err()
			}
			fmt.Fprintf(w, "warning: rewrite of %s failed, keeping best attempt: %v\n", draft.SectionID, err)
			break
		}
		text = rewritten
	}

	best := bestAttempt(attempts, cfg.HardFailThreshold)
	return finalize(draft, best, len(attempts), types.StateExhausted), nil
}

// bestAttempt picks the attempt to keep at exhaustion: the highest score
// among attempts at or above the hard-failure floor, ties broken by the
// earliest attempt (cheapest, least drift from the source draft). When
// every attempt sits below the floor the earliest best is still returned:
// the section terminates Exhausted and flagged, never blocked (R5.2).
func bestAttempt(attempts []attempt, hardFail float64) attempt {
	best := -1
	for i, a := range attempts {
		if a.score < hardFail {
			continue
		}
		if best < 0 || a.score > attempts[best].score {
			best = i
		}
	}
	if best >= 0 {
		return attempts[best]
	}

	// All below the floor; earliest highest score.
	best = 0
	for i, a := range attempts {
		if a.score > attempts[best].score {
			best = i
		}
	}
	return attempts[best]
}

// finalize freezes the draft in a terminal state.
func finalize(draft types.SectionDraft, a attempt, attempts int, state types.SectionState) types.SectionDraft {
	draft.Text = a.text
	draft.Score = a.score
	draft.SubScores = a.sub
	draft.Attempts = attempts
	draft.State = state
	draft.Shortfall = state == types.StateExhausted
	return draft
}

// rewrite requests one revision, retrying transient capability failures
// with exponential backoff.
func (r *Refiner) rewrite(ctx context.Context, text string, sub types.SubScores, level types.AcademicLevel) (string, error) {
	prompt, err := buildRewritePrompt(text, sub, level)
	if err != nil {
		return "", err
	}

	maxRetries := r.MaxRewriteRetries
	if maxRetries <= 0 {
		maxRetries = 2
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

		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		out, err := r.Rewriter.Generate(ctx, rewriteSystemPrompt, prompt)
		if err != nil {
			lastErr = &types.CapabilityError{Capability: "generation", Err: err}
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" {
			lastErr = fmt.Errorf("rewrite returned empty text")
			continue
		}
		return out, nil
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
