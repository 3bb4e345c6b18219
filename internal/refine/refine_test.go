// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// scriptedScorer returns a fixed sequence of scores, one per call.
type scriptedScorer struct {
	scores []float64
	calls  int
}

func (s *scriptedScorer) Score(_ string) (float64, types.SubScores) {
	score := s.scores[s.calls]
	s.calls++
	return score, types.SubScores{Readability: score, Burstiness: score, Originality: score}
}

// countingRewriter returns numbered rewrites, failing the first failN calls.
type countingRewriter struct {
	failN int
	calls int
}

func (r *countingRewriter) Generate(_ context.Context, _, _ string) (string, error) {
	r.calls++
	if r.calls <= r.failN {
		return "", fmt.Errorf("timeout")
	}
	return fmt.Sprintf("rewrite %d", r.calls), nil
}

func drafted() types.SectionDraft {
	return types.SectionDraft{
		SectionID: "03-methodology",
		Text:      "original draft",
		State:     types.StateDrafted,
	}
}

func cfg() types.RefineConfig {
	return types.RefineConfig{
		AcceptThreshold:   0.70,
		HardFailThreshold: 0.40,
		MaxAttempts:       3,
	}
}

func TestRefineAcceptsFirstAttempt(t *testing.T) {
	rw := &countingRewriter{}
	r := &Refiner{Rewriter: rw, Scorer: &scriptedScorer{scores: []float64{0.80}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateAccepted, out.State)
	assert.Equal(t, "original draft", out.Text)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Shortfall)
	assert.Zero(t, rw.calls, "accepted drafts need no rewrite")
}

func TestRefineAcceptsAfterRewrite(t *testing.T) {
	rw := &countingRewriter{}
	r := &Refiner{Rewriter: rw, Scorer: &scriptedScorer{scores: []float64{0.50, 0.75}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateAccepted, out.State)
	assert.Equal(t, "rewrite 1", out.Text)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 1, rw.calls)
}

func TestRefineExhaustsWithBestAttempt(t *testing.T) {
	// Second attempt scores highest; never clears acceptance.
	r := &Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{0.45, 0.60, 0.55}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, out.State)
	assert.True(t, out.Shortfall)
	assert.Equal(t, "rewrite 1", out.Text, "best-scoring attempt is kept")
	assert.InDelta(t, 0.60, out.Score, 1e-9)
	assert.Equal(t, 3, out.Attempts)
}

func TestRefineTieKeepsEarliestAttempt(t *testing.T) {
	r := &Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{0.60, 0.60, 0.60}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, out.State)
	assert.Equal(t, "original draft", out.Text, "earliest attempt wins a tie")
}

func TestRefineNeverKeepsBelowHardFailWhenBetterExists(t *testing.T) {
	// Last attempt scores best overall but sits below the hard floor.
	r := &Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{0.45, 0.30, 0.35}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, out.State)
	assert.Equal(t, "original draft", out.Text)
	assert.InDelta(t, 0.45, out.Score, 1e-9)
}

func TestRefineAllBelowHardFailStillTerminates(t *testing.T) {
	r := &Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{0.10, 0.20, 0.15}}}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, out.State)
	assert.True(t, out.Shortfall)
	assert.InDelta(t, 0.20, out.Score, 1e-9)
}

func TestRefineTerminatesWithinAttemptBound(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", maxAttempts), func(t *testing.T) {
			scores := make([]float64, maxAttempts)
			for i := range scores {
				scores[i] = 0.10 // never accepted
			}
			sc := &scriptedScorer{scores: scores}
			c := cfg()
			c.MaxAttempts = maxAttempts

			out, err := (&Refiner{Rewriter: &countingRewriter{}, Scorer: sc}).
				Refine(context.Background(), drafted(), types.LevelPhD, c, io.Discard)
			require.NoError(t, err)

			assert.True(t, out.State.Terminal())
			assert.Equal(t, maxAttempts, sc.calls, "exactly one scoring pass per attempt")
		})
	}
}

func TestRefineRewriteFailureKeepsBestSoFar(t *testing.T) {
	// Every rewrite call fails; the loop ends early with the scored draft.
	rw := &countingRewriter{failN: 100}
	r := &Refiner{Rewriter: rw, Scorer: &scriptedScorer{scores: []float64{0.50}}, MaxRewriteRetries: 1}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, out.State)
	assert.Equal(t, "original draft", out.Text)
	assert.True(t, out.Shortfall)
}

func TestRefineRewriteRetryThenSuccess(t *testing.T) {
	rw := &countingRewriter{failN: 1}
	r := &Refiner{Rewriter: rw, Scorer: &scriptedScorer{scores: []float64{0.50, 0.90}}, MaxRewriteRetries: 2}

	out, err := r.Refine(context.Background(), drafted(), types.LevelMasters, cfg(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, types.StateAccepted, out.State)
	assert.Equal(t, "rewrite 2", out.Text)
}

func TestRefineRejectsNonDraftedState(t *testing.T) {
	d := drafted()
	d.State = types.StateAccepted

	_, err := (&Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{1}}}).
		Refine(context.Background(), d, types.LevelMasters, cfg(), io.Discard)
	require.Error(t, err)
}

func TestRefineContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Refiner{Rewriter: &countingRewriter{}, Scorer: &scriptedScorer{scores: []float64{0.5}}}).
		Refine(ctx, drafted(), types.LevelMasters, cfg(), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
