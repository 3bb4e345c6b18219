// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drafter

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

func init() {
	backoffBase = time.Millisecond
}

// mockGenerator returns scripted responses, failing the first failN calls.
type mockGenerator struct {
	failN    int
	calls    int
	response string
	prompts  []string
}

func (m *mockGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.calls <= m.failN {
		return "", fmt.Errorf("rate limited")
	}
	return m.response, nil
}

func testReq() types.GenerationRequest {
	return types.GenerationRequest{
		Topic:         "renewable energy storage",
		DocumentType:  types.DocThesis,
		AcademicLevel: types.LevelMasters,
		TargetWords:   8000,
	}
}

func testNode() types.OutlineNode {
	return types.OutlineNode{
		ID:         "02-literature-review",
		Title:      "Literature Review",
		Role:       types.RoleLiteratureReview,
		WordBudget: 1800,
		Position:   2,
	}
}

func testRecords() []types.ResearchRecord {
	return []types.ResearchRecord{
		{ID: "aaaaaaaaaaaa", Title: "Grid Batteries", Snippet: "Battery storage balances renewable intermittency on modern grids."},
		{ID: "bbbbbbbbbbbb", Title: "Flow Chemistry", Snippet: "Vanadium flow batteries trade energy density for cycle life."},
	}
}

func TestDraftSuccess(t *testing.T) {
	gen := &mockGenerator{response: "Storage research has matured [aaaaaaaaaaaa]. Flow systems differ [bbbbbbbbbbbb]."}
	d := &Drafter{Generator: gen}

	draft, err := d.Draft(context.Background(), testReq(), testNode(), testRecords(), types.DraftConfig{})
	require.NoError(t, err)

	assert.Equal(t, "02-literature-review", draft.SectionID)
	assert.Equal(t, types.StateDrafted, draft.State)
	assert.Equal(t, []string{"aaaaaaaaaaaa", "bbbbbbbbbbbb"}, draft.CitedIDs)
	assert.Equal(t, 1, gen.calls)
}

func TestDraftPromptContents(t *testing.T) {
	gen := &mockGenerator{response: "text body"}
	d := &Drafter{Generator: gen}

	_, err := d.Draft(context.Background(), testReq(), testNode(), testRecords(), types.DraftConfig{})
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, "renewable energy storage")
	assert.Contains(t, p, "Literature Review")
	assert.Contains(t, p, "1800 words")
	assert.Contains(t, p, "id aaaaaaaaaaaa")
	assert.Contains(t, p, "masters-level thesis")
}

func TestDraftNoResearchAvailable(t *testing.T) {
	gen := &mockGenerator{response: "unsourced body"}
	d := &Drafter{Generator: gen}

	_, err := d.Draft(context.Background(), testReq(), testNode(), nil, types.DraftConfig{})
	require.NoError(t, err)

	assert.Contains(t, gen.prompts[0], "No research sources are available")
}

func TestDraftExcerptCap(t *testing.T) {
	var records []types.ResearchRecord
	for i := 0; i < 10; i++ {
		records = append(records, types.ResearchRecord{
			ID:      fmt.Sprintf("%012d", i),
			Title:   fmt.Sprintf("Source %d", i),
			Snippet: "snippet text long enough to matter",
		})
	}
	gen := &mockGenerator{response: "body"}
	d := &Drafter{Generator: gen}

	_, err := d.Draft(context.Background(), testReq(), testNode(), records, types.DraftConfig{MaxExcerpts: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(gen.prompts[0], "- id "))
}

func TestDraftRetriesThenSucceeds(t *testing.T) {
	gen := &mockGenerator{failN: 2, response: "finally some text"}
	d := &Drafter{Generator: gen}

	draft, err := d.Draft(context.Background(), testReq(), testNode(), nil, types.DraftConfig{AIConfig: types.AIConfig{MaxRetries: 3}})
	require.NoError(t, err)

	assert.Equal(t, types.StateDrafted, draft.State)
	assert.Equal(t, 3, gen.calls)
}

func TestDraftRetryExhaustion(t *testing.T) {
	gen := &mockGenerator{failN: 100}
	d := &Drafter{Generator: gen}

	draft, err := d.Draft(context.Background(), testReq(), testNode(), nil, types.DraftConfig{AIConfig: types.AIConfig{MaxRetries: 2}})
	require.Error(t, err)

	var dfe *types.DraftFailedError
	require.ErrorAs(t, err, &dfe)
	assert.Equal(t, "02-literature-review", dfe.SectionID)

	var ce *types.CapabilityError
	assert.ErrorAs(t, err, &ce)

	assert.Equal(t, types.StateFailed, draft.State)
	assert.Empty(t, draft.Text)
	// 1 initial + 2 retries.
	assert.Equal(t, 3, gen.calls)
}

func TestDraftEmptyTextIsFailure(t *testing.T) {
	gen := &mockGenerator{response: "   \n  "}
	d := &Drafter{Generator: gen}

	draft, err := d.Draft(context.Background(), testReq(), testNode(), nil, types.DraftConfig{})
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, draft.State)
}

func TestDraftContextCancelled(t *testing.T) {
	gen := &mockGenerator{failN: 100}
	d := &Drafter{Generator: gen}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Draft(ctx, testReq(), testNode(), nil, types.DraftConfig{})
	require.Error(t, err)
}

func TestWithinBudget(t *testing.T) {
	node := types.OutlineNode{WordBudget: 100}
	cfg := types.DraftConfig{BudgetTolerance: 0.15}

	within := types.SectionDraft{Text: strings.Repeat("word ", 100)}
	short := types.SectionDraft{Text: strings.Repeat("word ", 50)}
	long := types.SectionDraft{Text: strings.Repeat("word ", 130)}

	assert.True(t, WithinBudget(within, node, cfg))
	assert.False(t, WithinBudget(short, node, cfg))
	assert.False(t, WithinBudget(long, node, cfg))
}
