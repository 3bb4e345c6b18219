// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a document generation run: outline
// planning, research aggregation, concurrent per-section drafting and
// refinement, citation resolution, and assembly.
// Implements: prd001-pipeline (R1-R4); docs/ARCHITECTURE § Orchestration.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/thesis-engine/internal/assemble"
	"github.com/pdiddy/thesis-engine/internal/citations"
	"github.com/pdiddy/thesis-engine/internal/drafter"
	"github.com/pdiddy/thesis-engine/internal/outline"
	"github.com/pdiddy/thesis-engine/internal/refine"
	"github.com/pdiddy/thesis-engine/internal/research"
	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Auditor persists a finished run. The audit store implements it; a nil
// Auditor disables persistence, and the pipeline core never depends on it.
type Auditor interface {
	SaveRun(ctx context.Context, corpus types.ResearchCorpus, doc types.Document) (int64, error)
}

// Engine wires the pipeline's external capabilities. Construct one per
// process; Generate is safe for concurrent use because all run state is
// local to the call.
type Engine struct {
	// Backends are the research search capabilities.
	Backends []research.Backend

	// Generator is the text-generation capability, shared by the drafter
	// and the refiner's rewrite step.
	Generator drafter.Generator

	// Auditor, when set, records each successful run.
	Auditor Auditor
}

// New builds an Engine from a pipeline configuration: arXiv and OpenAlex
// backends per the research flags, and an OpenAI-compatible generator from
// the draft AI settings.
func New(cfg types.PipelineConfig) (*Engine, error) {
	var backends []research.Backend
	if cfg.Research.EnableArxiv {
		backends = append(backends, &research.ArxivBackend{})
	}
	if cfg.Research.EnableOpenAlex {
		backends = append(backends, &research.OpenAlexBackend{Email: cfg.Research.OpenAlexEmail})
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no search backends enabled")
	}

	gen, err := drafter.NewOpenAIGenerator(cfg.Draft.AIConfig)
	if err != nil {
		return nil, fmt.Errorf("configuring generator: %w", err)
	}
	return &Engine{Backends: backends, Generator: gen}, nil
}

// Generate runs the full pipeline for one request and returns the
// assembled document. Section tasks run concurrently, bounded by
// cfg.Workers; the first DraftFailedError cancels the remaining tasks and
// no document is returned (R4.1). Progress and warnings go to w.
func (e *Engine) Generate(ctx context.Context, req types.GenerationRequest, cfg types.PipelineConfig, w io.Writer) (types.Document, error) {
	if err := req.Validate(); err != nil {
		return types.Document{}, err
	}
	out, err := outline.Plan(req, cfg.Outline)
	if err != nil {
		return types.Document{}, err
	}

	// Section workers share the writer, so serialize it once here.
	sw := &syncWriter{w: w}
	fmt.Fprintf(sw, "planned %d sections for %d words\n", len(out.Nodes), out.TotalBudget())

	agg := &research.Aggregator{
		Backends: e.Backends,
		Limiter:  limiter(cfg.Research.RatePerSecond),
	}
	corpus, err := agg.Aggregate(ctx, req.Topic, req.FocusAreas, cfg.Research, sw)
	if err != nil {
		return types.Document{}, err
	}

	genLimiter := limiter(cfg.Draft.RatePerSecond)
	d := &drafter.Drafter{Generator: e.Generator, Limiter: genLimiter}
	r := &refine.Refiner{
		Rewriter:          e.Generator,
		Scorer:            refine.NewTextScorer(req.AcademicLevel, corpus.Snippets(), cfg.Refine),
		Limiter:           genLimiter,
		MaxRewriteRetries: cfg.Draft.MaxRetries,
	}
	records := sectionRecords(corpus, req)

	// One slot per outline position; each task writes only its own.
	results := make([]types.SectionDraft, len(out.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 3
	}
	g.SetLimit(workers)

	for _, node := range out.Nodes {
		if node.Role == types.RoleReferences {
			continue
		}
		g.Go(func() error {
			draft, err := d.Draft(gctx, req, node, records, cfg.Draft)
			if err != nil {
				return err
			}
			if !drafter.WithinBudget(draft, node, cfg.Draft) {
				fmt.Fprintf(sw, "warning: section %s drafted %d words against a budget of %d\n",
					node.ID, draft.WordCount(), node.WordBudget)
			}

			refined, err := r.Refine(gctx, draft, req.AcademicLevel, cfg.Refine, sw)
			if err != nil {
				return err
			}
			fmt.Fprintf(sw, "section %s %s (score %.2f after %d attempts)\n",
				node.ID, refined.State, refined.Score, refined.Attempts)
			results[node.Position] = refined
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Document{}, err
	}

	drafts := make([]types.SectionDraft, 0, len(results))
	for _, d := range results {
		if d.SectionID != "" {
			drafts = append(drafts, d)
		}
	}
	drafts, entries := citations.Resolve(drafts, corpus, req.CitationStyleOrDefault())

	doc, err := assemble.Assemble(req, out, drafts, entries, cfg.Assembly, sw)
	if err != nil {
		return types.Document{}, err
	}

	if e.Auditor != nil {
		if runID, err := e.Auditor.SaveRun(ctx, corpus, doc); err != nil {
			fmt.Fprintf(sw, "warning: audit record not saved: %v\n", err)
		} else {
			fmt.Fprintf(sw, "saved audit record for run %d\n", runID)
		}
	}
	return doc, nil
}

// sectionRecords flattens the corpus into one stable slice for drafting:
// the topic bucket first, then focus buckets in request order. Every
// section draws on the same pool; the drafter's excerpt cap keeps prompts
// bounded.
func sectionRecords(corpus types.ResearchCorpus, req types.GenerationRequest) []types.ResearchRecord {
	records := append([]types.ResearchRecord(nil), corpus.Bucket(req.Topic)...)
	for _, focus := range req.FocusAreas {
		if focus == req.Topic {
			continue
		}
		records = append(records, corpus.Bucket(focus)...)
	}
	return records
}

func limiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// syncWriter serializes progress writes from concurrent section tasks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
