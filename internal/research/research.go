// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research builds the deduplicated research corpus that grounds
// drafting. It fans each query out to the configured search backends,
// filters thin results, and collapses duplicates by normalized URL and by
// near-duplicate snippet similarity.
// Implements: prd002-research (R1-R5); docs/ARCHITECTURE § Research.
package research

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Backend searches a single source. Each backend (arXiv, OpenAlex)
// implements this interface per the Strategy pattern (R2.5). Returned
// records carry URL, Title, Snippet, Source, and Retrieved; the aggregator
// fills Query and ID.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.ResearchConfig) ([]types.ResearchRecord, error)
}

// backoffBase controls the base duration for query retry backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Aggregator builds a ResearchCorpus from search backends.
type Aggregator struct {
	Backends []Backend

	// Limiter, when set, paces calls to the search capability across all
	// queries and workers.
	Limiter *rate.Limiter
}

// Aggregate runs one query for the topic and one per focus area, and
// returns the corpus. A query that fails or stays empty after retries gets
// an empty bucket with a warning on w; that is never fatal (R4.2).
func (a *Aggregator) Aggregate(ctx context.Context, topic string, focusAreas []string, cfg types.ResearchConfig, w io.Writer) (types.ResearchCorpus, error) {
	if len(a.Backends) == 0 {
		return types.ResearchCorpus{}, fmt.Errorf("no search backends configured")
	}

	queries := append([]string{topic}, focusAreas...)
	corpus := types.ResearchCorpus{
		Topic:   topic,
		Buckets: make(map[string][]types.ResearchRecord, len(queries)),
	}

	for _, q := range queries {
		if _, done := corpus.Buckets[q]; done {
			continue
		}

		records, err := a.collectQuery(ctx, q, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return types.ResearchCorpus{}, ctx.Err()
			}
			fmt.Fprintf(w, "warning: query %q yielded no usable results: %v\n", q, err)
			corpus.Buckets[q] = nil
			continue
		}

		corpus.Buckets[q] = records
		fmt.Fprintf(w, "researched %q (%d records)\n", q, len(records))
	}

	return corpus, nil
}

// collectQuery runs one query with bounded retries. An empty result set
// counts as a failure for retry purposes (R4.1).
func (a *Aggregator) collectQuery(ctx context.Context, query string, cfg types.ResearchConfig) ([]types.ResearchRecord, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if a.Limiter != nil {
			if err := a.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		records, err := a.searchAll(ctx, query, cfg)
		if err != nil {
			lastErr = &types.CapabilityError{Capability: "search", Err: err}
			continue
		}

		records = filterAndCap(records, cfg)
		if len(records) == 0 {
			lastErr = fmt.Errorf("empty result set")
			continue
		}

		for i := range records {
			records[i].Query = query
			records[i].ID = recordID(records[i])
		}
		return records, nil
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// searchAll fans the query out to all backends concurrently and merges
// their results. A single failing backend degrades to the others; the call
// fails only when every backend errors (R2.6).
func (a *Aggregator) searchAll(ctx context.Context, query string, cfg types.ResearchConfig) ([]types.ResearchRecord, error) {
	type backendResult struct {
		records []types.ResearchRecord
		err     error
		name    string
	}

	ch := make(chan backendResult, len(a.Backends))
	var wg sync.WaitGroup

	for _, b := range a.Backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			records, err := b.Search(ctx, query, cfg)
			ch <- backendResult{records: records, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.ResearchRecord
	var errs []string
	for br := range ch {
		if br.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", br.name, br.err))
			continue
		}
		all = append(all, br.records...)
	}

	if len(all) == 0 && len(errs) > 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("all backends failed: %s", strings.Join(errs, "; "))
	}
	return all, nil
}

// filterAndCap discards thin snippets, deduplicates, and truncates to the
// result cap (R3.1-R3.3).
func filterAndCap(records []types.ResearchRecord, cfg types.ResearchConfig) []types.ResearchRecord {
	minLen := cfg.MinSnippetLen
	if minLen <= 0 {
		minLen = 40
	}

	var kept []types.ResearchRecord
	for _, r := range records {
		if utf8.RuneCountInString(strings.TrimSpace(r.Snippet)) < minLen {
			continue
		}
		kept = append(kept, r)
	}

	kept = deduplicate(kept, cfg.SimilarityThreshold)

	limit := cfg.ResultCap
	if limit <= 0 {
		limit = 10
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// deduplicate collapses records that share a normalized URL or whose
// snippets are near-duplicates above the similarity threshold (R3.2). The
// first occurrence wins; later duplicates are dropped.
func deduplicate(records []types.ResearchRecord, threshold float64) []types.ResearchRecord {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}

	seenURL := make(map[string]bool)
	var kept []types.ResearchRecord
	var keptShingles []map[string]bool

	for _, r := range records {
		key := NormalizeURL(r.URL)
		if key != "" && seenURL[key] {
			continue
		}

		shingles := snippetShingles(r.Snippet)
		dup := false
		for _, prev := range keptShingles {
			if jaccard(shingles, prev) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		if key != "" {
			seenURL[key] = true
		}
		kept = append(kept, r)
		keptShingles = append(keptShingles, shingles)
	}
	return kept
}

// NormalizeURL lowercases the host, strips the scheme, fragment, common
// tracking parameters, and any trailing slash, giving the URL half of the
// dedup key (R3.2).
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		query := s[i+1:]
		s = s[:i]
		var kept []string
		for _, part := range strings.Split(query, "&") {
			if strings.HasPrefix(part, "utm_") || strings.HasPrefix(part, "ref=") || part == "" {
				continue
			}
			kept = append(kept, part)
		}
		if len(kept) > 0 {
			s += "?" + strings.Join(kept, "&")
		}
	}
	return strings.TrimSuffix(s, "/")
}

// snippetShingles returns the set of word 3-grams in a snippet, lowercased
// and whitespace-normalized so trailing-whitespace variants collapse.
func snippetShingles(snippet string) map[string]bool {
	words := strings.Fields(strings.ToLower(snippet))
	shingles := make(map[string]bool)
	if len(words) < 3 {
		if len(words) > 0 {
			shingles[strings.Join(words, " ")] = true
		}
		return shingles
	}
	for i := 0; i+3 <= len(words); i++ {
		shingles[strings.Join(words[i:i+3], " ")] = true
	}
	return shingles
}

// jaccard computes set similarity: |A∩B| / |A∪B|.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for s := range a {
		if b[s] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// recordID derives a stable citation identifier from the normalized URL
// and title: the first 12 hex characters of their SHA-256. Identical
// search results produce the same ID across runs (R2.3).
func recordID(r types.ResearchRecord) string {
	h := sha256.New()
	h.Write([]byte(NormalizeURL(r.URL)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.TrimSpace(r.Title)))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// FormatTable writes the corpus as a human-readable table to w.
func FormatTable(corpus types.ResearchCorpus, w io.Writer) {
	queries := make([]string, 0, len(corpus.Buckets))
	for q := range corpus.Buckets {
		queries = append(queries, q)
	}
	sort.Strings(queries)

	for _, q := range queries {
		bucket := corpus.Buckets[q]
		fmt.Fprintf(w, "%s (%d records)\n", q, len(bucket))
		for _, r := range bucket {
			title := r.Title
			if len(title) > 70 {
				title = title[:67] + "..."
			}
			fmt.Fprintf(w, "  %-12s  %-70s  %s\n", r.ID, title, r.Source)
		}
	}
	fmt.Fprintf(w, "\n%d records total\n", corpus.Size())
}
