// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	name    string
	records []types.ResearchRecord
	err     error

	mu    sync.Mutex
	calls int
	failN int // fail the first N calls, then succeed
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Search(_ context.Context, _ string, _ types.ResearchConfig) ([]types.ResearchRecord, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if calls <= m.failN {
		return nil, fmt.Errorf("transient failure %d", calls)
	}
	return m.records, nil
}

func testCfg() types.ResearchConfig {
	return types.ResearchConfig{
		HTTPConfig:          types.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "test/0.1"},
		ResultCap:           10,
		MinSnippetLen:       40,
		SimilarityThreshold: 0.85,
		MaxRetries:          1,
	}
}

func record(url, title, snippet string) types.ResearchRecord {
	return types.ResearchRecord{URL: url, Title: title, Snippet: snippet}
}

const longSnippetA = "Grid-scale battery installations doubled last year as falling cell prices reshaped utility procurement strategies worldwide."
const longSnippetB = "Hydrogen electrolysis capacity remains concentrated in pilot projects, with commercial deployments limited by electricity costs."

func fastBackoff(t *testing.T) {
	t.Helper()
	old := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = old })
}

// --- NormalizeURL ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips scheme", "https://example.org/paper", "example.org/paper"},
		{"strips www", "http://www.example.org/paper", "example.org/paper"},
		{"strips trailing slash", "https://example.org/paper/", "example.org/paper"},
		{"strips fragment", "https://example.org/paper#abstract", "example.org/paper"},
		{"strips utm params", "https://example.org/paper?utm_source=feed&utm_medium=rss", "example.org/paper"},
		{"keeps meaningful params", "https://example.org/paper?id=42&utm_source=feed", "example.org/paper?id=42"},
		{"lowercases", "HTTPS://Example.ORG/Paper", "example.org/paper"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.raw); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// --- deduplicate ---

func TestDeduplicateByNormalizedURL(t *testing.T) {
	records := []types.ResearchRecord{
		record("https://example.org/paper", "Paper", longSnippetA),
		record("http://www.example.org/paper/", "Paper", longSnippetB),
	}

	kept := deduplicate(records, 0.85)
	if len(kept) != 1 {
		t.Fatalf("expected 1 record after URL dedup, got %d", len(kept))
	}
	if kept[0].URL != "https://example.org/paper" {
		t.Errorf("first occurrence should win, got %q", kept[0].URL)
	}
}

func TestDeduplicateWhitespaceVariantSnippets(t *testing.T) {
	records := []types.ResearchRecord{
		record("https://a.example.org/1", "One", longSnippetA),
		record("https://b.example.org/2", "Two", longSnippetA+"   \n"),
	}

	kept := deduplicate(records, 0.85)
	if len(kept) != 1 {
		t.Fatalf("trailing-whitespace variants must collapse, got %d records", len(kept))
	}
}

func TestDeduplicateKeepsDistinctSnippets(t *testing.T) {
	records := []types.ResearchRecord{
		record("https://a.example.org/1", "One", longSnippetA),
		record("https://b.example.org/2", "Two", longSnippetB),
	}

	kept := deduplicate(records, 0.85)
	if len(kept) != 2 {
		t.Fatalf("distinct snippets must both survive, got %d records", len(kept))
	}
}

// The bucket invariant: no two kept records share a dedup key, whatever
// duplicates the backends return.
func TestDeduplicateInvariant(t *testing.T) {
	var records []types.ResearchRecord
	for i := 0; i < 20; i++ {
		records = append(records, record(
			fmt.Sprintf("https://example.org/paper-%d", i%5),
			fmt.Sprintf("Paper %d", i%5),
			fmt.Sprintf("Snippet body %d with enough words to pass the minimum content length filter easily.", i%5),
		))
	}

	kept := deduplicate(records, 0.85)
	seen := make(map[string]bool)
	for _, r := range kept {
		key := NormalizeURL(r.URL)
		if seen[key] {
			t.Fatalf("duplicate dedup key %q survived", key)
		}
		seen[key] = true
	}
	if len(kept) != 5 {
		t.Errorf("expected 5 unique records, got %d", len(kept))
	}
}

// --- filterAndCap ---

func TestFilterAndCapDropsThinSnippets(t *testing.T) {
	records := []types.ResearchRecord{
		record("https://a.example.org/1", "One", "too short"),
		record("https://b.example.org/2", "Two", longSnippetA),
	}

	kept := filterAndCap(records, testCfg())
	if len(kept) != 1 || kept[0].Title != "Two" {
		t.Fatalf("expected only the long-snippet record, got %+v", kept)
	}
}

func TestFilterAndCapHonorsResultCap(t *testing.T) {
	cfg := testCfg()
	cfg.ResultCap = 3
	var records []types.ResearchRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(
			fmt.Sprintf("https://example.org/%d", i),
			fmt.Sprintf("Paper %d", i),
			fmt.Sprintf("A sufficiently long snippet about topic number %d to clear the content filter.", i),
		))
	}

	kept := filterAndCap(records, cfg)
	if len(kept) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(kept))
	}
}

// --- recordID ---

func TestRecordIDStable(t *testing.T) {
	a := record("https://example.org/paper", "Paper", longSnippetA)
	b := record("http://www.example.org/paper/", "Paper", longSnippetB)

	if recordID(a) != recordID(b) {
		t.Error("records with the same normalized URL and title must share an ID")
	}
	if len(recordID(a)) != 12 {
		t.Errorf("ID length = %d, want 12", len(recordID(a)))
	}

	c := record("https://example.org/other", "Paper", longSnippetA)
	if recordID(a) == recordID(c) {
		t.Error("different URLs must yield different IDs")
	}
}

// --- searchAll ---

func TestSearchAllMergesBackends(t *testing.T) {
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "alpha", records: []types.ResearchRecord{record("https://a.example.org/1", "One", longSnippetA)}},
		&mockBackend{name: "beta", records: []types.ResearchRecord{record("https://b.example.org/2", "Two", longSnippetB)}},
	}}

	records, err := a.searchAll(context.Background(), "storage", testCfg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected merged results from both backends, got %d", len(records))
	}
}

func TestSearchAllDegradesToWorkingBackend(t *testing.T) {
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "broken", err: fmt.Errorf("boom")},
		&mockBackend{name: "ok", records: []types.ResearchRecord{record("https://b.example.org/2", "Two", longSnippetB)}},
	}}

	records, err := a.searchAll(context.Background(), "storage", testCfg())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected results from the working backend, got %d", len(records))
	}
}

func TestSearchAllFailsWhenAllBackendsFail(t *testing.T) {
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "one", err: fmt.Errorf("boom")},
		&mockBackend{name: "two", err: fmt.Errorf("bang")},
	}}

	if _, err := a.searchAll(context.Background(), "storage", testCfg()); err == nil {
		t.Fatal("expected an error when every backend fails")
	}
}

// --- Aggregate ---

func TestAggregateBucketsPerQuery(t *testing.T) {
	var buf bytes.Buffer
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "ok", records: []types.ResearchRecord{record("https://a.example.org/1", "One", longSnippetA)}},
	}}

	corpus, err := a.Aggregate(context.Background(), "energy storage", []string{"battery chemistry", "grid integration"}, testCfg(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus.Buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(corpus.Buckets))
	}
	for _, q := range []string{"energy storage", "battery chemistry", "grid integration"} {
		bucket := corpus.Bucket(q)
		if len(bucket) != 1 {
			t.Errorf("bucket %q has %d records, want 1", q, len(bucket))
			continue
		}
		if bucket[0].Query != q {
			t.Errorf("record query = %q, want %q", bucket[0].Query, q)
		}
		if bucket[0].ID == "" {
			t.Errorf("record in %q has no ID", q)
		}
	}
}

func TestAggregateFocusEqualToTopicCollapses(t *testing.T) {
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "ok", records: []types.ResearchRecord{record("https://a.example.org/1", "One", longSnippetA)}},
	}}

	corpus, err := a.Aggregate(context.Background(), "energy storage", []string{"energy storage"}, testCfg(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus.Buckets) != 1 {
		t.Fatalf("duplicate query must not create a second bucket, got %d", len(corpus.Buckets))
	}
}

func TestAggregateEmptyBucketOnPersistentFailure(t *testing.T) {
	fastBackoff(t)
	var buf bytes.Buffer
	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "broken", err: fmt.Errorf("boom")},
	}}

	corpus, err := a.Aggregate(context.Background(), "energy storage", nil, testCfg(), &buf)
	if err != nil {
		t.Fatal("a failing query must not be fatal:", err)
	}

	bucket, ok := corpus.Buckets["energy storage"]
	if !ok {
		t.Fatal("failed query must still have a bucket recorded")
	}
	if len(bucket) != 0 {
		t.Fatalf("expected an empty bucket, got %d records", len(bucket))
	}
	if !strings.Contains(buf.String(), "warning:") {
		t.Errorf("expected a warning on the progress writer, got %q", buf.String())
	}
}

func TestAggregateRetriesThenSucceeds(t *testing.T) {
	fastBackoff(t)
	backend := &mockBackend{
		name:    "flaky",
		failN:   1,
		records: []types.ResearchRecord{record("https://a.example.org/1", "One", longSnippetA)},
	}
	a := &Aggregator{Backends: []Backend{backend}}

	corpus, err := a.Aggregate(context.Background(), "energy storage", nil, testCfg(), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus.Bucket("energy storage")) != 1 {
		t.Fatal("expected the retried query to succeed")
	}
	if backend.calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", backend.calls)
	}
}

func TestAggregateNoBackends(t *testing.T) {
	a := &Aggregator{}
	if _, err := a.Aggregate(context.Background(), "x", nil, testCfg(), &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error with no backends configured")
	}
}

func TestAggregateCancellation(t *testing.T) {
	fastBackoff(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Aggregator{Backends: []Backend{
		&mockBackend{name: "broken", err: fmt.Errorf("boom")},
	}}
	if _, err := a.Aggregate(ctx, "energy storage", nil, testCfg(), &bytes.Buffer{}); err == nil {
		t.Fatal("expected cancellation to surface as an error")
	}
}

// --- jaccard ---

func TestJaccard(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}
	if got := jaccard(a, b); got < 0.33 || got > 0.34 {
		t.Errorf("jaccard = %f, want 1/3", got)
	}
	if jaccard(nil, b) != 0 {
		t.Error("empty set similarity must be 0")
	}
	if jaccard(a, a) != 1 {
		t.Error("identical sets must score 1")
	}
}
