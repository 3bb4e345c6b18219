// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ResearchRecord is one deduplicated search result. Records are created by
// the research aggregator and referenced read-only by every later stage.
// Per prd002-research R2.1-R2.4.
type ResearchRecord struct {
	// ID is a stable 12-hex-character identifier derived from the
	// normalized URL and title, used as the inline citation key.
	ID string `json:"id" yaml:"id"`

	// Query is the research query whose bucket holds this record.
	Query string `json:"query" yaml:"query"`

	// URL is the source location as returned by the search backend.
	URL string `json:"url" yaml:"url"`

	// Title is the source title.
	Title string `json:"title" yaml:"title"`

	// Snippet is the abstract or excerpt used as drafting context.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Source names the backend that produced the record (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`

	// Retrieved is the retrieval timestamp.
	Retrieved time.Time `json:"retrieved" yaml:"retrieved"`
}

// ResearchCorpus maps each research query to its deduplicated records.
// Built once before drafting starts and read-only afterwards. An empty
// bucket means the query failed or returned nothing usable; downstream
// stages must tolerate that.
type ResearchCorpus struct {
	// Topic is the request topic, which is also the corpus's primary
	// bucket key.
	Topic string `json:"topic" yaml:"topic"`

	// Buckets maps query → deduplicated records. No two records in the
	// same bucket share a dedup key (prd002-research R3.1).
	Buckets map[string][]ResearchRecord `json:"buckets" yaml:"buckets"`
}

// Record resolves a record ID anywhere in the corpus. The second return
// is false when the ID is unknown.
func (c ResearchCorpus) Record(id string) (ResearchRecord, bool) {
	for _, bucket := range c.Buckets {
		for _, r := range bucket {
			if r.ID == id {
				return r, true
			}
		}
	}
	return ResearchRecord{}, false
}

// Bucket returns the records for a query, or nil for an unknown or empty
// bucket.
func (c ResearchCorpus) Bucket(query string) []ResearchRecord {
	return c.Buckets[query]
}

// Size returns the total record count across all buckets.
func (c ResearchCorpus) Size() int {
	n := 0
	for _, bucket := range c.Buckets {
		n += len(bucket)
	}
	return n
}

// Snippets returns every snippet in the corpus, used by the refiner's
// originality check.
func (c ResearchCorpus) Snippets() []string {
	var out []string
	for _, bucket := range c.Buckets {
		for _, r := range bucket {
			if r.Snippet != "" {
				out = append(out, r.Snippet)
			}
		}
	}
	return out
}
