// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleArxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Flow Battery
  Electrolyte Stability</title>
    <summary>We study the long-term stability of vanadium
  electrolytes under thermal cycling and report degradation rates.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00002v1</id>
    <title>Grid Storage Dispatch</title>
    <summary>A dispatch model for co-located storage and solar generation.</summary>
  </entry>
  <entry>
    <id></id>
    <title>No identifier</title>
    <summary>This entry has no id and must be skipped.</summary>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleArxivAtom))
	}))
	defer server.Close()

	oldBase := arxivAPIBase
	arxivAPIBase = server.URL
	defer func() { arxivAPIBase = oldBase }()

	b := &ArxivBackend{}
	records, err := b.Search(context.Background(), "flow battery stability", testCfg())
	if err != nil {
		t.Fatal(err)
	}

	if gotQuery != "all:flow+battery+stability" {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (entry without id skipped), got %d", len(records))
	}
	if records[0].Title != "Flow Battery Electrolyte Stability" {
		t.Errorf("line breaks not collapsed in title: %q", records[0].Title)
	}
	if strings.Contains(records[0].Snippet, "\n") {
		t.Errorf("line breaks not collapsed in snippet: %q", records[0].Snippet)
	}
	if records[0].Source != "arxiv" {
		t.Errorf("source = %q", records[0].Source)
	}
	if records[0].Retrieved.IsZero() {
		t.Error("retrieved timestamp not set")
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	oldBase := arxivAPIBase
	arxivAPIBase = server.URL
	defer func() { arxivAPIBase = oldBase }()

	b := &ArxivBackend{}
	if _, err := b.Search(context.Background(), "anything", testCfg()); err == nil {
		t.Fatal("expected an error for HTTP 404")
	}
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	b := &ArxivBackend{}
	if _, err := b.Search(context.Background(), "   ", testCfg()); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  a\n  b\tc  ")
	if got != "a b c" {
		t.Errorf("collapseWhitespace = %q", got)
	}
}
