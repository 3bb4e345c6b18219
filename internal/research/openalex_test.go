// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleOpenAlexJSON = `{
  "results": [
    {
      "id": "https://openalex.org/W1111111111",
      "title": "Sodium-Ion Cathode Materials",
      "doi": "https://doi.org/10.1000/sodium",
      "abstract_inverted_index": {
        "Sodium": [0],
        "cathodes": [1],
        "offer": [2],
        "a": [3],
        "cheaper": [4],
        "alternative": [5]
      }
    },
    {
      "id": "https://openalex.org/W2222222222",
      "title": "No DOI Work",
      "doi": "",
      "abstract_inverted_index": {"Fallback": [0], "URL": [1]}
    },
    {
      "id": "",
      "title": "No URL At All",
      "doi": ""
    }
  ]
}`

func TestOpenAlexSearch(t *testing.T) {
	var gotSearch, gotMailto string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		gotMailto = r.URL.Query().Get("mailto")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleOpenAlexJSON))
	}))
	defer server.Close()

	oldBase := openAlexSearchBase
	openAlexSearchBase = server.URL
	defer func() { openAlexSearchBase = oldBase }()

	b := &OpenAlexBackend{Email: "research@example.org"}
	records, err := b.Search(context.Background(), "sodium batteries", testCfg())
	if err != nil {
		t.Fatal(err)
	}

	if gotSearch != "sodium batteries" {
		t.Errorf("search = %q", gotSearch)
	}
	if gotMailto != "research@example.org" {
		t.Errorf("mailto = %q", gotMailto)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (work without URL skipped), got %d", len(records))
	}
	if records[0].URL != "https://doi.org/10.1000/sodium" {
		t.Errorf("DOI URL preferred, got %q", records[0].URL)
	}
	if records[0].Snippet != "Sodium cathodes offer a cheaper alternative" {
		t.Errorf("abstract not reconstructed: %q", records[0].Snippet)
	}
	if records[1].URL != "https://openalex.org/W2222222222" {
		t.Errorf("work URL fallback, got %q", records[1].URL)
	}
}

func TestOpenAlexSearchEmptyQuery(t *testing.T) {
	b := &OpenAlexBackend{}
	if _, err := b.Search(context.Background(), "  ", testCfg()); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{
			"repeated word",
			map[string][]int{"the": {0, 4}, "cat": {1}, "sat": {2}, "on": {3}, "mat": {5}},
			"the cat sat on the mat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.index); got != tt.want {
				t.Errorf("reconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}
