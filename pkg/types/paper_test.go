// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"
)

func TestMergeKey(t *testing.T) {
	tests := []struct {
		name  string
		paper Paper
		want  string
	}{
		{"doi wins", Paper{DOI: "10.1/x", Title: "Foo"}, "10.1/x"},
		{"title fallback", Paper{Title: "Foo Bar"}, "foo bar"},
		{"title lowercased", Paper{Title: "FOO"}, "foo"},
		{"empty", Paper{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.paper.MergeKey(); got != tt.want {
				t.Errorf("MergeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeKeepsIdentity(t *testing.T) {
	a := &Paper{ID: "2401.00001", Title: "Foo", Source: "arxiv", Tags: []string{"rl"}}
	b := &Paper{ID: "2401.00001-hf", Title: "foo", Source: "huggingface", Tags: []string{"control"}}

	m := a.Merge(b)

	if m.ID != "2401.00001" {
		t.Errorf("merged id = %q, want first-seen %q", m.ID, "2401.00001")
	}
	if m.Source != "arxiv" {
		t.Errorf("merged source = %q, want %q", m.Source, "arxiv")
	}
	want := map[string]bool{"rl": true, "control": true}
	for _, tag := range m.Tags {
		delete(want, tag)
	}
	if len(want) != 0 {
		t.Errorf("merged tags %v missing %v", m.Tags, want)
	}
}

func TestMergeNonDestructive(t *testing.T) {
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := &Paper{
		ID:      "2401.00001",
		Title:   "Foo",
		Summary: "original abstract",
		TLDR:    TLDR{Motivation: "why"},
		Tags:    []string{"rl"},
	}
	b := &Paper{
		ID:               "other",
		Title:            "Foo (v2)",
		Authors:          []string{"Alice Smith"},
		Published:        published,
		TLDR:             TLDR{Method: "how", Result: "what"},
		Category:         "RL",
		Tags:             []string{"control", "rl"},
		PDFURL:           "https://example.com/foo.pdf",
		DOI:              "10.1/foo",
		SourceCategories: []string{"cs.LG"},
	}

	m := a.Merge(b)

	// Every non-empty field of either side must be present.
	if m.Title != "Foo" {
		t.Errorf("non-empty title overwritten: %q", m.Title)
	}
	if m.Summary != "original abstract" {
		t.Errorf("summary lost: %q", m.Summary)
	}
	if len(m.Authors) != 1 || m.Authors[0] != "Alice Smith" {
		t.Errorf("authors not filled: %v", m.Authors)
	}
	if !m.Published.Equal(published) {
		t.Errorf("published not filled: %v", m.Published)
	}
	if m.TLDR.Motivation != "why" || m.TLDR.Method != "how" || m.TLDR.Result != "what" {
		t.Errorf("tldr not merged field-wise: %+v", m.TLDR)
	}
	if m.Category != "RL" || m.PDFURL == "" || m.DOI != "10.1/foo" {
		t.Errorf("scalar fields not filled: %+v", m)
	}
	if len(m.Tags) != 2 {
		t.Errorf("tags not a deduplicated union: %v", m.Tags)
	}
	if len(m.SourceCategories) != 1 {
		t.Errorf("source categories not unioned: %v", m.SourceCategories)
	}

	// Inputs must remain untouched.
	if len(a.Tags) != 1 || a.Category != "" {
		t.Errorf("Merge mutated receiver: %+v", a)
	}
}

func TestMergeCategoryFirstNonEmptyWins(t *testing.T) {
	a := &Paper{ID: "x", Title: "t", Category: "LLM"}
	b := &Paper{ID: "y", Title: "t", Category: "NLP"}

	if got := a.Merge(b).Category; got != "LLM" {
		t.Errorf("category = %q, want first non-empty %q", got, "LLM")
	}
	empty := &Paper{ID: "z", Title: "t"}
	if got := empty.Merge(b).Category; got != "NLP" {
		t.Errorf("category = %q, want filled %q", got, "NLP")
	}
}

func TestTLDRComplete(t *testing.T) {
	tests := []struct {
		name string
		tldr TLDR
		want bool
	}{
		{"all set", TLDR{Motivation: "a", Method: "b", Result: "c"}, true},
		{"remark not required", TLDR{Motivation: "a", Method: "b", Result: "c", Remark: ""}, true},
		{"missing result", TLDR{Motivation: "a", Method: "b"}, false},
		{"empty", TLDR{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tldr.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoutingCollectionsFor(t *testing.T) {
	routing := RoutingConfig{
		Collections: map[string][]string{"RL": {"COLL1"}, "LLM": {"COLL2", "COLL3"}},
		Default:     []string{"INBOX"},
	}
	tests := []struct {
		category string
		want     int
	}{
		{"RL", 1},
		{"LLM", 2},
		{"unknown", 1},
		{"", 1},
	}
	for _, tt := range tests {
		got := routing.CollectionsFor(tt.category)
		if len(got) != tt.want {
			t.Errorf("CollectionsFor(%q) = %v, want %d collections", tt.category, got, tt.want)
		}
	}
	if routing.CollectionsFor("nope")[0] != "INBOX" {
		t.Errorf("unknown category did not fall back to default")
	}
}
