// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"strings"
	"time"
)

// TLDR is the structured short-form summary of a paper, broken into
// fixed named sections produced by the enrichment step.
type TLDR struct {
	// Motivation states why the work was done.
	Motivation string `json:"motivation" yaml:"motivation"`

	// Method describes the approach taken.
	Method string `json:"method" yaml:"method"`

	// Result summarizes the outcome.
	Result string `json:"result" yaml:"result"`

	// Remark is a short free-form label for the field of the work
	// (e.g. "LLM/RL"), at most a few words.
	Remark string `json:"remark,omitempty" yaml:"remark,omitempty"`
}

// Complete reports whether the three core sections are all populated.
// Remark is optional and does not count.
func (t TLDR) Complete() bool {
	return t.Motivation != "" && t.Method != "" && t.Result != ""
}

// fill copies non-empty sections of other into empty sections of t.
func (t *TLDR) fill(other TLDR) {
	if t.Motivation == "" {
		t.Motivation = other.Motivation
	}
	if t.Method == "" {
		t.Method = other.Method
	}
	if t.Result == "" {
		t.Result = other.Result
	}
	if t.Remark == "" {
		t.Remark = other.Remark
	}
}

// Paper is the canonical record passed between all pipeline stages.
// Two Papers are the same paper iff their IDs match; identity fields
// are never rewritten after creation. Enrichment mutates only the
// summary and tag fields.
type Paper struct {
	// ID is a stable external identifier (e.g. normalized arXiv id).
	// Non-empty, immutable once created.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Published is the publication or preprint date. Zero when unknown.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// Summary is the abstract in its original language.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Translation is the LLM-translated abstract.
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`

	// ShortSummary is a one-sentence topic summary.
	ShortSummary string `json:"short_summary,omitempty" yaml:"short_summary,omitempty"`

	// TLDR is the structured short-form summary.
	TLDR TLDR `json:"tldr,omitempty" yaml:"tldr,omitempty"`

	// Category is the primary topic category assigned by enrichment
	// (e.g. "LLM", "RL").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Tags are set-like topic labels. Order is preserved but carries
	// no meaning.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// PDFURL is the PDF download link.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// AbstractURL is the abstract page link.
	AbstractURL string `json:"abstract_url,omitempty" yaml:"abstract_url,omitempty"`

	// DOI when known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// JournalRef is the journal reference when known.
	JournalRef string `json:"journal_ref,omitempty" yaml:"journal_ref,omitempty"`

	// SourceCategories are the category codes reported by the source
	// feed (e.g. arXiv "cs.LG").
	SourceCategories []string `json:"source_categories,omitempty" yaml:"source_categories,omitempty"`

	// MediaType and MediaURL describe an optional media attachment
	// ("image" or "video") carried from the trending-papers page.
	MediaType string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	MediaURL  string `json:"media_url,omitempty" yaml:"media_url,omitempty"`

	// Source identifies which adapter produced the record
	// (e.g. "arxiv", "huggingface").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Raw is the source payload as received, kept for inspection.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// FirstAuthor returns the first author name, or "" if none.
func (p *Paper) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0]
}

// AuthorString returns the authors joined with commas.
func (p *Paper) AuthorString() string {
	return strings.Join(p.Authors, ", ")
}

// MergeKey returns the key used for cross-source deduplication:
// the DOI when present, otherwise the lower-cased title.
func (p *Paper) MergeKey() string {
	if p.DOI != "" {
		return p.DOI
	}
	return strings.ToLower(p.Title)
}

// Merge combines other into a copy of p and returns the copy. The
// merge is non-destructive: no non-empty field from either side is
// lost. Identity (ID, Source) is always taken from p, the first-seen
// instance. Empty scalar fields are filled from other; list fields are
// unioned with p's elements first; TLDR sections are filled per field.
func (p *Paper) Merge(other *Paper) *Paper {
	m := *p

	if m.Title == "" {
		m.Title = other.Title
	}
	if len(m.Authors) == 0 {
		m.Authors = other.Authors
	}
	if m.Published.IsZero() {
		m.Published = other.Published
	}
	if m.Summary == "" {
		m.Summary = other.Summary
	}
	if m.Translation == "" {
		m.Translation = other.Translation
	}
	if m.ShortSummary == "" {
		m.ShortSummary = other.ShortSummary
	}
	m.TLDR.fill(other.TLDR)
	if m.Category == "" {
		m.Category = other.Category
	}
	m.Tags = unionStrings(m.Tags, other.Tags)
	if m.PDFURL == "" {
		m.PDFURL = other.PDFURL
	}
	if m.AbstractURL == "" {
		m.AbstractURL = other.AbstractURL
	}
	if m.DOI == "" {
		m.DOI = other.DOI
	}
	if m.JournalRef == "" {
		m.JournalRef = other.JournalRef
	}
	m.SourceCategories = unionStrings(m.SourceCategories, other.SourceCategories)
	if m.MediaType == "" {
		m.MediaType = other.MediaType
	}
	if m.MediaURL == "" {
		m.MediaURL = other.MediaURL
	}
	if len(m.Raw) == 0 {
		m.Raw = other.Raw
	}

	return &m
}

// unionStrings returns a ∪ b preserving first-seen order.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
