// Package enrich produces LLM summaries and topic tags for papers,
// backed by a per-paper cache so repeated runs never pay for the same
// model call twice.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// ResponseFormat selects the completion output mode.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// SentinelTag is always present in an enriched paper's tag list, even
// when the model omits it or tagging fails entirely.
const SentinelTag = "/unread"

// DefaultLanguage is the target language for translated summaries.
const DefaultLanguage = "Chinese"

// Backend is the pure text-completion boundary. The enricher owns all
// prompt templates and JSON-shape validation; implementations only
// move text.
type Backend interface {
	Complete(ctx context.Context, prompt string, format ResponseFormat) (string, error)
}

// Enrichment is the structured output of one enrichment pass. All
// fields empty (except the sentinel tag) means the enrichment was
// degraded, not failed; callers proceed with what they have.
type Enrichment struct {
	TLDR         types.TLDR
	Translation  string
	ShortSummary string
	Category     string
	Tags         []string
}

// Apply copies the enrichment onto a paper. Only summary and tag
// fields are touched; identity fields are never rewritten.
func (en Enrichment) Apply(p *types.Paper) {
	if en.TLDR.Motivation != "" {
		p.TLDR.Motivation = en.TLDR.Motivation
	}
	if en.TLDR.Method != "" {
		p.TLDR.Method = en.TLDR.Method
	}
	if en.TLDR.Result != "" {
		p.TLDR.Result = en.TLDR.Result
	}
	if en.TLDR.Remark != "" {
		p.TLDR.Remark = en.TLDR.Remark
	}
	if en.Translation != "" {
		p.Translation = en.Translation
	}
	if en.ShortSummary != "" {
		p.ShortSummary = en.ShortSummary
	}
	if en.Category != "" {
		p.Category = en.Category
	}
	p.Tags = mergeTags(p.Tags, en.Tags)
}

// summaryResult is the JSON shape of the summary sub-call. Fixed named
// fields decouple the internal model from the prompt language.
type summaryResult struct {
	Motivation   string `json:"motivation"`
	Method       string `json:"method"`
	Result       string `json:"result"`
	Translation  string `json:"translation"`
	ShortSummary string `json:"short_summary"`
	Remark       string `json:"remark"`
}

// tagResult is the JSON shape of the tagging sub-call.
type tagResult struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// backoffBase controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Enricher drives the two enrichment sub-calls through the cache. It
// never returns an error: after exhausting retries a sub-call degrades
// to an explicit empty-valued result.
type Enricher struct {
	backend    Backend
	cache      *Cache
	language   string
	maxRetries int
	w          io.Writer
}

// New builds an Enricher. maxRetries <= 0 selects the default (3).
func New(backend Backend, cache *Cache, maxRetries int, w io.Writer) *Enricher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if w == nil {
		w = io.Discard
	}
	return &Enricher{
		backend:    backend,
		cache:      cache,
		language:   DefaultLanguage,
		maxRetries: maxRetries,
		w:          w,
	}
}

// Enrich produces the summary and tag results for one paper, reading
// the cache before every sub-call so partial entries only recompute
// the missing piece. Each successful sub-call is written back to the
// cache immediately.
func (e *Enricher) Enrich(ctx context.Context, paper *types.Paper) Enrichment {
	entry, err := e.cache.Load(paper.ID)
	if err != nil {
		fmt.Fprintf(e.w, "warning: cache read failed for %s: %v\n", paper.ID, err)
	}
	if entry == nil {
		entry = &Entry{ID: paper.ID, Title: paper.Title, PDFURL: paper.PDFURL}
	}

	if !entry.SummaryDone() {
		e.runSummary(ctx, paper, entry)
	}
	if !entry.TagsDone() {
		e.runTags(ctx, paper, entry)
	}

	tags := mergeTags(entry.Tags, nil)
	if len(tags) == 0 {
		tags = []string{SentinelTag}
	}

	return Enrichment{
		TLDR:         entry.TLDR,
		Translation:  entry.Translation,
		ShortSummary: entry.ShortSummary,
		Category:     entry.Category,
		Tags:         tags,
	}
}

// runSummary fills the TLDR/translation fields of entry. A cached raw
// response is reparsed before any model call is made.
func (e *Enricher) runSummary(ctx context.Context, paper *types.Paper, entry *Entry) {
	if entry.RawSummary != "" {
		var cached summaryResult
		if err := json.Unmarshal([]byte(stripFences(entry.RawSummary)), &cached); err == nil {
			e.applySummary(entry, cached, entry.RawSummary)
			return
		}
	}

	prompt, err := renderSummaryPrompt(paper.Summary, e.language)
	if err != nil {
		fmt.Fprintf(e.w, "warning: summary prompt failed for %s: %v\n", paper.ID, err)
		return
	}

	var parsed summaryResult
	raw, err := callParsed(ctx, e.backend, prompt, e.maxRetries, &parsed)
	if err != nil {
		// Degraded, not failed: the paper proceeds with empty fields.
		fmt.Fprintf(e.w, "warning: summary enrichment degraded for %s: %v\n", paper.ID, err)
		return
	}
	e.applySummary(entry, parsed, raw)
}

func (e *Enricher) applySummary(entry *Entry, parsed summaryResult, raw string) {
	entry.TLDR = types.TLDR{
		Motivation: parsed.Motivation,
		Method:     parsed.Method,
		Result:     parsed.Result,
		Remark:     parsed.Remark,
	}
	entry.Translation = parsed.Translation
	entry.ShortSummary = parsed.ShortSummary
	entry.RawSummary = raw
	if err := e.cache.Put(entry); err != nil {
		fmt.Fprintf(e.w, "%v\n", err)
	}
}

// runTags fills the category/tag fields of entry.
func (e *Enricher) runTags(ctx context.Context, paper *types.Paper, entry *Entry) {
	if entry.RawTags != "" {
		var cached tagResult
		if err := json.Unmarshal([]byte(stripFences(entry.RawTags)), &cached); err == nil && len(cached.Tags) > 0 {
			e.applyTags(entry, cached, entry.RawTags)
			return
		}
	}

	prompt, err := renderTagPrompt(paper.Summary)
	if err != nil {
		fmt.Fprintf(e.w, "warning: tag prompt failed for %s: %v\n", paper.ID, err)
		return
	}

	var parsed tagResult
	raw, err := callParsed(ctx, e.backend, prompt, e.maxRetries, &parsed)
	if err != nil {
		fmt.Fprintf(e.w, "warning: tag enrichment degraded for %s: %v\n", paper.ID, err)
		entry.Tags = mergeTags(entry.Tags, []string{SentinelTag})
		return
	}
	e.applyTags(entry, parsed, raw)
}

func (e *Enricher) applyTags(entry *Entry, parsed tagResult, raw string) {
	entry.Category = parsed.Category
	entry.Tags = mergeTags(entry.Tags, parsed.Tags)
	entry.RawTags = raw
	if err := e.cache.Put(entry); err != nil {
		fmt.Fprintf(e.w, "%v\n", err)
	}
}

// callParsed invokes the backend with retries and exponential backoff,
// requiring a well-formed JSON response. Malformed output is retried
// with the identical request; network errors likewise. After
// exhausting retries the last error is returned and the caller falls
// back to empty values.
func callParsed(ctx context.Context, backend Backend, prompt string, maxRetries int, out any) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := backend.Complete(ctx, prompt, FormatJSON)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(stripFences(raw)), out); err != nil {
			lastErr = fmt.Errorf("malformed JSON response: %w", err)
			continue
		}
		return raw, nil
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// stripFences removes a markdown code fence wrapper some models emit
// around JSON responses.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// mergeTags unions tag lists preserving order and guarantees the
// sentinel tag is present whenever the result is non-empty.
func mergeTags(existing, more []string) []string {
	seen := make(map[string]bool, len(existing)+len(more))
	out := make([]string, 0, len(existing)+len(more)+1)
	for _, list := range [][]string{existing, more} {
		for _, tag := range list {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	if len(out) > 0 && !seen[SentinelTag] {
		out = append(out, SentinelTag)
	}
	return out
}
