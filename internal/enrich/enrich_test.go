// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/pdiddy/paperdaily/pkg/types"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// scriptedBackend returns canned responses in order and counts calls.
type scriptedBackend struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (b *scriptedBackend) Complete(_ context.Context, prompt string, _ ResponseFormat) (string, error) {
	i := b.calls
	b.calls++
	b.prompts = append(b.prompts, prompt)
	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	if i < len(b.responses) {
		return b.responses[i], nil
	}
	return b.responses[len(b.responses)-1], nil
}

const summaryJSON = `{"motivation":"slow training","method":"sparse updates","result":"2x speedup","translation":"翻译","short_summary":"faster training","remark":"solid"}`
const tagJSON = `{"category":"Machine Learning","tags":["optimization","sparsity"]}`

func newTestEnricher(t *testing.T, backend Backend) (*Enricher, *Cache) {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(backend, cache, 2, io.Discard), cache
}

func samplePaper() *types.Paper {
	return &types.Paper{
		ID:      "2401.00001",
		Title:   "Sparse Updates",
		Summary: "We train faster with sparse updates.",
		PDFURL:  "https://arxiv.org/pdf/2401.00001",
	}
}

func TestEnrichFreshPaperMakesTwoCalls(t *testing.T) {
	backend := &scriptedBackend{responses: []string{summaryJSON, tagJSON}}
	enricher, _ := newTestEnricher(t, backend)

	en := enricher.Enrich(context.Background(), samplePaper())

	if backend.calls != 2 {
		t.Fatalf("calls = %d, want 2", backend.calls)
	}
	if en.TLDR.Motivation != "slow training" || en.TLDR.Remark != "solid" {
		t.Errorf("TLDR = %+v", en.TLDR)
	}
	if en.Translation != "翻译" || en.ShortSummary != "faster training" {
		t.Errorf("translation = %q, short = %q", en.Translation, en.ShortSummary)
	}
	if en.Category != "Machine Learning" {
		t.Errorf("category = %q", en.Category)
	}
	want := []string{"optimization", "sparsity", SentinelTag}
	if len(en.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", en.Tags, want)
	}
	for i := range want {
		if en.Tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, en.Tags[i], want[i])
		}
	}
}

func TestEnrichFullyCachedMakesNoCalls(t *testing.T) {
	backend := &scriptedBackend{responses: []string{summaryJSON, tagJSON}}
	enricher, _ := newTestEnricher(t, backend)

	paper := samplePaper()
	enricher.Enrich(context.Background(), paper)
	backend.calls = 0

	en := enricher.Enrich(context.Background(), paper)
	if backend.calls != 0 {
		t.Fatalf("calls after warm cache = %d, want 0", backend.calls)
	}
	if en.TLDR.Method != "sparse updates" {
		t.Errorf("TLDR.Method = %q", en.TLDR.Method)
	}
}

func TestEnrichPartialCacheOnlyRecomputesMissingPiece(t *testing.T) {
	backend := &scriptedBackend{responses: []string{tagJSON}}
	enricher, cache := newTestEnricher(t, backend)

	paper := samplePaper()
	err := cache.Put(&Entry{
		ID:    paper.ID,
		Title: paper.Title,
		TLDR: types.TLDR{
			Motivation: "slow training",
			Method:     "sparse updates",
			Result:     "2x speedup",
			Remark:     "solid",
		},
		Translation:  "翻译",
		ShortSummary: "faster training",
	})
	if err != nil {
		t.Fatal(err)
	}

	en := enricher.Enrich(context.Background(), paper)

	if backend.calls != 1 {
		t.Fatalf("calls = %d, want 1 (tags only)", backend.calls)
	}
	if en.Category != "Machine Learning" {
		t.Errorf("category = %q", en.Category)
	}
	if en.TLDR.Motivation != "slow training" {
		t.Errorf("cached TLDR lost: %+v", en.TLDR)
	}
}

func TestEnrichCachedRawResponseReparsedWithoutCall(t *testing.T) {
	backend := &scriptedBackend{responses: []string{tagJSON}}
	enricher, cache := newTestEnricher(t, backend)

	paper := samplePaper()
	// Raw response cached but parsed fields lost. Reparsing must not
	// cost a model call.
	if err := cache.Put(&Entry{ID: paper.ID, RawSummary: summaryJSON}); err != nil {
		t.Fatal(err)
	}

	en := enricher.Enrich(context.Background(), paper)

	if backend.calls != 1 {
		t.Fatalf("calls = %d, want 1 (tags only)", backend.calls)
	}
	if en.TLDR.Result != "2x speedup" {
		t.Errorf("reparsed TLDR = %+v", en.TLDR)
	}
}

func TestEnrichMalformedJSONExhaustsToEmptyFallback(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"not json at all"}}
	enricher, _ := newTestEnricher(t, backend)

	en := enricher.Enrich(context.Background(), samplePaper())

	// Both sub-calls retry to exhaustion: (maxRetries+1) attempts each.
	if backend.calls != 6 {
		t.Fatalf("calls = %d, want 6", backend.calls)
	}
	if en.TLDR != (types.TLDR{}) {
		t.Errorf("TLDR = %+v, want empty", en.TLDR)
	}
	if en.Category != "" {
		t.Errorf("category = %q, want empty", en.Category)
	}
	if len(en.Tags) != 1 || en.Tags[0] != SentinelTag {
		t.Errorf("tags = %v, want [%s]", en.Tags, SentinelTag)
	}
}

func TestEnrichRetriesThenSucceeds(t *testing.T) {
	backend := &scriptedBackend{
		responses: []string{"garbage", summaryJSON, tagJSON},
	}
	enricher, _ := newTestEnricher(t, backend)

	en := enricher.Enrich(context.Background(), samplePaper())

	if backend.calls != 3 {
		t.Fatalf("calls = %d, want 3", backend.calls)
	}
	if en.TLDR.Motivation != "slow training" {
		t.Errorf("TLDR = %+v", en.TLDR)
	}
}

func TestEnrichFencedJSONAccepted(t *testing.T) {
	fenced := "```json\n" + summaryJSON + "\n```"
	backend := &scriptedBackend{responses: []string{fenced, tagJSON}}
	enricher, _ := newTestEnricher(t, backend)

	en := enricher.Enrich(context.Background(), samplePaper())

	if backend.calls != 2 {
		t.Fatalf("calls = %d, want 2", backend.calls)
	}
	if en.ShortSummary != "faster training" {
		t.Errorf("short summary = %q", en.ShortSummary)
	}
}

func TestEnrichContextCancelledDuringBackoff(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"garbage"}}
	enricher, _ := newTestEnricher(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	en := enricher.Enrich(ctx, samplePaper())

	// One attempt per sub-call, then the backoff select observes the
	// cancelled context.
	if backend.calls != 2 {
		t.Fatalf("calls = %d, want 2", backend.calls)
	}
	if len(en.Tags) != 1 || en.Tags[0] != SentinelTag {
		t.Errorf("tags = %v, want [%s]", en.Tags, SentinelTag)
	}
}

func TestApplyNeverRewritesIdentity(t *testing.T) {
	paper := samplePaper()
	paper.Tags = []string{"existing"}
	en := Enrichment{
		TLDR:     types.TLDR{Motivation: "m", Method: "me", Result: "r", Remark: "re"},
		Category: "Robotics",
		Tags:     []string{"control"},
	}

	en.Apply(paper)

	if paper.ID != "2401.00001" || paper.Title != "Sparse Updates" {
		t.Errorf("identity changed: %q %q", paper.ID, paper.Title)
	}
	if paper.Category != "Robotics" {
		t.Errorf("category = %q", paper.Category)
	}
	want := []string{"existing", "control", SentinelTag}
	if len(paper.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", paper.Tags, want)
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		more     []string
		want     []string
	}{
		{"both empty", nil, nil, nil},
		{"sentinel appended", []string{"a"}, []string{"b"}, []string{"a", "b", SentinelTag}},
		{"sentinel not duplicated", []string{SentinelTag}, []string{"a"}, []string{SentinelTag, "a"}},
		{"duplicates collapsed", []string{"a", "a"}, []string{"a"}, []string{"a", SentinelTag}},
		{"empties dropped", []string{""}, []string{"a", ""}, []string{"a", SentinelTag}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeTags(tt.existing, tt.more)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
