// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives papers from sources through enrichment into
// sinks. One sequential loop owns all checkpoint and cache writes;
// only PDF downloads fan out to workers.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/pdiddy/paperdaily/internal/checkpoint"
	"github.com/pdiddy/paperdaily/internal/enrich"
	"github.com/pdiddy/paperdaily/internal/sink"
	"github.com/pdiddy/paperdaily/internal/source"
	"github.com/pdiddy/paperdaily/pkg/types"
)

// backoffBase controls the base duration for fetch retry backoff.
// Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Options tunes one ProcessBatch call.
type Options struct {
	Filters source.Filters

	// Bucket names the checkpoint ledger partition. Empty selects the
	// source name.
	Bucket string

	Enrich      bool
	DownloadPDF bool
}

// Processor wires sources, sinks, enrichment and checkpoints together.
type Processor struct {
	sources      source.Registry
	sinks        []sink.Sink
	enricher     *enrich.Enricher
	checkpoints  *checkpoint.Store
	routing      types.RoutingConfig
	client       *http.Client
	maxRetries   int
	pdfDir       string
	parallel     int
	skipExisting bool
	w            io.Writer
}

// Config collects the processor's collaborators. Enricher may be nil
// (enrichment requests are then ignored); Sinks may be empty only for
// search-and-display use.
type Config struct {
	Sources     source.Registry
	Sinks       []sink.Sink
	Enricher    *enrich.Enricher
	Checkpoints *checkpoint.Store
	Routing     types.RoutingConfig
	Client      *http.Client
	Process     types.ProcessConfig
	Progress    io.Writer
}

// New builds a Processor.
func New(cfg Config) *Processor {
	maxRetries := cfg.Process.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	parallel := cfg.Process.ParallelDownloads
	if parallel <= 0 {
		parallel = 4
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	w := cfg.Progress
	if w == nil {
		w = io.Discard
	}
	return &Processor{
		sources:      cfg.Sources,
		sinks:        sink.Enabled(cfg.Sinks),
		enricher:     cfg.Enricher,
		checkpoints:  cfg.Checkpoints,
		routing:      cfg.Routing,
		client:       client,
		maxRetries:   maxRetries,
		pdfDir:       cfg.Process.PDFDir,
		parallel:     parallel,
		skipExisting: cfg.Process.SkipExisting,
		w:            w,
	}
}

// ProcessBatch fetches papers from one source and runs each through
// enrichment, optional PDF download and the sink fan-out. Per-paper
// failures are recorded and skipped over; only an unknown source name
// or a fetch failure after retries aborts the batch.
func (p *Processor) ProcessBatch(ctx context.Context, sourceName string, opts Options) (*types.Result, error) {
	src, err := p.sources.Get(sourceName)
	if err != nil {
		return nil, err
	}

	result := &types.Result{}

	papers, err := p.fetchWithRetry(ctx, src, opts.Filters)
	if err != nil {
		result.Errors = append(result.Errors, types.ProcessError{Stage: "fetch", Err: err})
		return result, fmt.Errorf("fetching from %s: %w", sourceName, err)
	}
	result.Stats.Fetched = len(papers)
	fmt.Fprintf(p.w, "fetched %d papers from %s\n", len(papers), sourceName)

	bucket := opts.Bucket
	if bucket == "" {
		bucket = sourceName
	}
	done, err := p.checkpoints.Load(bucket)
	if err != nil {
		fmt.Fprintf(p.w, "warning: checkpoint load failed for %s: %v\n", bucket, err)
		done = map[string]struct{}{}
	}

	for i := range papers {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		paper := &papers[i]

		if _, ok := done[paper.ID]; ok {
			fmt.Fprintf(p.w, "skipped %s (checkpointed)\n", paper.ID)
			result.Stats.Skipped++
			continue
		}

		p.processOne(ctx, paper, bucket, opts, result)
		result.Papers = append(result.Papers, *paper)
	}

	fmt.Fprintf(p.w, "\nfetched: %d, enhanced: %d, saved: %d, failed: %d, skipped: %d\n",
		result.Stats.Fetched, result.Stats.Enhanced, result.Stats.Saved,
		result.Stats.Failed, result.Stats.Skipped)
	return result, nil
}

// processOne runs enrichment, download and the sink fan-out for a
// single paper, updating counters in place.
func (p *Processor) processOne(ctx context.Context, paper *types.Paper, bucket string, opts Options, result *types.Result) {
	if opts.Enrich && p.enricher != nil {
		en := p.enricher.Enrich(ctx, paper)
		en.Apply(paper)
		result.Stats.Enhanced++
	}

	if opts.DownloadPDF && paper.PDFURL != "" && p.pdfDir != "" {
		if _, err := p.downloadOne(ctx, paper); err != nil {
			fmt.Fprintf(p.w, "warning: pdf download failed for %s: %v\n", paper.ID, err)
			result.Errors = append(result.Errors, types.ProcessError{
				PaperID: paper.ID, Stage: "download", Err: err,
			})
		}
	}

	collections := p.routing.CollectionsFor(paper.Category)
	saved := false
	for _, s := range p.sinks {
		if p.skipExisting {
			exists, err := s.Exists(ctx, paper.ID)
			if err != nil {
				fmt.Fprintf(p.w, "warning: existence check on %s failed for %s: %v\n", s.Name(), paper.ID, err)
			} else if exists {
				saved = true
				continue
			}
		}
		res, err := s.Insert(ctx, paper, collections)
		if err != nil {
			fmt.Fprintf(p.w, "warning: sink %s failed for %s: %v\n", s.Name(), paper.ID, err)
			result.Errors = append(result.Errors, types.ProcessError{
				PaperID: paper.ID, Stage: "sink:" + s.Name(), Err: err,
			})
			continue
		}
		if res.OK() {
			saved = true
		}
	}

	if saved {
		result.Stats.Saved++
		if err := p.checkpoints.Append(bucket, paper.ID); err != nil {
			fmt.Fprintf(p.w, "%v\n", err)
		}
	} else {
		result.Stats.Failed++
	}
}

// SearchAndMerge queries several sources concurrently, merges
// duplicates, then enriches the merged set once. Nothing is persisted;
// per-source failures are isolated into the error list.
func (p *Processor) SearchAndMerge(ctx context.Context, keywords []string, sourceNames []string, opts Options) (*types.Result, error) {
	result := &types.Result{}

	fetched := make([][]types.Paper, len(sourceNames))
	errs := make([]error, len(sourceNames))

	var wg sync.WaitGroup
	for i, name := range sourceNames {
		src, err := p.sources.Get(name)
		if err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			papers, err := src.Search(ctx, keywords, opts.Filters.Categories, opts.Filters.Limit)
			fetched[i], errs[i] = papers, err
		}(i, src)
	}
	wg.Wait()

	merged := make([]types.Paper, 0)
	byKey := make(map[string]int)
	for i, name := range sourceNames {
		if errs[i] != nil {
			fmt.Fprintf(p.w, "warning: search failed for %s: %v\n", name, errs[i])
			result.Errors = append(result.Errors, types.ProcessError{
				Stage: "search:" + name, Err: errs[i],
			})
			continue
		}
		for _, paper := range fetched[i] {
			key := paper.MergeKey()
			if at, ok := byKey[key]; ok {
				merged[at] = *merged[at].Merge(&paper)
				continue
			}
			byKey[key] = len(merged)
			merged = append(merged, paper)
		}
	}
	result.Stats.Fetched = len(merged)

	for i := range merged {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		if opts.Enrich && p.enricher != nil {
			en := p.enricher.Enrich(ctx, &merged[i])
			en.Apply(&merged[i])
			result.Stats.Enhanced++
		}
	}
	result.Papers = merged
	return result, nil
}

// fetchWithRetry wraps the source fetch with bounded retries and
// exponential backoff. The source itself need not retry.
func (p *Processor) fetchWithRetry(ctx context.Context, src source.Source, filters source.Filters) ([]types.Paper, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		papers, err := src.FetchPapers(ctx, filters)
		if err == nil {
			return papers, nil
		}
		lastErr = err
		fmt.Fprintf(p.w, "warning: fetch attempt %d/%d failed: %v\n", attempt+1, p.maxRetries+1, err)
	}
	return nil, fmt.Errorf("after %d retries: %w", p.maxRetries, lastErr)
}
