// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/paperdaily/internal/httputil"
	"github.com/pdiddy/paperdaily/pkg/types"
)

// DownloadResult records one paper's download outcome.
type DownloadResult struct {
	Path string
	Err  error
}

// pdfFilename derives a filesystem-safe name from the paper id.
func pdfFilename(id string) string {
	safe := strings.NewReplacer(
		"/", "_", ":", "_", "?", "_", "\\", "_",
		"*", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	).Replace(id)
	return safe + ".pdf"
}

// downloadOne fetches a paper's PDF into the configured directory. An
// existing file short-circuits. The body lands in a temp file first so
// a failed download never leaves a truncated PDF behind.
func (p *Processor) downloadOne(ctx context.Context, paper *types.Paper) (string, error) {
	if paper.PDFURL == "" {
		return "", fmt.Errorf("paper %s has no PDF URL", paper.ID)
	}
	if err := os.MkdirAll(p.pdfDir, 0o755); err != nil {
		return "", fmt.Errorf("creating pdf directory: %w", err)
	}

	path := filepath.Join(p.pdfDir, pdfFilename(paper.ID))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paper.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, p.maxRetries)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", paper.PDFURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: HTTP %d", paper.PDFURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.pdfDir, "."+pdfFilename(paper.ID)+".tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("moving pdf into place: %w", err)
	}
	return path, nil
}

// BatchDownloadPDFs downloads every paper's PDF through a bounded
// worker pool and returns a per-id result map. One slow download only
// occupies one worker slot.
func (p *Processor) BatchDownloadPDFs(ctx context.Context, papers []types.Paper, workers int) map[string]DownloadResult {
	if workers <= 0 {
		workers = p.parallel
	}

	results := make(map[string]DownloadResult, len(papers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	// Papers without a PDF URL are settled up front so the map is only
	// written under mu once workers are running.
	for i := range papers {
		if papers[i].PDFURL == "" {
			results[papers[i].ID] = DownloadResult{Err: fmt.Errorf("paper %s has no PDF URL", papers[i].ID)}
		}
	}

	for i := range papers {
		paper := &papers[i]
		if paper.PDFURL == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			path, err := p.downloadOne(ctx, paper)
			mu.Lock()
			results[paper.ID] = DownloadResult{Path: path, Err: err}
			mu.Unlock()
			if err != nil {
				fmt.Fprintf(p.w, "warning: pdf download failed for %s: %v\n", paper.ID, err)
			} else {
				fmt.Fprintf(p.w, "downloaded %s\n", path)
			}
		}()
	}
	wg.Wait()
	return results
}
