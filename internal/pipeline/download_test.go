// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/pdiddy/paperdaily/internal/checkpoint"
	"github.com/pdiddy/paperdaily/internal/source"
	"github.com/pdiddy/paperdaily/pkg/types"
)

func newDownloadProcessor(t *testing.T, pdfDir string) *Processor {
	t.Helper()
	store, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(Config{
		Sources:     source.Registry{},
		Checkpoints: store,
		Process:     types.ProcessConfig{MaxRetries: 1, PDFDir: pdfDir, ParallelDownloads: 2},
	})
}

func TestDownloadOneWritesFile(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	p := newDownloadProcessor(t, dir)
	paper := &types.Paper{ID: "2401.00001", PDFURL: ts.URL + "/2401.00001.pdf"}

	path, err := p.downloadOne(context.Background(), paper)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "2401.00001.pdf") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF-1.4 fake" {
		t.Fatalf("content = %q, %v", data, err)
	}

	// Existing file short-circuits without another request.
	if _, err := p.downloadOne(context.Background(), paper); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestDownloadOneSanitizesID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf"))
	}))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	p := newDownloadProcessor(t, dir)
	paper := &types.Paper{ID: "math.GT/0309136", PDFURL: ts.URL}

	path, err := p.downloadOne(context.Background(), paper)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "math.GT_0309136.pdf" {
		t.Errorf("filename = %q", filepath.Base(path))
	}
}

func TestDownloadOneHTTPErrorLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	p := newDownloadProcessor(t, dir)
	paper := &types.Paper{ID: "2401.00001", PDFURL: ts.URL}

	if _, err := p.downloadOne(context.Background(), paper); err == nil {
		t.Fatal("want error on HTTP 404")
	}
	if _, err := os.Stat(filepath.Join(dir, "2401.00001.pdf")); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestBatchDownloadPDFs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("pdf"))
	}))
	t.Cleanup(ts.Close)

	p := newDownloadProcessor(t, t.TempDir())
	papers := []types.Paper{
		{ID: "2401.00001", PDFURL: ts.URL + "/a"},
		{ID: "2401.00002", PDFURL: ts.URL + "/missing"},
		{ID: "2401.00003"},
	}

	results := p.BatchDownloadPDFs(context.Background(), papers, 2)
	if len(results) != 3 {
		t.Fatalf("results = %v", results)
	}
	if results["2401.00001"].Err != nil || results["2401.00001"].Path == "" {
		t.Errorf("first = %+v", results["2401.00001"])
	}
	if results["2401.00002"].Err == nil {
		t.Error("missing PDF reported success")
	}
	if results["2401.00003"].Err == nil {
		t.Error("paper without URL reported success")
	}
}

// Papers lacking a PDF URL are settled in the same map the workers
// write to; run with -race to catch unsynchronized writes.
func TestBatchDownloadPDFsMixedURLsConcurrently(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdf"))
	}))
	t.Cleanup(ts.Close)

	p := newDownloadProcessor(t, t.TempDir())

	papers := make([]types.Paper, 0, 200)
	for i := 0; i < 200; i++ {
		paper := types.Paper{ID: fmt.Sprintf("2402.%05d", i)}
		if i%2 == 0 {
			paper.PDFURL = fmt.Sprintf("%s/%s.pdf", ts.URL, paper.ID)
		}
		papers = append(papers, paper)
	}

	results := p.BatchDownloadPDFs(context.Background(), papers, 4)
	if len(results) != len(papers) {
		t.Fatalf("results = %d, want %d", len(results), len(papers))
	}
	for i, paper := range papers {
		res := results[paper.ID]
		if i%2 == 0 && (res.Err != nil || res.Path == "") {
			t.Fatalf("paper %s = %+v, want downloaded", paper.ID, res)
		}
		if i%2 == 1 && res.Err == nil {
			t.Fatalf("paper %s without URL reported success", paper.ID)
		}
	}
}
