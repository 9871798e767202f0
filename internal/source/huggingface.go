// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paperdaily/internal/httputil"
	"github.com/pdiddy/paperdaily/pkg/types"
)

// hfBaseURL is the daily papers page. Var for test substitution.
var hfBaseURL = "https://huggingface.co/papers"

// HuggingFace scrapes the daily papers listing. The page only carries
// id, title and a media preview per paper; callers complete the
// records through another source's GetByID.
type HuggingFace struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int

	// OutputDir, when set, receives an hf_<date>.json snapshot of each
	// scraped listing.
	OutputDir string
}

// NewHuggingFace builds a scraper writing snapshots under outputDir.
func NewHuggingFace(client *http.Client, cfg types.HTTPConfig, outputDir string) *HuggingFace {
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFace{Client: client, UserAgent: cfg.UserAgent, OutputDir: outputDir}
}

func (h *HuggingFace) Name() string { return "huggingface" }

// FetchPapers scrapes the listing for filters.Date (today when empty).
func (h *HuggingFace) FetchPapers(ctx context.Context, filters Filters) ([]types.Paper, error) {
	pageURL := hfBaseURL
	if filters.Date != "" {
		pageURL += "?date=" + filters.Date
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, h.Client, req, h.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("daily papers request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daily papers page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing daily papers page: %w", err)
	}

	pageDate := pageDate(doc)
	papers := parseListing(doc)

	if h.OutputDir != "" {
		if err := h.writeSnapshot(pageDate, papers); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return papers, nil
}

// Search is not available: the daily papers page has no query surface.
func (h *HuggingFace) Search(ctx context.Context, keywords, categories []string, limit int) ([]types.Paper, error) {
	return nil, &UnsupportedError{Source: h.Name(), Operation: "search"}
}

// GetByID is not available; complete shells through arXiv instead.
func (h *HuggingFace) GetByID(ctx context.Context, id string) (*types.Paper, error) {
	return nil, &UnsupportedError{Source: h.Name(), Operation: "lookup by id"}
}

// pageDate reads the listing date from the first time element,
// falling back to today.
func pageDate(doc *goquery.Document) time.Time {
	if dt, ok := doc.Find("time").First().Attr("datetime"); ok {
		if t := parseTime(dt); !t.IsZero() {
			return t
		}
	}
	return time.Now()
}

// parseListing extracts paper shells from the page. The markup has
// shifted before, so selectors are tried broadest-last.
func parseListing(doc *goquery.Document) []types.Paper {
	var nodes *goquery.Selection
	for _, sel := range []string{"section.container article", "article", `a[href^="/papers/"]`} {
		nodes = doc.Find(sel)
		if nodes.Length() > 0 {
			break
		}
	}

	var papers []types.Paper
	seen := make(map[string]bool)
	nodes.Each(func(_ int, node *goquery.Selection) {
		p, ok := parseListingNode(node)
		if !ok || seen[p.ID] {
			return
		}
		seen[p.ID] = true
		papers = append(papers, p)
	})
	return papers
}

func parseListingNode(node *goquery.Selection) (types.Paper, bool) {
	var link *goquery.Selection
	for _, sel := range []string{"h3 > a", `a[href^="/papers/"]`} {
		link = node.Find(sel).First()
		if link.Length() > 0 {
			break
		}
	}
	if link == nil || link.Length() == 0 {
		// The node itself may be the anchor.
		if goquery.NodeName(node) == "a" {
			link = node
		} else {
			return types.Paper{}, false
		}
	}

	href, _ := link.Attr("href")
	if href == "" {
		return types.Paper{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = "https://huggingface.co" + ensureLeadingSlash(href)
	}

	p := types.Paper{
		ID:          href[strings.LastIndex(href, "/")+1:],
		Title:       strings.TrimSpace(link.Text()),
		AbstractURL: href,
		Source:      "huggingface",
	}
	if p.ID == "" {
		return types.Paper{}, false
	}

	if src, ok := node.Find("img").First().Attr("src"); ok && src != "" {
		p.MediaType = "image"
		p.MediaURL = src
	} else if src, ok := node.Find("video").First().Attr("src"); ok && src != "" {
		p.MediaType = "video"
		p.MediaURL = src
	}
	return p, true
}

func ensureLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}

// writeSnapshot records the scraped listing alongside the run output
// so a day's page can be inspected after the fact.
func (h *HuggingFace) writeSnapshot(date time.Time, papers []types.Paper) error {
	if err := os.MkdirAll(h.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(papers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling listing snapshot: %w", err)
	}
	path := filepath.Join(h.OutputDir, "hf_"+date.Format("2006-01-02")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing listing snapshot %s: %w", path, err)
	}
	return nil
}
