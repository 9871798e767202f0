// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paperdaily/internal/httputil"
	"github.com/pdiddy/paperdaily/pkg/types"
)

// arxivAPIBase is the arXiv export endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv export API.
type Arxiv struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
}

// NewArxiv builds an adapter with the given HTTP settings.
func NewArxiv(client *http.Client, cfg types.HTTPConfig) *Arxiv {
	if client == nil {
		client = http.DefaultClient
	}
	return &Arxiv{Client: client, UserAgent: cfg.UserAgent}
}

func (a *Arxiv) Name() string { return "arxiv" }

// FetchPapers searches with the filter's keywords and categories.
func (a *Arxiv) FetchPapers(ctx context.Context, filters Filters) ([]types.Paper, error) {
	return a.Search(ctx, filters.Keywords, filters.Categories, filters.Limit)
}

// Search queries the export API, newest submissions first.
func (a *Arxiv) Search(ctx context.Context, keywords, categories []string, limit int) ([]types.Paper, error) {
	query := buildArxivQuery(keywords, categories)
	if query == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	return a.fetch(ctx, params)
}

// GetByID looks up single papers through the id_list parameter.
func (a *Arxiv) GetByID(ctx context.Context, id string) (*types.Paper, error) {
	params := url.Values{}
	params.Set("id_list", id)
	params.Set("max_results", "1")

	papers, err := a.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("arXiv paper %s not found", id)
	}
	return &papers[0], nil
}

func (a *Arxiv) fetch(ctx context.Context, params url.Values) ([]types.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, a.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		papers = append(papers, entryToPaper(id, entry))
	}
	return papers, nil
}

func entryToPaper(id string, entry arxivEntry) types.Paper {
	p := types.Paper{
		ID:          id,
		Title:       collapseWhitespace(entry.Title),
		Summary:     collapseWhitespace(entry.Summary),
		Published:   parseTime(entry.Published),
		AbstractURL: entry.ID,
		DOI:         strings.TrimSpace(entry.DOI),
		JournalRef:  strings.TrimSpace(entry.JournalRef),
		Source:      "arxiv",
	}
	for _, a := range entry.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	for _, c := range entry.Categories {
		if c.Term != "" {
			p.SourceCategories = append(p.SourceCategories, c.Term)
		}
	}
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = "https://arxiv.org/pdf/" + id
	}
	return p
}

// buildArxivQuery joins keyword terms (matched against title or
// abstract) and category terms with AND.
func buildArxivQuery(keywords, categories []string) string {
	var parts []string

	var kwParts []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		kwParts = append(kwParts, fmt.Sprintf("(ti:%q OR abs:%q)", kw, kw))
	}
	if len(kwParts) > 0 {
		parts = append(parts, strings.Join(kwParts, " AND "))
	}

	var catParts []string
	for _, cat := range categories {
		cat = strings.TrimSpace(cat)
		if cat == "" {
			continue
		}
		catParts = append(catParts, "cat:"+cat)
	}
	if len(catParts) > 0 {
		parts = append(parts, "("+strings.Join(catParts, " OR ")+")")
	}

	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
	DOI        string          `xml:"doi"`
	JournalRef string          `xml:"journal_ref"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
