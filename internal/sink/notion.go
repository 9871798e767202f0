// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// notionAPIBase is the Notion REST endpoint. Var for test substitution.
var notionAPIBase = "https://api.notion.com/v1"

const notionVersion = "2022-06-28"

// Notion writes papers as pages in a Notion database. Each page gets
// the paper's fields as properties plus a readable body (TLDR sections,
// abstract, translation, media embed).
type Notion struct {
	Client     *http.Client
	DatabaseID string
	APIKey     string
	enabled    bool
}

// NewNotion builds the sink. It is unavailable unless enabled and both
// credentials are present.
func NewNotion(client *http.Client, cfg types.NotionConfig) *Notion {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notion{
		Client:     client,
		DatabaseID: cfg.DatabaseID,
		APIKey:     cfg.APIKey,
		enabled:    cfg.Enabled && cfg.DatabaseID != "" && cfg.APIKey != "",
	}
}

func (n *Notion) Name() string { return "notion" }

func (n *Notion) Available() bool { return n.enabled }

// Exists queries the database for a page whose ID property matches.
func (n *Notion) Exists(ctx context.Context, paperID string) (bool, error) {
	query := map[string]any{
		"filter": map[string]any{
			"property":  "ID",
			"rich_text": map[string]any{"equals": paperID},
		},
		"page_size": 1,
	}

	var result struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := n.post(ctx, "/databases/"+n.DatabaseID+"/query", query, &result); err != nil {
		return false, fmt.Errorf("querying notion database: %w", err)
	}
	return len(result.Results) > 0, nil
}

// Insert creates a page for the paper. Notion has no conflict
// detection, so an existence query runs first; racing inserters may
// still produce duplicate pages, which the checkpoint layer prevents
// in practice.
func (n *Notion) Insert(ctx context.Context, paper *types.Paper, collections []string) (types.InsertResult, error) {
	exists, err := n.Exists(ctx, paper.ID)
	if err != nil {
		return types.InsertResult{Status: types.StatusFailed}, err
	}
	if exists {
		return types.InsertResult{Status: types.StatusExists, Message: "page already present"}, nil
	}

	page := map[string]any{
		"parent":     map[string]any{"database_id": n.DatabaseID},
		"properties": n.pageProperties(paper, collections),
		"children":   pageBlocks(paper),
	}
	if err := n.post(ctx, "/pages", page, nil); err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("creating notion page: %w", err)
	}
	return types.InsertResult{Status: types.StatusInserted}, nil
}

func (n *Notion) pageProperties(paper *types.Paper, collections []string) map[string]any {
	published := ""
	if !paper.Published.IsZero() {
		published = paper.Published.Format("2006-01")
	}

	props := map[string]any{
		"Title":     titleProperty(paper.Title),
		"ID":        richTextProperty(paper.ID),
		"Added":     map[string]any{"date": map[string]any{"start": time.Now().Format("2006-01-02")}},
		"Published": richTextProperty(published),
		"Authors":   richTextProperty(paper.AuthorString()),
		"Summary":   richTextProperty(paper.ShortSummary),
		"Tags":      multiSelectProperty(paper.Tags),
	}
	if paper.Category != "" {
		props["Category"] = map[string]any{"select": map[string]any{"name": paper.Category}}
	}
	if paper.PDFURL != "" {
		props["PDF"] = map[string]any{"url": paper.PDFURL}
	}
	if len(collections) > 0 {
		props["Collections"] = multiSelectProperty(collections)
	}
	return props
}

func pageBlocks(paper *types.Paper) []map[string]any {
	var blocks []map[string]any

	if (paper.MediaType == "image" || paper.MediaType == "video") && paper.MediaURL != "" {
		blocks = append(blocks, map[string]any{
			"object": "block",
			"type":   paper.MediaType,
			paper.MediaType: map[string]any{
				"type":     "external",
				"external": map[string]any{"url": paper.MediaURL},
			},
		})
	}

	blocks = append(blocks, headingBlock("TL;DR", 1))
	for _, section := range []struct {
		heading string
		body    string
	}{
		{"Motivation", paper.TLDR.Motivation},
		{"Method", paper.TLDR.Method},
		{"Result", paper.TLDR.Result},
	} {
		if section.body == "" {
			continue
		}
		blocks = append(blocks, headingBlock(section.heading, 2), paragraphBlock(section.body))
	}

	blocks = append(blocks, headingBlock("Abstract", 1))
	if paper.Summary != "" {
		blocks = append(blocks, paragraphBlock(paper.Summary))
	}
	if paper.Translation != "" {
		blocks = append(blocks, headingBlock("Translation", 2), paragraphBlock(paper.Translation))
	}
	return blocks
}

func titleProperty(content string) map[string]any {
	return map[string]any{
		"title": []map[string]any{{"text": map[string]any{"content": content}}},
	}
}

func richTextProperty(content string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{{"text": map[string]any{"content": content}}},
	}
}

func multiSelectProperty(items []string) map[string]any {
	options := make([]map[string]any, 0, len(items))
	for _, item := range items {
		// Notion rejects option names containing commas.
		options = append(options, map[string]any{"name": strings.ReplaceAll(item, ",", " ")})
	}
	return map[string]any{"multi_select": options}
}

func headingBlock(content string, level int) map[string]any {
	blockType := fmt.Sprintf("heading_%d", level)
	return map[string]any{
		"object": "block",
		"type":   blockType,
		blockType: map[string]any{
			"rich_text": []map[string]any{{"type": "text", "text": map[string]any{"content": content}}},
		},
	}
}

func paragraphBlock(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{{"type": "text", "text": map[string]any{"content": content}}},
		},
	}
}

func (n *Notion) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, notionAPIBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.APIKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notion API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notion API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing notion response: %w", err)
		}
	}
	return nil
}
