// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Entry is the persisted cache record for one paper's LLM outputs.
// Raw model responses are kept verbatim alongside the parsed fields;
// title and PDF URL are stored redundantly so entries can be inspected
// on their own.
type Entry struct {
	ID           string     `json:"id"`
	Title        string     `json:"title,omitempty"`
	PDFURL       string     `json:"pdf_url,omitempty"`
	TLDR         types.TLDR `json:"tldr"`
	Translation  string     `json:"translation,omitempty"`
	ShortSummary string     `json:"short_summary,omitempty"`
	RawSummary   string     `json:"raw_summary,omitempty"`
	Category     string     `json:"category,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	RawTags      string     `json:"raw_tags,omitempty"`
}

// SummaryDone reports whether the summary sub-result is usable from
// cache: all required TLDR sections present and non-empty.
func (e *Entry) SummaryDone() bool {
	return e.TLDR.Complete()
}

// TagsDone reports whether the tagging sub-result is usable from cache.
func (e *Entry) TagsDone() bool {
	return e.Category != "" && len(e.Tags) > 0
}

// Cache stores one JSON file per paper id. Entries are rewritten in
// full on each update (single writer, last writer wins). The pipeline
// never deletes entries; clearing the cache is an external operation.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(id string) string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(id)
	return filepath.Join(c.dir, safe+".json")
}

// Load returns the entry for id, or nil when none exists.
func (c *Cache) Load(id string) (*Entry, error) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry %s: %w", id, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing cache entry %s: %w", id, err)
	}
	return &e, nil
}

// Put rewrites the entry file. On write failure the entry is preserved
// at a backup path and the failure is reported loudly: losing cache
// state means paying for the same LLM call twice.
func (c *Cache) Put(e *Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry %s: %w", e.ID, err)
	}
	path := c.path(e.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		backup := path + ".bak"
		fmt.Fprintf(os.Stderr, "error: cache write failed for %s: %v; writing %s\n", e.ID, err, backup)
		if bakErr := os.WriteFile(backup, data, 0o644); bakErr != nil {
			return fmt.Errorf("writing cache entry %s (backup also failed: %v): %w", e.ID, bakErr, err)
		}
		return fmt.Errorf("writing cache entry %s (entry preserved in backup): %w", e.ID, err)
	}
	return nil
}
