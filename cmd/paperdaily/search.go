// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperdaily/internal/pipeline"
	"github.com/pdiddy/paperdaily/internal/source"
	"github.com/pdiddy/paperdaily/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Search sources and show merged results",
	Long: `Search queries the given sources for keywords, merges duplicates by
DOI or normalized title, and prints the merged set. Nothing is stored;
use run to persist papers. Enrichment is off by default here since it
costs LLM calls.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSlice("sources", []string{"arxiv"}, "sources to query")
	searchCmd.Flags().StringSlice("categories", nil, "category codes (e.g. cs.LG)")
	searchCmd.Flags().Int("limit", 0, "maximum results per source")
	searchCmd.Flags().Bool("enrich", false, "run LLM enrichment on the merged set")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more search keywords")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceNames, _ := cmd.Flags().GetStringSlice("sources")
	categories, _ := cmd.Flags().GetStringSlice("categories")
	limit, _ := cmd.Flags().GetInt("limit")
	enrichFlag, _ := cmd.Flags().GetBool("enrich")
	asJSON, _ := cmd.Flags().GetBool("json")

	if len(categories) == 0 {
		categories = cfg.Source.Categories
	}
	if limit <= 0 {
		limit = cfg.Source.Limit
	}

	p, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := p.SearchAndMerge(cmd.Context(), args, sourceNames, pipeline.Options{
		Filters: source.Filters{Categories: categories, Limit: limit},
		Enrich:  enrichFlag,
	})
	if err != nil {
		return err
	}

	for _, pe := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", pe.Stage, pe.Err)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result.Papers)
	}
	formatTable(result.Papers, cmd.OutOrStdout())
	return nil
}

// formatTable writes papers as a human-readable table.
func formatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-14s  %-60s  %-20s  %-4s  %s\n",
		"ID", "Title", "Authors", "Year", "Category")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if !p.Published.IsZero() {
			year = fmt.Sprintf("%d", p.Published.Year())
		}
		fmt.Fprintf(w, "%-14s  %-60s  %-20s  %-4s  %s\n",
			p.ID, title, formatAuthors(p.Authors), year, p.Category)
	}

	fmt.Fprintf(w, "\n%d results\n", len(papers))
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
