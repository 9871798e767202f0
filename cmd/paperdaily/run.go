// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperdaily/internal/pipeline"
	"github.com/pdiddy/paperdaily/internal/source"
	"github.com/pdiddy/paperdaily/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, enrich and store today's papers",
	Long: `Run executes the daily batch: an arXiv keyword search and the Hugging
Face daily papers listing, each enriched and fanned out to the
configured sinks. Checkpointed papers are skipped, so rerunning after a
partial failure only touches what is missing. --days walks the Hugging
Face listing back over previous days.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSlice("sources", []string{"arxiv", "huggingface"}, "sources to process")
	runCmd.Flags().StringSlice("keywords", nil, "arXiv search keywords (overrides config)")
	runCmd.Flags().StringSlice("categories", nil, "arXiv category codes (overrides config)")
	runCmd.Flags().Int("limit", 0, "max results per source (overrides config)")
	runCmd.Flags().String("date", "", "Hugging Face listing date (YYYY-MM-DD, default today)")
	runCmd.Flags().Int("days", 1, "number of Hugging Face listing days to walk back")
	runCmd.Flags().Bool("no-enrich", false, "skip LLM enrichment")
	runCmd.Flags().Bool("download", false, "download PDFs (overrides config)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceNames, _ := cmd.Flags().GetStringSlice("sources")
	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	categories, _ := cmd.Flags().GetStringSlice("categories")
	limit, _ := cmd.Flags().GetInt("limit")
	date, _ := cmd.Flags().GetString("date")
	days, _ := cmd.Flags().GetInt("days")
	noEnrich, _ := cmd.Flags().GetBool("no-enrich")
	download, _ := cmd.Flags().GetBool("download")

	if len(keywords) == 0 {
		keywords = cfg.Source.Keywords
	}
	if len(categories) == 0 {
		categories = cfg.Source.Categories
	}
	if limit <= 0 {
		limit = cfg.Source.Limit
	}
	if download {
		cfg.Process.DownloadPDF = true
	}
	if days < 1 {
		days = 1
	}

	p, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var totals types.Stats
	var batches, failures int

	for _, name := range sourceNames {
		switch name {
		case "huggingface":
			for _, day := range listingDates(date, days) {
				batches++
				stats, err := runBatch(cmd, p, name, pipeline.Options{
					Filters:     source.Filters{Date: day},
					Bucket:      "hf_" + day,
					Enrich:      !noEnrich,
					DownloadPDF: cfg.Process.DownloadPDF,
				})
				if err != nil {
					failures++
					continue
				}
				totals.Add(stats)
			}
		default:
			batches++
			stats, err := runBatch(cmd, p, name, pipeline.Options{
				Filters: source.Filters{
					Keywords:   keywords,
					Categories: categories,
					Limit:      limit,
				},
				Enrich:      !noEnrich,
				DownloadPDF: cfg.Process.DownloadPDF,
			})
			if err != nil {
				failures++
				continue
			}
			totals.Add(stats)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\ntotal: fetched %d, enhanced %d, saved %d, failed %d, skipped %d\n",
		totals.Fetched, totals.Enhanced, totals.Saved, totals.Failed, totals.Skipped)

	if failures == batches && failures > 0 {
		return fmt.Errorf("all %d batches failed", failures)
	}
	return nil
}

func runBatch(cmd *cobra.Command, p *pipeline.Processor, name string, opts pipeline.Options) (types.Stats, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "== %s", name)
	if opts.Filters.Date != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (%s)", opts.Filters.Date)
	}
	fmt.Fprintln(cmd.OutOrStdout(), " ==")

	result, err := p.ProcessBatch(cmd.Context(), name, opts)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "batch failed for %s: %v\n", name, err)
		return types.Stats{}, err
	}
	for _, pe := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %s %s: %v\n", pe.PaperID, pe.Stage, pe.Err)
	}
	return result.Stats, nil
}

// listingDates returns the dates to walk, newest first. An explicit
// date anchors the walk; otherwise it starts today.
func listingDates(date string, days int) []string {
	anchor := time.Now()
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			anchor = t
		}
	}
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, anchor.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return dates
}
