// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperdaily/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download [arxiv-ids...]",
	Short: "Download PDFs for the given arXiv ids",
	Long: `Download resolves each arXiv id and fetches its PDF into the
configured directory through a bounded worker pool. Already downloaded
files are skipped.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().Int("workers", 0, "download pool width (overrides config)")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more arXiv ids")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	p, cleanup, err := buildProcessor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	arxiv := newArxiv(cfg)

	var papers []types.Paper
	for _, id := range args {
		paper, err := arxiv.GetByID(cmd.Context(), id)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			continue
		}
		papers = append(papers, *paper)
	}
	if len(papers) == 0 {
		return fmt.Errorf("no papers resolved")
	}

	results := p.BatchDownloadPDFs(cmd.Context(), papers, workers)

	var failed int
	for id, res := range results {
		if res.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed  %s: %v\n", id, res.Err)
			failed++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "downloaded %d of %d\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}
