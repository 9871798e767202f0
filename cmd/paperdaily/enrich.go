// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperdaily/internal/enrich"
	"github.com/pdiddy/paperdaily/internal/secrets"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [arxiv-ids...]",
	Short: "Run LLM enrichment for the given arXiv ids",
	Long: `Enrich resolves each arXiv id, produces its TLDR, translation and
tags, and prints the result. Completed sub-calls are cached, so partial
entries only recompute what is missing and repeated invocations are
free.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more arXiv ids")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM not configured: set llm.base_url and the %s secret", secrets.KeyLLMAPIKey)
	}

	cache, err := enrich.NewCache(cfg.Process.CacheDir)
	if err != nil {
		return err
	}
	backend := &enrich.OpenAIBackend{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Client:  &http.Client{Timeout: cfg.LLM.Timeout},
	}
	enricher := enrich.New(backend, cache, cfg.LLM.MaxRetries, os.Stderr)

	arxiv := newArxiv(cfg)
	w := cmd.OutOrStdout()

	var failures int
	for _, id := range args {
		paper, err := arxiv.GetByID(cmd.Context(), id)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			failures++
			continue
		}

		en := enricher.Enrich(cmd.Context(), paper)
		en.Apply(paper)

		fmt.Fprintf(w, "%s  %s\n", paper.ID, paper.Title)
		if paper.Category != "" {
			fmt.Fprintf(w, "  category: %s\n", paper.Category)
		}
		if len(paper.Tags) > 0 {
			fmt.Fprintf(w, "  tags:     %s\n", strings.Join(paper.Tags, ", "))
		}
		if paper.TLDR.Motivation != "" {
			fmt.Fprintf(w, "  motivation: %s\n", paper.TLDR.Motivation)
		}
		if paper.TLDR.Method != "" {
			fmt.Fprintf(w, "  method:     %s\n", paper.TLDR.Method)
		}
		if paper.TLDR.Result != "" {
			fmt.Fprintf(w, "  result:     %s\n", paper.TLDR.Result)
		}
		if paper.ShortSummary != "" {
			fmt.Fprintf(w, "  summary:    %s\n", paper.ShortSummary)
		}
		fmt.Fprintln(w)
	}

	if failures > 0 {
		return fmt.Errorf("%d paper(s) could not be resolved", failures)
	}
	return nil
}
