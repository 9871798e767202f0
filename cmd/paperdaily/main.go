// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperdaily CLI. Papers flow
// from arXiv and the Hugging Face daily listing through LLM enrichment
// into the configured sinks; subcommands cover the daily run, ad-hoc
// search, PDF download and cache-backed re-enrichment.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperdaily/internal/checkpoint"
	"github.com/pdiddy/paperdaily/internal/enrich"
	"github.com/pdiddy/paperdaily/internal/pipeline"
	"github.com/pdiddy/paperdaily/internal/secrets"
	"github.com/pdiddy/paperdaily/internal/sink"
	"github.com/pdiddy/paperdaily/internal/source"
	"github.com/pdiddy/paperdaily/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paperdaily CLI.
var rootCmd = &cobra.Command{
	Use:   "paperdaily",
	Short: "Daily academic paper ingestion and enrichment",
	Long: `paperdaily fetches new papers from arXiv keyword searches and the
Hugging Face daily papers listing, summarizes and tags them with an LLM,
and stores them in the configured sinks (local library, Notion, YAML
archive). A per-source checkpoint ledger makes repeated runs cheap and
duplicate-free.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperdaily.yaml or ~/.config/paperdaily/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperdaily")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperdaily"))
		}
	}

	viper.SetEnvPrefix("PAPERDAILY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the pipeline config from viper plus the
// secrets directory, applying defaults for everything unset.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "paperdaily/0.1"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.Limit <= 0 {
		cfg.Source.Limit = 20
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.Process.PDFDir == "" {
		cfg.Process.PDFDir = filepath.Join("papers", "pdf")
	}
	if cfg.Process.OutputDir == "" {
		cfg.Process.OutputDir = "output"
	}
	if cfg.Process.CacheDir == "" {
		cfg.Process.CacheDir = filepath.Join(cfg.Process.OutputDir, "cache")
	}
	if cfg.Process.CheckpointDir == "" {
		cfg.Process.CheckpointDir = filepath.Join(cfg.Process.OutputDir, "checkpoints")
	}
	if cfg.Library.Enabled && cfg.Library.Path == "" {
		cfg.Library.Path = filepath.Join(cfg.Process.OutputDir, "library.db")
	}
	if cfg.Archive.Enabled && cfg.Archive.Dir == "" {
		cfg.Archive.Dir = filepath.Join(cfg.Process.OutputDir, "archive")
	}

	cfg.LLM.APIKey = secrets.Value(loadedSecrets, secrets.KeyLLMAPIKey, cfg.LLM.APIKey)
	cfg.Notion.APIKey = secrets.Value(loadedSecrets, secrets.KeyNotionAPIKey, cfg.Notion.APIKey)
	cfg.Notion.DatabaseID = secrets.Value(loadedSecrets, secrets.KeyNotionDatabaseID, cfg.Notion.DatabaseID)

	return cfg, nil
}

// buildProcessor wires sources, sinks, enrichment and checkpoints from
// the config. The returned cleanup closes sink handles.
func buildProcessor(cfg types.PipelineConfig) (*pipeline.Processor, func(), error) {
	sourceClient := &http.Client{Timeout: cfg.Source.Timeout}

	arxiv := source.NewArxiv(sourceClient, cfg.Source.HTTPConfig)
	hf := source.NewHuggingFace(sourceClient, cfg.Source.HTTPConfig, cfg.Process.OutputDir)
	sources := source.Registry{
		"arxiv": arxiv,
		// The daily listing only yields shells; arXiv fills them in.
		"huggingface": source.NewCompleted(hf, arxiv, os.Stderr),
	}

	var sinks []sink.Sink
	cleanup := func() {}

	library, err := sink.NewLibrary(cfg.Library)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { library.Close() }
	sinks = append(sinks, library)
	sinks = append(sinks, sink.NewNotion(sourceClient, cfg.Notion))
	sinks = append(sinks, sink.NewArchive(cfg.Archive))

	for _, s := range sinks {
		if !s.Available() {
			fmt.Fprintf(os.Stderr, "sink %s unavailable, skipping\n", s.Name())
		}
	}

	var enricher *enrich.Enricher
	if cfg.LLM.BaseURL != "" && cfg.LLM.APIKey != "" {
		cache, err := enrich.NewCache(cfg.Process.CacheDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		backend := &enrich.OpenAIBackend{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Client:  &http.Client{Timeout: cfg.LLM.Timeout},
		}
		enricher = enrich.New(backend, cache, cfg.LLM.MaxRetries, os.Stderr)
	} else {
		fmt.Fprintln(os.Stderr, "LLM not configured, enrichment disabled")
	}

	checkpoints, err := checkpoint.NewStore(cfg.Process.CheckpointDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Config{
		Sources:     sources,
		Sinks:       sinks,
		Enricher:    enricher,
		Checkpoints: checkpoints,
		Routing:     cfg.Routing,
		Client:      sourceClient,
		Process:     cfg.Process,
		Progress:    os.Stdout,
	})
	return p, cleanup, nil
}

// newArxiv builds a standalone arXiv adapter for commands that resolve
// ids outside a full batch.
func newArxiv(cfg types.PipelineConfig) *source.Arxiv {
	client := &http.Client{Timeout: cfg.Source.Timeout}
	return source.NewArxiv(client, cfg.Source.HTTPConfig)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
