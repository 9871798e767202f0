// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Archive writes one YAML file per paper under a directory. It is the
// always-works fallback sink: no network, no schema, greppable output.
type Archive struct {
	dir     string
	enabled bool
}

// NewArchive builds the sink rooted at cfg.Dir.
func NewArchive(cfg types.ArchiveConfig) *Archive {
	return &Archive{dir: cfg.Dir, enabled: cfg.Enabled && cfg.Dir != ""}
}

func (a *Archive) Name() string { return "archive" }

func (a *Archive) Available() bool { return a.enabled }

func (a *Archive) path(paperID string) string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(paperID)
	return filepath.Join(a.dir, safe+".yaml")
}

// Exists reports whether the paper's file is present.
func (a *Archive) Exists(ctx context.Context, paperID string) (bool, error) {
	_, err := os.Stat(a.path(paperID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking archive for %s: %w", paperID, err)
}

// archiveRecord is the on-disk shape. Collections ride alongside the
// paper so a file is self-describing.
type archiveRecord struct {
	Paper       *types.Paper `yaml:"paper"`
	Collections []string     `yaml:"collections,omitempty"`
}

// Insert writes the YAML file, refusing to overwrite an existing one.
func (a *Archive) Insert(ctx context.Context, paper *types.Paper, collections []string) (types.InsertResult, error) {
	exists, err := a.Exists(ctx, paper.ID)
	if err != nil {
		return types.InsertResult{Status: types.StatusFailed}, err
	}
	if exists {
		return types.InsertResult{Status: types.StatusExists, Message: "already archived"}, nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("creating archive directory: %w", err)
	}

	data, err := yaml.Marshal(archiveRecord{Paper: paper, Collections: collections})
	if err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("marshaling paper %s: %w", paper.ID, err)
	}
	if err := os.WriteFile(a.path(paper.ID), data, 0o644); err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("writing archive file: %w", err)
	}
	return types.InsertResult{Status: types.StatusInserted}, nil
}
