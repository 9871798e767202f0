// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"os"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperdaily/pkg/types"
)

func TestArchiveInsertWritesYAML(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(types.ArchiveConfig{Enabled: true, Dir: dir})
	ctx := context.Background()

	paper := &types.Paper{
		ID:    "2401.00001",
		Title: "Sparse Updates",
		Tags:  []string{"optimization"},
	}
	res, err := a.Insert(ctx, paper, []string{"ml-papers"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != types.StatusInserted {
		t.Fatalf("status = %v", res.Status)
	}

	data, err := os.ReadFile(a.path(paper.ID))
	if err != nil {
		t.Fatal(err)
	}
	var rec archiveRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Paper.Title != "Sparse Updates" {
		t.Errorf("title = %q", rec.Paper.Title)
	}
	if len(rec.Collections) != 1 || rec.Collections[0] != "ml-papers" {
		t.Errorf("collections = %v", rec.Collections)
	}

	exists, err := a.Exists(ctx, paper.ID)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}
}

func TestArchiveDuplicateInsertReportsExists(t *testing.T) {
	a := NewArchive(types.ArchiveConfig{Enabled: true, Dir: t.TempDir()})
	ctx := context.Background()
	paper := &types.Paper{ID: "2401.00001", Title: "Once"}

	if _, err := a.Insert(ctx, paper, nil); err != nil {
		t.Fatal(err)
	}
	paper.Title = "Twice"
	res, err := a.Insert(ctx, paper, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != types.StatusExists {
		t.Fatalf("status = %v, want exists", res.Status)
	}

	// Original file untouched.
	data, _ := os.ReadFile(a.path(paper.ID))
	var rec archiveRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Paper.Title != "Once" {
		t.Errorf("title = %q, existing file overwritten", rec.Paper.Title)
	}
}

func TestArchiveSanitizesIDs(t *testing.T) {
	a := NewArchive(types.ArchiveConfig{Enabled: true, Dir: t.TempDir()})
	paper := &types.Paper{ID: "math.GT/0309136"}

	if _, err := a.Insert(context.Background(), paper, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(a.path("math.GT/0309136")); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
}

func TestArchiveDisabledIsUnavailable(t *testing.T) {
	if NewArchive(types.ArchiveConfig{Enabled: true}).Available() {
		t.Error("archive without a dir reports available")
	}
	if NewArchive(types.ArchiveConfig{Enabled: false, Dir: "/tmp/x"}).Available() {
		t.Error("disabled archive reports available")
	}
}

func TestEnabledFiltersUnavailable(t *testing.T) {
	on := NewArchive(types.ArchiveConfig{Enabled: true, Dir: t.TempDir()})
	off := NewArchive(types.ArchiveConfig{Enabled: false})

	got := Enabled([]Sink{on, off})
	if len(got) != 1 || got[0].Name() != "archive" {
		t.Errorf("Enabled = %v", got)
	}
}
