// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Append("arxiv", "2401.00001"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append("arxiv", "2401.00002"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ids, err := store.Load("arxiv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Load returned %d ids, want 2", len(ids))
	}
	if _, ok := ids["2401.00001"]; !ok {
		t.Errorf("missing appended id")
	}
}

func TestLoadMissingBucketIsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ids, err := store.Load("never-written")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("missing bucket should load empty, got %v", ids)
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Append("arxiv", "2401.00001"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append("hf_2026-09-01", "2401.00001"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ok, err := store.Contains("arxiv", "2401.00001")
	if err != nil || !ok {
		t.Errorf("Contains(arxiv) = %v, %v, want true", ok, err)
	}
	ok, err = store.Contains("hf_2026-09-02", "2401.00001")
	if err != nil || ok {
		t.Errorf("Contains(other bucket) = %v, %v, want false", ok, err)
	}
}

func TestDuplicateAppendTolerated(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Append("arxiv", "2401.00001"); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	ids, err := store.Load("arxiv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("duplicate appends should dedup on load, got %d ids", len(ids))
	}
}

func TestBucketNameSanitized(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Append("hf/2026-09-01", "x"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hf_2026-09-01.txt")); err != nil {
		t.Errorf("sanitized ledger file not found: %v", err)
	}
}

func TestAppendWriteFailureUsesBackup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// Occupy the ledger path with a directory to force the append to fail.
	if err := os.Mkdir(filepath.Join(dir, "arxiv.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = store.Append("arxiv", "2401.00001")
	if err == nil {
		t.Fatalf("Append should report the primary write failure")
	}

	data, readErr := os.ReadFile(filepath.Join(dir, "arxiv.txt.bak"))
	if readErr != nil {
		t.Fatalf("backup ledger not written: %v", readErr)
	}
	if string(data) != "2401.00001\n" {
		t.Errorf("backup ledger content = %q", data)
	}
}
