// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint maintains append-only idempotency ledgers, one
// file per bucket. Presence of a (bucket, id) pair means the paper was
// stored by at least one sink and must not be reprocessed.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store manages newline-delimited id ledgers under a root directory.
// Appends are flushed to disk before returning; a crash between a sink
// write and the matching Append is tolerated because sinks are
// idempotent and the paper is simply retried on the next run.
type Store struct {
	dir string
}

// NewStore creates the ledger directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(bucket string) string {
	return filepath.Join(s.dir, sanitize(bucket)+".txt")
}

// sanitize keeps bucket names filesystem-safe.
func sanitize(bucket string) string {
	r := strings.NewReplacer("/", "_", ":", "_", " ", "_")
	return r.Replace(bucket)
}

// Load reads a bucket's ledger into a set. A missing ledger is an
// empty set. Call once at the start of a run and consult the returned
// set per paper instead of re-reading the file.
func (s *Store) Load(bucket string) (map[string]struct{}, error) {
	f, err := os.Open(s.path(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("opening checkpoint %s: %w", bucket, err)
	}
	defer f.Close()

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", bucket, err)
	}
	return ids, nil
}

// Contains reports whether id was already checkpointed in bucket. It
// reads the ledger; prefer Load for per-run skip-sets.
func (s *Store) Contains(bucket, id string) (bool, error) {
	ids, err := s.Load(bucket)
	if err != nil {
		return false, err
	}
	_, ok := ids[id]
	return ok, nil
}

// Append durably records id in bucket. The write is synced before
// returning. On failure the id is written to a backup ledger instead;
// losing a checkpoint risks duplicate inserts on the next run, so this
// is the one failure the operator must hear about.
func (s *Store) Append(bucket, id string) error {
	if err := appendLine(s.path(bucket), id); err != nil {
		backup := s.path(bucket) + ".bak"
		fmt.Fprintf(os.Stderr, "error: checkpoint append failed for %s/%s: %v; writing %s\n",
			bucket, id, err, backup)
		if bakErr := appendLine(backup, id); bakErr != nil {
			return fmt.Errorf("appending checkpoint %s/%s (backup also failed: %v): %w",
				bucket, id, bakErr, err)
		}
		return fmt.Errorf("appending checkpoint %s/%s (id preserved in backup): %w", bucket, id, err)
	}
	return nil
}

func appendLine(path, id string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
