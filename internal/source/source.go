// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches papers from external catalogs. Adapters
// normalize everything into types.Paper; retries around transient HTTP
// failures live in httputil, not here.
package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Filters narrows a FetchPapers call. Zero values mean "no filter";
// adapters ignore fields they cannot honor.
type Filters struct {
	Keywords   []string
	Categories []string
	Limit      int
	Date       string // YYYY-MM-DD, for sources with per-day listings
}

// Source is a paper catalog. Implementations must be safe to call
// repeatedly with the same arguments.
type Source interface {
	Name() string
	FetchPapers(ctx context.Context, filters Filters) ([]types.Paper, error)
	Search(ctx context.Context, keywords, categories []string, limit int) ([]types.Paper, error)
	GetByID(ctx context.Context, id string) (*types.Paper, error)
}

// UnsupportedError reports an operation a source cannot perform, as
// opposed to one that failed.
type UnsupportedError struct {
	Source    string
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("source %s does not support %s", e.Source, e.Operation)
}

// Registry maps source names to adapters.
type Registry map[string]Source

// Get returns the named source or an error naming the known sources.
func (r Registry) Get(name string) (Source, error) {
	s, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %v)", name, r.names())
	}
	return s, nil
}

func (r Registry) names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseTime tries the timestamp layouts the catalogs emit.
func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
