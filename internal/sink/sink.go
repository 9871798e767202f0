// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink stores processed papers. Every adapter reports inserts
// through types.InsertResult so the pipeline can treat "already there"
// as success without string matching on errors.
package sink

import (
	"context"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Sink is one storage destination. Available reports whether the sink
// is configured well enough to try; unavailable sinks are skipped, not
// failed. Insert receives the collection names the paper routes to;
// sinks without a collection concept ignore them.
type Sink interface {
	Name() string
	Available() bool
	Exists(ctx context.Context, paperID string) (bool, error)
	Insert(ctx context.Context, paper *types.Paper, collections []string) (types.InsertResult, error)
}

// Enabled filters out unavailable sinks.
func Enabled(sinks []Sink) []Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Available() {
			out = append(out, s)
		}
	}
	return out
}
