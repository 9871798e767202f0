// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Completed wraps a listing source whose papers are shells (id, title,
// media only) and fills each one in through a detail source's GetByID.
// Media fields from the listing survive the completion.
type Completed struct {
	Listing Source
	Detail  Source
	W       io.Writer
}

// NewCompleted builds the composite. Progress lines go to w.
func NewCompleted(listing, detail Source, w io.Writer) *Completed {
	if w == nil {
		w = io.Discard
	}
	return &Completed{Listing: listing, Detail: detail, W: w}
}

func (c *Completed) Name() string { return c.Listing.Name() }

// FetchPapers fetches shells from the listing and completes each one.
// A shell whose lookup fails is passed through as-is rather than
// dropped; it still identifies a paper.
func (c *Completed) FetchPapers(ctx context.Context, filters Filters) ([]types.Paper, error) {
	shells, err := c.Listing.FetchPapers(ctx, filters)
	if err != nil {
		return nil, err
	}

	papers := make([]types.Paper, 0, len(shells))
	for _, shell := range shells {
		select {
		case <-ctx.Done():
			return papers, ctx.Err()
		default:
		}

		full, err := c.Detail.GetByID(ctx, shell.ID)
		if err != nil {
			fmt.Fprintf(c.W, "warning: lookup failed for %s, keeping listing record: %v\n", shell.ID, err)
			papers = append(papers, shell)
			continue
		}

		completed := *full
		completed.Source = shell.Source
		completed.MediaType = shell.MediaType
		completed.MediaURL = shell.MediaURL
		if completed.Title == "" {
			completed.Title = shell.Title
		}
		papers = append(papers, completed)
	}
	return papers, nil
}

func (c *Completed) Search(ctx context.Context, keywords, categories []string, limit int) ([]types.Paper, error) {
	return c.Listing.Search(ctx, keywords, categories, limit)
}

func (c *Completed) GetByID(ctx context.Context, id string) (*types.Paper, error) {
	return c.Detail.GetByID(ctx, id)
}
