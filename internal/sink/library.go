// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperdaily/pkg/types"
)

// Library stores papers in a local SQLite database. One row per paper,
// with tags and collection memberships in side tables.
type Library struct {
	db      *sql.DB
	enabled bool
}

// NewLibrary opens or creates the database at cfg.Path and creates the
// schema if it does not exist. A disabled config yields a sink that
// reports unavailable without touching the filesystem.
func NewLibrary(cfg types.LibraryConfig) (*Library, error) {
	if !cfg.Enabled {
		return &Library{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	l := &Library{db: db, enabled: true}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Library) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Library) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			published TEXT,
			summary TEXT,
			translation TEXT,
			short_summary TEXT,
			tldr TEXT,
			category TEXT,
			pdf_url TEXT,
			abstract_url TEXT,
			doi TEXT,
			journal_ref TEXT,
			source TEXT,
			added_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			tag TEXT NOT NULL,
			PRIMARY KEY (paper_id, tag)
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			collection TEXT NOT NULL,
			PRIMARY KEY (paper_id, collection)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_name ON collections(collection)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (l *Library) Name() string { return "library" }

func (l *Library) Available() bool { return l.enabled }

// Exists reports whether the paper id has a row.
func (l *Library) Exists(ctx context.Context, paperID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM papers WHERE id = ?`, paperID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying paper %s: %w", paperID, err)
	}
	return true, nil
}

// Insert stores the paper with its tags and collection memberships in
// one transaction. An existing row is left untouched and reported as
// StatusExists.
func (l *Library) Insert(ctx context.Context, paper *types.Paper, collections []string) (types.InsertResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM papers WHERE id = ?`, paper.ID).Scan(&one)
	if err == nil {
		return types.InsertResult{Status: types.StatusExists, Message: "already in library"}, nil
	}
	if err != sql.ErrNoRows {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("querying paper %s: %w", paper.ID, err)
	}

	authorsJSON, _ := json.Marshal(paper.Authors)
	tldrJSON, _ := json.Marshal(paper.TLDR)
	published := ""
	if !paper.Published.IsZero() {
		published = paper.Published.Format(time.RFC3339)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (id, title, authors, published, summary, translation,
			short_summary, tldr, category, pdf_url, abstract_url, doi, journal_ref, source, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		paper.ID, paper.Title, string(authorsJSON), published, paper.Summary,
		paper.Translation, paper.ShortSummary, string(tldrJSON), paper.Category,
		paper.PDFURL, paper.AbstractURL, paper.DOI, paper.JournalRef, paper.Source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("inserting paper %s: %w", paper.ID, err)
	}

	for _, tag := range paper.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (paper_id, tag) VALUES (?, ?)`, paper.ID, tag); err != nil {
			return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	for _, coll := range collections {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO collections (paper_id, collection) VALUES (?, ?)`, paper.ID, coll); err != nil {
			return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("inserting collection %q: %w", coll, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.InsertResult{Status: types.StatusFailed}, fmt.Errorf("committing insert: %w", err)
	}
	return types.InsertResult{Status: types.StatusInserted}, nil
}

// Tags returns the stored tags for a paper, sorted.
func (l *Library) Tags(ctx context.Context, paperID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT tag FROM tags WHERE paper_id = ? ORDER BY tag`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Collections returns the stored collection memberships for a paper.
func (l *Library) Collections(ctx context.Context, paperID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT collection FROM collections WHERE paper_id = ? ORDER BY collection`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var collections []string
	for rows.Next() {
		var coll string
		if err := rows.Scan(&coll); err != nil {
			return nil, err
		}
		collections = append(collections, coll)
	}
	return collections, rows.Err()
}
