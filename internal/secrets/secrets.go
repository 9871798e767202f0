// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: llm-api-key, notion-api-key, notion-database-id.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names recognized by the CLI wiring.
const (
	KeyLLMAPIKey        = "llm-api-key"
	KeyNotionAPIKey     = "notion-api-key"
	KeyNotionDatabaseID = "notion-database-id"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Value returns the secret for key unless explicit is already set, in
// which case explicit wins. Config-file values override key files.
func Value(loaded map[string]string, key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return loaded[key]
}
