// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// QueryFile is the on-disk representation of a catalog search and its
// ranked results. Saving a search lets a failed acquisition be inspected
// later without hitting the catalog again.
type QueryFile struct {
	Query   string            `yaml:"query"`
	Title   string            `yaml:"title"`
	Formats []string          `yaml:"formats,omitempty"`
	Results []types.RankedRow `yaml:"results"`
	Summary QuerySummary      `yaml:"summary"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total     int       `yaml:"total"`
	Accepted  int       `yaml:"accepted"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a ranked search to a YAML file.
func WriteQueryFile(path, query, title string, formats []string, ranked []types.RankedRow) error {
	qf := QueryFile{
		Query:   query,
		Title:   title,
		Formats: formats,
		Results: ranked,
		Summary: QuerySummary{
			Total:     len(ranked),
			Accepted:  len(SelectFormats(ranked, formats)),
			Timestamp: time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
