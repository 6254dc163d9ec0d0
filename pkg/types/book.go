// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the kindle-fetcher pipeline:
// book requests coming from a wishlist, rows parsed from catalog search
// results, ranked candidates, resolved download URLs, and the acquisition
// result handed to delivery and the ledger.
package types

import "strings"

// BookRequest identifies a book to acquire. Title is required; Author and
// ISBN sharpen the search when present.
type BookRequest struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	ISBN   string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
}

// IsEmpty reports whether the request has nothing to search for.
func (r BookRequest) IsEmpty() bool {
	return strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.ISBN) == ""
}

// String returns "Title by Author", or just the title when no author is set.
func (r BookRequest) String() string {
	if r.Author == "" {
		return r.Title
	}
	return r.Title + " by " + r.Author
}

// ResultRow is one candidate edition parsed from a catalog search response.
type ResultRow struct {
	Title     string `json:"title" yaml:"title"`
	Author    string `json:"author" yaml:"author"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Year      string `json:"year,omitempty" yaml:"year,omitempty"`
	Language  string `json:"language,omitempty" yaml:"language,omitempty"`
	Pages     string `json:"pages,omitempty" yaml:"pages,omitempty"`
	Size      string `json:"size,omitempty" yaml:"size,omitempty"`

	// Format is the file extension column, lowercased (e.g. "epub").
	Format string `json:"format" yaml:"format"`

	// MirrorLinks holds the href of every anchor in the mirrors cell, in
	// document order. Anchors without an href are kept as empty strings.
	MirrorLinks []string `json:"mirror_links" yaml:"mirror_links"`
}

// RankedRow is a ResultRow scored against the requested title.
type RankedRow struct {
	ResultRow `yaml:",inline"`

	// Score is the title similarity in [0,1]; 1 is an exact match.
	Score float64 `json:"score" yaml:"score"`
}

// ResolvedDownload is the direct file URL reached by following a row's
// mirror pages.
type ResolvedDownload struct {
	DirectURL string

	// MirrorIndex is the position in the row's mirror list that produced
	// DirectURL.
	MirrorIndex int
}

// AcquisitionResult describes a book that was found and written to disk.
type AcquisitionResult struct {
	Title     string `json:"title" yaml:"title"`
	Author    string `json:"author" yaml:"author"`
	Format    string `json:"format" yaml:"format"`
	Size      string `json:"size" yaml:"size"`
	SourceURL string `json:"source_url" yaml:"source_url"`
	LocalPath string `json:"local_path" yaml:"local_path"`

	// Query is the search string that produced the winning row.
	Query string `json:"query" yaml:"query"`
}
