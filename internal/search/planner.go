// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strings"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var (
	// editionPattern matches "2nd edition", "3RD Edition", and similar.
	editionPattern = regexp.MustCompile(`(?i)\b\d+(st|nd|rd|th)\s+edition\b`)

	// bracketPattern matches a parenthesized or bracketed segment and the
	// whitespace before it.
	bracketPattern = regexp.MustCompile(`\s*[\(\[].*?[\)\]]`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// Plan returns the search strings to try for req, most specific first:
// ISBN, title with author, title, cleaned title with author, cleaned title.
// Empty strings are skipped. Duplicates are kept; searching the same string
// twice is harmless and keeps the plan shape predictable.
func Plan(req types.BookRequest) []string {
	var queries []string
	add := func(q string) {
		if q != "" {
			queries = append(queries, q)
		}
	}

	if req.ISBN != "" {
		add(req.ISBN)
	}
	if req.Title != "" && req.Author != "" {
		add(strings.TrimSpace(req.Title + " " + req.Author))
	}
	add(req.Title)

	cleaned := CleanTitle(req.Title)
	add(strings.TrimSpace(cleaned + " " + req.Author))
	add(cleaned)

	return queries
}

// CleanTitle reduces a marketing title to the core title catalogs index:
// it drops any subtitle after the first colon, "Nth edition" markers, and
// parenthesized or bracketed segments, then collapses whitespace.
// CleanTitle is idempotent.
func CleanTitle(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		title = title[:i]
	}
	// Removing a bracketed segment can bring an edition marker together
	// ("3rd (Revised) Edition"), so repeat until nothing changes.
	for {
		next := cleanOnce(title)
		if next == title {
			return next
		}
		title = next
	}
}

func cleanOnce(title string) string {
	title = editionPattern.ReplaceAllString(title, "")
	title = bracketPattern.ReplaceAllString(title, "")
	title = multiSpacePattern.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
