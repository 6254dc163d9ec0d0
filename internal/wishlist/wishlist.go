// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wishlist reads the list of books to acquire. A wishlist is either
// a YAML file of requests or a saved store wishlist page.
package wishlist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// Source produces book requests.
type Source interface {
	Requests(ctx context.Context) ([]types.BookRequest, error)
}

// Open returns the source for path: HTML pages are scraped, anything else
// is read as a YAML wishlist file.
func Open(path string) Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return HTMLSource{Path: path}
	default:
		return FileSource{Path: path}
	}
}

// FileSource reads a YAML wishlist:
//
//	books:
//	  - title: Atomic Habits
//	    author: James Clear
//	    isbn: 978-0735211308
type FileSource struct {
	Path string
}

type wishlistFile struct {
	Books []types.BookRequest `yaml:"books"`
}

// Requests returns the normalized, non-empty requests in file order.
func (s FileSource) Requests(ctx context.Context) ([]types.BookRequest, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading wishlist: %w", err)
	}
	var f wishlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing wishlist %s: %w", s.Path, err)
	}
	return normalizeAll(f.Books), nil
}

// WriteFile saves reqs as a YAML wishlist at path.
func WriteFile(path string, reqs []types.BookRequest) error {
	data, err := yaml.Marshal(wishlistFile{Books: reqs})
	if err != nil {
		return fmt.Errorf("marshaling wishlist: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// StaticSource is an in-memory wishlist.
type StaticSource []types.BookRequest

// Requests returns a normalized copy of the list.
func (s StaticSource) Requests(ctx context.Context) ([]types.BookRequest, error) {
	return normalizeAll(s), nil
}

func normalizeAll(reqs []types.BookRequest) []types.BookRequest {
	out := make([]types.BookRequest, 0, len(reqs))
	for _, r := range reqs {
		r = Normalize(r)
		if r.IsEmpty() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Normalize strips invisible format characters (such as the U+200E marks
// scraped pages put in front of ISBNs) and collapses whitespace in every
// field. An ISBN with no digits, like a "not found" placeholder, is
// dropped.
func Normalize(req types.BookRequest) types.BookRequest {
	req.Title = clean(req.Title)
	req.Author = clean(req.Author)
	req.ISBN = strings.ReplaceAll(clean(req.ISBN), " ", "")
	if strings.IndexFunc(req.ISBN, unicode.IsDigit) < 0 {
		req.ISBN = ""
	}
	return req
}

func clean(s string) string {
	stripped, _, err := transform.String(runes.Remove(runes.In(unicode.Cf)), s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(stripped), " ")
}
