// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wishlist

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var (
	asinPattern   = regexp.MustCompile(`/dp/([A-Za-z0-9]+)`)
	bylinePattern = regexp.MustCompile(`by\s+([^(]+)`)
)

// HTMLSource reads a wishlist page saved from the store.
type HTMLSource struct {
	Path string
}

// Requests parses the saved page.
func (s HTMLSource) Requests(ctx context.Context) ([]types.BookRequest, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening wishlist page: %w", err)
	}
	defer f.Close()
	return ParseHTML(f)
}

// ParseHTML extracts book requests from a wishlist page. Elements carrying
// data-title (with optional data-author and data-isbn) attributes are used
// when present. Otherwise every product link ("/dp/<ASIN>") is matched to
// its item container, and the title and byline are read from there. Items
// without both a title and an author are skipped, as are repeated ASINs.
func ParseHTML(r io.Reader) ([]types.BookRequest, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing wishlist HTML: %w", err)
	}

	var reqs []types.BookRequest
	doc.Find("[data-title]").Each(func(_ int, s *goquery.Selection) {
		reqs = append(reqs, types.BookRequest{
			Title:  s.AttrOr("data-title", ""),
			Author: s.AttrOr("data-author", ""),
			ISBN:   s.AttrOr("data-isbn", ""),
		})
	})
	if len(reqs) > 0 {
		return normalizeAll(reqs), nil
	}

	seen := map[string]bool{}
	doc.Find(`a[href*="/dp/"]`).Each(func(_ int, a *goquery.Selection) {
		m := asinPattern.FindStringSubmatch(a.AttrOr("href", ""))
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true

		item := itemContainer(a)
		if item == nil {
			return
		}
		req := types.BookRequest{
			Title:  itemTitle(item, m[1]),
			Author: itemAuthor(item),
		}
		if req.Title == "" || req.Author == "" {
			return
		}
		reqs = append(reqs, req)
	})
	return normalizeAll(reqs), nil
}

// itemContainer finds the wishlist entry enclosing a product link: the
// mobile layout's item list element, or the nearest div holding exactly
// one item name and a byline.
func itemContainer(a *goquery.Selection) *goquery.Selection {
	if li := a.Closest(`li[class*="awl-item-wrapper"]`); li.Length() > 0 {
		if li.Find(`h2[class*="item-title"], h3[class*="item-title"], span[id*="item-byline"]`).Length() > 0 {
			return li
		}
	}
	var found *goquery.Selection
	a.ParentsFiltered("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		names := div.Find(`[id*="itemName"]`).Length()
		if names > 1 {
			// Reached the list itself; this link has no entry of its own.
			return false
		}
		if names == 1 && div.Find(`span[id*="item-byline"]`).Length() > 0 {
			found = div
			return false
		}
		return true
	})
	return found
}

func itemTitle(item *goquery.Selection, asin string) string {
	if t := strings.TrimSpace(item.Find(`h3[class*="item-title"]`).First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(item.Find(`[id*="itemName"]`).First().Text()); t != "" {
		return t
	}
	link := item.Find(fmt.Sprintf(`a[href*="/dp/%s"][title]`, asin)).First()
	return strings.TrimSpace(link.AttrOr("title", ""))
}

// itemAuthor reads "by Name (Format)" bylines.
func itemAuthor(item *goquery.Selection) string {
	byline := strings.TrimSpace(item.Find(`span[id*="item-byline"]`).First().Text())
	if m := bylinePattern.FindStringSubmatch(byline); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
