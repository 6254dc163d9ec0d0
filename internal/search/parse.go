// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// UnknownTitle is used when a result row has no readable title.
const UnknownTitle = "Unknown Title"

// resultsTable is the id of the catalog's results table.
const resultsTable = "#tablelibgen"

// Column positions in a results row.
const (
	colTitle = iota
	colAuthor
	colPublisher
	colYear
	colLanguage
	colPages
	colSize
	colExtension
	colMirrors
	minColumns
)

// ParseResults extracts rows from a catalog search page. Rows with fewer
// than the expected number of cells (header rows, ads, malformed markup) are
// skipped. A page without a results table yields no rows and no error.
func ParseResults(r io.Reader) ([]types.ResultRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := doc.Find(resultsTable).First()
	if table.Length() == 0 {
		return nil, nil
	}

	var rows []types.ResultRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < minColumns {
			return
		}
		text := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		rows = append(rows, types.ResultRow{
			Title:       rowTitle(cells.Eq(colTitle)),
			Author:      text(colAuthor),
			Publisher:   text(colPublisher),
			Year:        text(colYear),
			Language:    text(colLanguage),
			Pages:       text(colPages),
			Size:        text(colSize),
			Format:      strings.ToLower(text(colExtension)),
			MirrorLinks: mirrorLinks(cells.Eq(colMirrors)),
		})
	})
	return rows, nil
}

// rowTitle prefers the bold title, then the first link's text, then
// UnknownTitle.
func rowTitle(cell *goquery.Selection) string {
	if t := strings.TrimSpace(cell.Find("b").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(cell.Find("a").First().Text()); t != "" {
		return t
	}
	return UnknownTitle
}

func mirrorLinks(cell *goquery.Selection) []string {
	var links []string
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links = append(links, strings.TrimSpace(href))
	})
	return links
}
