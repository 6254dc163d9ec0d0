// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kindle-fetcher/internal/httputil"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

func testCatalogConfig(baseURL string) types.CatalogConfig {
	return types.CatalogConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "kindle-fetcher-test/0.1",
		},
		BaseURL:    baseURL,
		MaxResults: 25,
	}
}

// --- Plan ---

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		req  types.BookRequest
		want []string
	}{
		{
			name: "isbn, author and noisy title",
			req: types.BookRequest{
				Title:  "Topgrading, 3rd Edition: The Proven Hiring and Promoting Method",
				Author: "Bradford D. Smart",
				ISBN:   "978-1591845263",
			},
			want: []string{
				"978-1591845263",
				"Topgrading, 3rd Edition: The Proven Hiring and Promoting Method Bradford D. Smart",
				"Topgrading, 3rd Edition: The Proven Hiring and Promoting Method",
				"Topgrading, Bradford D. Smart",
				"Topgrading,",
			},
		},
		{
			name: "title only",
			req:  types.BookRequest{Title: "The Giver (Giver Quartet, Book 1)"},
			want: []string{
				"The Giver (Giver Quartet, Book 1)",
				"The Giver",
				"The Giver",
			},
		},
		{
			name: "isbn only",
			req:  types.BookRequest{ISBN: "978-0062868954"},
			want: []string{"978-0062868954"},
		},
		{
			name: "empty request",
			req:  types.BookRequest{},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.req))
		})
	}
}

func TestPlanISBNFirst(t *testing.T) {
	reqs := []types.BookRequest{
		{Title: "Art of the Start", Author: "Guy Kawasaki", ISBN: "978-0241187265"},
		{Title: "Atomic Habits", ISBN: "9780735211308"},
		{Title: "x", Author: "y", ISBN: "0-00-000000-0"},
	}
	for _, req := range reqs {
		queries := Plan(req)
		require.NotEmpty(t, queries)
		assert.Equal(t, req.ISBN, queries[0])
	}
}

func TestPlanFullRequestHasFiveQueries(t *testing.T) {
	queries := Plan(types.BookRequest{Title: "Art of the Start", Author: "Guy Kawasaki", ISBN: "978-0241187265"})
	assert.Len(t, queries, 5)
}

// --- CleanTitle ---

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Atomic Habits: An Easy & Proven Way to Build Good Habits", "Atomic Habits"},
		{"Broken Country (Reese's Book Club)", "Broken Country"},
		{"The Giver [Giver Quartet, Book 1]", "The Giver"},
		{"Clean Code 2nd Edition", "Clean Code"},
		{"Clean Code 2ND EDITION", "Clean Code"},
		{"  Too    many   spaces  ", "Too many spaces"},
		{"Plain", "Plain"},
		{"", ""},
		{"Design (1st) Patterns 3rd (Revised) Edition", "Design Patterns"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}

func TestCleanTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Topgrading, 3rd Edition: The Proven Hiring Method",
		"Buy Back Your Time: Get Unstuck",
		"Broken Country (Reese's Book Club)",
		"A 3rd (odd) edition title",
		"((nested)) [and] (stray",
		"Tabs\tand\nnewlines",
		"", ":", "()",
	}
	for _, in := range inputs {
		once := CleanTitle(in)
		assert.Equal(t, once, CleanTitle(once), "input %q", in)
	}
}

// --- ParseResults ---

func TestParseResults(t *testing.T) {
	rows, err := ParseResults(strings.NewReader(sampleResultsHTML))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, "Art of the Start 2.0", first.Title)
	assert.Equal(t, "Guy Kawasaki", first.Author)
	assert.Equal(t, "Portfolio", first.Publisher)
	assert.Equal(t, "2015", first.Year)
	assert.Equal(t, "English", first.Language)
	assert.Equal(t, "336", first.Pages)
	assert.Equal(t, "1 MB", first.Size)
	assert.Equal(t, "epub", first.Format, "format is lowercased")
	assert.Equal(t, []string{"/ads.php?md5=aaa", "https://library.lol/main/aaa"}, first.MirrorLinks)

	assert.Equal(t, "The Art of the Start", rows[1].Title, "falls back to link text")
	assert.Equal(t, []string{"", "/ads.php?md5=bbb"}, rows[1].MirrorLinks, "anchor without href is kept empty")

	assert.Equal(t, UnknownTitle, rows[2].Title)
	assert.Empty(t, rows[2].MirrorLinks)

	assert.Equal(t, "Linked Title", rows[3].Title, "blank bold text falls through to the link")
}

func TestParseResultsNoTable(t *testing.T) {
	rows, err := ParseResults(strings.NewReader("<html><body><p>Nothing found</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ParseResults(strings.NewReader(emptyResultsHTML))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// --- Catalog ---

func TestCatalogSearchURL(t *testing.T) {
	c := NewCatalog(nil, testCatalogConfig("https://libgen.example/"))
	got := c.SearchURL("Art of the Start")

	assert.True(t, strings.HasPrefix(got, "https://libgen.example/index.php?"), got)
	assert.Contains(t, got, "req=Art+of+the+Start")
	assert.Contains(t, got, "res=25")
	assert.Contains(t, got, "filesuns=all")
	assert.Contains(t, got, "objects%5B%5D=f")
	assert.Contains(t, got, "topics%5B%5D=l")
	assert.Contains(t, got, "columns%5B%5D=i")
}

func TestCatalogSearch(t *testing.T) {
	var gotQuery, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.php" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("req")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, sampleResultsHTML)
	}))
	defer ts.Close()

	debugDir := t.TempDir()
	cfg := testCatalogConfig(ts.URL)
	cfg.DebugDir = debugDir
	c := NewCatalog(ts.Client(), cfg)

	rows, err := c.Search(context.Background(), "978-0241187265")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "978-0241187265", gotQuery)
	assert.Equal(t, "kindle-fetcher-test/0.1", gotUA)

	dump, err := os.ReadFile(filepath.Join(debugDir, debugSearchFile))
	require.NoError(t, err)
	assert.Equal(t, sampleResultsHTML, string(dump))
}

func TestCatalogSearchNonSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewCatalog(ts.Client(), testCatalogConfig(ts.URL))
	rows, err := c.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, rows)

	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestNewCatalogDefaults(t *testing.T) {
	c := NewCatalog(nil, types.CatalogConfig{})
	require.NotNil(t, c.Client)
	assert.Equal(t, types.DefaultTimeout, c.Client.Timeout)
	assert.Equal(t, types.DefaultCatalogURL, c.BaseURL())
	assert.Nil(t, c.Limiter)
	assert.Contains(t, c.SearchURL("x"), fmt.Sprintf("res=%d", types.DefaultMaxResults))
}

// --- Rank ---

func TestRankOrdersByTitleSimilarity(t *testing.T) {
	rows := []types.ResultRow{
		{Title: "Atomic Habits"},
		{Title: "Atomic Habit"},
		{Title: "Random Book"},
	}
	ranked := Rank("Atomic Habits", rows)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Atomic Habits", ranked[0].Title)
	assert.Equal(t, "Atomic Habit", ranked[1].Title)
	assert.Equal(t, "Random Book", ranked[2].Title)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.Greater(t, ranked[1].Score, ranked[2].Score)

	shuffled := []types.ResultRow{rows[2], rows[1], rows[0]}
	ranked = Rank("Atomic Habits", shuffled)
	assert.Equal(t, "Atomic Habits", ranked[0].Title)
	assert.Equal(t, "Random Book", ranked[2].Title)
}

func TestRankIsStable(t *testing.T) {
	rows := []types.ResultRow{
		{Title: "Dune", Format: "pdf"},
		{Title: "Dune", Format: "epub"},
		{Title: "Dune", Format: "mobi"},
	}
	ranked := Rank("Dune", rows)
	var formats []string
	for _, r := range ranked {
		formats = append(formats, r.Format)
	}
	assert.Equal(t, []string{"pdf", "epub", "mobi"}, formats)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank("anything", nil))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Atomic Habits", "atomic habits"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", ""), 1e-9)
	// 2 * 12 / 25
	assert.InDelta(t, 0.96, Similarity("Atomic Habits", "Atomic Habit"), 1e-9)
	// Ratcliff/Obershelp on "abcd" vs "bcde": block "bcd" -> 2*3/8.
	assert.InDelta(t, 0.75, Similarity("abcd", "bcde"), 1e-9)

	base := Similarity("the art of the start", "art")
	more := Similarity("the art of the start", "art of the")
	assert.Greater(t, more, base, "adding shared text raises the score")
}

// --- SelectFormats ---

func rankedWithFormats(formats ...string) []types.RankedRow {
	rows := make([]types.RankedRow, len(formats))
	for i, f := range formats {
		rows[i] = types.RankedRow{ResultRow: types.ResultRow{Title: fmt.Sprintf("row %d", i), Format: f}}
	}
	return rows
}

func formatsOf(rows []types.RankedRow) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.Format)
	}
	return out
}

func TestSelectFormats(t *testing.T) {
	tests := []struct {
		name      string
		formats   []string
		preferred []string
		want      []string
	}{
		{"only the preferred row", []string{"pdf", "epub", "mobi"}, []string{"epub"}, []string{"epub"}},
		{"degrade to best available", []string{"pdf", "djvu"}, []string{"epub"}, []string{"pdf", "djvu"}},
		{"keeps ranked order", []string{"mobi", "pdf", "epub", "azw3"}, []string{"epub", "mobi"}, []string{"mobi", "epub"}},
		{"case insensitive substring", []string{"EPUB", "fb2.zip", "epub (zip)"}, []string{"Epub"}, []string{"EPUB", "epub (zip)"}},
		{"no preference accepts all", []string{"pdf", "djvu"}, nil, []string{"pdf", "djvu"}},
		{"blank preference ignored", []string{"pdf"}, []string{""}, []string{"pdf"}},
		{"no rows", nil, []string{"epub"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectFormats(rankedWithFormats(tt.formats...), tt.preferred)
			assert.Equal(t, tt.want, formatsOf(got))
		})
	}
}

// --- Output ---

func TestFormatTable(t *testing.T) {
	ranked := Rank("Art of the Start", []types.ResultRow{
		{Title: "Art of the Start", Author: "Guy Kawasaki", Format: "epub", Size: "1 MB", MirrorLinks: []string{"/a"}},
		{Title: "Art of War", Author: "Sun Tzu", Format: "pdf"},
	})
	var buf bytes.Buffer
	FormatTable(ranked, []string{"epub"}, &buf)

	out := buf.String()
	assert.Contains(t, out, "Art of the Start")
	assert.Contains(t, out, "Guy Kawasaki")
	assert.Contains(t, out, "2 results, 1 with an acceptable format")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, nil, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	ranked := Rank("Dune", []types.ResultRow{
		{Title: "Dune", Format: "epub", MirrorLinks: []string{"/ads.php?md5=1"}},
		{Title: "Dune Messiah", Format: "pdf"},
	})

	require.NoError(t, WriteQueryFile(path, "Dune Frank Herbert", "Dune", []string{"epub"}, ranked))

	qf, err := ReadQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Dune Frank Herbert", qf.Query)
	assert.Equal(t, 2, qf.Summary.Total)
	assert.Equal(t, 1, qf.Summary.Accepted)
	require.Len(t, qf.Results, 2)
	assert.Equal(t, "Dune", qf.Results[0].Title)
	assert.Equal(t, []string{"/ads.php?md5=1"}, qf.Results[0].MirrorLinks)
}
