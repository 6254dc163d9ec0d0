// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// fakeRow is one result row served by fakeCatalog.
type fakeRow struct {
	title, author, format string
	mirrors               []string
}

// fakeCatalog emulates the catalog search page, mirror pages and file
// downloads on one httptest server.
type fakeCatalog struct {
	*httptest.Server

	mu       sync.Mutex
	results  map[string][]fakeRow // query -> rows; missing query -> empty table
	failing  map[string]bool      // queries answered with 503
	mirrors  map[string]string    // mirror path -> page body
	files    map[string]string    // file path -> body
	queries  []string
	fileHits int
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{
		results: map[string][]fakeRow{},
		failing: map[string]bool{},
		mirrors: map[string]string{},
		files:   map[string]string{},
	}
	fc.Server = httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(fc.Close)
	return fc
}

func (fc *fakeCatalog) serve(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if r.URL.Path == "/index.php" {
		q := r.URL.Query().Get("req")
		fc.queries = append(fc.queries, q)
		if fc.failing[q] {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, renderResults(fc.results[q]))
		return
	}
	if page, ok := fc.mirrors[r.URL.Path]; ok {
		fmt.Fprint(w, page)
		return
	}
	if body, ok := fc.files[r.URL.Path]; ok {
		fc.fileHits++
		name := filepath.Base(r.URL.Path)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(name, "_", " ")))
		fmt.Fprint(w, body)
		return
	}
	http.NotFound(w, r)
}

func (fc *fakeCatalog) searched() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.queries...)
}

func renderResults(rows []fakeRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="tablelibgen"><tr><th>Title</th><th>Author</th></tr>`)
	for _, r := range rows {
		b.WriteString("<tr>")
		fmt.Fprintf(&b, "<td><b>%s</b></td><td>%s</td>", r.title, r.author)
		b.WriteString("<td>Pub</td><td>2015</td><td>English</td><td>300</td><td>1 MB</td>")
		fmt.Fprintf(&b, "<td>%s</td><td>", r.format)
		for i, m := range r.mirrors {
			fmt.Fprintf(&b, `<a href="%s">[%d]</a>`, m, i+1)
		}
		b.WriteString("</td></tr>")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func newTestAcquirer(t *testing.T, fc *fakeCatalog, log *eventLog) *Acquirer {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.Catalog.BaseURL = fc.URL
	cfg.Catalog.RequestsPerSecond = 0
	cfg.Acquisition.DownloadDir = filepath.Join(t.TempDir(), "downloads")
	cfg.Acquisition.QueryDelay = 0

	var onEvent types.ProgressFunc
	if log != nil {
		onEvent = log.record
	}
	return New(cfg, onEvent)
}

func TestAcquireEndToEnd(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.results["9780241187265"] = []fakeRow{
		{title: "Art of the Start 2.0", author: "Guy Kawasaki", format: "epub", mirrors: []string{"/ads/epub"}},
		{title: "The Art of the Start", author: "Guy Kawasaki", format: "pdf", mirrors: []string{"/ads/pdf"}},
	}
	fc.mirrors["/ads/epub"] = liveMirrorPage("/get/Art_of_the_Start.epub")
	fc.files["/get/Art_of_the_Start.epub"] = "epub bytes"

	var log eventLog
	a := newTestAcquirer(t, fc, &log)
	req := types.BookRequest{Title: "The Art of the Start", Author: "Guy Kawasaki", ISBN: "9780241187265"}

	result, err := a.Acquire(context.Background(), req, []string{"epub"})
	require.NoError(t, err)

	assert.Equal(t, []string{"9780241187265"}, fc.searched(), "the ISBN query is tried first and wins")
	assert.Equal(t, "9780241187265", result.Query)
	assert.Equal(t, "Art of the Start 2.0", result.Title)
	assert.Equal(t, "epub", result.Format)
	assert.Equal(t, fc.URL+"/get/Art_of_the_Start.epub", result.SourceURL)
	assert.Equal(t, "Art_of_the_Start.epub", filepath.Base(result.LocalPath))
	assert.Equal(t, filepath.Join(a.DownloadDir, "Art_of_the_Start.epub"), result.LocalPath)

	data, err := os.ReadFile(result.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "epub bytes", string(data))

	assert.Equal(t, 1, log.count(types.EventRowRejected), "the better-titled pdf row is skipped")
	assert.Equal(t, 1, log.count(types.EventDownloadSucceeded))
}

func TestAcquireNothingFound(t *testing.T) {
	fc := newFakeCatalog(t)
	a := newTestAcquirer(t, fc, nil)
	req := types.BookRequest{Title: "Nonexistent Book: A Novel", Author: "Nobody", ISBN: "0000000000"}

	result, err := a.Acquire(context.Background(), req, []string{"epub"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Nil(t, result)

	assert.Len(t, fc.searched(), 5)
	_, statErr := os.Stat(a.DownloadDir)
	assert.True(t, os.IsNotExist(statErr), "no file or directory is written")
}

func TestAcquireFallsThroughFailures(t *testing.T) {
	fc := newFakeCatalog(t)
	req := types.BookRequest{Title: "Dune", Author: "Frank Herbert"}
	queries := []string{"Dune Frank Herbert", "Dune"}

	// First query errors; second query has a row whose mirror page is
	// broken, then a row whose first mirror serves a missing file.
	fc.failing[queries[0]] = true
	fc.results[queries[1]] = []fakeRow{
		{title: "Dune", format: "epub", mirrors: []string{"/ads/broken", "/ads/never"}},
		{title: "Dune", format: "epub", mirrors: []string{"/ads/missing-file", "/ads/good"}},
	}
	fc.mirrors["/ads/never"] = liveMirrorPage("/get/never.epub")
	fc.mirrors["/ads/missing-file"] = liveMirrorPage("/get/nothing-here.epub")
	fc.mirrors["/ads/good"] = liveMirrorPage("/get/Dune.epub")
	fc.files["/get/Dune.epub"] = "spice"
	fc.files["/get/never.epub"] = "unreachable"

	var log eventLog
	a := newTestAcquirer(t, fc, &log)

	result, err := a.Acquire(context.Background(), req, []string{"epub"})
	require.NoError(t, err)
	assert.Equal(t, "Dune", result.Query)
	assert.Equal(t, "Dune.epub", filepath.Base(result.LocalPath))
	assert.Equal(t, queries, fc.searched())

	assert.Equal(t, []types.EventKind{
		types.EventQueryStarted,
		types.EventSearchFailed,
		types.EventQueryExhausted,
		types.EventQueryStarted,
		types.EventRowAttempted,
		types.EventMirrorFailed,
		types.EventRowAttempted,
		types.EventMirrorResolved,
		types.EventDownloadFailed,
		types.EventMirrorResolved,
		types.EventDownloadSucceeded,
	}, log.kinds())
}

func TestAcquireDegradesToAvailableFormat(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.results["Obscure Title"] = []fakeRow{
		{title: "Obscure Title", format: "djvu", mirrors: []string{"/ads/djvu"}},
	}
	fc.mirrors["/ads/djvu"] = liveMirrorPage("/get/12345")
	fc.files["/get/12345"] = "scan"

	a := newTestAcquirer(t, fc, nil)
	result, err := a.Acquire(context.Background(), types.BookRequest{Title: "Obscure Title"}, []string{"epub"})
	require.NoError(t, err)
	assert.Equal(t, "djvu", result.Format)
	assert.Equal(t, "12345.djvu", filepath.Base(result.LocalPath))
}

func TestAcquireWritesMetadata(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.results["Dune"] = []fakeRow{{title: "Dune", author: "Frank Herbert", format: "epub", mirrors: []string{"/ads/1"}}}
	fc.mirrors["/ads/1"] = liveMirrorPage("/get/Dune.epub")
	fc.files["/get/Dune.epub"] = "spice"

	a := newTestAcquirer(t, fc, nil)
	a.WriteMetadata = true

	result, err := a.Acquire(context.Background(), types.BookRequest{Title: "Dune"}, nil)
	require.NoError(t, err)

	meta, err := ReadMetadata(result.LocalPath + ".yaml")
	require.NoError(t, err)
	assert.Equal(t, *result, *meta)
}

func TestAcquireEmptyRequest(t *testing.T) {
	a := &Acquirer{}
	_, err := a.Acquire(context.Background(), types.BookRequest{Author: "Someone"}, nil)
	assert.ErrorIs(t, err, ErrEmptyRequest)
}

func TestAcquireCancelled(t *testing.T) {
	fc := newFakeCatalog(t)
	a := newTestAcquirer(t, fc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Acquire(ctx, types.BookRequest{Title: "Dune"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrNotFound))
}
