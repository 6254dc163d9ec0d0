// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search finds candidate editions of a book in the catalog. It plans
// the search strings for a request, runs a catalog search and parses the
// result table, ranks rows by title similarity, and decides which rows have
// an acceptable file format.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/kindle-fetcher/internal/httputil"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

const (
	searchPath      = "/index.php"
	debugSearchFile = "catalog_search.html"
)

// Category flags sent with every search: title, author, series, year,
// publisher and ISBN columns; files, editions, series, authors, publishers
// and works objects; every topic.
var (
	searchColumns = []string{"t", "a", "s", "y", "p", "i"}
	searchObjects = []string{"f", "e", "s", "a", "p", "w"}
	searchTopics  = []string{"l", "c", "f", "a", "m", "r", "s"}
)

// Catalog issues searches against the catalog's HTML search endpoint.
type Catalog struct {
	Client  *http.Client
	Limiter *rate.Limiter
	cfg     types.CatalogConfig
}

// NewCatalog returns a Catalog for cfg. When client is nil a client with
// cfg.Timeout is created; the catalog must never block a caller forever.
func NewCatalog(client *http.Client, cfg types.CatalogConfig) *Catalog {
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultCatalogURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = types.DefaultMaxResults
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = types.DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Catalog{
		Client:  client,
		Limiter: httputil.NewLimiter(cfg.RequestsPerSecond),
		cfg:     cfg,
	}
}

// BaseURL returns the catalog origin used to absolutize mirror links.
func (c *Catalog) BaseURL() string { return c.cfg.BaseURL }

// SearchURL builds the search request URL for query.
func (c *Catalog) SearchURL(query string) string {
	v := url.Values{}
	v.Set("req", query)
	for _, col := range searchColumns {
		v.Add("columns[]", col)
	}
	for _, obj := range searchObjects {
		v.Add("objects[]", obj)
	}
	for _, topic := range searchTopics {
		v.Add("topics[]", topic)
	}
	v.Set("res", strconv.Itoa(c.cfg.MaxResults))
	v.Set("filesuns", "all")
	return strings.TrimRight(c.cfg.BaseURL, "/") + searchPath + "?" + v.Encode()
}

// Search runs one catalog search and returns the parsed rows in page order.
// A non-2xx response is returned as *httputil.StatusError; Search does not
// retry. Zero rows is not an error.
func (c *Catalog) Search(ctx context.Context, query string) ([]types.ResultRow, error) {
	resp, err := httputil.Get(ctx, c.Client, c.Limiter, c.SearchURL(query), c.cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("catalog search %q: %w", query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	WriteDebugFile(c.cfg.DebugDir, debugSearchFile, body)

	rows, err := ParseResults(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return rows, nil
}

// WriteDebugFile saves body as dir/name when dir is set. Failures are
// ignored; the dump only exists for post-hoc inspection.
func WriteDebugFile(dir, name string, body []byte) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, name), body, 0o644)
}
