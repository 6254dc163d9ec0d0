// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns a book request into a file on disk. It runs the
// planned catalog queries in order, walks the accepted rows of each search,
// resolves their mirror pages to direct links, and streams the first file
// that downloads successfully.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kindle-fetcher/internal/search"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var (
	// ErrNotFound is returned when every query, row and mirror failed.
	ErrNotFound = errors.New("no downloadable copy found")

	// ErrEmptyRequest is returned for a request with neither title nor ISBN.
	ErrEmptyRequest = errors.New("book request has no title or ISBN")
)

// formatToken matches row formats usable as a file extension.
var formatToken = regexp.MustCompile(`^[a-z0-9]+$`)

// Searcher runs one catalog query. *search.Catalog implements it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.ResultRow, error)
	BaseURL() string
}

// Acquirer runs the acquisition pipeline for one request at a time.
type Acquirer struct {
	Catalog    Searcher
	Pages      *MirrorPages
	Downloader *Downloader

	DownloadDir   string
	QueryDelay    time.Duration
	WriteMetadata bool

	// OnEvent receives progress events. It may be nil.
	OnEvent types.ProgressFunc
}

// New builds an Acquirer from cfg. Catalog and mirror pages share one
// client and rate limiter; downloads get their own client with the longer
// download timeout.
func New(cfg types.Config, onEvent types.ProgressFunc) *Acquirer {
	catalog := search.NewCatalog(nil, cfg.Catalog)
	return &Acquirer{
		Catalog: catalog,
		Pages: &MirrorPages{
			Client:    catalog.Client,
			Limiter:   catalog.Limiter,
			UserAgent: cfg.Catalog.UserAgent,
			DebugDir:  cfg.Catalog.DebugDir,
		},
		Downloader:    NewDownloader(nil, cfg.Acquisition, cfg.Catalog.UserAgent),
		DownloadDir:   cfg.Acquisition.DownloadDir,
		QueryDelay:    cfg.Acquisition.QueryDelay,
		WriteMetadata: cfg.Acquisition.WriteMetadata,
		OnEvent:       onEvent,
	}
}

// Acquire searches for req and downloads the first copy that works.
// Queries are tried most specific first; within a query, rows are tried in
// ranked order among those with an acceptable format; within a row, mirrors
// are tried in page order. A failure at any level moves on to the next
// candidate. When everything is exhausted Acquire returns ErrNotFound.
// Context cancellation is returned as is.
func (a *Acquirer) Acquire(ctx context.Context, req types.BookRequest, formats []string) (*types.AcquisitionResult, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyRequest
	}

	queries := search.Plan(req)
	for i, query := range queries {
		a.OnEvent.Emit(types.Event{Kind: types.EventQueryStarted, Query: query, Index: i})

		result, err := a.tryQuery(ctx, req, query, formats)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}

		a.OnEvent.Emit(types.Event{Kind: types.EventQueryExhausted, Query: query, Index: i})
		if i < len(queries)-1 {
			if err := sleep(ctx, a.QueryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", req, ErrNotFound)
}

// tryQuery returns a nil result and nil error when the query produced
// nothing usable.
func (a *Acquirer) tryQuery(ctx context.Context, req types.BookRequest, query string, formats []string) (*types.AcquisitionResult, error) {
	rows, err := a.Catalog.Search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.OnEvent.Emit(types.Event{Kind: types.EventSearchFailed, Query: query, Err: err})
		return nil, nil
	}

	ranked := search.Rank(req.Title, rows)
	anyPreferred := search.AnyPreferred(ranked, formats)
	for i, row := range ranked {
		if anyPreferred && !search.MatchesFormat(row.Format, formats) {
			a.OnEvent.Emit(types.Event{Kind: types.EventRowRejected, Query: query, Title: row.Title, Format: row.Format, Index: i})
			continue
		}
		a.OnEvent.Emit(types.Event{Kind: types.EventRowAttempted, Query: query, Title: row.Title, Format: row.Format, Index: i})

		result, err := a.tryRow(ctx, query, row)
		if err != nil || result != nil {
			return result, err
		}
	}
	return nil, nil
}

func (a *Acquirer) tryRow(ctx context.Context, query string, row types.RankedRow) (*types.AcquisitionResult, error) {
	resolver := NewMirrorResolver(a.pages(), a.Catalog.BaseURL(), row.MirrorLinks, a.OnEvent)
	for {
		d, ok, err := resolver.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.OnEvent.Emit(types.Event{Kind: types.EventMirrorFailed, Title: row.Title, Err: err})
			return nil, nil
		}
		if !ok {
			return nil, nil
		}

		path, err := a.Downloader.Download(ctx, d.DirectURL, a.downloadDir(), fallbackExt(row.Format))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.OnEvent.Emit(types.Event{Kind: types.EventDownloadFailed, Title: row.Title, URL: d.DirectURL, Index: d.MirrorIndex, Err: err})
			continue
		}
		a.OnEvent.Emit(types.Event{Kind: types.EventDownloadSucceeded, Title: row.Title, URL: d.DirectURL, Path: path})

		result := &types.AcquisitionResult{
			Title:     row.Title,
			Author:    row.Author,
			Format:    row.Format,
			Size:      row.Size,
			SourceURL: d.DirectURL,
			LocalPath: path,
			Query:     query,
		}
		if a.WriteMetadata {
			_ = writeMetadata(result, path+".yaml")
		}
		return result, nil
	}
}

func (a *Acquirer) pages() *MirrorPages {
	if a.Pages == nil {
		a.Pages = &MirrorPages{Client: &http.Client{Timeout: types.DefaultTimeout}}
	}
	return a.Pages
}

func (a *Acquirer) downloadDir() string {
	if a.DownloadDir == "" {
		return types.DefaultDownloadDir
	}
	return a.DownloadDir
}

// fallbackExt is the extension used when the served filename has none:
// the row's format when it looks like an extension, otherwise ".pdf".
func fallbackExt(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if formatToken.MatchString(format) {
		return "." + format
	}
	return defaultExt
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// writeMetadata writes an acquisition record next to the downloaded file.
func writeMetadata(result *types.AcquisitionResult, path string) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadMetadata loads an acquisition record written next to a download.
func ReadMetadata(path string) (*types.AcquisitionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result types.AcquisitionResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return &result, nil
}
