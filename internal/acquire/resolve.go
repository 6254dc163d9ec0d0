// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pdiddy/kindle-fetcher/internal/httputil"
	"github.com/pdiddy/kindle-fetcher/internal/search"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

const (
	getLinkText     = "GET"
	debugMirrorFile = "mirror_page.html"
)

// MirrorPages fetches mirror pages. It is shared by every resolver created
// during an acquisition so they honor one rate limiter.
type MirrorPages struct {
	Client    *http.Client
	Limiter   *rate.Limiter
	UserAgent string
	DebugDir  string
}

func (p *MirrorPages) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := httputil.Get(ctx, p.Client, p.Limiter, pageURL, p.UserAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading mirror page: %w", err)
	}
	search.WriteDebugFile(p.DebugDir, debugMirrorFile, body)
	return body, nil
}

// MirrorResolver walks one row's mirror links and turns them into direct
// download URLs. The cursor only moves forward: each link is fetched at
// most once, and after a successful resolution the next call continues
// with the following link.
type MirrorResolver struct {
	pages   *MirrorPages
	baseURL string
	links   []string
	onEvent types.ProgressFunc
	cursor  int
}

// NewMirrorResolver returns a resolver over links. Relative links are
// resolved against baseURL, the catalog origin.
func NewMirrorResolver(pages *MirrorPages, baseURL string, links []string, onEvent types.ProgressFunc) *MirrorResolver {
	return &MirrorResolver{
		pages:   pages,
		baseURL: baseURL,
		links:   links,
		onEvent: onEvent,
	}
}

// Next returns the next direct download URL. ok is false once every link
// has been tried. A mirror page that cannot be fetched is returned as an
// error; callers abandon the row rather than try its remaining links.
// Pages without a GET link are skipped.
func (r *MirrorResolver) Next(ctx context.Context) (d types.ResolvedDownload, ok bool, err error) {
	for r.cursor < len(r.links) {
		idx := r.cursor
		r.cursor++

		href := strings.TrimSpace(r.links[idx])
		if href == "" {
			continue
		}
		pageURL := httputil.AbsoluteURL(r.baseURL, href)

		body, err := r.pages.fetch(ctx, pageURL)
		if err != nil {
			return types.ResolvedDownload{}, false, fmt.Errorf("fetching mirror %d: %w", idx, err)
		}

		link, found := findGetLink(body)
		if !found {
			r.onEvent.Emit(types.Event{Kind: types.EventMirrorDead, URL: pageURL, Index: idx})
			continue
		}

		direct := httputil.AbsoluteURL(pageURL, link)
		r.onEvent.Emit(types.Event{Kind: types.EventMirrorResolved, URL: direct, Index: idx})
		return types.ResolvedDownload{DirectURL: direct, MirrorIndex: idx}, true, nil
	}
	return types.ResolvedDownload{}, false, nil
}

// findGetLink returns the href of the first anchor whose text is exactly
// "GET". Anchors without an href do not count.
func findGetLink(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	var href string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != getLinkText {
			return true
		}
		h, exists := a.Attr("href")
		h = strings.TrimSpace(h)
		if !exists || h == "" {
			return true
		}
		href = h
		return false
	})
	return href, href != ""
}
