// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search and acquire
// stages: a throttled GET that treats non-2xx as an error, and the catalog's
// rules for turning relative links into absolute URLs.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// StatusError reports a response whose status code was outside 2xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// NewLimiter returns a limiter allowing rps requests per second with a burst
// of one, or nil when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Get issues a GET for rawURL with the given User-Agent, waiting on limiter
// first when it is non-nil. A non-2xx response is drained, closed, and
// reported as *StatusError; it is never retried. On success the caller owns
// the response body.
func Get(ctx context.Context, client *http.Client, limiter *rate.Limiter, rawURL, userAgent string) (*http.Response, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Origin returns the scheme://host part of rawURL, or rawURL trimmed of
// trailing slashes when it does not parse.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(rawURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// AbsoluteURL resolves href against base the way the catalog's pages expect:
// absolute http(s) links are returned as is, scheme-relative links take the
// base scheme, root-relative links are prefixed with the base origin, and
// anything else is joined to the origin with a slash.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	origin := Origin(base)

	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		scheme := "https"
		if u, err := url.Parse(origin); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		}
		return scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return origin + href
	default:
		return origin + "/" + href
	}
}
