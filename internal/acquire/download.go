// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/kindle-fetcher/internal/httputil"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

const (
	copyBufferSize = 8 * 1024
	defaultExt     = ".pdf"
)

// Downloader streams files to disk. Its client carries the download
// timeout, which is longer than the one used for catalog pages.
type Downloader struct {
	Client    *http.Client
	UserAgent string

	now func() time.Time
}

// NewDownloader returns a Downloader using client, or a new client with
// the configured download timeout when client is nil.
func NewDownloader(client *http.Client, cfg types.AcquisitionConfig, userAgent string) *Downloader {
	if client == nil {
		timeout := cfg.DownloadTimeout
		if timeout <= 0 {
			timeout = types.DefaultDownloadTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{Client: client, UserAgent: userAgent, now: time.Now}
}

// Download fetches rawURL into dir and returns the absolute path of the
// written file. The name comes from Content-Disposition, else the final
// URL path segment, else a timestamp; fallbackExt is appended when the name
// has no extension. The body is written to a temporary file and renamed
// into place, so a failed download never leaves a partial file behind.
func (d *Downloader) Download(ctx context.Context, rawURL, dir, fallbackExt string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	resp, err := httputil.Get(ctx, d.Client, nil, rawURL, d.UserAgent)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := d.filename(resp, rawURL, fallbackExt)
	destPath := filepath.Join(dir, name)

	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	buf := make([]byte, copyBufferSize)
	_, copyErr := io.CopyBuffer(onlyWriter{tmpFile}, resp.Body, buf)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	abs, err := filepath.Abs(destPath)
	if err != nil {
		return destPath, nil
	}
	return abs, nil
}

// onlyWriter hides the file's ReadFrom so io.CopyBuffer uses the fixed
// buffer.
type onlyWriter struct{ io.Writer }

func (d *Downloader) filename(resp *http.Response, rawURL, fallbackExt string) string {
	name := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if name == "" {
		finalURL := rawURL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		name = urlFilename(finalURL)
	}
	if name == "" {
		name = fmt.Sprintf("book_%d", d.clock().Unix())
	}

	if filepath.Ext(name) == "" {
		name += normalizeExt(fallbackExt)
	}
	name = SanitizeFilename(name)
	if name == "" || strings.Trim(name, ".") == "" {
		name = fmt.Sprintf("book_%d%s", d.clock().Unix(), normalizeExt(fallbackExt))
	}
	return name
}

func (d *Downloader) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// dispositionFilename extracts the filename parameter of a
// Content-Disposition header. Malformed headers fall back to splitting on
// "filename=".
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	} else if _, after, found := strings.Cut(header, "filename="); found {
		name, _, _ = strings.Cut(after, ";")
		name = strings.Trim(strings.TrimSpace(name), `"'`)
	}
	return baseName(name)
}

// urlFilename returns the last path segment of rawURL.
func urlFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return baseName(u.Path)
}

// baseName strips any directory components, including Windows-style ones.
func baseName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return defaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with an
// underscore, so "My Book: Part 1?.epub" becomes "My_Book__Part_1_.epub".
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
