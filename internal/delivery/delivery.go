// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delivery hands a downloaded book to the reading device, either by
// copying it into a mounted documents folder or by emailing it to the
// device's address.
package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// Sink delivers a local file. A nil error means the file was delivered.
type Sink interface {
	Deliver(ctx context.Context, path string) error
}

// New returns the sink for cfg.Method, or nil for DeliveryNone.
func New(cfg types.DeliveryConfig) (Sink, error) {
	switch cfg.Method {
	case types.DeliveryNone, "":
		return nil, nil
	case types.DeliveryDir:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("delivery method %q requires delivery.dir", cfg.Method)
		}
		return DirSink{Dir: cfg.Dir}, nil
	case types.DeliveryEmail:
		return NewEmailSink(cfg)
	default:
		return nil, fmt.Errorf("unknown delivery method %q", cfg.Method)
	}
}

// DirSink copies files into Dir, typically a mounted e-reader's documents
// folder.
type DirSink struct {
	Dir string
}

// Deliver copies path into the sink directory under the same name. The copy
// is written to a temporary file first so a partial copy never appears on
// the device.
func (s DirSink) Deliver(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", s.Dir, err)
	}

	tmpFile, err := os.CreateTemp(s.Dir, ".deliver-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, src)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("copying to %s: %w", s.Dir, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	dest := filepath.Join(s.Dir, filepath.Base(path))
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
