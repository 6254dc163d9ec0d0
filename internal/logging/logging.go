// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zap logger used by the CLI and batch worker
// and adapts pipeline progress events into log entries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// New returns a logger for cfg. Format "json" produces structured output;
// anything else, including empty, produces console output.
func New(cfg types.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil && strings.TrimSpace(cfg.Level) != "" {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// EventLogger returns a ProgressFunc that logs pipeline events on logger.
// Failures are logged at warn level, progress at info, and per-row detail
// at debug.
func EventLogger(logger *zap.Logger) types.ProgressFunc {
	return func(e types.Event) {
		fields := eventFields(e)
		switch e.Kind {
		case types.EventQueryStarted:
			logger.Info("searching catalog", fields...)
		case types.EventSearchFailed:
			logger.Warn("catalog search failed", fields...)
		case types.EventQueryExhausted:
			logger.Info("query exhausted", fields...)
		case types.EventRowRejected:
			logger.Debug("skipping row with unwanted format", fields...)
		case types.EventRowAttempted:
			logger.Info("trying result", fields...)
		case types.EventMirrorResolved:
			logger.Debug("mirror resolved", fields...)
		case types.EventMirrorDead:
			logger.Debug("mirror page has no download link", fields...)
		case types.EventMirrorFailed:
			logger.Warn("mirror page failed", fields...)
		case types.EventDownloadFailed:
			logger.Warn("download failed", fields...)
		case types.EventDownloadSucceeded:
			logger.Info("download complete", fields...)
		default:
			logger.Debug(string(e.Kind), fields...)
		}
	}
}

func eventFields(e types.Event) []zap.Field {
	fields := []zap.Field{zap.String("event", string(e.Kind))}
	if e.Query != "" {
		fields = append(fields, zap.String("query", e.Query))
	}
	if e.Title != "" {
		fields = append(fields, zap.String("title", e.Title))
	}
	if e.Format != "" {
		fields = append(fields, zap.String("format", e.Format))
	}
	if e.URL != "" {
		fields = append(fields, zap.String("url", e.URL))
	}
	if e.Path != "" {
		fields = append(fields, zap.String("path", e.Path))
	}
	switch e.Kind {
	case types.EventQueryStarted, types.EventRowAttempted, types.EventRowRejected,
		types.EventMirrorResolved, types.EventMirrorDead, types.EventDownloadFailed:
		fields = append(fields, zap.Int("index", e.Index))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	return fields
}
