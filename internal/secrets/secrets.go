// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized keys: smtp-username, smtp-password, kindle-email, sender-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// Key file names.
const (
	SMTPUsername = "smtp-username"
	SMTPPassword = "smtp-password"
	KindleEmail  = "kindle-email"
	SenderEmail  = "sender-email"
)

// DefaultDir is where secrets are looked up when no directory is configured.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ApplyDelivery fills credentials in cfg that are not already set from
// the loaded secrets. Values from the config file, environment, or flags
// take precedence.
func ApplyDelivery(secrets map[string]string, cfg *types.DeliveryConfig) {
	fill := func(field *string, key string) {
		if *field == "" {
			*field = secrets[key]
		}
	}
	fill(&cfg.SMTPUsername, SMTPUsername)
	fill(&cfg.SMTPPassword, SMTPPassword)
	fill(&cfg.To, KindleEmail)
	fill(&cfg.From, SenderEmail)
}
