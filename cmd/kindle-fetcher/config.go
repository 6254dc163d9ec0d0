// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

const (
	configName = "kindle-fetcher"
	envPrefix  = "KINDLE_FETCHER"
)

// configureEnv maps config keys to KINDLE_FETCHER_* variables and registers
// the defaults.
func configureEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(types.DefaultConfig())
}

// setDefaults registers every config key so environment variables such as
// KINDLE_FETCHER_CATALOG_BASE_URL resolve even without a config file.
func setDefaults(d types.Config) {
	defaults := map[string]any{
		"catalog.timeout":             d.Catalog.Timeout,
		"catalog.user_agent":          d.Catalog.UserAgent,
		"catalog.base_url":            d.Catalog.BaseURL,
		"catalog.max_results":         d.Catalog.MaxResults,
		"catalog.requests_per_second": d.Catalog.RequestsPerSecond,
		"catalog.debug_dir":           d.Catalog.DebugDir,

		"acquisition.download_timeout":  d.Acquisition.DownloadTimeout,
		"acquisition.download_dir":      d.Acquisition.DownloadDir,
		"acquisition.preferred_formats": d.Acquisition.PreferredFormats,
		"acquisition.query_delay":       d.Acquisition.QueryDelay,
		"acquisition.write_metadata":    d.Acquisition.WriteMetadata,

		"ledger.path": d.Ledger.Path,

		"delivery.method":        string(d.Delivery.Method),
		"delivery.dir":           d.Delivery.Dir,
		"delivery.smtp_host":     d.Delivery.SMTPHost,
		"delivery.smtp_port":     d.Delivery.SMTPPort,
		"delivery.smtp_username": d.Delivery.SMTPUsername,
		"delivery.smtp_password": d.Delivery.SMTPPassword,
		"delivery.from":          d.Delivery.From,
		"delivery.to":            d.Delivery.To,
		"delivery.timeout":       d.Delivery.Timeout,

		"batch.wishlist":          d.Batch.Wishlist,
		"batch.empty_retry_delay": d.Batch.EmptyRetryDelay,
		"batch.interval":          d.Batch.Interval,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// loadConfig resolves the configuration from defaults, the config file,
// KINDLE_FETCHER_* environment variables, and bound flags, in increasing
// order of precedence.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("parsing config: %w", err)
	}
	if len(c.Acquisition.PreferredFormats) == 0 {
		c.Acquisition.PreferredFormats = append([]string(nil), types.DefaultFormats...)
	}
	return c, nil
}

// bindFlag binds a flag to a config key. Only flags the user sets override
// the config.
func bindFlag(key string, f *pflag.Flag) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	return errors.As(err, target)
}
