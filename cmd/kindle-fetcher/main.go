// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kindle-fetcher CLI. It searches a
// book catalog, downloads the best available copy of a requested book, and
// can work through a whole wishlist, delivering each book to a reading
// device and remembering what it already fetched.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/kindle-fetcher/internal/logging"
	"github.com/pdiddy/kindle-fetcher/internal/secrets"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration for the running command.
	cfg types.Config

	// logger is built from cfg.Log before any command runs.
	logger = zap.NewNop()
)

// rootCmd is the base command for the kindle-fetcher CLI.
var rootCmd = &cobra.Command{
	Use:   "kindle-fetcher",
	Short: "Find and download books, then send them to your e-reader",
	Long: `kindle-fetcher acquires books from a LibGen-style catalog. Given a title,
and optionally an author or ISBN, it tries a series of progressively looser
searches, ranks the results by title similarity, prefers the formats you ask
for, follows mirror pages to a direct link, and streams the file to disk.

Use acquire for a single book and batch to work through a wishlist. Batch runs
skip books recorded in the ledger and can deliver each download to a mounted
device folder or a device email address.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(c.Log)
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			l.Debug("using config file", zap.String("path", used))
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, l)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			l.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		secrets.ApplyDelivery(s, &c.Delivery)

		cfg = c
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./kindle-fetcher.yaml or ~/.config/kindle-fetcher/kindle-fetcher.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of credential files")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	pf.String("download-dir", "", "directory for downloaded books")
	pf.StringSlice("formats", nil, "preferred formats, most wanted first (e.g. epub,pdf)")
	pf.String("catalog-url", "", "catalog base URL")
	pf.String("debug-dir", "", "write raw catalog and mirror HTML here")

	bindFlag("log.level", pf.Lookup("log-level"))
	bindFlag("log.format", pf.Lookup("log-format"))
	bindFlag("acquisition.download_dir", pf.Lookup("download-dir"))
	bindFlag("acquisition.preferred_formats", pf.Lookup("formats"))
	bindFlag("catalog.base_url", pf.Lookup("catalog-url"))
	bindFlag("catalog.debug_dir", pf.Lookup("debug-dir"))
}

func initConfig() {
	// A .env file is optional.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	configureEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !asConfigNotFound(err, &notFound) {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
