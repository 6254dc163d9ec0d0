package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/kindle-fetcher/internal/acquire"
	"github.com/pdiddy/kindle-fetcher/internal/delivery"
	"github.com/pdiddy/kindle-fetcher/internal/ledger"
	"github.com/pdiddy/kindle-fetcher/internal/logging"
	"github.com/pdiddy/kindle-fetcher/internal/wishlist"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [title...]",
	Short: "Find and download one book",
	Long: `Acquire runs the full pipeline for one book: it plans a series of
searches from the title, author, and ISBN, ranks each result set by title
similarity, keeps the preferred formats, and walks the mirrors of each row
until one download succeeds.

The title may be given as arguments or with --title. Use --deliver to send
the file with the configured delivery method and --record to add it to the
ledger.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().String("title", "", "book title")
	acquireCmd.Flags().String("author", "", "book author")
	acquireCmd.Flags().String("isbn", "", "book ISBN")
	acquireCmd.Flags().Bool("deliver", false, "deliver the file with the configured delivery method")
	acquireCmd.Flags().Bool("record", false, "record the book in the ledger")
	acquireCmd.Flags().Bool("force", false, "download even if the ledger already has the title")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = strings.Join(args, " ")
	}
	author, _ := cmd.Flags().GetString("author")
	isbn, _ := cmd.Flags().GetString("isbn")
	deliver, _ := cmd.Flags().GetBool("deliver")
	record, _ := cmd.Flags().GetBool("record")
	force, _ := cmd.Flags().GetBool("force")

	req := wishlist.Normalize(types.BookRequest{Title: title, Author: author, ISBN: isbn})
	if req.IsEmpty() {
		return fmt.Errorf("provide a title (as arguments or --title) or --isbn")
	}
	ctx := cmd.Context()

	var sink delivery.Sink
	if deliver {
		s, err := delivery.New(cfg.Delivery)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("--deliver needs delivery.method set to dir or email")
		}
		sink = s
	}

	var store *ledger.Store
	if record || !force {
		s, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	if store != nil && !force && req.Title != "" {
		have, err := store.Contains(ctx, req.Title)
		if err != nil {
			return err
		}
		if have {
			fmt.Printf("Already acquired: %s (use --force to fetch again)\n", req.Title)
			return nil
		}
	}

	a := acquire.New(cfg, logging.EventLogger(logger))
	result, err := a.Acquire(ctx, req, cfg.Acquisition.PreferredFormats)
	if errors.Is(err, acquire.ErrNotFound) {
		return fmt.Errorf("no downloadable copy of %s found", req)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Acquired %q (%s, %s)\n  %s\n", result.Title, result.Format, result.Size, result.LocalPath)

	if sink != nil {
		if err := sink.Deliver(ctx, result.LocalPath); err != nil {
			return fmt.Errorf("delivering %s: %w", result.LocalPath, err)
		}
		logger.Info("delivered", zap.String("path", result.LocalPath), zap.String("method", string(cfg.Delivery.Method)))
		fmt.Fprintf(os.Stdout, "Delivered via %s\n", cfg.Delivery.Method)
	}

	if record {
		title := req.Title
		if title == "" {
			title = result.Title
		}
		err := store.Record(ctx, ledger.Entry{
			Title:     title,
			Author:    req.Author,
			Format:    result.Format,
			Path:      result.LocalPath,
			SourceURL: result.SourceURL,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
