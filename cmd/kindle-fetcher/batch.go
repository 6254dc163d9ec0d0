// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/kindle-fetcher/internal/acquire"
	"github.com/pdiddy/kindle-fetcher/internal/batch"
	"github.com/pdiddy/kindle-fetcher/internal/delivery"
	"github.com/pdiddy/kindle-fetcher/internal/ledger"
	"github.com/pdiddy/kindle-fetcher/internal/logging"
	"github.com/pdiddy/kindle-fetcher/internal/wishlist"
)

var batchCmd = &cobra.Command{
	Use:   "batch [wishlist]",
	Short: "Acquire every book on a wishlist",
	Long: `Batch reads a wishlist (a YAML file with a books list, or a saved wishlist
HTML page), skips titles already in the ledger, and acquires the rest one at
a time. Each download is delivered with the configured delivery method and
recorded in the ledger once it succeeds.

With --interval the batch repeats until interrupted. The first interrupt
finishes the current book and stops; a second one aborts immediately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("wishlist", "", "wishlist file (.yaml or .html)")
	batchCmd.Flags().Duration("interval", 0, "repeat the batch on this period (0 runs once)")
	batchCmd.Flags().Duration("empty-retry-delay", 0, "wait this long and re-read an empty wishlist once")
	batchCmd.Flags().Bool("no-deliver", false, "skip delivery even if a method is configured")

	bindFlag("batch.wishlist", batchCmd.Flags().Lookup("wishlist"))
	bindFlag("batch.interval", batchCmd.Flags().Lookup("interval"))
	bindFlag("batch.empty_retry_delay", batchCmd.Flags().Lookup("empty-retry-delay"))

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	path := cfg.Batch.Wishlist
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("provide a wishlist file as an argument, with --wishlist, or as batch.wishlist")
	}
	noDeliver, _ := cmd.Flags().GetBool("no-deliver")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := &batch.Runner{
		Source:          wishlist.Open(path),
		Acquirer:        acquire.New(cfg, logging.EventLogger(logger)),
		Ledger:          store,
		Formats:         cfg.Acquisition.PreferredFormats,
		EmptyRetryDelay: cfg.Batch.EmptyRetryDelay,
		Logger:          logger,
	}
	if !noDeliver {
		sink, err := delivery.New(cfg.Delivery)
		if err != nil {
			return err
		}
		if sink != nil {
			runner.Sink = sink
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	worker := batch.NewWorker(runner, cfg.Acquisition.DownloadDir, cfg.Batch.Interval, logger)
	worker.OnResult = func(r batch.Result) {
		fmt.Println(r.Summary())
	}
	if err := worker.Start(ctx); err != nil {
		if errors.Is(err, batch.ErrLocked) {
			return fmt.Errorf("another batch is already using %s", cfg.Acquisition.DownloadDir)
		}
		return err
	}

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()
	go func() {
		interrupts := 0
		for range sigs {
			interrupts++
			if interrupts == 1 {
				logger.Info("interrupt received, stopping after the current book")
				worker.Stop()
				continue
			}
			logger.Warn("second interrupt, aborting")
			cancel()
			return
		}
	}()

	results, err := worker.Wait()
	if err != nil {
		logger.Error("batch ended with error", zap.Error(err))
		return err
	}

	failed := 0
	for _, r := range results {
		failed += r.Failed
	}
	if failed > 0 && cfg.Batch.Interval <= 0 {
		return fmt.Errorf("%d book(s) failed acquisition", failed)
	}
	return nil
}
