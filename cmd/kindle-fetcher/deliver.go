// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kindle-fetcher/internal/delivery"
	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver [files...]",
	Short: "Send downloaded books to the reading device",
	Long: `Deliver sends each file with the configured delivery method: dir copies it
into a device folder (such as a mounted Kindle's documents directory) and
email attaches it to a message for the device's address.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeliver,
}

func init() {
	deliverCmd.Flags().String("method", "", "override delivery.method: dir or email")
	deliverCmd.Flags().String("to", "", "override the device address for email delivery")
	deliverCmd.Flags().String("dir", "", "override the device folder for dir delivery")

	rootCmd.AddCommand(deliverCmd)
}

func runDeliver(cmd *cobra.Command, args []string) error {
	dc := cfg.Delivery
	if m, _ := cmd.Flags().GetString("method"); m != "" {
		dc.Method = types.DeliveryMethod(m)
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		dc.To = to
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		dc.Dir = dir
	}

	sink, err := delivery.New(dc)
	if err != nil {
		return err
	}
	if sink == nil {
		return fmt.Errorf("no delivery method configured: set delivery.method or pass --method")
	}

	failed := 0
	for _, path := range args {
		if err := sink.Deliver(cmd.Context(), path); err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("OK   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed delivery", failed)
	}
	return nil
}
