// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pdiddy/kindle-fetcher/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the ledger of acquired books (list, add, remove, import, export)",
	Long: `The ledger is a SQLite database of the books already acquired. Batch runs
skip any wishlist title found in it. Titles match case-insensitively with
whitespace collapsed.`,
}

// --- list subcommand ---

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List acquired books",
	RunE:  runLedgerList,
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	formatLedgerTable(entries, os.Stdout)
	return nil
}

func formatLedgerTable(entries []ledger.Entry, w io.Writer) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Ledger is empty.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Title", "Author", "Format", "Acquired", "Path"})
	for i, e := range entries {
		tw.AppendRow(table.Row{
			i + 1,
			text.Trim(e.Title, 50),
			text.Trim(e.Author, 24),
			e.Format,
			e.AcquiredAt.Local().Format("2006-01-02 15:04"),
			e.Path,
		})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d books", len(entries))})
	tw.Render()
}

// --- add subcommand ---

var ledgerAddCmd = &cobra.Command{
	Use:   "add [title...]",
	Short: "Mark a title as acquired",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLedgerAdd,
}

func runLedgerAdd(cmd *cobra.Command, args []string) error {
	author, _ := cmd.Flags().GetString("author")
	title := strings.Join(args, " ")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(cmd.Context(), ledger.Entry{Title: title, Author: author}); err != nil {
		return err
	}
	fmt.Printf("Recorded %q\n", title)
	return nil
}

// --- remove subcommand ---

var ledgerRemoveCmd = &cobra.Command{
	Use:   "remove [title...]",
	Short: "Forget a title so the next batch fetches it again",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLedgerRemove,
}

func runLedgerRemove(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Remove(cmd.Context(), title)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%q is not in the ledger", title)
	}
	fmt.Printf("Removed %q\n", title)
	return nil
}

// --- import subcommand ---

var ledgerImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a plain-text list of titles, one per line",
	Long: `Import reads a text file with one title per line and records every title
not already in the ledger. Blank lines and lines starting with # are
ignored. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runLedgerImport,
}

func runLedgerImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.ImportText(cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d titles into %s\n", added, store.Path())
	return nil
}

// --- export subcommand ---

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to YAML or JSON",
	RunE:  runLedgerExport,
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), w)
	case "json":
		err = store.ExportJSON(cmd.Context(), w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	}
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	ledgerCmd.PersistentFlags().String("ledger", "", "ledger database path (default downloads/ledger.db)")
	bindFlag("ledger.path", ledgerCmd.PersistentFlags().Lookup("ledger"))

	ledgerListCmd.Flags().Bool("json", false, "output entries as JSON")
	ledgerAddCmd.Flags().String("author", "", "book author")
	ledgerExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	ledgerExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	// Wire subcommands.
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerAddCmd)
	ledgerCmd.AddCommand(ledgerRemoveCmd)
	ledgerCmd.AddCommand(ledgerImportCmd)
	ledgerCmd.AddCommand(ledgerExportCmd)

	rootCmd.AddCommand(ledgerCmd)
}
