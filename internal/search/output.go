// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// FormatTable writes ranked rows as a human-readable table to w. Rows the
// format selector would skip are marked in the last column.
func FormatTable(ranked []types.RankedRow, preferred []string, w io.Writer) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	anyPreferred := AnyPreferred(ranked, preferred)
	accepted := 0

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Title", "Author", "Year", "Format", "Size", "Score", "Mirrors", "Try"})
	for i, r := range ranked {
		try := ""
		if !anyPreferred || MatchesFormat(r.Format, preferred) {
			try = "yes"
			accepted++
		}
		tw.AppendRow(table.Row{
			i + 1,
			text.Trim(r.Title, 50),
			text.Trim(r.Author, 24),
			r.Year,
			r.Format,
			r.Size,
			fmt.Sprintf("%.2f", r.Score),
			len(r.MirrorLinks),
			try,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	tw.Render()

	fmt.Fprintf(w, "%d results, %d with an acceptable format\n", len(ranked), accepted)
}

// FormatJSON writes ranked rows as indented JSON to w.
func FormatJSON(ranked []types.RankedRow, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}
