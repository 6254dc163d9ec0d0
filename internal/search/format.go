// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

// SelectFormats returns the ranked rows worth attempting, in ranked order.
// When at least one row has a preferred format, only such rows are
// returned; otherwise every row is returned so the caller can fall back to
// the best available format instead of giving up.
func SelectFormats(ranked []types.RankedRow, preferred []string) []types.RankedRow {
	anyPreferred := AnyPreferred(ranked, preferred)

	selected := make([]types.RankedRow, 0, len(ranked))
	for _, r := range ranked {
		if anyPreferred && !MatchesFormat(r.Format, preferred) {
			continue
		}
		selected = append(selected, r)
	}
	return selected
}

// AnyPreferred reports whether any row has a preferred format.
func AnyPreferred(ranked []types.RankedRow, preferred []string) bool {
	for _, r := range ranked {
		if MatchesFormat(r.Format, preferred) {
			return true
		}
	}
	return false
}

// MatchesFormat reports whether format contains any non-empty preferred
// format, ignoring case.
func MatchesFormat(format string, preferred []string) bool {
	format = strings.ToLower(format)
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(format, p) {
			return true
		}
	}
	return false
}
