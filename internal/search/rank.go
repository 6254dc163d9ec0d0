// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

var fold = cases.Fold()

// Rank scores every row against realTitle and returns them best match
// first. Rows with equal scores keep their page order.
func Rank(realTitle string, rows []types.ResultRow) []types.RankedRow {
	ranked := make([]types.RankedRow, len(rows))
	for i, r := range rows {
		ranked[i] = types.RankedRow{ResultRow: r, Score: Similarity(realTitle, r.Title)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Similarity returns the Ratcliff/Obershelp ratio of a and b after case
// folding: twice the number of matched runes over the total rune count.
// Identical strings score 1, strings with no rune in common score 0.
func Similarity(a, b string) float64 {
	ra := []rune(fold.String(a))
	rb := []rune(fold.String(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes sums the lengths of the matching blocks found by taking
// the longest common substring and recursing on both sides of it.
func matchingRunes(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	// Index b by rune so the longest-match scan only visits real hits.
	positions := make(map[rune][]int, len(b))
	for j, r := range b {
		positions[r] = append(positions[r], j)
	}

	matched := 0
	stack := []span{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, positions, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the
// given bounds, preferring the earliest i and then the earliest j.
func longestMatch(a []rune, positions map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	// lengths[j] is the length of the match ending at a[i-1], b[j].
	lengths := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range positions[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return besti, bestj, bestk
}
