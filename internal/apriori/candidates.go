package apriori

import (
	"strconv"
	"strings"
)

// colKey encodes a sorted column list as a map key.
func colKey(cols []int) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// sharesPrefix reports whether a and b agree on all but their last column.
func sharesPrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// join builds size-k candidates from lexicographically sorted frequent
// (k-1)-itemsets. Two sets join when they share their first k-2 columns;
// since equal prefixes are contiguous in sorted input, the scan for i stops
// at the first j that differs. Output is in lexicographic order.
func join(prev [][]int) [][]int {
	var out [][]int
	for i := 0; i < len(prev); i++ {
		for j := i + 1; j < len(prev); j++ {
			if !sharesPrefix(prev[i], prev[j]) {
				break
			}
			cand := make([]int, len(prev[i])+1)
			copy(cand, prev[i])
			cand[len(cand)-1] = prev[j][len(prev[j])-1]
			out = append(out, cand)
		}
	}
	return out
}

// hasInfrequentSubset reports whether any (k-1)-subset of cand is missing
// from frequent. No superset of an infrequent set can be frequent.
func hasInfrequentSubset(cand []int, frequent map[string]struct{}) bool {
	sub := make([]int, 0, len(cand)-1)
	for drop := range cand {
		sub = sub[:0]
		sub = append(sub, cand[:drop]...)
		sub = append(sub, cand[drop+1:]...)
		if _, ok := frequent[colKey(sub)]; !ok {
			return true
		}
	}
	return false
}

// prune drops candidates with an infrequent subset, keeping order.
func prune(cands [][]int, frequent map[string]struct{}) [][]int {
	kept := cands[:0]
	for _, c := range cands {
		if !hasInfrequentSubset(c, frequent) {
			kept = append(kept, c)
		}
	}
	return kept
}
