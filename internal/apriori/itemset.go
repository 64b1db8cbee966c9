package apriori

import (
	"sort"
	"strings"
)

// Itemset is a set of item names kept in sorted order.
type Itemset []string

// NewItemset returns the sorted, de-duplicated itemset of items.
func NewItemset(items ...string) Itemset {
	out := make(Itemset, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// String renders the set as "{a, b}".
func (s Itemset) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}

// Key is a map key identifying the set.
func (s Itemset) Key() string {
	return strings.Join(s, "\x1f")
}

// Compare orders itemsets lexicographically by member, shorter first on a
// shared prefix.
func Compare(a, b Itemset) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
