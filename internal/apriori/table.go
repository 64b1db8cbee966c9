package apriori

import "sort"

// Entry is a frequent itemset with its absolute and relative support.
type Entry struct {
	Items   Itemset
	Count   int
	Support float64
}

// Table holds the frequent itemsets of one mining run, ordered by support
// descending, then size ascending, then lexicographically.
type Table struct {
	// N is the number of baskets supports are relative to.
	N       int
	Entries []Entry
	index   map[string]int
}

func newTable(n int, entries []Entry) *Table {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if len(a.Items) != len(b.Items) {
			return len(a.Items) < len(b.Items)
		}
		return Compare(a.Items, b.Items) < 0
	})

	t := &Table{N: n, Entries: entries, index: make(map[string]int, len(entries))}
	for i, e := range entries {
		t.index[e.Items.Key()] = i
	}
	return t
}

// Len returns the number of frequent itemsets.
func (t *Table) Len() int { return len(t.Entries) }

// Lookup finds the entry for items, in any order.
func (t *Table) Lookup(items ...string) (Entry, bool) {
	i, ok := t.index[NewItemset(items...).Key()]
	if !ok {
		return Entry{}, false
	}
	return t.Entries[i], true
}

// OfSize returns the entries with exactly k items, in table order.
func (t *Table) OfSize(k int) []Entry {
	var out []Entry
	for _, e := range t.Entries {
		if len(e.Items) == k {
			out = append(out, e)
		}
	}
	return out
}
