// Package basket groups transaction records into baskets and encodes them as
// a presence matrix: one bitset row per retained basket, one bit per item of
// the sorted item universe.
package basket

import (
	"math/bits"
	"sort"
	"strconv"

	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// MinBasketSize is the smallest number of distinct items a basket needs to
// take part in co-occurrence mining.
const MinBasketSize = 2

// EmptyBasketSetError is returned when no basket survives the size filter.
type EmptyBasketSetError struct {
	Transactions int // baskets seen before filtering
}

func (e *EmptyBasketSetError) Error() string {
	return "no basket has at least " + strconv.Itoa(MinBasketSize) +
		" distinct items (" + strconv.Itoa(e.Transactions) + " transactions seen)"
}

// Matrix is the one-hot item presence table.
type Matrix struct {
	items []string
	index map[string]int
	ids   []string
	rows  [][]uint64
	words int
}

// Encode builds the presence matrix from records. Repeated items within a
// transaction collapse to a single bit.
func Encode(records []transaction.Record) (*Matrix, error) {
	baskets := make(map[string]map[string]struct{})
	universe := make(map[string]struct{})
	for _, r := range records {
		b, ok := baskets[r.TransactionID]
		if !ok {
			b = make(map[string]struct{})
			baskets[r.TransactionID] = b
		}
		b[r.Item] = struct{}{}
		universe[r.Item] = struct{}{}
	}

	items := make([]string, 0, len(universe))
	for item := range universe {
		items = append(items, item)
	}
	sort.Strings(items)

	m := &Matrix{
		items: items,
		index: make(map[string]int, len(items)),
		words: (len(items) + 63) / 64,
	}
	for i, item := range items {
		m.index[item] = i
	}

	ids := make([]string, 0, len(baskets))
	for id, b := range baskets {
		if len(b) >= MinBasketSize {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, &EmptyBasketSetError{Transactions: len(baskets)}
	}
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })

	m.ids = ids
	m.rows = make([][]uint64, len(ids))
	for r, id := range ids {
		row := make([]uint64, m.words)
		for item := range baskets[id] {
			col := m.index[item]
			row[col/64] |= 1 << (col % 64)
		}
		m.rows[r] = row
	}
	return m, nil
}

// idLess orders integer ids numerically and everything else lexically.
// Integer ids of equal value, such as "7" and "007", fall back to text order.
func idLess(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a < b
}

// N returns the number of retained baskets, the support denominator.
func (m *Matrix) N() int { return len(m.rows) }

// Items returns the item universe in column order.
func (m *Matrix) Items() []string { return m.items }

// IDs returns the retained transaction ids in row order.
func (m *Matrix) IDs() []string { return m.ids }

// Index returns the column of an item.
func (m *Matrix) Index(item string) (int, bool) {
	col, ok := m.index[item]
	return col, ok
}

// Contains reports whether basket row holds item column col.
func (m *Matrix) Contains(row, col int) bool {
	return m.rows[row][col/64]&(1<<(col%64)) != 0
}

// Basket returns the items of a row in column order.
func (m *Matrix) Basket(row int) []string {
	var out []string
	for w, word := range m.rows[row] {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			out = append(out, m.items[w*64+tz])
			word &^= 1 << tz
		}
	}
	return out
}

// Mask returns the bitset selecting the given columns.
func (m *Matrix) Mask(cols []int) []uint64 {
	mask := make([]uint64, m.words)
	for _, col := range cols {
		mask[col/64] |= 1 << (col % 64)
	}
	return mask
}

// CountMask counts rows containing every bit of mask.
func (m *Matrix) CountMask(mask []uint64) int {
	count := 0
rows:
	for _, row := range m.rows {
		for w, bitsWanted := range mask {
			if row[w]&bitsWanted != bitsWanted {
				continue rows
			}
		}
		count++
	}
	return count
}

// CountSuperset counts rows containing all the given columns.
func (m *Matrix) CountSuperset(cols []int) int {
	return m.CountMask(m.Mask(cols))
}

// ColumnSums returns, per item, the number of retained baskets holding it.
func (m *Matrix) ColumnSums() map[string]int {
	sums := make(map[string]int, len(m.items))
	for _, item := range m.items {
		sums[item] = 0
	}
	for r := range m.rows {
		for _, item := range m.Basket(r) {
			sums[item]++
		}
	}
	return sums
}
