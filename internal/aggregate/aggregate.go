// Package aggregate computes item popularity and calendar counts straight
// from transaction records, independent of basket mining.
package aggregate

import (
	"sort"

	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// Count is one row of a count report.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Report bundles the three popularity reports.
type Report struct {
	Items    []Count `json:"items"`
	Weekdays []Count `json:"weekdays"`
	Months   []Count `json:"months"`
}

// Build computes all reports for records.
func Build(records []transaction.Record) Report {
	return Report{
		Items:    ItemCounts(records),
		Weekdays: ByWeekday(records),
		Months:   ByMonth(records),
	}
}

// ItemCounts counts item occurrences across all records.
func ItemCounts(records []transaction.Record) []Count {
	return countBy(records, func(r transaction.Record) string { return r.Item })
}

// ByWeekday counts records per weekday name of their timestamp.
func ByWeekday(records []transaction.Record) []Count {
	return countBy(records, func(r transaction.Record) string { return r.Timestamp.Weekday().String() })
}

// ByMonth counts records per month name of their timestamp.
func ByMonth(records []transaction.Record) []Count {
	return countBy(records, func(r transaction.Record) string { return r.Timestamp.Month().String() })
}

// countBy reduces records by key and sorts by count descending, key
// ascending.
func countBy(records []transaction.Record, key func(transaction.Record) string) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		counts[key(r)]++
	}

	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Top returns the first n counts of a descending report.
func Top(counts []Count, n int) []Count {
	if n < 0 || n > len(counts) {
		n = len(counts)
	}
	return counts[:n]
}

// Bottom returns the n smallest counts in ascending order.
func Bottom(counts []Count, n int) []Count {
	if n < 0 || n > len(counts) {
		n = len(counts)
	}
	out := make([]Count, 0, n)
	for i := len(counts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, counts[i])
	}
	return out
}
