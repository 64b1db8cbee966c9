// Package transaction loads raw purchase rows into normalized transaction
// records. Columns are interpreted positionally: the first three columns are
// the transaction id, the item name and the timestamp, whatever their headers
// say.
package transaction

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RequiredColumns is the number of leading columns a table must carry.
const RequiredColumns = 3

// Record is one purchased item within a transaction.
type Record struct {
	TransactionID string
	Item          string
	Timestamp     time.Time
}

// Table is raw tabular input before normalization.
type Table struct {
	Header []string
	Rows   [][]string
}

// Load normalizes a table into records.
//
// Rows with a blank id, item or timestamp are dropped. A timestamp that is
// present but unparseable fails the whole load, as does a table with fewer
// than three columns or with no usable rows.
func Load(t Table) ([]Record, error) {
	if len(t.Header) < RequiredColumns {
		return nil, malformed(0, "expected at least %d columns, got %d", RequiredColumns, len(t.Header))
	}
	if len(t.Rows) == 0 {
		return nil, malformed(0, "table has no rows")
	}

	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) < RequiredColumns {
			continue
		}
		id := strings.TrimSpace(row[0])
		item := strings.TrimSpace(row[1])
		rawTime := strings.TrimSpace(row[2])
		if id == "" || item == "" || rawTime == "" {
			continue
		}

		ts, err := ParseTimestamp(rawTime)
		if err != nil {
			return nil, malformed(i+1, "unparseable timestamp %q", rawTime)
		}
		records = append(records, Record{TransactionID: id, Item: item, Timestamp: ts})
	}

	if len(records) == 0 {
		return nil, malformed(0, "no rows with id, item and timestamp")
	}
	return records, nil
}

// ParseTimestamp parses a date or date-time in any common layout. Values
// without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}
