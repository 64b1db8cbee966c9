package transaction

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPositionalColumns(t *testing.T) {
	table := Table{
		Header: []string{"TransactionNo", "Items", "DateTime", "Daypart"},
		Rows: [][]string{
			{"1", "Bread", "2016-10-30 09:58:11", "Morning"},
			{"1", "Coffee", "2016-10-30 09:58:11", "Morning"},
			{"2", " Scandinavian ", "2016-10-31 10:05:34", "Morning"},
		},
	}

	records, err := Load(table)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1", records[0].TransactionID)
	assert.Equal(t, "Bread", records[0].Item)
	assert.Equal(t, time.Date(2016, 10, 30, 9, 58, 11, 0, time.UTC), records[0].Timestamp)
	assert.Equal(t, "Scandinavian", records[2].Item, "item names are trimmed")
}

func TestLoadTwoColumnsIsMalformed(t *testing.T) {
	table := Table{
		Header: []string{"id", "item"},
		Rows:   [][]string{{"1", "bread"}},
	}

	_, err := Load(table)
	var malformedErr *MalformedInputError
	require.True(t, errors.As(err, &malformedErr), "expected MalformedInputError, got %v", err)
	assert.Zero(t, malformedErr.Row)
}

func TestLoadEmptyTableIsMalformed(t *testing.T) {
	_, err := Load(Table{Header: []string{"id", "item", "date"}})
	var malformedErr *MalformedInputError
	require.ErrorAs(t, err, &malformedErr)
}

func TestLoadDropsRowsMissingValues(t *testing.T) {
	table := Table{
		Header: []string{"id", "item", "date"},
		Rows: [][]string{
			{"1", "bread", "2024-01-01"},
			{"", "milk", "2024-01-01"},
			{"2", "  ", "2024-01-02"},
			{"3", "eggs", ""},
			{"4"},
			{"5", "jam", "2024-01-03"},
		},
	}

	records, err := Load(table)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "bread", records[0].Item)
	assert.Equal(t, "jam", records[1].Item)
}

func TestLoadAllRowsDroppedIsMalformed(t *testing.T) {
	table := Table{
		Header: []string{"id", "item", "date"},
		Rows:   [][]string{{"", "", ""}},
	}
	_, err := Load(table)
	var malformedErr *MalformedInputError
	require.ErrorAs(t, err, &malformedErr)
}

func TestLoadBadTimestampNamesRow(t *testing.T) {
	table := Table{
		Header: []string{"id", "item", "date"},
		Rows: [][]string{
			{"1", "bread", "2024-01-01"},
			{"1", "milk", "not-a-date"},
		},
	}

	_, err := Load(table)
	var malformedErr *MalformedInputError
	require.ErrorAs(t, err, &malformedErr)
	assert.Equal(t, 2, malformedErr.Row)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "3/5/2024", "2024/03/05"} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffPurchaseID,Item,Date\n1,bread,2024-01-01\n1,\"milk, whole\",2024-01-01\n2,eggs,2024-01-02,extra\n"

	table, err := ReadCSV(strings.NewReader(in), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"PurchaseID", "Item", "Date"}, table.Header)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "milk, whole", table.Rows[1][1])
	assert.Len(t, table.Rows[2], 4)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), ',')
	var malformedErr *MalformedInputError
	require.ErrorAs(t, err, &malformedErr)
}

func TestReadCSVTabDelimited(t *testing.T) {
	in := "id\titem\tdate\n7\ttea\t2024-02-02\n"
	table, err := ReadCSV(strings.NewReader(in), DelimiterFor("upload.TSV", ','))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "tea", table.Rows[0][1])
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, '\t', DelimiterFor("a.tsv", ';'))
	assert.Equal(t, ';', DelimiterFor("a.csv", ';'))
	assert.Equal(t, ',', DelimiterFor("a.csv", 0))
}
