package transaction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const utf8BOM = "\ufeff"

// ReadCSV reads a delimited table whose first line is a header. A zero
// delimiter means comma.
func ReadCSV(r io.Reader, delimiter rune) (Table, error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, malformed(0, "table is empty")
	}
	if err != nil {
		return Table{}, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("reading row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DelimiterFor picks a delimiter from a file name: tab for .tsv, the
// fallback otherwise (comma when fallback is zero).
func DelimiterFor(name string, fallback rune) rune {
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		return '\t'
	}
	if fallback == 0 {
		return ','
	}
	return fallback
}
