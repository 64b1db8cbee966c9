package transaction

import "fmt"

// MalformedInputError reports a structurally invalid input table: too few
// columns, no rows, or a value that cannot be interpreted.
type MalformedInputError struct {
	Row    int // 1-based data row, 0 when the problem is table-wide
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed input at row %d: %s", e.Row, e.Reason)
	}
	return "malformed input: " + e.Reason
}

func malformed(row int, format string, args ...any) *MalformedInputError {
	return &MalformedInputError{Row: row, Reason: fmt.Sprintf(format, args...)}
}
