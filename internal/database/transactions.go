package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// ReadTable runs query and returns its result as a positional table. Column
// values are rendered as text; NULL becomes the empty string.
func (db *DB) ReadTable(ctx context.Context, query string) (transaction.Table, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return transaction.Table{}, fmt.Errorf("querying dataset: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return transaction.Table{}, fmt.Errorf("reading columns: %w", err)
	}

	t := transaction.Table{Header: header}
	values := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return transaction.Table{}, fmt.Errorf("scanning row %d: %w", len(t.Rows)+1, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return transaction.Table{}, fmt.Errorf("reading rows: %w", err)
	}
	return t, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// ImportTable normalizes t and appends its records to the transactions
// table. It returns the number of records stored.
func (db *DB) ImportTable(ctx context.Context, t transaction.Table) (int, error) {
	records, err := transaction.Load(t)
	if err != nil {
		return 0, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO transactions (transaction_id, item, timestamp) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.TransactionID, r.Item, r.Timestamp.Format(time.RFC3339)); err != nil {
			return 0, fmt.Errorf("inserting record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(records), nil
}
