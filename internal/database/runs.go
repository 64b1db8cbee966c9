package database

import (
	"context"
	"fmt"
	"time"
)

// timeLayout is fixed width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertRun records a pipeline execution.
func (db *DB) InsertRun(ctx context.Context, r Run) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs
		(id, dataset, started_at, duration_ms, records, baskets, items, itemsets, rules, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Dataset, r.StartedAt.UTC().Format(timeLayout), r.Duration.Milliseconds(),
		r.Records, r.Baskets, r.Items, r.Itemsets, r.Rules, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, dataset, started_at, duration_ms, records, baskets, items, itemsets, rules, status, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			ms        int64
		)
		if err := rows.Scan(&r.ID, &r.Dataset, &startedAt, &ms, &r.Records, &r.Baskets,
			&r.Items, &r.Itemsets, &r.Rules, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run time: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns row counts for the store.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(DISTINCT transaction_id) FROM transactions", &s.Transactions},
		{"SELECT COUNT(*) FROM transactions", &s.Records},
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM runs WHERE status = 'failed'", &s.FailedRuns},
	}

	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
