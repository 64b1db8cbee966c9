package database

import "time"

// Run is one recorded pipeline execution.
type Run struct {
	ID        string
	Dataset   string
	StartedAt time.Time
	Duration  time.Duration
	Records   int
	Baskets   int
	Items     int
	Itemsets  int
	Rules     int
	Status    string // "ok" or "failed"
	Error     *string
}

// Stats summarises the store contents.
type Stats struct {
	Transactions int
	Records      int
	Runs         int
	FailedRuns   int
}
