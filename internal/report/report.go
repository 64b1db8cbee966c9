// Package report shapes pipeline results into the external tables and
// renders them as text or JSON.
package report

import (
	"github.com/TobiSchelling/BasketMiner/internal/aggregate"
	"github.com/TobiSchelling/BasketMiner/internal/pipeline"
)

// DefaultTopN is the length of the most/least selling listings.
const DefaultTopN = 20

// RuleRow is one externally visible rule. Leverage and conviction are
// computed but not part of the output.
type RuleRow struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

// RuleTable is one rule listing.
type RuleTable struct {
	Metric       string    `json:"metric"`
	MinThreshold float64   `json:"min_threshold"`
	Rows         []RuleRow `json:"rows"`
}

// ItemsetRow is one frequent itemset.
type ItemsetRow struct {
	Itemset string  `json:"itemset"`
	Size    int     `json:"size"`
	Count   int     `json:"count"`
	Support float64 `json:"support"`
}

// Document is everything one command prints.
type Document struct {
	Dataset    string            `json:"dataset"`
	RunID      string            `json:"run_id,omitempty"`
	Records    int               `json:"records"`
	Baskets    int               `json:"baskets,omitempty"`
	Items      []aggregate.Count `json:"most_selling,omitempty"`
	LeastItems []aggregate.Count `json:"least_selling,omitempty"`
	Weekdays   []aggregate.Count `json:"weekdays,omitempty"`
	Months     []aggregate.Count `json:"months,omitempty"`
	Itemsets   []ItemsetRow      `json:"itemsets,omitempty"`
	Rules      []RuleTable       `json:"rules,omitempty"`
}

// FromResult builds the full report: popularity tables and every rule listing.
func FromResult(dataset string, res *pipeline.Result, topN int) Document {
	doc := FromSummary(dataset, res.Records, res.Report, topN)
	doc.RunID = res.RunID
	doc.Baskets = res.Baskets

	for _, rs := range res.Rules {
		t := RuleTable{Metric: string(rs.Metric), MinThreshold: rs.MinThreshold, Rows: make([]RuleRow, 0, len(rs.Rules))}
		for _, r := range rs.Rules {
			t.Rows = append(t.Rows, RuleRow{
				Antecedent: r.Antecedent.String(),
				Consequent: r.Consequent.String(),
				Support:    r.Support,
				Confidence: r.Confidence,
				Lift:       r.Lift,
			})
		}
		doc.Rules = append(doc.Rules, t)
	}
	return doc
}

// FromItemsets builds a report of the frequent itemsets only. limit <= 0
// keeps every itemset.
func FromItemsets(dataset string, res *pipeline.Result, limit int) Document {
	doc := Document{Dataset: dataset, RunID: res.RunID, Records: res.Records, Baskets: res.Baskets}
	entries := res.Itemsets.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	doc.Itemsets = make([]ItemsetRow, 0, len(entries))
	for _, e := range entries {
		doc.Itemsets = append(doc.Itemsets, ItemsetRow{
			Itemset: e.Items.String(),
			Size:    len(e.Items),
			Count:   e.Count,
			Support: e.Support,
		})
	}
	return doc
}

// FromSummary builds the popularity tables for records.
func FromSummary(dataset string, records int, rep aggregate.Report, topN int) Document {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return Document{
		Dataset:    dataset,
		Records:    records,
		Items:      aggregate.Top(rep.Items, topN),
		LeastItems: aggregate.Bottom(rep.Items, topN),
		Weekdays:   rep.Weekdays,
		Months:     rep.Months,
	}
}
