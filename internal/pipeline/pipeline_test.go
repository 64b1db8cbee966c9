package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/BasketMiner/internal/apriori"
	"github.com/TobiSchelling/BasketMiner/internal/basket"
	"github.com/TobiSchelling/BasketMiner/internal/metrics"
	"github.com/TobiSchelling/BasketMiner/internal/rules"
	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// breadMilk has five baskets; bread and milk share four of them.
func breadMilk() transaction.Table {
	return transaction.Table{
		Header: []string{"Transaction", "Item", "date_time"},
		Rows: [][]string{
			{"1", "bread", "2024-01-01 08:00"}, {"1", "milk", "2024-01-01 08:00"},
			{"2", "bread", "2024-01-02 08:00"}, {"2", "milk", "2024-01-02 08:00"},
			{"3", "bread", "2024-01-03 08:00"}, {"3", "milk", "2024-01-03 08:00"},
			{"4", "bread", "2024-01-04 08:00"}, {"4", "milk", "2024-01-04 08:00"},
			{"5", "bread", "2024-02-05 08:00"}, {"5", "eggs", "2024-02-05 08:00"},
		},
	}
}

func find(t *testing.T, rs []rules.Rule, ante, cons string) rules.Rule {
	t.Helper()
	for _, r := range rs {
		if r.Antecedent.String() == ante && r.Consequent.String() == cons {
			return r
		}
	}
	t.Fatalf("rule %s -> %s not found", ante, cons)
	return rules.Rule{}
}

func TestRunBreadMilk(t *testing.T) {
	p := New(nil, nil, Options{Mining: apriori.Options{MinSupport: 0.03}})
	res, err := p.Run(context.Background(), breadMilk())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 10, res.Records)
	assert.Equal(t, 5, res.Baskets)
	assert.Equal(t, 3, res.Items)

	e, ok := res.Itemsets.Lookup("milk", "bread")
	require.True(t, ok)
	assert.InDelta(t, 0.8, e.Support, 1e-12)

	require.Len(t, res.Rules, 3)
	assert.Equal(t, rules.Lift, res.Rules[0].Metric)
	assert.Equal(t, rules.Support, res.Rules[1].Metric)
	assert.Equal(t, rules.Confidence, res.Rules[2].Metric)

	conf := res.Rules[2].Rules
	bm := find(t, conf, "{bread}", "{milk}")
	assert.InDelta(t, 0.8/1.0, bm.Confidence, 1e-12)

	mb := find(t, conf, "{milk}", "{bread}")
	assert.Equal(t, 1.0, mb.Confidence)
	assert.True(t, rules.IsInfinite(mb.Conviction))
}

func TestRunStepsInOrder(t *testing.T) {
	res, err := New(nil, nil, Options{}).Run(context.Background(), breadMilk())
	require.NoError(t, err)

	var names []string
	for _, s := range res.Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{StepLoad, StepEncode, StepMine, StepRules, StepRules, StepRules, StepAggregate}, names)
}

func TestRunAggregatesAllRecords(t *testing.T) {
	table := breadMilk()
	// A single-item transaction is dropped from mining but still counted.
	table.Rows = append(table.Rows, []string{"6", "jam", "2024-02-06 09:00"})

	res, err := New(nil, nil, Options{}).Run(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Baskets)
	assert.Equal(t, 4, res.Items)

	var jam int
	for _, c := range res.Report.Items {
		if c.Key == "jam" {
			jam = c.Count
		}
	}
	assert.Equal(t, 1, jam)
	assert.Equal(t, "January", res.Report.Months[0].Key)
}

func TestRunSingleItemBaskets(t *testing.T) {
	table := transaction.Table{
		Header: []string{"id", "item", "ts"},
		Rows: [][]string{
			{"1", "a", "2024-01-01"},
			{"2", "b", "2024-01-01"},
		},
	}
	res, err := New(nil, nil, Options{}).Run(context.Background(), table)
	assert.Nil(t, res)

	var empty *basket.EmptyBasketSetError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, UserFacingError, UserMessage(err))
}

func TestRunTwoColumns(t *testing.T) {
	table := transaction.Table{
		Header: []string{"id", "item"},
		Rows:   [][]string{{"1", "a"}, {"1", "b"}},
	}
	res, err := New(nil, nil, Options{}).Run(context.Background(), table)
	assert.Nil(t, res)

	var malformed *transaction.MalformedInputError
	require.ErrorAs(t, err, &malformed)
}

func TestRunUnknownMetric(t *testing.T) {
	p := New(nil, nil, Options{Reports: []RuleReport{{Metric: "zest"}}})
	res, err := p.Run(context.Background(), breadMilk())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, rules.ErrUnknownMetric)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(nil, nil, Options{}).Run(ctx, breadMilk())
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunIsIdempotent(t *testing.T) {
	p := New(nil, nil, Options{Workers: 3})
	first, err := p.Run(context.Background(), breadMilk())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), breadMilk())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Itemsets.Entries, second.Itemsets.Entries)
	assert.Equal(t, first.Rules, second.Rules)
	assert.Equal(t, first.Report, second.Report)
}

func TestRunRecordsMetrics(t *testing.T) {
	rec := metrics.New()
	p := New(nil, rec, Options{})
	_, err := p.Run(context.Background(), breadMilk())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), transaction.Table{Header: []string{"a"}})
	require.Error(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	n, err := testutil.GatherAndCount(rec.Registry(), "basketminer_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, UserFacingError, UserMessage(errors.New("anything")))
}

func TestRuleCount(t *testing.T) {
	res, err := New(nil, nil, Options{Reports: []RuleReport{{Metric: rules.Confidence, MinThreshold: 0.9}}}).Run(context.Background(), breadMilk())
	require.NoError(t, err)
	// milk->bread and eggs->bread reach 0.9.
	assert.Equal(t, 2, res.RuleCount())
}
