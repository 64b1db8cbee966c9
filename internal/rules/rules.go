// Package rules derives association rules and their quality metrics from a
// frequent itemset table.
package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/BasketMiner/internal/apriori"
	"github.com/TobiSchelling/BasketMiner/internal/logging"
)

var (
	// ErrUnknownMetric is returned for a metric name outside Metrics.
	ErrUnknownMetric = errors.New("unknown rule metric")
	// ErrIncompleteTable is returned when a subset of a frequent itemset is
	// missing from the table, which a complete Apriori run never produces.
	ErrIncompleteTable = errors.New("frequent itemset table is incomplete")
)

// Rule is an association rule antecedent -> consequent. Rules are values and
// are not modified after generation.
type Rule struct {
	Antecedent        apriori.Itemset
	Consequent        apriori.Itemset
	AntecedentSupport float64
	ConsequentSupport float64
	Support           float64
	Confidence        float64
	Lift              float64
	Leverage          float64
	// Conviction is Infinite when Confidence is 1.
	Conviction float64
}

// Value returns the rule's score under metric m.
func (r Rule) Value(m Metric) float64 {
	switch m {
	case Support:
		return r.Support
	case Confidence:
		return r.Confidence
	case Lift:
		return r.Lift
	case Leverage:
		return r.Leverage
	case Conviction:
		return r.Conviction
	}
	return 0
}

// Options selects the filter metric and its minimum value.
type Options struct {
	Metric       Metric
	MinThreshold float64
	Workers      int
}

// Generator turns frequent itemsets into filtered, ordered rules.
type Generator struct {
	logger *zap.Logger
	opts   Options
}

// NewGenerator creates a generator. An empty metric means confidence.
func NewGenerator(logger *zap.Logger, opts Options) *Generator {
	logger = logging.OrNop(logger)
	if opts.Metric == "" {
		opts.Metric = Confidence
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Generator{logger: logger, opts: opts}
}

// Generate enumerates every split of every frequent itemset of two or more
// items, keeps rules whose metric reaches the threshold and sorts them by
// that metric descending, ties broken by antecedent then consequent text.
func (g *Generator) Generate(ctx context.Context, table *apriori.Table) ([]Rule, error) {
	if _, err := ParseMetric(string(g.opts.Metric)); err != nil {
		return nil, err
	}

	var sources []apriori.Entry
	for _, e := range table.Entries {
		if len(e.Items) >= 2 {
			sources = append(sources, e)
		}
	}

	perItemset := make([][]Rule, len(sources))
	if len(sources) > 0 {
		workers := min(g.opts.Workers, len(sources))
		chunk := (len(sources) + workers - 1) / workers

		eg, egctx := errgroup.WithContext(ctx)
		for lo := 0; lo < len(sources); lo += chunk {
			hi := min(lo+chunk, len(sources))
			eg.Go(func() error {
				for i := lo; i < hi; i++ {
					if err := egctx.Err(); err != nil {
						return err
					}
					rs, err := g.split(table, sources[i])
					if err != nil {
						return err
					}
					perItemset[i] = rs
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	var out []Rule
	for _, rs := range perItemset {
		out = append(out, rs...)
	}

	metric := g.opts.Metric
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := out[i].Value(metric), out[j].Value(metric)
		if vi != vj {
			return vi > vj
		}
		if c := compareText(out[i].Antecedent, out[j].Antecedent); c != 0 {
			return c < 0
		}
		return compareText(out[i].Consequent, out[j].Consequent) < 0
	})

	g.logger.Info("Association rules generated",
		zap.String("metric", string(metric)),
		zap.Float64("min_threshold", g.opts.MinThreshold),
		zap.Int("itemsets", len(sources)),
		zap.Int("rules", len(out)))
	return out, nil
}

// split produces the filtered rules of one itemset, antecedents enumerated
// in subset-mask order.
func (g *Generator) split(table *apriori.Table, e apriori.Entry) ([]Rule, error) {
	k := len(e.Items)
	full := uint64(1)<<k - 1

	var out []Rule
	for mask := uint64(1); mask < full; mask++ {
		var ante, cons apriori.Itemset
		for i, item := range e.Items {
			if mask&(1<<i) != 0 {
				ante = append(ante, item)
			} else {
				cons = append(cons, item)
			}
		}

		a, ok := table.Lookup(ante...)
		if !ok {
			return nil, fmt.Errorf("%w: %s missing for %s", ErrIncompleteTable, ante, e.Items)
		}
		c, ok := table.Lookup(cons...)
		if !ok {
			return nil, fmt.Errorf("%w: %s missing for %s", ErrIncompleteTable, cons, e.Items)
		}

		r := newRule(ante, cons, a.Count, c.Count, e.Count, table.N)
		if r.Value(g.opts.Metric) >= g.opts.MinThreshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// newRule computes the metrics from basket counts. Each metric is one
// division of integer products, so equal ratios yield equal floats.
func newRule(ante, cons apriori.Itemset, countA, countC, countAC, n int) Rule {
	total := float64(n)

	conviction := Infinite
	if countAC != countA {
		conviction = float64(countA*(n-countC)) / float64(n*(countA-countAC))
	}

	return Rule{
		Antecedent:        ante,
		Consequent:        cons,
		AntecedentSupport: float64(countA) / total,
		ConsequentSupport: float64(countC) / total,
		Support:           float64(countAC) / total,
		Confidence:        float64(countAC) / float64(countA),
		Lift:              float64(countAC*n) / float64(countA*countC),
		Leverage:          float64(countAC*n-countA*countC) / float64(n*n),
		Conviction:        conviction,
	}
}

func compareText(a, b apriori.Itemset) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
