// Package pipeline runs the full market-basket batch over one dataset:
// load, encode, mine, derive rule reports and aggregate popularity counts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/BasketMiner/internal/aggregate"
	"github.com/TobiSchelling/BasketMiner/internal/apriori"
	"github.com/TobiSchelling/BasketMiner/internal/basket"
	"github.com/TobiSchelling/BasketMiner/internal/logging"
	"github.com/TobiSchelling/BasketMiner/internal/metrics"
	"github.com/TobiSchelling/BasketMiner/internal/rules"
	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

// Step names, in execution order.
const (
	StepLoad      = "Load"
	StepEncode    = "Encode"
	StepMine      = "Mine"
	StepRules     = "Rules"
	StepAggregate = "Aggregate"
)

// UserFacingError is the only failure text shown to end users.
const UserFacingError = "There was an error processing this file."

// UserMessage maps any pipeline failure to the user-visible message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return UserFacingError
}

// RuleReport selects one filtered rule listing.
type RuleReport struct {
	Metric       rules.Metric
	MinThreshold float64
}

// DefaultReports returns the three standard rule listings.
func DefaultReports() []RuleReport {
	return []RuleReport{
		{Metric: rules.Lift, MinThreshold: 1},
		{Metric: rules.Support, MinThreshold: 0.03},
		{Metric: rules.Confidence, MinThreshold: 0.03},
	}
}

// Options configures a pipeline. Empty Reports selects DefaultReports.
type Options struct {
	Mining  apriori.Options
	Reports []RuleReport
	Workers int
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name     string
	Summary  string
	Duration time.Duration
}

// RuleSet is one rule listing.
type RuleSet struct {
	Metric       rules.Metric
	MinThreshold float64
	Rules        []rules.Rule
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID    string
	Steps    []StepResult
	Records  int
	Baskets  int
	Items    int
	Itemsets *apriori.Table
	Rules    []RuleSet
	Report   aggregate.Report
}

// Pipeline orchestrates the mining batch.
type Pipeline struct {
	logger   *zap.Logger
	recorder *metrics.Recorder
	opts     Options
}

// New creates a new pipeline. logger and recorder may be nil.
func New(logger *zap.Logger, recorder *metrics.Recorder, opts Options) *Pipeline {
	logger = logging.OrNop(logger)
	if len(opts.Reports) == 0 {
		opts.Reports = DefaultReports()
	}
	if opts.Mining.Workers <= 0 {
		opts.Mining.Workers = opts.Workers
	}
	return &Pipeline{logger: logger, recorder: recorder, opts: opts}
}

// Run executes the batch. Any failure aborts the run: the result is nil and
// the error wraps the typed cause.
func (p *Pipeline) Run(ctx context.Context, table transaction.Table) (*Result, error) {
	p.recorder.Reset()
	r, err := p.run(ctx, table)
	p.recorder.Run(err, time.Now())
	if err != nil {
		p.logger.Error("Pipeline run failed", zap.Error(err))
		return nil, err
	}
	return r, nil
}

func (p *Pipeline) run(ctx context.Context, table transaction.Table) (*Result, error) {
	r := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", r.RunID))

	// Step 1: Load
	log.Info("Step 1/5: Loading transactions...")
	start := time.Now()
	records, err := transaction.Load(table)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	r.Records = len(records)
	p.addStep(r, StepLoad, start, fmt.Sprintf("Loaded %d records from %d rows", len(records), len(table.Rows)))

	// The aggregation reads records only and runs beside mining.
	reportDone := make(chan aggregate.Report, 1)
	aggStart := time.Now()
	go func() { reportDone <- aggregate.Build(records) }()

	// Step 2: Encode
	log.Info("Step 2/5: Encoding baskets...")
	start = time.Now()
	m, err := basket.Encode(records)
	if err != nil {
		<-reportDone
		return nil, fmt.Errorf("encoding baskets: %w", err)
	}
	r.Baskets, r.Items = m.N(), len(m.Items())
	p.recorder.Baskets(m.N())
	p.addStep(r, StepEncode, start, fmt.Sprintf("Encoded %d baskets over %d items", m.N(), len(m.Items())))

	// Step 3: Mine
	log.Info("Step 3/5: Mining frequent itemsets...")
	start = time.Now()
	mineOpts := p.opts.Mining
	onLevel := mineOpts.OnLevel
	mineOpts.OnLevel = func(s apriori.LevelStats) {
		p.recorder.Level(s)
		if onLevel != nil {
			onLevel(s)
		}
	}
	itemsets, err := apriori.NewMiner(log, mineOpts).Mine(ctx, m)
	if err != nil {
		<-reportDone
		return nil, fmt.Errorf("mining itemsets: %w", err)
	}
	r.Itemsets = itemsets
	p.addStep(r, StepMine, start, fmt.Sprintf("Found %d frequent itemsets", itemsets.Len()))

	// Step 4: Rules, one listing per report over the same itemsets
	log.Info("Step 4/5: Generating rules...")
	for _, rep := range p.opts.Reports {
		start = time.Now()
		gen := rules.NewGenerator(log, rules.Options{
			Metric:       rep.Metric,
			MinThreshold: rep.MinThreshold,
			Workers:      p.opts.Workers,
		})
		rs, err := gen.Generate(ctx, itemsets)
		if err != nil {
			<-reportDone
			return nil, fmt.Errorf("generating %s rules: %w", rep.Metric, err)
		}
		r.Rules = append(r.Rules, RuleSet{Metric: rep.Metric, MinThreshold: rep.MinThreshold, Rules: rs})
		p.recorder.Rules(string(rep.Metric), len(rs))
		p.addStep(r, StepRules, start, fmt.Sprintf("%d rules with %s >= %g", len(rs), rep.Metric, rep.MinThreshold))
	}

	// Step 5: Aggregate
	r.Report = <-reportDone
	p.addStep(r, StepAggregate, aggStart, fmt.Sprintf("Counted %d items, %d weekdays, %d months",
		len(r.Report.Items), len(r.Report.Weekdays), len(r.Report.Months)))

	log.Info("Pipeline run complete",
		zap.Int("records", r.Records),
		zap.Int("baskets", r.Baskets),
		zap.Int("itemsets", itemsets.Len()))
	return r, nil
}

func (p *Pipeline) addStep(r *Result, name string, start time.Time, summary string) {
	d := time.Since(start)
	p.recorder.Step(name, d)
	r.Steps = append(r.Steps, StepResult{Name: name, Summary: summary, Duration: d})
}

// RuleCount returns the total number of rules across listings.
func (r *Result) RuleCount() int {
	n := 0
	for _, rs := range r.Rules {
		n += len(rs.Rules)
	}
	return n
}
