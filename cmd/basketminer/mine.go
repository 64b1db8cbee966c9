package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/BasketMiner/internal/aggregate"
	"github.com/TobiSchelling/BasketMiner/internal/apriori"
	"github.com/TobiSchelling/BasketMiner/internal/database"
	"github.com/TobiSchelling/BasketMiner/internal/metrics"
	"github.com/TobiSchelling/BasketMiner/internal/pipeline"
	"github.com/TobiSchelling/BasketMiner/internal/report"
	"github.com/TobiSchelling/BasketMiner/internal/rules"
	"github.com/TobiSchelling/BasketMiner/internal/source"
	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

var (
	minSupport  float64
	maxSize     int
	topN        int
	format      string
	metricsFile string
	noHistory   bool
	limit       int
)

func addMiningFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&minSupport, "min-support", 0, "Minimum itemset support (overrides config)")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Largest itemset size (overrides config)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run in the history store")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&topN, "top", 0, "Length of most/least selling listings (overrides config)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text or json (overrides config)")
}

var mineCmd = &cobra.Command{
	Use:   "mine <dataset>",
	Short: "Mine association rules and popularity reports from a dataset",
	Long: `Mine association rules and popularity reports from a dataset.

The dataset is a CSV/TSV file, "-" for stdin, s3://bucket/key,
sqlite://path or a postgres:// DSN. The first three columns are the
transaction id, the item and the timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, loc, err := runBatch(cmd.Context(), args[0])
		if err != nil {
			return reportFailure(cmd, err)
		}
		doc := report.FromResult(loc.Name(), res, effectiveTopN())
		return report.Write(os.Stdout, doc, effectiveFormat())
	},
}

var itemsetsCmd = &cobra.Command{
	Use:   "itemsets <dataset>",
	Short: "List the frequent itemsets of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, loc, err := runBatch(cmd.Context(), args[0])
		if err != nil {
			return reportFailure(cmd, err)
		}
		doc := report.FromItemsets(loc.Name(), res, limit)
		return report.Write(os.Stdout, doc, effectiveFormat())
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <dataset>",
	Short: "Show item, weekday and month popularity without mining",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := source.Parse(args[0])
		if err != nil {
			return err
		}
		table, err := newReader().Read(cmd.Context(), args[0])
		if err != nil {
			return reportFailure(cmd, err)
		}
		records, err := transaction.Load(table)
		if err != nil {
			return reportFailure(cmd, err)
		}
		doc := report.FromSummary(loc.Name(), len(records), aggregate.Build(records), effectiveTopN())
		return report.Write(os.Stdout, doc, effectiveFormat())
	},
}

func init() {
	for _, cmd := range []*cobra.Command{mineCmd, itemsetsCmd, summaryCmd} {
		addOutputFlags(cmd)
	}
	addMiningFlags(mineCmd)
	addMiningFlags(itemsetsCmd)
	itemsetsCmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many itemsets (0 = all)")
}

// reportFailure logs the cause and prints the single user-facing message.
func reportFailure(cmd *cobra.Command, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	logger.Error("Processing failed", zap.Error(err))
	fmt.Fprintln(os.Stderr, pipeline.UserMessage(err))
	cmd.SilenceErrors = true
	return errReported
}

func newReader() *source.Reader {
	return source.NewReader(logger, source.Options{
		Delimiter: cfg.DelimiterRune(),
		Query:     cfg.Input.Database.Query,
		S3: source.S3Options{
			Region:       cfg.Input.S3.Region,
			Endpoint:     cfg.Input.S3.Endpoint,
			Profile:      cfg.Input.S3.Profile,
			UsePathStyle: cfg.Input.S3.UsePathStyle,
		},
	})
}

func pipelineOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		Mining: apriori.Options{
			MaxSize:    cfg.Mining.MaxItemsetSize,
			MinSupport: cfg.Mining.MinSupport,
		},
		Workers: cfg.Mining.Workers,
	}
	if minSupport > 0 {
		opts.Mining.MinSupport = minSupport
	}
	if maxSize > 0 {
		opts.Mining.MaxSize = maxSize
	}
	for _, r := range cfg.Rules {
		m, err := rules.ParseMetric(r.Metric)
		if err != nil {
			return opts, err
		}
		opts.Reports = append(opts.Reports, pipeline.RuleReport{Metric: m, MinThreshold: r.MinThreshold})
	}
	return opts, nil
}

// runBatch reads a dataset, runs the pipeline and records the outcome in
// the history store and metrics textfile.
func runBatch(ctx context.Context, location string) (*pipeline.Result, source.Location, error) {
	loc, err := source.Parse(location)
	if err != nil {
		return nil, loc, err
	}
	opts, err := pipelineOptions()
	if err != nil {
		return nil, loc, err
	}

	started := time.Now()
	recorder := metrics.New()
	res, err := func() (*pipeline.Result, error) {
		table, err := newReader().Read(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", loc.Name(), err)
		}
		return pipeline.New(logger, recorder, opts).Run(ctx, table)
	}()

	if res != nil {
		for _, step := range res.Steps {
			logger.Debug("Step complete",
				zap.String("step", step.Name),
				zap.String("summary", step.Summary),
				zap.Duration("duration", step.Duration))
		}
	}

	path := cfg.Metrics.Textfile
	if metricsFile != "" {
		path = metricsFile
	}
	if werr := recorder.WriteTextfile(path); werr != nil {
		logger.Warn("Could not write metrics", zap.Error(werr))
	}

	if cfg.Output.History && !noHistory {
		recordRun(ctx, loc, started, res, err)
	}
	return res, loc, err
}

func recordRun(ctx context.Context, loc source.Location, started time.Time, res *pipeline.Result, runErr error) {
	db, err := openDB()
	if err != nil {
		logger.Warn("Could not open history store", zap.Error(err))
		return
	}
	defer db.Close()

	run := database.Run{
		ID:        uuid.NewString(),
		Dataset:   loc.Name(),
		StartedAt: started,
		Duration:  time.Since(started),
		Status:    "ok",
	}
	if res != nil {
		run.ID = res.RunID
		run.Records, run.Baskets, run.Items = res.Records, res.Baskets, res.Items
		run.Itemsets, run.Rules = res.Itemsets.Len(), res.RuleCount()
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status, run.Error = "failed", &msg
	}
	if err := db.InsertRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Could not record run", zap.Error(err))
	}
}

func effectiveTopN() int {
	if topN > 0 {
		return topN
	}
	return cfg.Report.TopN
}

func effectiveFormat() string {
	if format != "" {
		return format
	}
	return cfg.Report.Format
}
