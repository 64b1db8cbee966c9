package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/BasketMiner/internal/pipeline"
	"github.com/TobiSchelling/BasketMiner/internal/report"
	"github.com/TobiSchelling/BasketMiner/internal/watch"
)

var (
	outDir       string
	watchInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Mine every CSV/TSV file dropped into a directory",
	Long: `Watch a directory and run the full batch for each new or modified
CSV/TSV file. Each report is written next to its dataset (or into
--out-dir) as <name>.report.txt or <name>.report.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Watch.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no directory given; pass one or set watch.dir")
		}
		debounce, err := cfg.DebounceDuration()
		if err != nil {
			return err
		}

		w, err := watch.New(logger, dir, processUpload, watch.Options{
			Debounce:        debounce,
			ProcessExisting: watchInitial,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Watching %s for datasets. Press Ctrl+C to stop.\n", dir)
		err = w.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	addMiningFlags(watchCmd)
	addOutputFlags(watchCmd)
	watchCmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for reports (default: next to each dataset)")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Also process data files already in the directory")
}

// processUpload mines one dataset and writes its report file.
func processUpload(ctx context.Context, path string) error {
	res, loc, err := runBatch(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(path), pipeline.UserMessage(err))
		return err
	}

	f := effectiveFormat()
	ext := ".txt"
	if f == "json" {
		ext = ".json"
	}
	dir := filepath.Dir(path)
	if outDir != "" {
		dir = outDir
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".report" + ext
	target := filepath.Join(dir, name)

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer out.Close()

	if err := report.Write(out, report.FromResult(loc.Name(), res, effectiveTopN()), f); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("Report written", zap.String("dataset", loc.Name()), zap.String("report", target))
	fmt.Printf("%s -> %s (%d rules)\n", filepath.Base(path), target, res.RuleCount())
	return nil
}
