package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <dataset>",
	Short: "Store a dataset's transactions in the local database",
	Long: `Normalize a dataset and append its records to the transactions table of
the local store. Mine the store afterwards with
  basketminer mine sqlite://<data_dir>/basketminer.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := newReader().Read(cmd.Context(), args[0])
		if err != nil {
			return reportFailure(cmd, err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ImportTable(cmd.Context(), table)
		if err != nil {
			return reportFailure(cmd, err)
		}
		fmt.Printf("Imported %s records into %s\n", humanize.Comma(int64(n)), db.Path())
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent mining runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRecentRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet. Mine a dataset with: basketminer mine <dataset>")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("  %s  %-6s %s (%s)\n", shortID(r.ID), r.Status, r.Dataset, humanize.Time(r.StartedAt))
			if r.Error != nil {
				fmt.Printf("        %s\n", *r.Error)
				continue
			}
			fmt.Printf("        %s records, %s baskets, %d itemsets, %d rules in %s\n",
				humanize.Comma(int64(r.Records)), humanize.Comma(int64(r.Baskets)), r.Itemsets, r.Rules, r.Duration)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Store: %s\n\n", db.Path())
		fmt.Println("Imported data:")
		fmt.Printf("  Transactions: %s\n", humanize.Comma(int64(stats.Transactions)))
		fmt.Printf("  Records: %s\n", humanize.Comma(int64(stats.Records)))
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
