package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/BasketMiner/internal/aggregate"
)

// Write renders doc in format ("text" or "json").
func Write(w io.Writer, doc Document, format string) error {
	switch format {
	case "json":
		return WriteJSON(w, doc)
	case "", "text":
		return WriteText(w, doc)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteText writes doc as aligned plain-text tables.
func WriteText(w io.Writer, doc Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Dataset: %s\n", doc.Dataset)
	if doc.RunID != "" {
		fmt.Fprintf(tw, "Run: %s\n", doc.RunID)
	}
	fmt.Fprintf(tw, "Records: %s\n", humanize.Comma(int64(doc.Records)))
	if doc.Baskets > 0 {
		fmt.Fprintf(tw, "Baskets: %s\n", humanize.Comma(int64(doc.Baskets)))
	}

	writeCounts(tw, "Most selling items", "ITEM", doc.Items)
	writeCounts(tw, "Least selling items", "ITEM", doc.LeastItems)
	writeCounts(tw, "Most productive weekdays", "WEEKDAY", doc.Weekdays)
	writeCounts(tw, "Most productive months", "MONTH", doc.Months)

	if len(doc.Itemsets) > 0 {
		fmt.Fprintf(tw, "\nFrequent itemsets (%d)\n", len(doc.Itemsets))
		fmt.Fprintln(tw, "ITEMSET\tSIZE\tCOUNT\tSUPPORT")
		for _, s := range doc.Itemsets {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Itemset, s.Size, humanize.Comma(int64(s.Count)), num(s.Support))
		}
	}

	for _, t := range doc.Rules {
		fmt.Fprintf(tw, "\nRules by %s >= %s (%d)\n", t.Metric, num(t.MinThreshold), len(t.Rows))
		if len(t.Rows) == 0 {
			fmt.Fprintln(tw, "  (none)")
			continue
		}
		fmt.Fprintln(tw, "ANTECEDENT\tCONSEQUENT\tSUPPORT\tCONFIDENCE\tLIFT")
		for _, r := range t.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Antecedent, r.Consequent, num(r.Support), num(r.Confidence), num(r.Lift))
		}
	}

	return tw.Flush()
}

func writeCounts(w io.Writer, title, keyHeader string, counts []aggregate.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%s\tCOUNT\n", keyHeader)
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%s\n", c.Key, humanize.Comma(int64(c.Count)))
	}
}

func num(v float64) string {
	return humanize.FtoaWithDigits(v, 4)
}
