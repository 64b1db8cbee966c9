// Package apriori mines frequent itemsets from a basket presence matrix with
// the level-wise Apriori algorithm.
package apriori

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/BasketMiner/internal/basket"
	"github.com/TobiSchelling/BasketMiner/internal/logging"
)

const (
	DefaultMaxSize    = 3
	DefaultMinSupport = 0.03

	// maxSize caps itemset length; rule generation enumerates subsets with
	// a 64-bit mask.
	maxSize = 63
)

// ErrInvalidOptions is returned for options no mining run can satisfy.
var ErrInvalidOptions = errors.New("invalid mining options")

// LevelStats describes one completed level of the search.
type LevelStats struct {
	Size       int
	Candidates int
	Frequent   int
	Duration   time.Duration
}

// Options controls a mining run. Zero values select the defaults.
type Options struct {
	MaxSize    int
	MinSupport float64
	Workers    int
	// OnLevel, if set, is called after each level is counted.
	OnLevel func(LevelStats)
}

// DefaultOptions returns the standard mining configuration.
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize, MinSupport: DefaultMinSupport}
}

// Miner finds frequent itemsets.
type Miner struct {
	logger *zap.Logger
	opts   Options
}

// NewMiner creates a miner. A nil logger discards output.
func NewMiner(logger *zap.Logger, opts Options) *Miner {
	logger = logging.OrNop(logger)
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.MinSupport <= 0 {
		opts.MinSupport = DefaultMinSupport
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Miner{logger: logger, opts: opts}
}

// Options returns the effective options after defaults.
func (mn *Miner) Options() Options { return mn.opts }

// Mine returns every itemset of at most MaxSize items whose support reaches
// MinSupport. An empty table is a valid result. Cancellation is honoured
// between levels; a cancelled run returns no partial table.
func (mn *Miner) Mine(ctx context.Context, m *basket.Matrix) (*Table, error) {
	if mn.opts.MinSupport > 1 {
		return nil, fmt.Errorf("%w: min support %g above 1", ErrInvalidOptions, mn.opts.MinSupport)
	}
	if mn.opts.MaxSize > maxSize {
		return nil, fmt.Errorf("%w: max itemset size %d above %d", ErrInvalidOptions, mn.opts.MaxSize, maxSize)
	}

	n := m.N()
	items := m.Items()

	cands := make([][]int, len(items))
	for col := range items {
		cands[col] = []int{col}
	}

	var entries []Entry
	for k := 1; k <= mn.opts.MaxSize && len(cands) > 0; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()

		counts, err := mn.countSupport(ctx, m, cands)
		if err != nil {
			return nil, err
		}

		var frequent [][]int
		for i, cand := range cands {
			support := float64(counts[i]) / float64(n)
			if support < mn.opts.MinSupport {
				continue
			}
			frequent = append(frequent, cand)
			names := make(Itemset, len(cand))
			for j, col := range cand {
				names[j] = items[col]
			}
			entries = append(entries, Entry{Items: names, Count: counts[i], Support: support})
		}

		stats := LevelStats{Size: k, Candidates: len(cands), Frequent: len(frequent), Duration: time.Since(start)}
		mn.logger.Debug("Apriori level counted",
			zap.Int("size", k),
			zap.Int("candidates", stats.Candidates),
			zap.Int("frequent", stats.Frequent),
			zap.Duration("duration", stats.Duration))
		if mn.opts.OnLevel != nil {
			mn.opts.OnLevel(stats)
		}

		if k == mn.opts.MaxSize || len(frequent) < 2 {
			break
		}
		known := make(map[string]struct{}, len(frequent))
		for _, f := range frequent {
			known[colKey(f)] = struct{}{}
		}
		cands = prune(join(frequent), known)
	}

	mn.logger.Info("Frequent itemset mining complete",
		zap.Int("baskets", n),
		zap.Int("items", len(items)),
		zap.Int("itemsets", len(entries)))
	return newTable(n, entries), nil
}

// countSupport counts, for each candidate, the baskets containing it.
// Workers own disjoint index ranges, so counts line up with cands regardless
// of completion order.
func (mn *Miner) countSupport(ctx context.Context, m *basket.Matrix, cands [][]int) ([]int, error) {
	counts := make([]int, len(cands))
	if len(cands) == 0 {
		return counts, nil
	}

	workers := mn.opts.Workers
	if workers > len(cands) {
		workers = len(cands)
	}
	chunk := (len(cands) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(cands); lo += chunk {
		hi := min(lo+chunk, len(cands))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				counts[i] = m.CountSuperset(cands[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
