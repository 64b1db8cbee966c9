// Package watch re-runs a handler for every CSV or TSV file that appears or
// changes in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/TobiSchelling/BasketMiner/internal/logging"
	"github.com/TobiSchelling/BasketMiner/internal/source"
)

// DefaultDebounce is the quiet period before pending files are processed.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one data file. Errors are logged and do not stop the
// watcher.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// ProcessExisting runs the handler for data files already present when
	// Run starts.
	ProcessExisting bool
}

// Watcher serialises handler runs for one directory.
type Watcher struct {
	logger  *zap.Logger
	dir     string
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher
}

// New starts watching dir. Events arriving before Run are buffered.
func New(logger *zap.Logger, dir string, handler Handler, opts Options) (*Watcher, error) {
	logger = logging.OrNop(logger)
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{logger: logger, dir: dir, opts: opts, handler: handler, fsw: fsw}, nil
}

// Run processes files until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	if w.opts.ProcessExisting {
		existing, err := w.existing()
		if err != nil {
			return err
		}
		for _, p := range existing {
			pending[p] = struct{}{}
		}
	}

	timer := time.NewTimer(w.opts.Debounce)
	if len(pending) == 0 {
		timer.Stop()
	}
	defer timer.Stop()

	w.logger.Info("Watching for datasets", zap.String("dir", w.dir), zap.Duration("debounce", w.opts.Debounce))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !source.IsDataFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = struct{}{}
				timer.Reset(w.opts.Debounce)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		case <-timer.C:
			w.flush(ctx, pending)
		}
	}
}

// flush runs the handler for every pending path in name order.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
		delete(pending, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		w.logger.Info("Processing dataset", zap.String("path", p))
		if err := w.handler(ctx, p); err != nil {
			w.logger.Error("Dataset processing failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && source.IsDataFile(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	return paths, nil
}
