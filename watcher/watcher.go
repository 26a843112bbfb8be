// Package watcher ingests documents dropped into a watched directory.
// Files placed in a subdirectory are indexed under that subdirectory's name
// as their case category; files at the top level get the default category.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aqua777/go-legalrag/extractor"
	"github.com/aqua777/go-legalrag/pipeline"
)

const (
	// DefaultCategory is assigned to files dropped at the watch root.
	DefaultCategory = "general"
	// settleDelay gives the writer time to finish before ingestion starts.
	settleDelay = 500 * time.Millisecond
)

// Watcher monitors a drop directory and ingests new documents.
type Watcher struct {
	pipeline    *pipeline.Pipeline
	dir         string
	settleDelay time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	timers    map[string]*time.Timer
	processed map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithSettleDelay overrides how long a file must be quiet before ingestion.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settleDelay = d }
}

// NewWatcher creates a Watcher over dir. The directory is created when
// missing.
func NewWatcher(p *pipeline.Pipeline, dir string, opts ...Option) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	w := &Watcher{
		pipeline:    p,
		dir:         dir,
		settleDelay: settleDelay,
		logger:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		timers:      map[string]*time.Timer{},
		processed:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until the context is cancelled. Files already present at
// startup are ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addWatches(fsw); err != nil {
		return err
	}
	w.ingestExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addWatches registers the root and its existing category subdirectories.
func (w *Watcher) addWatches(fsw *fsnotify.Watcher) error {
	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := fsw.Add(filepath.Join(w.dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Watcher) ingestExisting(ctx context.Context) {
	_ = filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if extractor.Supported(path) {
			w.ingestFile(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	// A new category directory gets watched as soon as it appears.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op.Has(fsnotify.Create) {
			if err := fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new category directory",
					"dir", event.Name, "error", err)
			}
		}
		return
	}

	if !extractor.Supported(event.Name) {
		return
	}
	w.scheduleIngest(ctx, event.Name)
}

// scheduleIngest waits for the file to settle, restarting the clock on every
// further write.
func (w *Watcher) scheduleIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.settleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	w.mu.Lock()
	if w.processed[path] {
		w.mu.Unlock()
		return
	}
	w.processed[path] = true
	w.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("failed to open dropped file", "path", path, "error", err)
		return
	}
	defer f.Close()

	doc, err := w.pipeline.Ingest(ctx, f, filepath.Base(path), w.categoryFor(path))
	if err != nil {
		w.logger.Error("failed to ingest dropped file", "path", path, "error", err)
		w.mu.Lock()
		delete(w.processed, path)
		w.mu.Unlock()
		return
	}
	w.logger.Info("ingested dropped file",
		"path", path, "document", doc.ID, "category", doc.CaseCategory)
}

// categoryFor derives the case category from the file's subdirectory.
func (w *Watcher) categoryFor(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return DefaultCategory
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return DefaultCategory
	}
	return parts[0]
}
