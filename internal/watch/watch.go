// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package watch turns a directory into an inbox: every record file or
// attachment dropped there is analysed and its predictions are written next
// to the other results in the output directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	_ "participa-scan/internal/formatters/predictions"
	"participa-scan/internal/loader"
	"participa-scan/internal/observability"
	"participa-scan/internal/parallel"
	"participa-scan/internal/paths"
	"participa-scan/internal/performance"
)

// OutputSuffix is appended to the input's base name for the predictions file
const OutputSuffix = ".predicoes.csv"

// DefaultDebounce is the quiet period before a changed file is processed
const DefaultDebounce = 500 * time.Millisecond

// Analyzer runs the detection pipeline over a batch
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, records []loader.Record, progress parallel.ProgressCallback) ([]detector.DocumentResult, *parallel.ProcessingStats)
}

// RunStore persists runs and enforces retention
type RunStore interface {
	SaveRun(ctx context.Context, run *formatters.Run) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config configures the inbox watcher
type Config struct {
	InDir  string
	OutDir string

	// Debounce is the quiet period after the last event on a file
	Debounce time.Duration

	// ProcessExisting analyses files already in InDir at startup
	ProcessExisting bool

	// RetentionDays and Schedule drive the purge job; either left zero
	// disables it
	RetentionDays int
	Schedule      string

	// MetricsFile, when set, receives the run metrics after every file
	MetricsFile string
}

// Watcher watches InDir and processes files as they settle
type Watcher struct {
	cfg      Config
	analyzer Analyzer
	store    RunStore
	metrics  *performance.RunMetrics
	observer *observability.StandardObserver

	cron *cron.Cron
	now  func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
}

// New validates cfg and prepares a watcher. store and metrics may be nil.
func New(cfg Config, analyzer Analyzer, store RunStore, metrics *performance.RunMetrics, observer *observability.StandardObserver) (*Watcher, error) {
	if analyzer == nil {
		return nil, errors.New("watch: analyzer is required")
	}
	info, err := os.Stat(cfg.InDir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory %s is not a directory", cfg.InDir)
	}
	if cfg.OutDir == "" {
		cfg.OutDir = cfg.InDir
	}
	if err := paths.EnsureDir(cfg.OutDir); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return nil, fmt.Errorf("invalid purge schedule %q: %w", cfg.Schedule, err)
		}
	}

	return &Watcher{
		cfg:      cfg,
		analyzer: analyzer,
		store:    store,
		metrics:  metrics,
		observer: observer,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 64),
	}, nil
}

// Run watches until ctx is cancelled. Failures on single files are logged
// and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.InDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.InDir, err)
	}

	if err := w.startPurge(ctx); err != nil {
		return err
	}
	defer w.stopPurge()
	defer w.stopTimers()

	if w.cfg.ProcessExisting {
		w.processExisting(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if w.shouldProcessEvent(event) {
				w.trigger(ctx, event.Name)
			}

		case path := <-w.ready:
			if _, err := w.ProcessFile(ctx, path); err != nil {
				w.observer.LogFailure("watch", "process", path, err, nil)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.observer.LogFailure("watch", "fsnotify", w.cfg.InDir, err, nil)
		}
	}
}

func (w *Watcher) processExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InDir)
	if err != nil {
		w.observer.LogFailure("watch", "scan", w.cfg.InDir, err, nil)
		return
	}
	for _, e := range entries {
		full := filepath.Join(w.cfg.InDir, e.Name())
		if e.IsDir() || !Eligible(full) {
			continue
		}
		if _, err := w.ProcessFile(ctx, full); err != nil {
			w.observer.LogFailure("watch", "process", full, err, nil)
		}
	}
}

// Eligible reports whether path is an input the watcher should analyse:
// a record file or attachment that is not hidden and not one of its own
// outputs.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(strings.ToLower(base), OutputSuffix) {
		return false
	}
	return loader.IsRecordFile(path) || loader.IsAttachment(path)
}

// shouldProcessEvent drops chmod, remove and rename events and ineligible files
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return Eligible(event.Name)
}

// trigger (re)starts the debounce timer for path
func (w *Watcher) trigger(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// OutputPath returns where the predictions for input are written
func (w *Watcher) OutputPath(input string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(w.cfg.OutDir, name+OutputSuffix)
}

// ProcessFile analyses one input file, writes its predictions file and
// stores the run. It returns the predictions path.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (string, error) {
	finish := w.observer.StartTiming("watch", "process", path)

	records, err := loader.Load(path)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("load %s: %w", path, err)
	}

	results, stats := w.analyzer.AnalyzeBatch(ctx, records, nil)
	run := formatters.NewRun(path, results)

	out, err := formatters.Export("predictions", run, formatters.FormatterOptions{})
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", err
	}
	outPath := w.OutputPath(path)
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("write predictions: %w", err)
	}

	if w.store != nil {
		if err := w.store.SaveRun(ctx, run); err != nil {
			w.observer.LogFailure("watch", "save_run", path, err, map[string]interface{}{"run_id": run.ID})
		}
	}
	if w.cfg.MetricsFile != "" {
		if err := w.metrics.WriteToTextfile(w.cfg.MetricsFile); err != nil {
			w.observer.LogFailure("watch", "write_metrics", w.cfg.MetricsFile, err, nil)
		}
	}

	positives, skipped := run.Counts()
	meta := map[string]interface{}{
		"run_id":    run.ID,
		"records":   len(results),
		"positives": positives,
		"skipped":   skipped,
		"output":    outPath,
	}
	if stats != nil {
		meta["workers"] = stats.WorkerCount
	}
	finish(true, meta)
	return outPath, nil
}

// Purge removes stored runs older than the retention window
func (w *Watcher) Purge(ctx context.Context) (int64, error) {
	if w.store == nil || w.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := w.now().AddDate(0, 0, -w.cfg.RetentionDays)
	return w.store.PurgeOlderThan(ctx, cutoff)
}

func (w *Watcher) startPurge(ctx context.Context) error {
	if w.store == nil || w.cfg.RetentionDays <= 0 || w.cfg.Schedule == "" {
		return nil
	}
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		finish := w.observer.StartTiming("watch", "purge", "")
		removed, err := w.Purge(ctx)
		if err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return
		}
		finish(true, map[string]interface{}{"removed": removed})
	}); err != nil {
		return fmt.Errorf("failed to schedule purge: %w", err)
	}
	w.cron.Start()
	return nil
}

func (w *Watcher) stopPurge() {
	if w.cron == nil {
		return
	}
	// Wait for a running purge to finish
	<-w.cron.Stop().Done()
}

// NextPurge returns the next scheduled purge, or nil when none is scheduled
func (w *Watcher) NextPurge() *time.Time {
	if w.cron == nil {
		return nil
	}
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
