// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core wires the detectors, the allowlist and the merge engine into
// the analysis pipeline shared by the CLI and watch mode.
package core

import (
	"context"
	"errors"
	"time"

	"participa-scan/internal/detector"
	"participa-scan/internal/loader"
	"participa-scan/internal/merge"
	"participa-scan/internal/ner"
	"participa-scan/internal/observability"
	"participa-scan/internal/parallel"
	"participa-scan/internal/performance"
	"participa-scan/internal/suppressions"
	"participa-scan/internal/validators"
	"participa-scan/internal/validators/personname"
)

// errEmptyRecord is reported for records with no id or no text
var errEmptyRecord = errors.New("record has no id or no text")

// Options configures a Pipeline. Only Config is required; every
// collaborator left nil is simply not run.
type Options struct {
	Config       *detector.Config
	Checks       map[detector.Kind]bool
	Names        *personname.Validator
	NER          *ner.Detector
	Judge        merge.Judge
	Suppressions *suppressions.SuppressionManager
	Metrics      *performance.RunMetrics
	Observer     *observability.StandardObserver
	Workers      int

	closers []func() error
}

// Pipeline analyses documents. It is safe for concurrent use once built.
type Pipeline struct {
	opts    Options
	cfg     *detector.Config
	pattern *validators.PatternDetector
	engine  *merge.Engine
}

// NewPipeline builds a pipeline. The name detector only runs when NOME is
// among the checks.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		opts.Config = detector.DefaultConfig()
	}
	if opts.Checks == nil {
		var err error
		if opts.Checks, err = validators.ParseChecksToRun("all"); err != nil {
			return nil, err
		}
	}
	if !opts.Checks[detector.KindNome] {
		opts.Names = nil
	}
	if opts.NER != nil {
		opts.NER.SetObserver(opts.Observer)
	}
	return newPipeline(opts, opts.Config), nil
}

func newPipeline(opts Options, cfg *detector.Config) *Pipeline {
	pattern := validators.NewPatternDetector(cfg, validators.Select(validators.Builtin(), opts.Checks)...)
	pattern.SetObserver(opts.Observer)

	engine := merge.NewEngine(cfg, countingJudge(opts.Judge, opts.Metrics))
	engine.SetObserver(opts.Observer)

	return &Pipeline{opts: opts, cfg: cfg, pattern: pattern, engine: engine}
}

// countingJudge records every fallback call in the run metrics
func countingJudge(judge merge.Judge, m *performance.RunMetrics) merge.Judge {
	if judge == nil {
		return nil
	}
	if m == nil {
		return judge
	}
	return merge.JudgeFunc(func(ctx context.Context, text string) (bool, float64, error) {
		flagged, conf, err := judge.Judge(ctx, text)
		switch {
		case err != nil:
			m.ObserveFallback(performance.FallbackError)
		case flagged && conf >= merge.FallbackThreshold:
			m.ObserveFallback(performance.FallbackFlagged)
		default:
			m.ObserveFallback(performance.FallbackClear)
		}
		return flagged, conf, err
	})
}

// Config returns the thresholds in effect
func (p *Pipeline) Config() *detector.Config { return p.cfg }

// WithConfig returns a pipeline sharing every collaborator but applying cfg
func (p *Pipeline) WithConfig(cfg *detector.Config) *Pipeline {
	return newPipeline(p.opts, cfg)
}

// Close releases the model and the judge client
func (p *Pipeline) Close() error {
	var errs []error
	if p.opts.NER != nil {
		errs = append(errs, p.opts.NER.Close())
	}
	for _, c := range p.opts.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Analyze runs every detector over one record and merges the results.
// Malformed records come back skipped, never as an error.
func (p *Pipeline) Analyze(ctx context.Context, rec loader.Record) detector.DocumentResult {
	start := time.Now()
	var res detector.DocumentResult
	if rec.Malformed() {
		err := rec.Err
		if err == nil {
			err = errEmptyRecord
		}
		res = detector.SkippedResult(rec.ID, rec.Text, err)
	} else {
		res = p.engine.Merge(ctx, rec.ID, rec.Text, p.collect(ctx, rec.Text, p.pattern))
	}
	p.opts.Metrics.ObserveDocument(res, time.Since(start))
	return res
}

// collect runs the detectors and applies the allowlist to their output
func (p *Pipeline) collect(ctx context.Context, text string, pattern *validators.PatternDetector) []merge.MethodResult {
	results := []merge.MethodResult{{
		Source:     pattern.Name(),
		Method:     pattern.Method(),
		Detections: pattern.Detect(text),
	}}
	if p.opts.Names != nil {
		results = append(results, merge.MethodResult{
			Source:     p.opts.Names.Name(),
			Method:     p.opts.Names.Method(),
			Detections: p.opts.Names.Detect(text),
		})
	}
	if p.opts.NER != nil && p.cfg.MLEnabled() {
		dets, err := p.opts.NER.DetectContext(ctx, text)
		results = append(results, merge.MethodResult{
			Source:     p.opts.NER.Name(),
			Method:     p.opts.NER.Method(),
			Detections: dets,
			Err:        err,
		})
	}

	if p.opts.Suppressions == nil {
		return results
	}
	for i := range results {
		kept, suppressed := p.opts.Suppressions.Filter(results[i].Detections)
		for _, s := range suppressed {
			p.opts.Metrics.ObserveSuppressed(s.Detection.Kind)
		}
		results[i].Detections = kept
	}
	return results
}

// AnalyzeBatch analyses records across the worker pool and returns one
// result per record, in input order.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, records []loader.Record, progress parallel.ProgressCallback) ([]detector.DocumentResult, *parallel.ProcessingStats) {
	jobs := make([]*parallel.Job, len(records))
	for i, r := range records {
		jobs[i] = &parallel.Job{ID: r.ID, Text: r.Text}
	}
	analyze := func(ctx context.Context, job *parallel.Job) (detector.DocumentResult, error) {
		return p.Analyze(ctx, records[job.Index]), nil
	}

	results, stats := parallel.NewParallelProcessor(p.opts.Workers, p.opts.Observer).
		ProcessDocuments(ctx, jobs, analyze, progress)
	p.opts.Metrics.MarkRunComplete(time.Now())
	return results, stats
}
