// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"

	"participa-scan/internal/detector"
	"participa-scan/internal/loader"
	"participa-scan/internal/merge"
	"participa-scan/internal/metrics"
	"participa-scan/internal/validators"
)

// DefaultTuneGrid are the threshold values tried for each tuned kind
var DefaultTuneGrid = []float64{0.6, 0.7, 0.8, 0.9}

// TunedKinds are the kinds whose thresholds the grid search varies
var TunedKinds = []detector.Kind{detector.KindCPF, detector.KindNome, detector.KindEmail}

// ErrNoLabels is returned when no record has a ground-truth label
var ErrNoLabels = errors.New("no labeled records to tune against")

// TuneResult is the best threshold combination found
type TuneResult struct {
	Thresholds map[detector.Kind]float64
	Config     *detector.Config
	Summary    metrics.Summary
	Trials     int
}

// Tune grid-searches the TunedKinds thresholds and returns the combination
// with the best F1; ties keep the first combination tried. Detectors run
// once per record and only the merge is repeated, without the fallback
// judge.
func (p *Pipeline) Tune(ctx context.Context, records []loader.Record, labels map[string]bool, grid []float64) (*TuneResult, error) {
	if len(grid) == 0 {
		grid = DefaultTuneGrid
	}
	for _, v := range grid {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("grid value %v outside [0,1]", v)
		}
	}

	type sample struct {
		rec   loader.Record
		truth bool
		raw   []merge.MethodResult
	}

	// Thresholds are applied by the merge, so the pattern detector keeps
	// every candidate here.
	zero := make(map[detector.Kind]float64, len(detector.AllKinds))
	for _, k := range detector.AllKinds {
		zero[k] = 0
	}
	permissive, err := detector.NewConfig(zero, p.cfg.MLEnabled())
	if err != nil {
		return nil, err
	}
	pattern := validators.NewPatternDetector(permissive, validators.Select(validators.Builtin(), p.opts.Checks)...)

	var samples []sample
	for _, rec := range records {
		truth, ok := labels[rec.ID]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := sample{rec: rec, truth: truth}
		if !rec.Malformed() {
			s.raw = p.collect(ctx, rec.Text, pattern)
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, ErrNoLabels
	}

	var best *TuneResult
	trials := 1
	for range TunedKinds {
		trials *= len(grid)
	}
	for n := 0; n < trials; n++ {
		overrides := make(map[detector.Kind]float64, len(TunedKinds))
		rest := n
		for i := len(TunedKinds) - 1; i >= 0; i-- {
			overrides[TunedKinds[i]] = grid[rest%len(grid)]
			rest /= len(grid)
		}
		cfg, err := p.cfg.With(overrides)
		if err != nil {
			return nil, err
		}

		engine := merge.NewEngine(cfg, nil)
		scored := make([]metrics.Record, len(samples))
		for i, s := range samples {
			predicted := false
			if s.raw != nil {
				predicted = engine.Merge(ctx, s.rec.ID, s.rec.Text, s.raw).ContainsPII
			}
			scored[i] = metrics.Record{ID: s.rec.ID, Text: s.rec.Text, Truth: s.truth, Predicted: predicted}
		}
		summary := Accumulate(scored).Compute(metrics.DefaultLevel)

		if best == nil || summary.F1 > best.Summary.F1 {
			best = &TuneResult{Thresholds: overrides, Config: cfg, Summary: summary}
		}
	}
	best.Trials = trials
	return best, nil
}
