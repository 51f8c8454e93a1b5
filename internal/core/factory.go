// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"

	"participa-scan/internal/config"
	"participa-scan/internal/detector"
	"participa-scan/internal/gemini"
	"participa-scan/internal/ner"
	"participa-scan/internal/observability"
	"participa-scan/internal/performance"
	"participa-scan/internal/suppressions"
	"participa-scan/internal/validators"
	"participa-scan/internal/validators/personname"
)

// BuildNameValidator creates the dictionary detector over the embedded
// lists plus the extra files and exclusion words named in cfg. It must run
// before the pipeline is shared between goroutines.
func BuildNameValidator(cfg *config.Config) (*personname.Validator, error) {
	v := personname.NewValidator()
	if cfg == nil {
		return v, nil
	}
	for _, path := range cfg.Names.FirstNames {
		if _, err := v.FirstNames().LoadFile(path); err != nil {
			return nil, err
		}
	}
	for _, path := range cfg.Names.Surnames {
		if _, err := v.LastNames().LoadFile(path); err != nil {
			return nil, err
		}
	}
	v.AddExclusions(cfg.Names.Exclusions...)
	return v, nil
}

// BuildOptions holds the run switches that override the config file
type BuildOptions struct {
	Checks    string
	Profile   *config.Profile
	EnableML  bool
	EnableLLM bool
	Workers   int
	Observer  *observability.StandardObserver
	Metrics   *performance.RunMetrics
}

// Build assembles a pipeline from the configuration. Optional collaborators
// that cannot start (no model files, no API key) are reported through the
// returned warnings and left out, so the run degrades to the remaining
// detectors.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Pipeline, []string, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.LoadConfig(""); err != nil {
			return nil, nil, err
		}
	}

	checks := opts.Checks
	if checks == "" && opts.Profile != nil {
		checks = opts.Profile.Checks
	}
	if checks == "" {
		checks = cfg.Defaults.Checks
	}
	kinds, err := validators.ParseChecksToRun(checks)
	if err != nil {
		return nil, nil, err
	}

	detCfg, err := cfg.DetectorConfig(opts.Profile, opts.EnableML)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	p := Options{
		Config:   detCfg,
		Checks:   kinds,
		Workers:  opts.Workers,
		Observer: opts.Observer,
		Metrics:  opts.Metrics,
	}
	if p.Workers == 0 {
		p.Workers = cfg.Defaults.Workers
	}

	if kinds[detector.KindNome] {
		if p.Names, err = BuildNameValidator(cfg); err != nil {
			return nil, nil, err
		}
	}

	if cfg.Suppressions.Enabled {
		sm, err := suppressions.NewSuppressionManager(cfg.Suppressions.File)
		if err != nil {
			return nil, nil, err
		}
		p.Suppressions = sm
	}

	if opts.EnableML {
		rec, err := ner.OpenONNX(ner.ModelConfig{
			ModelDir:    cfg.ML.ModelDir,
			LibraryPath: cfg.ML.LibraryPath,
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("NER model disabled: %v", err))
		} else {
			p.NER = ner.NewDetector(rec, cfg.ML.Threshold)
		}
	}

	if opts.EnableLLM {
		judge, err := gemini.New(ctx, gemini.Config{
			APIKey:        cfg.APIKey(),
			Model:         cfg.LLM.Model,
			MaxChars:      cfg.LLM.MaxChars,
			RatePerMinute: cfg.LLM.RatePerMinute,
		})
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("fallback judge disabled: %v", err))
		} else {
			judge.SetObserver(opts.Observer)
			judge.SetMetrics(opts.Metrics)
			p.Judge = judge
			p.closers = append(p.closers, judge.Close)
		}
	}

	pipeline, err := NewPipeline(p)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, warnings, nil
}
