// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

import (
	"fmt"
	"strings"

	"participa-scan/internal/detector"
	"participa-scan/internal/help"
	"participa-scan/internal/observability"
	"participa-scan/internal/validators/address"
	"participa-scan/internal/validators/cnpj"
	"participa-scan/internal/validators/cpf"
	"participa-scan/internal/validators/email"
	"participa-scan/internal/validators/phone"
	"participa-scan/internal/validators/plate"
	"participa-scan/internal/validators/process"
	"participa-scan/internal/validators/rg"
	"participa-scan/internal/validators/sensitive"
)

// Validator is the contract shared by every structural check
type Validator interface {
	Kind() detector.Kind
	Detect(text string) []detector.Detection
	GetCheckInfo() help.CheckInfo
}

// Builtin returns one instance of every structural validator, in run order
func Builtin() []Validator {
	return []Validator{
		cpf.NewValidator(),
		cnpj.NewValidator(),
		rg.NewValidator(),
		phone.NewValidator(),
		email.NewValidator(),
		address.NewValidator(),
		plate.NewValidator(),
		process.NewValidator(),
		sensitive.NewValidator(),
	}
}

// DefaultChecks are the kinds run when no selection is given
var DefaultChecks = []detector.Kind{
	detector.KindNome, detector.KindCPF, detector.KindCNPJ, detector.KindRG,
	detector.KindTelefone, detector.KindEmail, detector.KindEndereco,
	detector.KindPlaca, detector.KindProcesso,
}

// ParseChecksToRun turns a comma-separated selection into a kind set.
// "all" expands to DefaultChecks; opt-in checks must be named explicitly.
func ParseChecksToRun(checks string) (map[detector.Kind]bool, error) {
	selected := make(map[detector.Kind]bool)
	if strings.TrimSpace(checks) == "" {
		checks = "all"
	}
	for _, part := range strings.Split(checks, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "all") {
			for _, k := range DefaultChecks {
				selected[k] = true
			}
			continue
		}
		k, err := detector.ParseKind(part)
		if err != nil || k == detector.KindOutros {
			return nil, fmt.Errorf("unknown check %q", part)
		}
		selected[k] = true
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no checks selected")
	}
	return selected, nil
}

// PatternDetector runs the structural validators and keeps only the
// candidates that meet their kind's sensitivity threshold.
type PatternDetector struct {
	validators []Validator
	cfg        *detector.Config
	observer   *observability.StandardObserver
}

// NewPatternDetector builds a detector over validators. A nil cfg uses the
// default thresholds; no validators means the default checks.
func NewPatternDetector(cfg *detector.Config, validators ...Validator) *PatternDetector {
	if cfg == nil {
		cfg = detector.DefaultConfig()
	}
	if len(validators) == 0 {
		validators = Select(Builtin(), nil)
	}
	return &PatternDetector{validators: validators, cfg: cfg}
}

// Select filters validators to the chosen kinds; nil means DefaultChecks
func Select(all []Validator, kinds map[detector.Kind]bool) []Validator {
	if kinds == nil {
		kinds = make(map[detector.Kind]bool)
		for _, k := range DefaultChecks {
			kinds[k] = true
		}
	}
	var out []Validator
	for _, v := range all {
		if kinds[v.Kind()] {
			out = append(out, v)
		}
	}
	return out
}

// SetObserver sets the observability component
func (p *PatternDetector) SetObserver(observer *observability.StandardObserver) {
	p.observer = observer
}

// Name implements detector.Detector
func (p *PatternDetector) Name() string { return "pattern" }

// Method implements detector.Detector
func (p *PatternDetector) Method() detector.Method { return detector.MethodRegex }

// Validators returns the validators in run order
func (p *PatternDetector) Validators() []Validator { return p.validators }

// Detect implements detector.Detector
func (p *PatternDetector) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var finishTiming func(bool, map[string]interface{})
	if p.observer != nil {
		finishTiming = p.observer.StartTiming("pattern_detector", "detect", "")
	}

	var kept []detector.Detection
	candidates := 0
	for _, v := range p.validators {
		found := v.Detect(text)
		candidates += len(found)
		for _, d := range found {
			if p.cfg.Passes(d) {
				kept = append(kept, d)
			}
		}
	}
	detector.SortByStart(kept)

	if finishTiming != nil {
		finishTiming(true, map[string]interface{}{"candidates": candidates, "match_count": len(kept)})
	}
	return kept
}
