// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"sort"
	"strings"
)

// defaultThresholds are the per-kind sensitivity thresholds used when a
// configuration does not override them.
var defaultThresholds = map[Kind]float64{
	KindNome:     0.70,
	KindCPF:      0.80,
	KindCNPJ:     0.80,
	KindRG:       0.75,
	KindTelefone: 0.75,
	KindEmail:    0.85,
	KindEndereco: 0.80,
	KindPlaca:    0.85,
	KindProcesso: 0.70,
	KindContexto: 0.65,
	KindOutros:   0.70,
}

// DefaultThresholds returns a copy of the built-in thresholds
func DefaultThresholds() map[Kind]float64 {
	out := make(map[Kind]float64, len(defaultThresholds))
	for k, v := range defaultThresholds {
		out[k] = v
	}
	return out
}

// Config holds the per-kind thresholds and the ML switch for one run.
// It is immutable once constructed.
type Config struct {
	thresholds map[Kind]float64
	enableML   bool
}

// NewConfig validates the overrides and merges them over the defaults.
// Unknown kinds and thresholds outside [0,1] are rejected.
func NewConfig(overrides map[Kind]float64, enableML bool) (*Config, error) {
	thresholds := DefaultThresholds()

	var problems []string
	for k, v := range overrides {
		if !k.Known() {
			problems = append(problems, fmt.Sprintf("unknown PII kind %q", string(k)))
			continue
		}
		if v < 0 || v > 1 || v != v {
			problems = append(problems, fmt.Sprintf("threshold for %s must be within [0,1], got %v", k, v))
			continue
		}
		thresholds[k] = v
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("invalid detector configuration: %s", strings.Join(problems, "; "))
	}

	return &Config{thresholds: thresholds, enableML: enableML}, nil
}

// NewConfigFromNames is NewConfig for string-keyed maps such as YAML input
func NewConfigFromNames(overrides map[string]float64, enableML bool) (*Config, error) {
	typed := make(map[Kind]float64, len(overrides))
	for name, v := range overrides {
		typed[Kind(strings.ToUpper(strings.TrimSpace(name)))] = v
	}
	return NewConfig(typed, enableML)
}

// DefaultConfig returns the built-in thresholds with ML disabled
func DefaultConfig() *Config {
	return &Config{thresholds: DefaultThresholds()}
}

// Threshold returns the sensitivity threshold for k
func (c *Config) Threshold(k Kind) float64 {
	if v, ok := c.thresholds[k]; ok {
		return v
	}
	return defaultThresholds[KindOutros]
}

// MLEnabled reports whether the ML collaborator should run
func (c *Config) MLEnabled() bool {
	return c.enableML
}

// Thresholds returns a copy of the effective thresholds
func (c *Config) Thresholds() map[Kind]float64 {
	out := make(map[Kind]float64, len(c.thresholds))
	for k, v := range c.thresholds {
		out[k] = v
	}
	return out
}

// With returns a new Config with the given overrides applied on top of c
func (c *Config) With(overrides map[Kind]float64) (*Config, error) {
	merged := c.Thresholds()
	for k, v := range overrides {
		merged[k] = v
	}
	return NewConfig(merged, c.enableML)
}

// Passes reports whether d meets its kind's threshold
func (c *Config) Passes(d Detection) bool {
	return d.Confidence >= c.Threshold(d.Kind)
}
