// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cnpj

import (
	"math"
	"strings"

	"participa-scan/internal/detector"
)

const (
	contextBoost   = 0.15
	checksumBoost  = 0.10
	invalidCeiling = 0.50
	invalidFloor   = 0.30
)

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Validator detects CNPJ numbers (corporate taxpayer registry)
type Validator struct {
	patterns         []detector.Pattern
	positiveKeywords []string
	extractor        *detector.ContextExtractor
	snippet          *detector.ContextExtractor
}

// NewValidator creates and returns a new CNPJ Validator
func NewValidator() *Validator {
	return &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("formatted", `\b\d{2}\.?\d{3}\.?\d{3}/\d{4}-?\d{2}\b`, 0.95),
			detector.MustPattern("digits", `\b\d{14}\b`, 0.70),
		},
		positiveKeywords: []string{
			"cnpj", "c.n.p.j", "empresa", "razao social", "pessoa juridica", "inscrita",
		},
		extractor: detector.NewContextExtractor().WithWindow(30, 0),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindCNPJ }

// Detect returns every CNPJ candidate in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.patterns) {
		digits := detector.Digits(c.Value)
		if len(digits) != 14 || detector.AllSameDigit(digits) {
			continue
		}

		conf := c.Pattern.Confidence
		ctx := detector.FindKeywords(v.extractor.Extract(text, c.Span).Window(), v.positiveKeywords)
		if len(ctx) > 0 {
			conf += contextBoost
		}

		if IsValid(digits) {
			conf += checksumBoost
		} else {
			if len(digits) == len(c.Value) {
				continue
			}
			conf = math.Max(invalidFloor, math.Min(conf-0.20, invalidCeiling))
		}

		found = append(found, detector.Detection{
			Kind:       detector.KindCNPJ,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: detector.ClampConfidence(conf),
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}

// IsValid reports whether a 14-digit string carries valid CNPJ check digits
func IsValid(digits string) bool {
	if len(digits) != 14 || detector.AllSameDigit(digits) {
		return false
	}
	d := make([]int, 14)
	for i := range d {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
		d[i] = int(digits[i] - '0')
	}
	return checkDigit(d[:12], firstWeights) == d[12] && checkDigit(d[:13], secondWeights) == d[13]
}

func checkDigit(payload, weights []int) int {
	sum := 0
	for i, n := range payload {
		sum += n * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
