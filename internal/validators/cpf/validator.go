// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cpf

import (
	"math"
	"strings"

	"participa-scan/internal/detector"
)

const (
	contextBoost  = 0.15
	checksumBoost = 0.10

	// invalidCeiling caps punctuated matches whose check digits fail
	invalidCeiling = 0.50
	invalidFloor   = 0.30
)

// Validator detects CPF numbers (Cadastro de Pessoas Físicas) using
// structural patterns, check-digit validation and preceding context.
type Validator struct {
	patterns []detector.Pattern

	// Keywords that suggest a CPF context
	positiveKeywords []string

	// Known placeholder sequences that pass the checksum
	placeholders map[string]bool

	extractor *detector.ContextExtractor
	snippet   *detector.ContextExtractor
}

// NewValidator creates and returns a new CPF Validator
func NewValidator() *Validator {
	return &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("formatted", `\b\d{3}[.\s]\d{3}[.\s]\d{3}[-.\s]?\d{2}\b`, 0.95),
			detector.MustPattern("digits", `\b\d{11}\b`, 0.70),
		},
		positiveKeywords: []string{
			"cpf", "c.p.f", "cadastro de pessoa fisica", "cadastro de pessoas fisicas",
			"documento", "inscricao",
		},
		placeholders: map[string]bool{
			"01234567890": true,
		},
		extractor: detector.NewContextExtractor().WithWindow(30, 0),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindCPF }

// Detect returns every CPF candidate in text, deduplicated by overlap
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.patterns) {
		conf, ok := v.CalculateConfidence(text, c)
		if !ok {
			continue
		}
		found = append(found, detector.Detection{
			Kind:       detector.KindCPF,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: conf,
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}

// CalculateConfidence scores a candidate. Digit-only matches with invalid
// check digits are rejected outright; punctuated ones are capped low.
func (v *Validator) CalculateConfidence(text string, c detector.Candidate) (float64, bool) {
	digits := detector.Digits(c.Value)
	if len(digits) != 11 || detector.AllSameDigit(digits) || v.placeholders[digits] {
		return 0, false
	}

	conf := c.Pattern.Confidence
	ctx := v.AnalyzeContext(v.extractor.Extract(text, c.Span))
	conf += ctx.ConfidenceImpact

	if IsValid(digits) {
		conf += checksumBoost
	} else {
		if len(digits) == len(c.Value) {
			return 0, false
		}
		conf = math.Max(invalidFloor, math.Min(conf-0.20, invalidCeiling))
	}
	return detector.ClampConfidence(conf), true
}

// AnalyzeContext fills in the keywords found before the match and their impact
func (v *Validator) AnalyzeContext(ctx detector.ContextInfo) detector.ContextInfo {
	ctx.PositiveKeywords = detector.FindKeywords(ctx.Window(), v.positiveKeywords)
	if len(ctx.PositiveKeywords) > 0 {
		ctx.ConfidenceImpact = contextBoost
	}
	return ctx
}

// IsValid reports whether an 11-digit string carries valid CPF check digits
func IsValid(digits string) bool {
	if len(digits) != 11 || detector.AllSameDigit(digits) {
		return false
	}
	d := make([]int, 11)
	for i := 0; i < 11; i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
		d[i] = int(digits[i] - '0')
	}
	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit computes the modulus-11 digit over payload, weights counting down to 2
func checkDigit(payload []int) int {
	sum := 0
	weight := len(payload) + 1
	for _, n := range payload {
		sum += n * weight
		weight--
	}
	r := sum * 10 % 11
	if r == 10 {
		return 0
	}
	return r
}
