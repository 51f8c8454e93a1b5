// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"math"
	"strconv"
	"strings"

	"participa-scan/internal/detector"
)

const (
	contextBoost   = 0.10
	rangePenalty   = 0.30
	rangeFloor     = 0.30
	minCEP, maxCEP = 1000000, 99999999
)

// Validator detects postal codes (CEP) and street addresses
type Validator struct {
	cepPatterns    []detector.Pattern
	streetPatterns []detector.Pattern

	positiveKeywords []string
	extractor        *detector.ContextExtractor
	snippet          *detector.ContextExtractor
}

// NewValidator creates and returns a new address Validator
func NewValidator() *Validator {
	return &Validator{
		cepPatterns: []detector.Pattern{
			detector.MustPattern("cep", `\b\d{5}-\d{3}\b`, 0.85),
			detector.MustPattern("cep_dotted", `\b\d{2}\.\d{3}-\d{3}\b`, 0.85),
			detector.MustPattern("cep_digits", `\b\d{8}\b`, 0.70),
		},
		streetPatterns: []detector.Pattern{
			detector.MustPattern("logradouro",
				`(?i)\b(?:rua|av\.?|avenida|alameda|travessa|quadra|qd\.?|conjunto|conj\.?|bloco|bl\.?|lote|lt\.?)[\s,]+[^,\n]{5,50}`, 0.75),
		},
		positiveKeywords: []string{
			"endereco", "residencia", "resido", "reside", "moro", "mora", "cep", "localizacao", "localizado",
		},
		extractor: detector.NewContextExtractor().WithWindow(30, 0),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindEndereco }

// Detect returns CEP and street candidates in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.cepPatterns) {
		conf := v.withContext(text, c)
		digits := detector.Digits(c.Value)
		if n, err := strconv.Atoi(digits); err != nil || n < minCEP || n > maxCEP {
			conf = math.Max(rangeFloor, conf-rangePenalty)
		}
		found = append(found, v.detection(text, c, conf))
	}
	for _, c := range detector.FindCandidates(text, v.streetPatterns) {
		c.Value = strings.TrimRight(c.Value, " \t.;:")
		c.Span.End = c.Span.Start + len(c.Value)
		found = append(found, v.detection(text, c, v.withContext(text, c)))
	}
	return detector.DedupeOverlapping(found)
}

func (v *Validator) withContext(text string, c detector.Candidate) float64 {
	window := v.extractor.Extract(text, c.Span).Window()
	if len(detector.FindKeywords(window, v.positiveKeywords)) > 0 {
		return c.Pattern.Confidence + contextBoost
	}
	return c.Pattern.Confidence
}

func (v *Validator) detection(text string, c detector.Candidate, conf float64) detector.Detection {
	return detector.Detection{
		Kind:       detector.KindEndereco,
		Value:      c.Value,
		Span:       c.Span,
		Confidence: detector.ClampConfidence(conf),
		Context:    v.snippet.Snippet(text, c.Span),
		Method:     detector.MethodRegex,
	}
}
