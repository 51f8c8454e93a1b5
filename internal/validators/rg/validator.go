// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rg

import (
	"strings"

	"participa-scan/internal/detector"
)

// Validator detects RG numbers (Registro Geral, the state identity card).
// RG has no national check-digit rule, so scoring relies on layout and on
// the words around the number.
type Validator struct {
	patterns  []detector.Pattern
	context   detector.ContextRule
	extractor *detector.ContextExtractor
	snippet   *detector.ContextExtractor
}

// NewValidator creates and returns a new RG Validator
func NewValidator() *Validator {
	return &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("issuer", `(?i)\b\d{7,9}[\s/-]*(?:ssp|sds|detran|pc|iml|igp)[/\s-]*[a-z]{2}\b`, 0.95),
			detector.MustPattern("spaced", `\b\d[\s.]\d[\s.]\d[\s.]\d[\s.]\d[\s.]\d[\s.]\d(?:[\s.]\d){0,2}\b`, 0.90),
			detector.MustPattern("formatted", `\b\d{1,2}[.\s]?\d{3}[.\s]?\d{3}[-.\s]?[0-9xX]\b`, 0.85),
			detector.MustPattern("dotted", `\b\d\.\d{3}\.\d{3}\b`, 0.80),
			detector.MustPattern("digits", `\b\d{7,9}\b`, 0.50),
		},
		context: detector.ContextRule{
			Positive: []string{
				"rg", "r.g", "registro geral", "identidade", "documento", "carteira", "cedula",
			},
			Negative: []string{
				"processo", "sei", "protocolo", "pedido", "codigo", "referencia",
				"ano", "data", "cep", "r$", "reais", "valor", "matricula",
			},
			Boost:   0.20,
			Penalty: 0.25,
			Floor:   0.20,
		},
		extractor: detector.NewContextExtractor().WithContextChars(40),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindRG }

// Detect returns every RG candidate in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.patterns) {
		if n := countDigits(c.Value); n < 7 || n > 9 {
			continue
		}
		if detector.AllSameDigit(detector.Digits(c.Value)) {
			continue
		}

		conf, _ := v.context.Adjust(c.Pattern.Confidence, v.extractor.Extract(text, c.Span))
		found = append(found, detector.Detection{
			Kind:       detector.KindRG,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: detector.ClampConfidence(conf),
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}

// countDigits counts digits plus a trailing X verifier
func countDigits(s string) int {
	n := len(detector.Digits(s))
	if strings.HasSuffix(strings.ToUpper(s), "X") {
		n++
	}
	return n
}
