// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plate

import (
	"strings"

	"participa-scan/internal/detector"
)

// Validator detects vehicle plates in the old national layout (ABC-1234)
// and the Mercosul layout (ABC1D23). Letters must be upper case; lower-case
// matches are almost always words followed by a year ("ano 2023").
type Validator struct {
	patterns []detector.Pattern

	// letter prefixes that are abbreviations, not plates ("LEI 1234")
	stopPrefixes map[string]bool
	snippet      *detector.ContextExtractor
}

// NewValidator creates and returns a new plate Validator
func NewValidator() *Validator {
	v := &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("mercosul", `\b[A-Z]{3}[- ]?\d[A-Z]\d{2}\b`, 1.0),
			detector.MustPattern("nacional", `\b[A-Z]{3}[- ]?\d{4}\b`, 1.0),
		},
		stopPrefixes: map[string]bool{},
		snippet:      detector.NewContextExtractor(),
	}
	for _, p := range []string{"LEI", "ANO", "ART", "INC", "CAP", "DEC", "LAI", "SEI", "CEP", "CPF", "PAD", "RES", "POR", "NUM", "TCU", "CGU", "STF", "STJ"} {
		v.stopPrefixes[p] = true
	}
	return v
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindPlaca }

// Detect returns every plate in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.patterns) {
		if v.stopPrefixes[c.Value[:3]] {
			continue
		}
		found = append(found, detector.Detection{
			Kind:       detector.KindPlaca,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: c.Pattern.Confidence,
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}
