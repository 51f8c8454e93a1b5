// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"strings"

	"participa-scan/internal/detector"
)

// Validator detects administrative process, protocol and police occurrence
// numbers. They identify the requester's own case, so they count as
// personal data in an access-to-information request.
type Validator struct {
	patterns  []detector.Pattern
	context   detector.ContextRule
	extractor *detector.ContextExtractor
	snippet   *detector.ContextExtractor

	// patterns that only count with positive context
	needsContext map[string]bool
}

// NewValidator creates and returns a new process-number Validator
func NewValidator() *Validator {
	return &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("sei", `\b\d{5}-?\d{8}/\d{4}-\d{2}\b`, 0.95),
			detector.MustPattern("processo", `\b\d{10,13}/\d{4}-\d{2}\b`, 0.90),
			detector.MustPattern("protocolo", `\b\d{8,13}/\d{4}\b`, 0.85),
			detector.MustPattern("ocorrencia", `\b\d{16}\b`, 0.80),
			detector.MustPattern("cda", `\b\d{10}\b`, 0.60),
		},
		context: detector.ContextRule{
			Positive: []string{
				"processo", "sei", "protocolo", "ocorrencia", "boletim", "cda",
				"divida ativa", "certidao", "autos", "requerimento", "numero",
			},
			Negative: []string{"cpf", "cnpj", "telefone", "fone", "cep", "ano", "data"},
			Boost:    0.15,
			Penalty:  0.30,
			Floor:    0.20,
		},
		extractor:    detector.NewContextExtractor().WithWindow(50, 30),
		snippet:      detector.NewContextExtractor(),
		needsContext: map[string]bool{"cda": true},
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindProcesso }

// Detect returns every process-number candidate in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, v.patterns) {
		conf, ci := v.context.Adjust(c.Pattern.Confidence, v.extractor.Extract(text, c.Span))
		if v.needsContext[c.Pattern.Name] && len(ci.PositiveKeywords) == 0 {
			continue
		}
		found = append(found, detector.Detection{
			Kind:       detector.KindProcesso,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: detector.ClampConfidence(conf),
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}
