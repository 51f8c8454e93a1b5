// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import (
	"math"
	"strings"

	"participa-scan/internal/detector"
	"participa-scan/internal/validators/cpf"
)

const (
	dddBoost   = 0.10
	dddPenalty = 0.20
	dddFloor   = 0.30
)

// validDDDs lists the Brazilian area codes in service
var validDDDs = map[string]bool{}

func init() {
	for _, r := range [][2]int{
		{11, 19}, {21, 22}, {24, 24}, {27, 28}, {31, 35}, {37, 38},
		{41, 49}, {51, 51}, {53, 55}, {61, 69}, {71, 71}, {73, 75},
		{77, 77}, {79, 79}, {81, 89}, {91, 99},
	} {
		for n := r[0]; n <= r[1]; n++ {
			validDDDs[itoa2(n)] = true
		}
	}
}

func itoa2(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// Validator detects Brazilian landline and mobile phone numbers
type Validator struct {
	patterns  []detector.Pattern
	context   detector.ContextRule
	extractor *detector.ContextExtractor
	snippet   *detector.ContextExtractor
}

// NewValidator creates and returns a new phone Validator
func NewValidator() *Validator {
	return &Validator{
		patterns: []detector.Pattern{
			detector.MustPattern("international", `\+55[\s.-]?\(?\d{2}\)?[\s.-]?\d{4,5}[\s.-]?\d{4}\b`, 0.98),
			detector.MustPattern("with_ddd", `(?:\(\d{2}\)|\b\d{2})[\s.-]?\d{4,5}[\s.-]?\d{4}\b`, 0.85),
			detector.MustPattern("local", `\b\d{4,5}[\s.-]\d{4}\b`, 0.65),
		},
		context: detector.ContextRule{
			Positive: []string{
				"tel", "telefone", "celular", "cel", "contato", "fone", "whatsapp", "zap", "ligar", "ligue",
			},
			Negative: []string{
				"processo", "sei", "protocolo", "ano", "codigo", "cpf", "cnpj", "cep", "rg", "matricula",
			},
			Boost:   0.15,
			Penalty: 0.30,
			Floor:   0.20,
		},
		extractor: detector.NewContextExtractor().WithWindow(30, 0),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindTelefone }

// Detect returns every phone candidate in text
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
			Kind:       detector.KindTelefone,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: conf,
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}

// CalculateConfidence scores a phone candidate; false means reject
func (v *Validator) CalculateConfidence(text string, c detector.Candidate) (float64, bool) {
	digits := detector.Digits(c.Value)
	if len(digits) < 8 || len(digits) > 13 || detector.AllSameDigit(digits[len(digits)-8:]) {
		return 0, false
	}
	// 11 digits with valid CPF check digits are a CPF, not a mobile number
	if len(digits) == 11 && cpf.IsValid(digits) {
		return 0, false
	}

	conf := c.Pattern.Confidence
	if len(digits) >= 10 {
		if validDDDs[AreaCode(digits)] {
			conf += dddBoost
		} else {
			conf = math.Max(dddFloor, conf-dddPenalty)
		}
	}

	conf, _ = v.context.Adjust(conf, v.extractor.Extract(text, c.Span))
	return detector.ClampConfidence(conf), true
}

// AreaCode returns the two-digit DDD of a number with at least 10 digits,
// skipping the 55 country code when present.
func AreaCode(digits string) string {
	if len(digits) >= 12 && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) < 10 {
		return ""
	}
	return digits[:2]
}

// IsValidDDD reports whether ddd is an area code in service
func IsValidDDD(ddd string) bool {
	return validDDDs[ddd]
}
