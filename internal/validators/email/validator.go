// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package email

import (
	"strings"

	"participa-scan/internal/detector"
)

const (
	baseConfidence   = 0.90
	commonConfidence = 0.98
	govConfidence    = 0.95
	contextBoost     = 0.05
)

// Validator detects email addresses and scores them by domain
type Validator struct {
	pattern          detector.Pattern
	commonDomains    map[string]bool
	govSuffixes      []string
	positiveKeywords []string
	extractor        *detector.ContextExtractor
	snippet          *detector.ContextExtractor
}

// NewValidator creates and returns a new email Validator
func NewValidator() *Validator {
	v := &Validator{
		pattern:       detector.MustPattern("address", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, baseConfidence),
		commonDomains: map[string]bool{},
		govSuffixes: []string{
			".gov.br", ".leg.br", ".jus.br", ".mil.br", ".mp.br",
		},
		positiveKeywords: []string{
			"e-mail", "email", "correio eletronico", "contato", "enviar para", "escreva para",
		},
		extractor: detector.NewContextExtractor().WithWindow(30, 0),
		snippet:   detector.NewContextExtractor(),
	}
	for _, d := range []string{
		"gmail.com", "hotmail.com", "outlook.com", "yahoo.com", "yahoo.com.br",
		"live.com", "msn.com", "icloud.com", "uol.com.br", "bol.com.br",
		"terra.com.br", "globo.com", "ig.com.br", "oi.com.br", "r7.com",
	} {
		v.commonDomains[d] = true
	}
	return v
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindEmail }

// Detect returns every email address in text
func (v *Validator) Detect(text string) []detector.Detection {
	if !strings.Contains(text, "@") {
		return nil
	}

	var found []detector.Detection
	for _, c := range detector.FindCandidates(text, []detector.Pattern{v.pattern}) {
		conf := v.DomainConfidence(c.Value)
		window := v.extractor.Extract(text, c.Span).Window()
		if len(detector.FindKeywords(window, v.positiveKeywords)) > 0 {
			conf += contextBoost
		}
		found = append(found, detector.Detection{
			Kind:       detector.KindEmail,
			Value:      c.Value,
			Span:       c.Span,
			Confidence: detector.ClampConfidence(conf),
			Context:    v.snippet.Snippet(text, c.Span),
			Method:     detector.MethodRegex,
		})
	}
	return detector.DedupeOverlapping(found)
}

// DomainConfidence returns the base confidence for an address by its domain
func (v *Validator) DomainConfidence(address string) float64 {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return 0
	}
	domain := strings.ToLower(address[at+1:])
	if v.commonDomains[domain] {
		return commonConfidence
	}
	for _, suffix := range v.govSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return govConfidence
		}
	}
	return baseConfidence
}
