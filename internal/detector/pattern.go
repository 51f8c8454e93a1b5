// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import "regexp"

// Pattern is one structural signature with its base confidence
type Pattern struct {
	Name       string
	Regex      *regexp.Regexp
	Confidence float64
}

// MustPattern compiles expr and panics on error; used for package-level tables
func MustPattern(name, expr string, confidence float64) Pattern {
	return Pattern{Name: name, Regex: regexp.MustCompile(expr), Confidence: confidence}
}

// Candidate is a raw regex hit before scoring
type Candidate struct {
	Pattern Pattern
	Span    Span
	Value   string
}

// FindCandidates runs every pattern over text in order and returns all hits
func FindCandidates(text string, patterns []Pattern) []Candidate {
	var out []Candidate
	for _, p := range patterns {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			out = append(out, Candidate{
				Pattern: p,
				Span:    Span{Start: loc[0], End: loc[1]},
				Value:   text[loc[0]:loc[1]],
			})
		}
	}
	return out
}
