// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ContextInfo stores contextual information about a match
type ContextInfo struct {
	// Text before and after the match
	BeforeText string
	AfterText  string

	// Contextual keywords found near the match
	PositiveKeywords []string // Keywords that increase confidence
	NegativeKeywords []string // Keywords that decrease confidence

	// Impact on confidence score
	ConfidenceImpact float64
}

// Window returns the before and after text as one folded string for keyword search
func (ci ContextInfo) Window() string {
	return Fold(ci.BeforeText + " " + ci.AfterText)
}

// ContextExtractor extracts context around a span of in-memory text
type ContextExtractor struct {
	// Number of characters before and after the match to consider
	BeforeChars int
	AfterChars  int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		BeforeChars: 50,
		AfterChars:  50,
	}
}

// WithContextChars sets the same window on both sides
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.BeforeChars = chars
	ce.AfterChars = chars
	return ce
}

// WithWindow sets asymmetric before/after windows
func (ce *ContextExtractor) WithWindow(before, after int) *ContextExtractor {
	ce.BeforeChars = before
	ce.AfterChars = after
	return ce
}

// Extract returns the characters surrounding span. Windows are counted in
// runes so accented text is never cut mid-character.
func (ce *ContextExtractor) Extract(text string, span Span) ContextInfo {
	start := clampOffset(span.Start, len(text))
	end := clampOffset(span.End, len(text))
	if end < start {
		end = start
	}
	return ContextInfo{
		BeforeText: text[backRunes(text, start, ce.BeforeChars):start],
		AfterText:  text[end:forwardRunes(text, end, ce.AfterChars)],
	}
}

// Snippet returns the match with its surrounding context, newlines flattened
func (ce *ContextExtractor) Snippet(text string, span Span) string {
	start := backRunes(text, clampOffset(span.Start, len(text)), ce.BeforeChars)
	end := forwardRunes(text, clampOffset(span.End, len(text)), ce.AfterChars)
	if end < start {
		return ""
	}
	return strings.Join(strings.Fields(text[start:end]), " ")
}

func clampOffset(pos, n int) int {
	return max(0, min(pos, n))
}

func backRunes(text string, pos, n int) int {
	for i := 0; i < n && pos > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

func forwardRunes(text string, pos, n int) int {
	for i := 0; i < n && pos < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics ("Cédula" -> "cedula")
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// FindKeywords returns the keywords that occur in the folded window as whole
// words. Keywords must already be folded.
func FindKeywords(foldedWindow string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if ContainsWord(foldedWindow, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// ContainsWord reports whether word occurs in s bounded by non-alphanumerics
func ContainsWord(s, word string) bool {
	if word == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(s[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if isBoundary(s, start, true) && isBoundary(s, end, false) {
			return true
		}
		offset = start + 1
		if offset >= len(s) {
			return false
		}
	}
}

func isBoundary(s string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:pos])
	} else {
		if pos >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ClampConfidence rounds to four decimals and clamps to [0,1], so that
// additive adjustments such as 0.7+0.1 compare equal to their thresholds.
func ClampConfidence(v float64) float64 {
	v = math.Round(v*10000) / 10000
	return math.Max(0, math.Min(1, v))
}

// Digits returns only the ASCII digits of s
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// AllSameDigit reports whether digits is non-empty and made of one repeated digit
func AllSameDigit(digits string) bool {
	if digits == "" {
		return false
	}
	return strings.Count(digits, digits[:1]) == len(digits)
}

// ContextRule scores a match from the keywords around it. Negative keywords
// only count when no positive keyword is present.
type ContextRule struct {
	Positive []string
	Negative []string

	Boost   float64
	Penalty float64
	Floor   float64
}

// Adjust applies the rule to conf and records what was found in ci
func (r ContextRule) Adjust(conf float64, ci ContextInfo) (float64, ContextInfo) {
	window := ci.Window()
	ci.PositiveKeywords = FindKeywords(window, r.Positive)
	if len(ci.PositiveKeywords) > 0 {
		ci.ConfidenceImpact = r.Boost
		return math.Min(1, conf+r.Boost), ci
	}
	ci.NegativeKeywords = FindKeywords(window, r.Negative)
	if len(ci.NegativeKeywords) > 0 {
		ci.ConfidenceImpact = -r.Penalty
		return math.Max(r.Floor, conf-r.Penalty), ci
	}
	return conf, ci
}
