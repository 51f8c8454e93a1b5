// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// token is a maximal run of letters. Hyphens and apostrophes between two
// letters stay inside the token ("Ana-Maria", "D'Ávila").
type token struct {
	Text  string
	Start int
	End   int
}

func tokenize(text string) []token {
	var out []token
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsLetter(r) || unicode.Is(unicode.Mn, r):
			if start < 0 {
				start = i
			}
		case start >= 0 && (r == '-' || r == '\'' || r == '’') && letterAt(text, i+size):
			// joiner inside a word
		default:
			if start >= 0 {
				out = append(out, token{Text: text[start:i], Start: start, End: i})
				start = -1
			}
		}
		i += size
	}
	if start >= 0 {
		out = append(out, token{Text: text[start:], Start: start, End: len(text)})
	}
	return out
}

func letterAt(text string, pos int) bool {
	if pos >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return unicode.IsLetter(r)
}

// isCapitalized reports whether the token starts with an upper-case letter
func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// isAllUpper reports whether every letter in s is upper case
func isAllUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// isTitleCase reports "Silva" style casing; joined parts are checked separately
func isTitleCase(s string) bool {
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '\'' || r == '’' }) {
		first := true
		for _, r := range part {
			if !unicode.IsLetter(r) {
				continue
			}
			if first != unicode.IsUpper(r) {
				return false
			}
			first = false
		}
	}
	return true
}

// whitespaceGap reports whether two tokens are separated only by spaces
func whitespaceGap(gap string) bool {
	return gap != "" && strings.TrimSpace(gap) == "" && strings.Count(gap, "\n") < 2
}
