// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"participa-scan/internal/detector"
)

const (
	baseConfidence   = 0.50
	firstNameBoost   = 0.25
	surnameBoost     = 0.20
	cueBoost         = 0.15
	shortNamePenalty = 0.10
	longNamePenalty  = 0.15
	mixedCasePenalty = 0.10
	shortNameRunes   = 8
	maxSignificant   = 5
	cueWindow        = 30
	maxAcronymRunes  = 4
	minSignificant   = 2
)

// Validator finds person names by matching runs of capitalized words
// against first-name and surname dictionaries.
type Validator struct {
	firstNames *NameSet
	lastNames  *NameSet
	exclusions *NameSet

	// Lowercase words allowed inside a name ("Maria da Silva")
	connectives map[string]bool

	// Folded words that introduce a name ("nome", "sr.", "requerente")
	cues []string

	cueExtractor *detector.ContextExtractor
	snippet      *detector.ContextExtractor
}

// NewValidator creates a validator over the embedded name lists.
// It panics if the embedded data is corrupt.
func NewValidator() *Validator {
	first, last, err := loadEmbedded()
	if err != nil {
		panic(fmt.Sprintf("personname: %v", err))
	}
	return NewValidatorWithSets(NewNameSet(first...), NewNameSet(last...))
}

// NewValidatorWithSets creates a validator over caller-owned name sets
func NewValidatorWithSets(firstNames, lastNames *NameSet) *Validator {
	if firstNames == nil {
		firstNames = NewNameSet()
	}
	if lastNames == nil {
		lastNames = NewNameSet()
	}
	return &Validator{
		firstNames: firstNames,
		lastNames:  lastNames,
		exclusions: NewNameSet(defaultExclusions...),
		connectives: map[string]bool{
			"de": true, "da": true, "do": true, "dos": true, "das": true,
			"e": true, "di": true, "del": true,
		},
		cues: []string{
			"nome", "chamado", "chamada", "sr", "sra", "senhor", "senhora",
			"requerente", "solicitante", "autor", "autora", "cidadao", "cidada",
			"servidor", "servidora", "funcionario", "funcionaria",
			"beneficiario", "beneficiaria",
		},
		cueExtractor: detector.NewContextExtractor().WithWindow(cueWindow, 0),
		snippet:      detector.NewContextExtractor(),
	}
}

// defaultExclusions are capitalized words that never belong to a person name
var defaultExclusions = []string{
	"secretaria", "departamento", "coordenação", "diretoria", "gerência",
	"subsecretaria", "superintendência", "administração", "governo",
	"ministério", "tribunal", "justiça", "polícia", "hospital",
	"universidade", "faculdade", "instituto", "fundação", "associação",
	"empresa", "companhia", "sociedade", "organização", "programa",
	"projeto", "sistema", "plataforma", "serviço", "unidade",
	"estado", "distrito", "federal", "nacional", "regional",
	"escola", "centro", "conselho", "câmara", "assembleia", "procuradoria",
	"ouvidoria", "controladoria", "detran", "rua", "avenida", "praça",
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
	"segunda", "terça", "quarta", "quinta", "sexta", "sábado", "domingo",
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindNome }

// Name implements detector.Detector
func (v *Validator) Name() string { return "dictionary" }

// Method implements detector.Detector
func (v *Validator) Method() detector.Method { return detector.MethodDictionary }

// FirstNames returns the first-name set; see NameSet for the mutation rules
func (v *Validator) FirstNames() *NameSet { return v.firstNames }

// LastNames returns the surname set; see NameSet for the mutation rules
func (v *Validator) LastNames() *NameSet { return v.lastNames }

// AddNames adds first names and returns how many were new
func (v *Validator) AddNames(names ...string) int { return v.firstNames.Add(names...) }

// AddSurnames adds surnames and returns how many were new
func (v *Validator) AddSurnames(names ...string) int { return v.lastNames.Add(names...) }

// AddExclusions adds words that disqualify a run from being a name
func (v *Validator) AddExclusions(words ...string) int { return v.exclusions.Add(words...) }

// Detect returns every qualifying name run in text
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, run := range v.runs(text) {
		if d, ok := v.score(text, run); ok {
			found = append(found, d)
		}
	}
	return detector.DedupeOverlapping(found)
}

// runs groups tokens into candidate runs of capitalized words separated
// only by whitespace, with connectives allowed in between.
func (v *Validator) runs(text string) [][]token {
	var (
		out  [][]token
		run  []token
		prev = -1
	)
	flush := func() {
		for len(run) > 0 && v.isConnective(run[len(run)-1].Text) {
			run = run[:len(run)-1]
		}
		if len(run) > 0 {
			out = append(out, run)
		}
		run = nil
	}

	for _, tok := range tokenize(text) {
		if len(run) > 0 && !whitespaceGap(text[prev:tok.Start]) {
			flush()
		}
		prev = tok.End

		switch {
		case v.isConnective(tok.Text):
			if len(run) > 0 {
				run = append(run, tok)
			}
		case isCapitalized(tok.Text) && !v.isAcronym(tok.Text):
			run = append(run, tok)
		default:
			flush()
		}
	}
	flush()
	return out
}

func (v *Validator) isConnective(word string) bool {
	return v.connectives[detector.Fold(word)]
}

// isAcronym treats short all-caps words as acronyms unless they are known names
func (v *Validator) isAcronym(word string) bool {
	if !isAllUpper(word) || utf8.RuneCountInString(word) > maxAcronymRunes {
		return false
	}
	return !v.firstNames.Contains(word) && !v.lastNames.Contains(word)
}

func (v *Validator) score(text string, run []token) (detector.Detection, bool) {
	var significant []token
	for _, tok := range run {
		if !v.isConnective(tok.Text) {
			significant = append(significant, tok)
		}
	}
	if len(significant) < minSignificant {
		return detector.Detection{}, false
	}
	for _, tok := range significant {
		if v.exclusions.Contains(tok.Text) {
			return detector.Detection{}, false
		}
	}

	span := detector.Span{Start: run[0].Start, End: run[len(run)-1].End}
	value := text[span.Start:span.End]

	knownFirst := v.firstNames.Contains(significant[0].Text)
	hasCue := v.hasCue(text, span)
	if !knownFirst && !hasCue {
		return detector.Detection{}, false
	}

	conf := baseConfidence
	if knownFirst {
		conf += firstNameBoost
	}
	if v.lastNames.Contains(significant[len(significant)-1].Text) {
		conf += surnameBoost
	}
	if hasCue {
		conf += cueBoost
	}
	if utf8.RuneCountInString(value) < shortNameRunes {
		conf -= shortNamePenalty
	}
	if len(significant) > maxSignificant {
		conf -= longNamePenalty
	}
	if !consistentCase(significant) {
		conf -= mixedCasePenalty
	}

	return detector.Detection{
		Kind:       detector.KindNome,
		Value:      value,
		Span:       span,
		Confidence: detector.ClampConfidence(conf),
		Context:    v.snippet.Snippet(text, span),
		Method:     detector.MethodDictionary,
	}, true
}

// hasCue reports whether a name cue appears just before span
func (v *Validator) hasCue(text string, span detector.Span) bool {
	ctx := v.cueExtractor.Extract(text, span)
	return len(detector.FindKeywords(detector.Fold(ctx.BeforeText), v.cues)) > 0
}

// consistentCase is true when the words are all title case or all upper case
func consistentCase(tokens []token) bool {
	title, upper := true, true
	for _, tok := range tokens {
		title = title && isTitleCase(tok.Text)
		upper = upper && isAllUpper(tok.Text)
	}
	return title || upper
}
