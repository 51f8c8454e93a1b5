// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sensitive

import (
	"strings"

	"participa-scan/internal/detector"
)

// topic is a family of sensitive terms with its base confidence
type topic struct {
	name       string
	pattern    detector.Pattern
	generic    bool // generic wording lowers confidence
	needsFirst bool // only counts in first-person requests
}

// Validator flags first-person disclosures of sensitive situations (health,
// violence, minors, disciplinary proceedings) that carry no structured
// identifier. It is opt-in through the CONTEXTO check.
type Validator struct {
	topics    []topic
	context   detector.ContextRule
	extractor *detector.ContextExtractor
	snippet   *detector.ContextExtractor
}

// NewValidator creates and returns a new sensitive-context Validator
func NewValidator() *Validator {
	mk := func(name, expr string, conf float64, generic, needsFirst bool) topic {
		return topic{name: name, pattern: detector.MustPattern(name, `(?i)\b(?:`+expr+`)\b`, conf), generic: generic, needsFirst: needsFirst}
	}
	return &Validator{
		topics: []topic{
			mk("saude", `laudo|atestad[ao]|diagn[óo]stico|cirurgia|interna[çc][ãa]o|c[âa]ncer|tumor|hiv|aids|gestante|psiquiatra|medicamento`, 0.85, false, false),
			mk("sensivel", `medida protetiva|viol[êe]ncia dom[ée]stica|abuso|agress[ãa]o|boletim de ocorr[êe]ncia`, 0.90, false, false),
			mk("menor", `menor de idade|tutelad[oa]`, 0.85, true, false),
			mk("social", `bolsa fam[íi]lia|vulnerabilidade|risco social`, 0.75, true, false),
			mk("documento", `identidade|carteira de trabalho|habilita[çc][ãa]o|cnh`, 0.70, true, true),
			mk("administrativo", `processo disciplinar|sindic[âa]ncia|advert[êe]ncia|demiss[ãa]o|contracheque|holerite`, 0.85, true, false),
		},
		context: detector.ContextRule{
			Positive: []string{"meu", "minha", "meus", "minhas", "solicito", "requeiro", "me cadastrar", "copia do meu", "copia da minha"},
			Negative: []string{"estatistica", "quantitativo", "quantos", "total", "dados gerais", "levantamento", "numero de", "lista de", "todos os", "quaisquer"},
			Boost:    0.15,
			Penalty:  0.40,
			Floor:    0.20,
		},
		extractor: detector.NewContextExtractor().WithWindow(50, 0),
		snippet:   detector.NewContextExtractor(),
	}
}

// Kind returns the kind this validator emits
func (v *Validator) Kind() detector.Kind { return detector.KindContexto }

// Detect returns sensitive-topic mentions scored by their surroundings
func (v *Validator) Detect(text string) []detector.Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []detector.Detection
	for _, tp := range v.topics {
		for _, c := range detector.FindCandidates(text, []detector.Pattern{tp.pattern}) {
			ci := v.extractor.Extract(text, c.Span)
			conf := c.Pattern.Confidence
			rule := v.context
			if !tp.generic {
				rule.Negative = nil
			}
			conf, ci = rule.Adjust(conf, ci)
			if tp.needsFirst && len(ci.PositiveKeywords) == 0 {
				continue
			}
			found = append(found, detector.Detection{
				Kind:       detector.KindContexto,
				Value:      c.Value,
				Span:       c.Span,
				Confidence: detector.ClampConfidence(conf),
				Context:    v.snippet.Snippet(text, c.Span),
				Method:     detector.MethodRegex,
			})
		}
	}
	return detector.DedupeOverlapping(found)
}
