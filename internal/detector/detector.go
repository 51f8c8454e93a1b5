// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a category of personal data
type Kind string

const (
	KindNome     Kind = "NOME"
	KindCPF      Kind = "CPF"
	KindCNPJ     Kind = "CNPJ"
	KindRG       Kind = "RG"
	KindTelefone Kind = "TELEFONE"
	KindEmail    Kind = "EMAIL"
	KindEndereco Kind = "ENDERECO"
	KindPlaca    Kind = "PLACA"
	KindProcesso Kind = "PROCESSO"
	KindContexto Kind = "CONTEXTO"

	// KindOutros marks a document flagged by the fallback judge without a located span.
	KindOutros Kind = "OUTROS"
)

// AllKinds lists every known kind in report order
var AllKinds = []Kind{
	KindNome, KindCPF, KindCNPJ, KindRG, KindTelefone, KindEmail,
	KindEndereco, KindPlaca, KindProcesso, KindContexto, KindOutros,
}

// ParseKind resolves a kind name, case-insensitively
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(name)))
	if !k.Known() {
		return "", fmt.Errorf("unknown PII kind %q", name)
	}
	return k, nil
}

// Known reports whether k is part of the closed kind set
func (k Kind) Known() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Method identifies how a detection was produced
type Method string

const (
	MethodRegex      Method = "regex"
	MethodML         Method = "ml"
	MethodDictionary Method = "dictionary"
	MethodLLM        Method = "llm"
)

// Priority ranks methods for tie-breaking; higher wins.
func (m Method) Priority() int {
	switch m {
	case MethodRegex:
		return 4
	case MethodML:
		return 3
	case MethodDictionary:
		return 2
	case MethodLLM:
		return 1
	default:
		return 0
	}
}

// Span is a half-open byte interval [Start, End) into a document's text
type Span struct {
	Start int `json:"inicio" yaml:"inicio"`
	End   int `json:"fim" yaml:"fim"`
}

// Overlaps reports whether the two spans share at least one byte. An empty
// span overlaps nothing.
func (s Span) Overlaps(o Span) bool {
	return s.Start < s.End && o.Start < o.End && s.Start < o.End && o.Start < s.End
}

// Union returns the smallest span covering both
func (s Span) Union(o Span) Span {
	return Span{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Detection is a single located candidate of personal data.
// Values are never modified after a detector returns them.
type Detection struct {
	Kind       Kind    `json:"tipo" yaml:"tipo"`
	Value      string  `json:"valor" yaml:"valor"`
	Span       Span    `json:"posicao" yaml:"posicao"`
	Confidence float64 `json:"confianca" yaml:"confianca"`
	Context    string  `json:"contexto,omitempty" yaml:"contexto,omitempty"`
	Method     Method  `json:"metodo" yaml:"metodo"`
}

// Detector is implemented by every source of candidate detections.
// Detect must never panic on malformed input; no matches yields nil.
type Detector interface {
	Name() string
	Method() Method
	Detect(text string) []Detection
}

// SortByStart orders detections by span start, then end, then kind
func SortByStart(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].Span.Start != dets[j].Span.Start {
			return dets[i].Span.Start < dets[j].Span.Start
		}
		if dets[i].Span.End != dets[j].Span.End {
			return dets[i].Span.End < dets[j].Span.End
		}
		return dets[i].Kind < dets[j].Kind
	})
}

// DedupeOverlapping keeps, per kind, the highest-confidence detections that do
// not overlap an already kept one. Ties go to the earlier start.
func DedupeOverlapping(dets []Detection) []Detection {
	if len(dets) < 2 {
		return dets
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	var kept []Detection
	for _, d := range sorted {
		clash := false
		for _, k := range kept {
			if k.Kind == d.Kind && k.Span.Overlaps(d.Span) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, d)
		}
	}
	SortByStart(kept)
	return kept
}

// DocumentResult is the outcome of analysing one record
type DocumentResult struct {
	ID          string            `json:"id" yaml:"id"`
	Text        string            `json:"texto" yaml:"texto"`
	Detections  []Detection       `json:"deteccoes" yaml:"deteccoes"`
	ContainsPII bool              `json:"contem_dados_pessoais" yaml:"contem_dados_pessoais"`
	ByType      map[Kind][]string `json:"por_tipo,omitempty" yaml:"por_tipo,omitempty"`

	// Skipped is set for malformed records; Error says why.
	Skipped bool   `json:"ignorado,omitempty" yaml:"ignorado,omitempty"`
	Error   string `json:"erro,omitempty" yaml:"erro,omitempty"`
}

// Prediction returns the binary label written to the predictions file
func (r DocumentResult) Prediction() int {
	if r.ContainsPII && !r.Skipped {
		return 1
	}
	return 0
}

// Kinds returns the kinds present in ByType, in AllKinds order
func (r DocumentResult) Kinds() []Kind {
	var kinds []Kind
	for _, k := range AllKinds {
		if _, ok := r.ByType[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MeanConfidence averages detection confidences, 0 when there are none
func (r DocumentResult) MeanConfidence() float64 {
	if len(r.Detections) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range r.Detections {
		total += d.Confidence
	}
	return total / float64(len(r.Detections))
}

// SkippedResult builds the result reported for a record that could not be analysed
func SkippedResult(id, text string, err error) DocumentResult {
	msg := "malformed record"
	if err != nil {
		msg = err.Error()
	}
	return DocumentResult{ID: id, Text: text, Skipped: true, Error: msg}
}
