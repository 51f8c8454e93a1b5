// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ner adapts token-classification models to the detector interface.
// A Recognizer returns raw labelled entities; Detector maps the labels onto
// the closed kind set and drops what it cannot place.
package ner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"participa-scan/internal/detector"
	"participa-scan/internal/observability"
)

// ErrModelUnavailable is returned when no model backend is compiled in or
// the model files cannot be found.
var ErrModelUnavailable = errors.New("NER model unavailable")

// DefaultThreshold is the minimum entity score kept from the model
const DefaultThreshold = 0.5

// Entity is one labelled span as produced by a model. Start and End are
// byte offsets into the analysed text.
type Entity struct {
	Label string
	Text  string
	Start int
	End   int
	Score float64
}

// Recognizer runs a model over text. Implementations must be safe for
// concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
	Close() error
}

// labelKinds maps normalized model labels onto kinds. Both natural-language
// labels and compact BIO tag names are accepted.
var labelKinds = map[string]detector.Kind{
	"person":    detector.KindNome,
	"name":      detector.KindNome,
	"per":       detector.KindNome,
	"firstname": detector.KindNome,
	"surname":   detector.KindNome,
	"lastname":  detector.KindNome,

	"cpf":                       detector.KindCPF,
	"taxnum":                    detector.KindCPF,
	"tax identification number": detector.KindCPF,
	"cnpj":                      detector.KindCNPJ,

	"phone number":          detector.KindTelefone,
	"mobile phone number":   detector.KindTelefone,
	"landline phone number": detector.KindTelefone,
	"telephonenum":          detector.KindTelefone,
	"email":                 detector.KindEmail,
	"email address":         detector.KindEmail,

	"address":     detector.KindEndereco,
	"street":      detector.KindEndereco,
	"postal code": detector.KindEndereco,
	"zipcode":     detector.KindEndereco,

	"identity card number":     detector.KindRG,
	"national id number":       detector.KindRG,
	"identity document number": detector.KindRG,
	"idcardnum":                detector.KindRG,
	"license plate number":     detector.KindPlaca,
	"licenseplatenum":          detector.KindPlaca,
}

// KindFor resolves a model label to a kind. BIO prefixes, case and
// underscores are ignored.
func KindFor(label string) (detector.Kind, bool) {
	k, ok := labelKinds[normalizeLabel(label)]
	return k, ok
}

func normalizeLabel(label string) string {
	l := strings.TrimSpace(label)
	if len(l) > 2 && (l[:2] == "B-" || l[:2] == "I-" || l[:2] == "b-" || l[:2] == "i-") {
		l = l[2:]
	}
	l = strings.ReplaceAll(l, "_", " ")
	return strings.ToLower(l)
}

// Detector exposes a Recognizer as a detection method
type Detector struct {
	rec       Recognizer
	threshold float64
	snippet   *detector.ContextExtractor
	observer  *observability.StandardObserver
}

// NewDetector wraps rec; a threshold outside (0,1] falls back to DefaultThreshold
func NewDetector(rec Recognizer, threshold float64) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Detector{
		rec:       rec,
		threshold: threshold,
		snippet:   detector.NewContextExtractor().WithContextChars(30),
	}
}

// SetObserver sets the observability component
func (d *Detector) SetObserver(observer *observability.StandardObserver) {
	d.observer = observer
}

// Name implements detector.Detector
func (d *Detector) Name() string { return "ner" }

// Method implements detector.Detector
func (d *Detector) Method() detector.Method { return detector.MethodML }

// Close releases the underlying model
func (d *Detector) Close() error { return d.rec.Close() }

// Detect implements detector.Detector. Model failures are logged and yield
// no detections; use DetectContext to see the error.
func (d *Detector) Detect(text string) []detector.Detection {
	dets, err := d.DetectContext(context.Background(), text)
	if err != nil {
		d.observer.LogFailure("ner", "detect", "", err, nil)
		return nil
	}
	return dets
}

// DetectContext runs the model and converts its entities to detections
func (d *Detector) DetectContext(ctx context.Context, text string) ([]detector.Detection, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	finish := d.observer.StartTiming("ner", "detect", "")

	entities, err := d.rec.Recognize(ctx, text)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("recognize: %w", err)
	}

	var out []detector.Detection
	unmapped := map[string]int{}
	for _, e := range entities {
		kind, ok := KindFor(e.Label)
		if !ok {
			unmapped[e.Label]++
			continue
		}
		if e.Score < d.threshold {
			continue
		}
		if e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			continue
		}
		span := detector.Span{Start: e.Start, End: e.End}
		out = append(out, detector.Detection{
			Kind:       kind,
			Value:      text[e.Start:e.End],
			Span:       span,
			Confidence: detector.ClampConfidence(e.Score),
			Context:    d.snippet.Snippet(text, span),
			Method:     detector.MethodML,
		})
	}
	if len(unmapped) > 0 {
		d.observer.LogFailure("ner", "map_labels", "", fmt.Errorf("%d unmapped labels", len(unmapped)),
			map[string]interface{}{"labels": unmapped})
	}

	out = joinAdjacent(text, out)
	detector.SortByStart(out)
	finish(true, map[string]interface{}{"entities": len(entities), "detections": len(out)})
	return out, nil
}

// joinAdjacent fuses name parts separated only by whitespace, such as
// FIRSTNAME followed by SURNAME. The joined score is the mean.
func joinAdjacent(text string, dets []detector.Detection) []detector.Detection {
	if len(dets) < 2 {
		return dets
	}
	detector.SortByStart(dets)
	out := []detector.Detection{dets[0]}
	parts := 1
	for _, d := range dets[1:] {
		last := &out[len(out)-1]
		if last.Kind == detector.KindNome && d.Kind == detector.KindNome && d.Span.Start >= last.Span.End && onlySpaces(text[last.Span.End:d.Span.Start]) {
			total := last.Confidence*float64(parts) + d.Confidence
			parts++
			last.Span.End = d.Span.End
			last.Value = text[last.Span.Start:last.Span.End]
			last.Confidence = detector.ClampConfidence(total / float64(parts))
			continue
		}
		out = append(out, d)
		parts = 1
	}
	return out
}

func onlySpaces(s string) bool {
	if strings.Count(s, "\n") > 1 {
		return false
	}
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// TokenLabel is the per-token output of a token-classification model
type TokenLabel struct {
	Label string
	Score float64
	Start int
	End   int
}

// DecodeBIO groups per-token labels into entities. A B- tag or a change of
// label starts a new entity; I- tokens of the same label extend it. Tokens
// scoring under minScore are treated as outside.
func DecodeBIO(text string, tokens []TokenLabel, minScore float64) []Entity {
	var (
		out     []Entity
		current *Entity
		scores  []float64
	)
	flush := func() {
		if current == nil {
			return
		}
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		current.Score = sum / float64(len(scores))
		if current.Start >= 0 && current.End <= len(text) && current.Start < current.End {
			current.Text = text[current.Start:current.End]
			out = append(out, *current)
		}
		current, scores = nil, nil
	}

	for _, tok := range tokens {
		label := tok.Label
		if tok.Score < minScore || tok.Start >= tok.End {
			label = "O"
		}
		if label == "O" || label == "" {
			flush()
			continue
		}
		base := label
		inside := false
		switch {
		case strings.HasPrefix(label, "B-"):
			base = label[2:]
		case strings.HasPrefix(label, "I-"):
			base = label[2:]
			inside = true
		}

		if inside && current != nil && current.Label == base {
			current.End = tok.End
			scores = append(scores, tok.Score)
			continue
		}
		flush()
		current = &Entity{Label: base, Start: tok.Start, End: tok.End}
		scores = []float64{tok.Score}
	}
	flush()
	return out
}

// Softmax returns the index of the largest logit and its probability
func Softmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return 0, 0
	}
	best := 0
	for i, l := range logits {
		if l > logits[best] {
			best = i
		}
	}
	maxLogit := float64(logits[best])
	sum := 0.0
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}
	return best, 1 / sum
}
