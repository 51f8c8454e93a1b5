// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics scores binary predictions against ground truth.
package metrics

import (
	"math"
	"time"

	"participa-scan/internal/detector"
)

// DefaultLevel is the confidence level used for intervals
const DefaultLevel = 0.95

// maxTypeExamples bounds the examples kept per kind
const maxTypeExamples = 3

// Outcome is the confusion-matrix cell a record falls into
type Outcome string

const (
	TruePositive  Outcome = "VP"
	TrueNegative  Outcome = "VN"
	FalsePositive Outcome = "FP"
	FalseNegative Outcome = "FN"
)

// Classify returns the outcome for one prediction
func Classify(predicted, truth bool) Outcome {
	switch {
	case predicted && truth:
		return TruePositive
	case !predicted && !truth:
		return TrueNegative
	case predicted:
		return FalsePositive
	default:
		return FalseNegative
	}
}

// ConfusionMatrix counts outcomes. Matrices built over disjoint parts of a
// batch can be combined with Merge in any order.
type ConfusionMatrix struct {
	TP int `json:"verdadeiros_positivos" yaml:"verdadeiros_positivos"`
	TN int `json:"verdadeiros_negativos" yaml:"verdadeiros_negativos"`
	FP int `json:"falsos_positivos" yaml:"falsos_positivos"`
	FN int `json:"falsos_negativos" yaml:"falsos_negativos"`
}

// Accumulate records one prediction
func (m *ConfusionMatrix) Accumulate(predicted, truth bool) {
	switch Classify(predicted, truth) {
	case TruePositive:
		m.TP++
	case TrueNegative:
		m.TN++
	case FalsePositive:
		m.FP++
	default:
		m.FN++
	}
}

// Merge adds the counts of other
func (m *ConfusionMatrix) Merge(other ConfusionMatrix) {
	m.TP += other.TP
	m.TN += other.TN
	m.FP += other.FP
	m.FN += other.FN
}

// Total returns the number of accumulated predictions
func (m ConfusionMatrix) Total() int {
	return m.TP + m.TN + m.FP + m.FN
}

// Interval is a closed confidence interval
type Interval struct {
	Lower float64 `json:"inferior" yaml:"inferior"`
	Upper float64 `json:"superior" yaml:"superior"`
}

// TypeDetail summarises the detections of one kind across a batch
type TypeDetail struct {
	Count    int      `json:"detectados" yaml:"detectados"`
	Examples []string `json:"exemplos" yaml:"exemplos"`
}

// Summary holds every statistic derived from a ConfusionMatrix
type Summary struct {
	ConfusionMatrix `yaml:",inline"`

	Total       int     `json:"total_registros" yaml:"total_registros"`
	Precision   float64 `json:"precisao" yaml:"precisao"`
	Recall      float64 `json:"sensibilidade" yaml:"sensibilidade"`
	F1          float64 `json:"f1_score" yaml:"f1_score"`
	Accuracy    float64 `json:"acuracia" yaml:"acuracia"`
	Specificity float64 `json:"especificidade" yaml:"especificidade"`

	Level       float64  `json:"nivel_confianca" yaml:"nivel_confianca"`
	PrecisionCI Interval `json:"ic_precisao" yaml:"ic_precisao"`
	RecallCI    Interval `json:"ic_sensibilidade" yaml:"ic_sensibilidade"`
	F1CI        Interval `json:"ic_f1" yaml:"ic_f1"`

	ByType    map[detector.Kind]TypeDetail `json:"detalhes_por_tipo,omitempty" yaml:"detalhes_por_tipo,omitempty"`
	Timestamp time.Time                    `json:"timestamp" yaml:"timestamp"`
}

// Compute derives the rates and intervals. Every rate whose denominator is
// zero is reported as 0. A level outside (0,1) falls back to DefaultLevel.
func (m ConfusionMatrix) Compute(level float64) Summary {
	if !(level > 0 && level < 1) {
		level = DefaultLevel
	}

	s := Summary{
		ConfusionMatrix: m,
		Total:           m.Total(),
		Precision:       ratio(m.TP, m.TP+m.FP),
		Recall:          ratio(m.TP, m.TP+m.FN),
		Accuracy:        ratio(m.TP+m.TN, m.Total()),
		Specificity:     ratio(m.TN, m.TN+m.FP),
		Level:           level,
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	s.PrecisionCI = Wilson(m.TP, m.TP+m.FP, level)
	s.RecallCI = Wilson(m.TP, m.TP+m.FN, level)
	s.F1CI = F1Interval(s.F1)
	return s
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Wilson returns the Wilson score interval for successes out of n trials.
// With n == 0 the interval is [0, 0].
func Wilson(successes, n int, level float64) Interval {
	if n <= 0 {
		return Interval{}
	}
	z := ZScore(level)
	total := float64(n)
	p := float64(successes) / total
	z2 := z * z

	denom := 1 + z2/total
	center := (p + z2/(2*total)) / denom
	margin := z * math.Sqrt((p*(1-p)+z2/(4*total))/total) / denom

	return Interval{
		Lower: math.Max(0, center-margin),
		Upper: math.Min(1, center+margin),
	}
}

// ZScore returns the two-sided standard normal quantile for level
func ZScore(level float64) float64 {
	if !(level > 0 && level < 1) {
		level = DefaultLevel
	}
	return math.Sqrt2 * math.Erfinv(level)
}

// F1Interval is an approximate interval around f1: a margin of 5% of the
// remaining headroom, or [0, 0.1] when f1 is zero.
func F1Interval(f1 float64) Interval {
	margin := 0.1
	if f1 > 0 {
		margin = 0.05 * (1 - f1)
	}
	return Interval{
		Lower: math.Max(0, f1-margin),
		Upper: math.Min(1, f1+margin),
	}
}

// Record is one evaluated document
type Record struct {
	ID         string
	Text       string
	Truth      bool
	Predicted  bool
	Detections []detector.Detection
}

// Outcome classifies the record
func (r Record) Outcome() Outcome {
	return Classify(r.Predicted, r.Truth)
}

// MeanConfidence averages the record's detection confidences
func (r Record) MeanConfidence() float64 {
	if len(r.Detections) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range r.Detections {
		total += d.Confidence
	}
	return total / float64(len(r.Detections))
}

// TypeDetails counts detections per kind and keeps the first few values
func TypeDetails(records []Record) map[detector.Kind]TypeDetail {
	details := make(map[detector.Kind]TypeDetail)
	for _, r := range records {
		for _, d := range r.Detections {
			td := details[d.Kind]
			td.Count++
			if len(td.Examples) < maxTypeExamples {
				td.Examples = append(td.Examples, d.Value)
			}
			details[d.Kind] = td
		}
	}
	return details
}
