// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strings"
	"time"

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	"participa-scan/internal/metrics"
)

// RedactedValue replaces detected values when redaction is on
const RedactedValue = "[REDACTED]"

// RunDocument is the top-level structure for JSON/YAML output
type RunDocument struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Source    string           `json:"fonte,omitempty" yaml:"fonte,omitempty"`
	Total     int              `json:"total_registros" yaml:"total_registros"`
	Positives int              `json:"total_positivos" yaml:"total_positivos"`
	Skipped   int              `json:"total_ignorados" yaml:"total_ignorados"`
	Metrics   *metrics.Summary `json:"metricas,omitempty" yaml:"metricas,omitempty"`
	Results   []ResultEntry    `json:"resultados" yaml:"resultados"`
}

// ResultEntry represents a single record in JSON/YAML format
type ResultEntry struct {
	ID             string               `json:"id" yaml:"id"`
	Prediction     int                  `json:"predicao" yaml:"predicao"`
	Truth          *int                 `json:"real,omitempty" yaml:"real,omitempty"`
	Outcome        string               `json:"tipo_resultado,omitempty" yaml:"tipo_resultado,omitempty"`
	Kinds          []detector.Kind      `json:"tipos,omitempty" yaml:"tipos,omitempty"`
	MeanConfidence float64              `json:"confianca_media" yaml:"confianca_media"`
	Detections     []detector.Detection `json:"deteccoes" yaml:"deteccoes"`
	Text           string               `json:"texto,omitempty" yaml:"texto,omitempty"`
	Skipped        bool                 `json:"ignorado,omitempty" yaml:"ignorado,omitempty"`
	Error          string               `json:"erro,omitempty" yaml:"erro,omitempty"`
}

// Outcome returns the confusion-matrix cell for a result, or "" when the
// run has no label for it
func Outcome(run *formatters.Run, res detector.DocumentResult) (truth bool, outcome string, ok bool) {
	truth, ok = run.Truth(res.ID)
	if !ok {
		return false, "", false
	}
	return truth, string(metrics.Classify(res.Prediction() == 1, truth)), true
}

// Detections returns the result's detections, with values and context
// blanked when redact is set
func Detections(dets []detector.Detection, redact bool) []detector.Detection {
	out := make([]detector.Detection, len(dets))
	copy(out, dets)
	if redact {
		for i := range out {
			out[i].Value = RedactedValue
			out[i].Context = ""
		}
	}
	return out
}

// ConvertRun converts a run to the JSON/YAML document structure
func ConvertRun(run *formatters.Run, options formatters.FormatterOptions) RunDocument {
	positives, skipped := run.Counts()
	doc := RunDocument{
		RunID:     run.ID,
		Timestamp: run.Timestamp,
		Source:    run.Source,
		Total:     len(run.Results),
		Positives: positives,
		Skipped:   skipped,
		Metrics:   run.Summary,
		Results:   make([]ResultEntry, 0, len(run.Results)),
	}

	for _, res := range run.Results {
		entry := ResultEntry{
			ID:             res.ID,
			Prediction:     res.Prediction(),
			Kinds:          res.Kinds(),
			MeanConfidence: res.MeanConfidence(),
			Detections:     Detections(res.Detections, options.Redact),
			Skipped:        res.Skipped,
			Error:          res.Error,
		}
		if truth, outcome, ok := Outcome(run, res); ok {
			t := boolInt(truth)
			entry.Truth = &t
			entry.Outcome = outcome
		}
		if options.Verbose && !options.Redact {
			entry.Text = res.Text
		}
		doc.Results = append(doc.Results, entry)
	}
	return doc
}

// Summarize flattens line breaks, swaps double quotes for single ones and
// cuts text to n runes
func Summarize(text string, n int) string {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", `"`, "'").Replace(text)
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
