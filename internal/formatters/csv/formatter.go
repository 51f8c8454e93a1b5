// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	"participa-scan/internal/formatters/shared"
)

// summaryRunes bounds the Texto_Resumo column
const summaryRunes = 100

var headers = []string{"ID", "Texto_Resumo", "Real", "Predito", "Tipo_Resultado", "Num_Deteccoes", "Deteccoes", "Confianca_Media"}

// Formatter implements the detailed CSV output
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Detailed per-record CSV for spreadsheet review"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// Format writes one row per record. Real and Tipo_Resultado are empty for
// records without a label.
func (f *Formatter) Format(run *formatters.Run, options formatters.FormatterOptions) (string, error) {
	rows := []string{strings.Join(headers, ",")}
	for _, res := range run.Results {
		rows = append(rows, f.createCSVRow(run, res, options))
	}
	return strings.Join(rows, "\n") + "\n", nil
}

// createCSVRow creates a CSV row for a result
func (f *Formatter) createCSVRow(run *formatters.Run, res detector.DocumentResult, options formatters.FormatterOptions) string {
	truthCol, outcome := "", ""
	if truth, o, ok := shared.Outcome(run, res); ok {
		truthCol = "0"
		if truth {
			truthCol = "1"
		}
		outcome = o
	}

	row := []string{
		f.escapeCSVField(res.ID),
		f.escapeCSVField(f.sanitizeFormulaInjection(shared.Summarize(res.Text, summaryRunes))),
		truthCol,
		fmt.Sprintf("%d", res.Prediction()),
		outcome,
		fmt.Sprintf("%d", len(res.Detections)),
		f.escapeCSVField(f.sanitizeFormulaInjection(joinDetections(res.Detections, options.Redact))),
		fmt.Sprintf("%.3f", res.MeanConfidence()),
	}
	return strings.Join(row, ",")
}

// joinDetections renders detections as KIND:value pairs separated by |
func joinDetections(dets []detector.Detection, redact bool) string {
	parts := make([]string, 0, len(dets))
	for _, d := range shared.Detections(dets, redact) {
		parts = append(parts, string(d.Kind)+":"+d.Value)
	}
	return strings.Join(parts, "|")
}

// escapeCSVField quotes a field when it holds a comma, quote or line break
func (f *Formatter) escapeCSVField(field string) string {
	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes fields a spreadsheet would evaluate
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
