// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	"participa-scan/internal/formatters/shared"
	"participa-scan/internal/metrics"
)

const (
	idWidth      = 12
	kindsWidth   = 24
	summaryRunes = 60
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable listing with colors, plus the report when labels are given"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(run *formatters.Run, options formatters.FormatterOptions) (string, error) {
	var builder strings.Builder

	if len(run.Results) == 0 {
		builder.WriteString("No records analysed.\n")
	} else {
		f.appendHeaders(&builder, options)
		for _, res := range run.Results {
			f.appendSummaryLine(&builder, res, options)
			if options.Verbose {
				f.appendDetections(&builder, res, options)
			}
		}
	}

	positives, skipped := run.Counts()
	builder.WriteString("\n")
	footer := fmt.Sprintf("%d registro(s), %d com dados pessoais, %d ignorado(s)", len(run.Results), positives, skipped)
	builder.WriteString(f.paint("white", options, "%s", footer))
	builder.WriteString("\n")

	if run.Summary != nil {
		builder.WriteString("\n")
		builder.WriteString(metrics.RenderReport(*run.Summary, run.Records, options.Verbose))
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// paint applies the named color unless colors are off
func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, options formatters.FormatterOptions) {
	header := fmt.Sprintf("%-6s %s %s %-6s %s", "PRED", runewidth.FillRight("ID", idWidth), runewidth.FillRight("TIPOS", kindsWidth), "CONF", "TEXTO")
	builder.WriteString(f.paint("white", options, "%s", header))
	builder.WriteString("\n")

	totalWidth := 6 + 1 + idWidth + 1 + kindsWidth + 1 + 6 + 1 + summaryRunes
	builder.WriteString(f.paint("white", options, "%s", strings.Repeat("-", totalWidth)))
	builder.WriteString("\n")
}

// appendSummaryLine adds a single line for one record
func (f *Formatter) appendSummaryLine(builder *strings.Builder, res detector.DocumentResult, options formatters.FormatterOptions) {
	var predStr string
	switch {
	case res.Skipped:
		predStr = f.paint("yellow", options, "[%-4s]", "SKIP")
	case res.Prediction() == 1:
		predStr = f.paint("red", options, "[%-4s]", "PII")
	default:
		predStr = f.paint("green", options, "[%-4s]", "OK")
	}

	id := runewidth.Truncate(res.ID, idWidth, "…")
	idStr := f.paint("white", options, "%s", runewidth.FillRight(id, idWidth))

	kinds := make([]string, 0, len(res.Kinds()))
	for _, k := range res.Kinds() {
		kinds = append(kinds, string(k))
	}
	kindText := runewidth.Truncate(strings.Join(kinds, ","), kindsWidth, "…")
	if kindText == "" {
		kindText = "-"
	}
	kindStr := f.paint("cyan", options, "%s", runewidth.FillRight(kindText, kindsWidth))

	confStr := f.paint("blue", options, "%6.3f", res.MeanConfidence())

	var textStr string
	if res.Skipped {
		textStr = f.paint("yellow", options, "%s", res.Error)
	} else if options.Redact {
		textStr = shared.RedactedValue
	} else {
		textStr = shared.Summarize(res.Text, summaryRunes)
	}

	fmt.Fprintf(builder, "%s %s %s %s %s\n", predStr, idStr, kindStr, confStr, textStr)
}

// appendDetections lists every detection of a record under its summary line
func (f *Formatter) appendDetections(builder *strings.Builder, res detector.DocumentResult, options formatters.FormatterOptions) {
	for _, d := range shared.Detections(res.Detections, options.Redact) {
		value := strings.ReplaceAll(d.Value, "\n", " ")
		fmt.Fprintf(builder, "    %s %s %s %s\n",
			f.paint("cyan", options, "%-9s", d.Kind),
			f.paint("magenta", options, "[%d:%d]", d.Span.Start, d.Span.End),
			f.paint("blue", options, "%.3f %-10s", d.Confidence, d.Method),
			value)
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
