// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package predictions writes the two-column submission file. The layout is
// consumed by graders and must not change: header ID,Predicao, one CRLF
// terminated row per input record, in input order.
package predictions

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"participa-scan/internal/formatters"
)

// Header is the fixed header row
var Header = []string{"ID", "Predicao"}

// Formatter implements the predictions output
type Formatter struct{}

// NewFormatter creates a new predictions formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "predictions"
}

func (f *Formatter) Description() string {
	return "ID,Predicao submission file, one binary label per record"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// Format ignores options; skipped records are written as 0
func (f *Formatter) Format(run *formatters.Run, _ formatters.FormatterOptions) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(Header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, res := range run.Results {
		if err := w.Write([]string{res.ID, strconv.Itoa(res.Prediction())}); err != nil {
			return "", fmt.Errorf("write prediction %s: %w", res.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
