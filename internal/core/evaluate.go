// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"

	"participa-scan/internal/detector"
	"participa-scan/internal/loader"
	"participa-scan/internal/metrics"
	"participa-scan/internal/parallel"
)

// partitions is how many partial matrices a batch is split into
const partitions = 8

// Evaluation is a batch scored against ground truth
type Evaluation struct {
	Results []detector.DocumentResult
	Records []metrics.Record
	Summary metrics.Summary
	Stats   *parallel.ProcessingStats

	// Unlabeled counts results with no ground-truth label; they are left
	// out of the matrix.
	Unlabeled int
}

// Evaluate analyses the records and scores them against labels at the
// given confidence level.
func (p *Pipeline) Evaluate(ctx context.Context, records []loader.Record, labels map[string]bool, level float64, progress parallel.ProgressCallback) *Evaluation {
	results, stats := p.AnalyzeBatch(ctx, records, progress)
	scored, unlabeled := Join(results, labels)

	summary := Accumulate(scored).Compute(level)
	summary.ByType = metrics.TypeDetails(scored)
	return &Evaluation{
		Results:   results,
		Records:   scored,
		Summary:   summary,
		Stats:     stats,
		Unlabeled: unlabeled,
	}
}

// Report renders the evaluation report
func (e *Evaluation) Report(detailed bool) string {
	return metrics.RenderReport(e.Summary, e.Records, detailed)
}

// Join pairs results with their labels by id, in result order
func Join(results []detector.DocumentResult, labels map[string]bool) ([]metrics.Record, int) {
	records := make([]metrics.Record, 0, len(results))
	unlabeled := 0
	for _, r := range results {
		truth, ok := labels[r.ID]
		if !ok {
			unlabeled++
			continue
		}
		records = append(records, metrics.Record{
			ID:         r.ID,
			Text:       r.Text,
			Truth:      truth,
			Predicted:  r.Prediction() == 1,
			Detections: r.Detections,
		})
	}
	return records, unlabeled
}

// Accumulate builds the confusion matrix from contiguous partial matrices
// merged in input order.
func Accumulate(records []metrics.Record) metrics.ConfusionMatrix {
	size := max(1, (len(records)+partitions-1)/partitions)
	var total metrics.ConfusionMatrix
	for start := 0; start < len(records); start += size {
		var partial metrics.ConfusionMatrix
		for _, r := range records[start:min(start+size, len(records))] {
			partial.Accumulate(r.Predicted, r.Truth)
		}
		total.Merge(partial)
	}
	return total
}
