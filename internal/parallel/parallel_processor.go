// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"time"

	"participa-scan/internal/detector"
	"participa-scan/internal/observability"
)

// ParallelProcessor fans documents out over a worker pool and returns the
// results in input order.
type ParallelProcessor struct {
	workers  int
	observer *observability.StandardObserver
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalDocuments     int           `json:"total_documents"`
	ProcessedDocuments int           `json:"processed_documents"`
	SkippedDocuments   int           `json:"skipped_documents"`
	TotalDetections    int           `json:"total_detections"`
	TotalDuration      time.Duration `json:"total_duration_ms"`
	WorkerCount        int           `json:"worker_count"`
	AvgDocumentTime    time.Duration `json:"avg_document_time_ms"`
}

// NewParallelProcessor creates a processor; workers <= 0 picks a count
// from the machine when the batch size is known.
func NewParallelProcessor(workers int, observer *observability.StandardObserver) *ParallelProcessor {
	return &ParallelProcessor{workers: workers, observer: observer}
}

// ProgressCallback is called when a document is completed
type ProgressCallback func(completed, total int, id string)

// ProcessDocuments analyses every job and returns one result per job, at
// the job's index. A failed analysis becomes a skipped result.
func (pp *ParallelProcessor) ProcessDocuments(ctx context.Context, jobs []*Job, analyze AnalyzeFunc, progress ProgressCallback) ([]detector.DocumentResult, *ProcessingStats) {
	start := time.Now()
	finishTiming := pp.observer.StartTiming("parallel_processor", "process_documents", "batch")

	workers := pp.workers
	if workers <= 0 {
		workers = OptimalWorkerCount(len(jobs))
	}
	workers = max(1, min(workers, len(jobs)))

	pool := NewWorkerPool(ctx, workers, analyze, pp.observer)
	pool.Start()

	// Submit jobs in a separate goroutine to prevent deadlock
	go func() {
		defer pool.Close()
		for i, job := range jobs {
			job.Index = i
			if !pool.Submit(job) {
				return
			}
		}
	}()

	out := make([]detector.DocumentResult, len(jobs))
	filled := make([]bool, len(jobs))
	stats := &ProcessingStats{TotalDocuments: len(jobs), WorkerCount: workers}
	var busy time.Duration

	completed := 0
	// Stop closes the results channel once every worker has exited
	go pool.Stop()

	for result := range pool.Results() {
		completed++
		busy += result.Duration

		doc := result.Document
		if result.Error != nil {
			job := jobs[result.Index]
			doc = detector.SkippedResult(job.ID, job.Text, result.Error)
			pp.observer.LogFailure("parallel_processor", "analyze", result.ID, result.Error, nil)
		}
		out[result.Index] = doc
		filled[result.Index] = true

		if progress != nil {
			progress(completed, len(jobs), result.ID)
		}
	}

	// Jobs never picked up because the context was cancelled
	for i, ok := range filled {
		if !ok {
			out[i] = detector.SkippedResult(jobs[i].ID, jobs[i].Text, ctx.Err())
		}
	}

	for _, doc := range out {
		if doc.Skipped {
			stats.SkippedDocuments++
			continue
		}
		stats.ProcessedDocuments++
		stats.TotalDetections += len(doc.Detections)
	}
	stats.TotalDuration = time.Since(start)
	stats.AvgDocumentTime = busy / time.Duration(max(completed, 1))

	finishTiming(true, map[string]interface{}{
		"total_documents":     stats.TotalDocuments,
		"processed_documents": stats.ProcessedDocuments,
		"skipped_documents":   stats.SkippedDocuments,
		"total_detections":    stats.TotalDetections,
		"worker_count":        workers,
	})

	return out, stats
}
