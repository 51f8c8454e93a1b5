// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"participa-scan/internal/detector"
	"participa-scan/internal/observability"
)

// AnalyzeFunc analyses one document. It must be safe for concurrent use.
type AnalyzeFunc func(ctx context.Context, job *Job) (detector.DocumentResult, error)

// WorkerPool manages parallel document analysis
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	analyze  AnalyzeFunc
}

// Job is one document waiting to be analysed
type Job struct {
	Index int
	ID    string
	Text  string
}

// Result is the outcome of one job
type Result struct {
	Index    int
	ID       string
	Document detector.DocumentResult
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool whose workers call analyze for each job
func NewWorkerPool(ctx context.Context, workers int, analyze AnalyzeFunc, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		analyze:  analyze,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for the workers to drain and releases the pool
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue; it gives up once the pool is cancelled
func (wp *WorkerPool) Submit(job *Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// Workers returns the number of workers
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob runs one analysis, turning a panic into an error so that a
// single bad document cannot take the batch down.
func (wp *WorkerPool) processJob(job *Job, workerID int) (result *Result) {
	start := time.Now()
	finishTiming := wp.observer.StartTiming("worker_pool", "process_job", job.ID)

	result = &Result{Index: job.Index, ID: job.ID}
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("analysis panicked: %v", r)
			if wp.observer.Level() == observability.ObservabilityDebug {
				result.Error = fmt.Errorf("%w\n%s", result.Error, debug.Stack())
			}
		}
		result.Duration = time.Since(start)
		finishTiming(result.Error == nil, map[string]interface{}{
			"worker_id":       workerID,
			"detection_count": len(result.Document.Detections),
			"had_error":       result.Error != nil,
		})
	}()

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}
	result.Document, result.Error = wp.analyze(wp.ctx, job)
	return result
}
