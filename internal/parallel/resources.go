// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"runtime"
)

// ResourceLimits bounds the worker count
type ResourceLimits struct {
	MaxWorkers int `json:"max_workers"`
	MinWorkers int `json:"min_workers"`

	// HeapThresholdMB halves the worker count when the heap is larger
	HeapThresholdMB uint64 `json:"heap_threshold_mb"`
}

// DefaultResourceLimits returns sensible default limits
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxWorkers:      8,
		MinWorkers:      1,
		HeapThresholdMB: 1024,
	}
}

// OptimalWorkerCount picks a worker count for docCount documents using the
// default limits.
func OptimalWorkerCount(docCount int) int {
	return DefaultResourceLimits().WorkersFor(docCount, runtime.NumCPU(), heapInUseMB())
}

// WorkersFor derives a worker count from the batch size, the CPU count and
// the current heap size.
func (l ResourceLimits) WorkersFor(docCount, cpus int, heapMB uint64) int {
	workers := cpus
	if l.HeapThresholdMB > 0 && heapMB > l.HeapThresholdMB {
		workers /= 2
	}
	if docCount > 0 {
		workers = min(workers, docCount)
	}
	return max(l.MinWorkers, min(workers, l.MaxWorkers))
}

func heapInUseMB() uint64 {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return memStats.HeapInuse / 1024 / 1024
}
