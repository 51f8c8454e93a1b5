// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package performance exposes batch-run metrics in Prometheus form. A batch
// CLI has no scrape endpoint, so metrics are written to a textfile for the
// node_exporter textfile collector.
package performance

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"participa-scan/internal/detector"
)

const (
	namespace = "participa"
	subsystem = "scan"
)

// DurationBuckets cover single-document analysis, from sub-millisecond
// regex-only runs to multi-second judge calls.
var DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// RunMetrics collects counters for one process. All methods are safe for
// concurrent use and a nil *RunMetrics ignores every call.
type RunMetrics struct {
	registry *prometheus.Registry

	documents  *prometheus.CounterVec
	skipped    prometheus.Counter
	detections *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	fallback   *prometheus.CounterVec
	breaker    *prometheus.GaugeVec
	duration   prometheus.Histogram
	lastRun    prometheus.Gauge
	heapBytes  prometheus.Gauge
}

// NewRunMetrics creates and registers the run metrics. A nil registry gets
// a fresh one so tests never collide on the global registry.
func NewRunMetrics(registry *prometheus.Registry) *RunMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &RunMetrics{
		registry: registry,
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "documents_total",
				Help:      "Documents analysed, by binary prediction",
			},
			[]string{"prediction"},
		),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skipped_documents_total",
			Help:      "Malformed records reported as skipped",
		}),
		detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "detections_total",
				Help:      "Surviving detections, by kind and method",
			},
			[]string{"kind", "method"},
		),
		suppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "suppressed_detections_total",
				Help:      "Detections removed by the allowlist, by kind",
			},
			[]string{"kind"},
		),
		fallback: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fallback_invocations_total",
				Help:      "Fallback judge calls, by outcome",
			},
			[]string{"outcome"},
		),
		breaker: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker position of a remote collaborator (0 closed, 1 open, 2 half-open)",
			},
			[]string{"name"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "document_duration_seconds",
			Help:      "Time spent analysing one document",
			Buckets:   DurationBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "heap_inuse_bytes",
			Help:      "Heap in use when the last batch finished",
		}),
	}

	registry.MustRegister(m.documents, m.skipped, m.detections, m.suppressed, m.fallback,
		m.breaker, m.duration, m.lastRun, m.heapBytes)
	return m
}

// Registry returns the registry holding the run metrics
func (m *RunMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDocument records one analysed document
func (m *RunMetrics) ObserveDocument(res detector.DocumentResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	if res.Skipped {
		m.skipped.Inc()
	}
	prediction := "0"
	if res.Prediction() == 1 {
		prediction = "1"
	}
	m.documents.WithLabelValues(prediction).Inc()
	for _, d := range res.Detections {
		m.detections.WithLabelValues(string(d.Kind), string(d.Method)).Inc()
	}
	m.duration.Observe(elapsed.Seconds())
}

// ObserveSuppressed records detections removed by the allowlist
func (m *RunMetrics) ObserveSuppressed(kind detector.Kind) {
	if m == nil {
		return
	}
	m.suppressed.WithLabelValues(string(kind)).Inc()
}

// Fallback outcomes
const (
	FallbackFlagged = "flagged"
	FallbackClear   = "clear"
	FallbackError   = "error"
)

// ObserveFallback records one judge call
func (m *RunMetrics) ObserveFallback(outcome string) {
	if m == nil {
		return
	}
	m.fallback.WithLabelValues(outcome).Inc()
}

// SetBreakerState records a breaker transition
func (m *RunMetrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breaker.WithLabelValues(name).Set(float64(state))
}

// MarkRunComplete stamps the end of a batch and samples the heap
func (m *RunMetrics) MarkRunComplete(at time.Time) {
	if m == nil {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.lastRun.Set(float64(at.Unix()))
	m.heapBytes.Set(float64(ms.HeapInuse))
}

// WriteToTextfile writes every metric in the text exposition format
func (m *RunMetrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
