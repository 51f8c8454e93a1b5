// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package performance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"participa-scan/internal/detector"
)

func TestObserveDocument(t *testing.T) {
	m := NewRunMetrics(nil)

	m.ObserveDocument(detector.DocumentResult{
		ID:          "1",
		ContainsPII: true,
		Detections: []detector.Detection{
			{Kind: detector.KindCPF, Method: detector.MethodRegex},
			{Kind: detector.KindNome, Method: detector.MethodDictionary},
			{Kind: detector.KindCPF, Method: detector.MethodRegex},
		},
	}, 3*time.Millisecond)
	m.ObserveDocument(detector.DocumentResult{ID: "2"}, time.Millisecond)
	m.ObserveDocument(detector.SkippedResult("", "", nil), 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.detections.WithLabelValues("CPF", "regex")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.detections.WithLabelValues("NOME", "dictionary")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestFallbackAndSuppressed(t *testing.T) {
	m := NewRunMetrics(nil)
	m.ObserveFallback(FallbackFlagged)
	m.ObserveFallback(FallbackClear)
	m.ObserveFallback(FallbackClear)
	m.ObserveSuppressed(detector.KindEmail)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallback.WithLabelValues(FallbackFlagged)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fallback.WithLabelValues(FallbackClear)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed.WithLabelValues("EMAIL")))
}

func TestWriteToTextfile(t *testing.T) {
	m := NewRunMetrics(nil)
	m.ObserveDocument(detector.DocumentResult{ID: "1"}, time.Millisecond)
	now := time.Unix(1700000000, 0)
	m.MarkRunComplete(now)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))

	path := filepath.Join(t.TempDir(), "participa.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "participa_scan_documents_total"))
	assert.True(t, strings.Contains(text, "participa_scan_document_duration_seconds_bucket"))
}

func TestNilRunMetrics(t *testing.T) {
	var m *RunMetrics
	assert.NotPanics(t, func() {
		m.ObserveDocument(detector.DocumentResult{}, time.Second)
		m.ObserveFallback(FallbackError)
		m.ObserveSuppressed(detector.KindCPF)
		m.MarkRunComplete(time.Now())
		assert.NoError(t, m.WriteToTextfile("ignored"))
		assert.Nil(t, m.Registry())
	})
}

func TestSetBreakerState(t *testing.T) {
	m := NewRunMetrics(nil)
	m.SetBreakerState("gemini", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breaker.WithLabelValues("gemini")))
	m.SetBreakerState("gemini", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breaker.WithLabelValues("gemini")))

	var nilMetrics *RunMetrics
	nilMetrics.SetBreakerState("gemini", 2)
}
