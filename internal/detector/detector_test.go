// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{"disjoint", Span{0, 3}, Span{5, 8}, false},
		{"adjacent", Span{0, 3}, Span{3, 6}, false},
		{"shared byte", Span{0, 4}, Span{3, 6}, true},
		{"contained", Span{2, 10}, Span{4, 5}, true},
		{"empty span", Span{4, 4}, Span{0, 10}, false},
		{"empty span inside", Span{0, 10}, Span{4, 4}, false},
		{"both empty", Span{4, 4}, Span{4, 4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() not symmetric: %v", got)
			}
		})
	}
}

func TestMethodPriority(t *testing.T) {
	assert.Greater(t, MethodRegex.Priority(), MethodML.Priority())
	assert.Greater(t, MethodML.Priority(), MethodDictionary.Priority())
	assert.Greater(t, MethodDictionary.Priority(), MethodLLM.Priority())
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(map[Kind]float64{KindCPF: 0.9}, true)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Threshold(KindCPF))
	assert.Equal(t, 0.70, cfg.Threshold(KindNome))
	assert.True(t, cfg.MLEnabled())

	_, err = NewConfig(map[Kind]float64{KindCPF: 1.5}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPF")

	_, err = NewConfig(map[Kind]float64{"PASSAPORTE": 0.5}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PASSAPORTE")

	_, err = NewConfigFromNames(map[string]float64{"email": -0.1}, false)
	require.Error(t, err)
}

func TestConfigWithDoesNotMutate(t *testing.T) {
	base := DefaultConfig()
	tuned, err := base.With(map[Kind]float64{KindEmail: 0.6})
	require.NoError(t, err)
	assert.Equal(t, 0.6, tuned.Threshold(KindEmail))
	assert.Equal(t, 0.85, base.Threshold(KindEmail))
}

func TestDedupeOverlapping(t *testing.T) {
	dets := []Detection{
		{Kind: KindRG, Span: Span{0, 9}, Confidence: 0.5},
		{Kind: KindRG, Span: Span{0, 12}, Confidence: 0.9},
		{Kind: KindTelefone, Span: Span{0, 9}, Confidence: 0.6},
		{Kind: KindRG, Span: Span{20, 29}, Confidence: 0.5},
	}
	got := DedupeOverlapping(dets)
	require.Len(t, got, 3)
	assert.Equal(t, KindTelefone, got[0].Kind)
	assert.Equal(t, Span{0, 12}, got[1].Span)
	assert.Equal(t, Span{20, 29}, got[2].Span)
}

func TestContextExtractorRuneWindows(t *testing.T) {
	text := "cédula de identidade número 1234567 emitida"
	idx := strings.Index(text, "1234567")
	span := Span{idx, idx + 7}

	ci := NewContextExtractor().WithWindow(10, 8).Extract(text, span)
	assert.Equal(t, "de número ", ci.BeforeText)
	assert.Equal(t, " emitida", ci.AfterText)

	wide := NewContextExtractor().Extract(text, span)
	assert.True(t, strings.HasPrefix(wide.BeforeText, "cédula"))
	assert.Contains(t, wide.Window(), "cedula de identidade")
}

func TestFindKeywordsWholeWords(t *testing.T) {
	window := Fold("Fulano pediu o plano; Telefone de contato")
	found := FindKeywords(window, []string{"ano", "telefone", "contato", "fone"})
	assert.Equal(t, []string{"telefone", "contato"}, found)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.8, ClampConfidence(0.7+0.1))
	assert.Equal(t, 1.0, ClampConfidence(1.15))
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
}

func TestDocumentResultHelpers(t *testing.T) {
	r := DocumentResult{
		ContainsPII: true,
		Detections:  []Detection{{Confidence: 1}, {Confidence: 0.5}},
		ByType:      map[Kind][]string{KindEmail: {"a@b.com"}, KindCPF: {"x"}},
	}
	assert.Equal(t, 1, r.Prediction())
	assert.Equal(t, []Kind{KindCPF, KindEmail}, r.Kinds())
	assert.InDelta(t, 0.75, r.MeanConfidence(), 1e-9)

	skipped := SkippedResult("7", "", nil)
	assert.Equal(t, 0, skipped.Prediction())
	assert.Equal(t, "malformed record", skipped.Error)
}
