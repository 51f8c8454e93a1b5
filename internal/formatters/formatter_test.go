// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"participa-scan/internal/detector"
	"participa-scan/internal/formatters"
	_ "participa-scan/internal/formatters/csv"
	_ "participa-scan/internal/formatters/json"
	_ "participa-scan/internal/formatters/predictions"
	"participa-scan/internal/formatters/shared"
	_ "participa-scan/internal/formatters/text"
	_ "participa-scan/internal/formatters/yaml"
	"participa-scan/internal/metrics"
)

func sampleRun() *formatters.Run {
	results := []detector.DocumentResult{
		{
			ID:   "101",
			Text: "Meu nome é Maria Souza, CPF 123.456.789-09.\nGrato.",
			Detections: []detector.Detection{
				{Kind: detector.KindNome, Value: "Maria Souza", Span: detector.Span{Start: 12, End: 23}, Confidence: 0.8, Method: detector.MethodDictionary, Context: "nome é Maria Souza, CPF"},
				{Kind: detector.KindCPF, Value: "123.456.789-09", Span: detector.Span{Start: 29, End: 43}, Confidence: 0.9, Method: detector.MethodRegex},
			},
			ContainsPII: true,
			ByType: map[detector.Kind][]string{
				detector.KindNome: {"Maria Souza"},
				detector.KindCPF:  {"123.456.789-09"},
			},
		},
		{ID: "102", Text: "=SOMA(A1) buraco na rua, sem dados"},
		detector.SkippedResult("103", "", assert.AnError),
	}
	run := formatters.NewRun("pedidos.csv", results)
	run.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return run
}

func evaluatedRun() *formatters.Run {
	run := sampleRun()
	labels := map[string]bool{"101": true, "102": true}
	var records []metrics.Record
	var m metrics.ConfusionMatrix
	for _, res := range run.Results {
		truth, ok := labels[res.ID]
		if !ok {
			continue
		}
		m.Accumulate(res.Prediction() == 1, truth)
		records = append(records, metrics.Record{ID: res.ID, Text: res.Text, Truth: truth, Predicted: res.Prediction() == 1, Detections: res.Detections})
	}
	return run.WithEvaluation(labels, m.Compute(metrics.DefaultLevel), records)
}

func export(t *testing.T, format string, run *formatters.Run, opts formatters.FormatterOptions) string {
	t.Helper()
	out, err := formatters.Export(format, run, opts)
	require.NoError(t, err)
	return out
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "predictions", "text", "yaml"}, formatters.List())

	f, ok := formatters.Get("predictions")
	require.True(t, ok)
	assert.Equal(t, ".csv", f.FileExtension())

	_, ok = formatters.Get("sarif")
	assert.False(t, ok)

	_, err := formatters.Export("sarif", sampleRun(), formatters.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predictions")

	_, err = formatters.Export("json", nil, formatters.FormatterOptions{})
	assert.Error(t, err)

	infos := formatters.GetSupportedFormats()
	require.Len(t, infos, 5)
	assert.Equal(t, "csv", infos[0].Name)
	assert.NotEmpty(t, infos[0].Description)

	r := formatters.NewRegistry()
	assert.Empty(t, r.List())
}

func TestNewRun(t *testing.T) {
	a := formatters.NewRun("x", nil)
	b := formatters.NewRun("x", nil)
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)

	positives, skipped := sampleRun().Counts()
	assert.Equal(t, 1, positives)
	assert.Equal(t, 1, skipped)

	_, ok := sampleRun().Truth("101")
	assert.False(t, ok, "no labels attached")
}

func TestPredictionsFormat(t *testing.T) {
	out := export(t, "predictions", sampleRun(), formatters.FormatterOptions{Verbose: true})
	assert.Equal(t, "ID,Predicao\r\n101,1\r\n102,0\r\n103,0\r\n", out)

	empty := export(t, "predictions", formatters.NewRun("", nil), formatters.FormatterOptions{})
	assert.Equal(t, "ID,Predicao\r\n", empty)
}

func TestDetailedCSVFormat(t *testing.T) {
	out := export(t, "csv", evaluatedRun(), formatters.FormatterOptions{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "ID,Texto_Resumo,Real,Predito,Tipo_Resultado,Num_Deteccoes,Deteccoes,Confianca_Media", lines[0])
	assert.Equal(t, `101,"Meu nome é Maria Souza, CPF 123.456.789-09. Grato.",1,1,VP,2,NOME:Maria Souza|CPF:123.456.789-09,0.850`, lines[1])
	assert.Equal(t, `102,'=SOMA(A1) buraco na rua, sem dados,1,0,FN,0,,0.000`, strings.ReplaceAll(lines[2], `"`, ""))
	assert.True(t, strings.HasPrefix(lines[2], `102,"'=SOMA`), "formula must be neutralized")
	assert.Equal(t, "103,,,0,,0,,0.000", lines[3], "unlabeled records leave Real and Tipo_Resultado empty")

	redacted := export(t, "csv", evaluatedRun(), formatters.FormatterOptions{Redact: true})
	assert.Contains(t, redacted, "NOME:[REDACTED]|CPF:[REDACTED]")
	assert.NotContains(t, redacted, "NOME:Maria")
}

func TestJSONFormat(t *testing.T) {
	run := evaluatedRun()
	out := export(t, "json", run, formatters.FormatterOptions{})

	var doc shared.RunDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, run.ID, doc.RunID)
	assert.Equal(t, "pedidos.csv", doc.Source)
	assert.Equal(t, 3, doc.Total)
	assert.Equal(t, 1, doc.Positives)
	assert.Equal(t, 1, doc.Skipped)
	require.NotNil(t, doc.Metrics)
	assert.Equal(t, 1, doc.Metrics.TP)
	assert.Equal(t, 1, doc.Metrics.FN)

	require.Len(t, doc.Results, 3)
	first := doc.Results[0]
	require.NotNil(t, first.Truth)
	assert.Equal(t, 1, *first.Truth)
	assert.Equal(t, "VP", first.Outcome)
	assert.Equal(t, []detector.Kind{detector.KindNome, detector.KindCPF}, first.Kinds)
	assert.Equal(t, "Maria Souza", first.Detections[0].Value)
	assert.Empty(t, first.Text, "text only in verbose mode")
	assert.True(t, doc.Results[2].Skipped)
	assert.Nil(t, doc.Results[2].Truth)

	verbose := export(t, "json", sampleRun(), formatters.FormatterOptions{Verbose: true})
	assert.Contains(t, verbose, "buraco na rua")
	assert.NotContains(t, verbose, "metricas")
}

func TestJSONFormat_Redacted(t *testing.T) {
	out := export(t, "json", sampleRun(), formatters.FormatterOptions{Redact: true, Verbose: true})
	assert.NotContains(t, out, "Maria Souza")
	assert.NotContains(t, out, "123.456.789-09")
	assert.Contains(t, out, shared.RedactedValue)
}

func TestYAMLFormat(t *testing.T) {
	run := evaluatedRun()
	out := export(t, "yaml", run, formatters.FormatterOptions{})

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, run.ID, doc["run_id"])
	assert.Equal(t, 3, doc["total_registros"])

	m, ok := doc["metricas"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, m["verdadeiros_positivos"], "matrix fields are inlined")

	results, ok := doc["resultados"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 3)
}

func TestTextFormat(t *testing.T) {
	opts := formatters.FormatterOptions{NoColor: true}
	out := export(t, "text", sampleRun(), opts)

	assert.Contains(t, out, "PRED")
	assert.Contains(t, out, "[PII ] 101")
	assert.Contains(t, out, "NOME,CPF")
	assert.Contains(t, out, "[OK  ] 102")
	assert.Contains(t, out, "[SKIP] 103")
	assert.Contains(t, out, assert.AnError.Error())
	assert.Contains(t, out, "3 registro(s), 1 com dados pessoais, 1 ignorado(s)")
	assert.NotContains(t, out, "RELATÓRIO", "no report without labels")
	assert.NotContains(t, out, "[12:23]")

	verbose := export(t, "text", evaluatedRun(), formatters.FormatterOptions{NoColor: true, Verbose: true})
	assert.Contains(t, verbose, "[12:23]")
	assert.Contains(t, verbose, "Maria Souza")
	assert.Contains(t, verbose, "RELATÓRIO DE DESEMPENHO")

	redacted := export(t, "text", sampleRun(), formatters.FormatterOptions{NoColor: true, Verbose: true, Redact: true})
	assert.NotContains(t, redacted, "Maria Souza")

	empty := export(t, "text", formatters.NewRun("", nil), opts)
	assert.Contains(t, empty, "No records analysed.")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "a b 'c'", shared.Summarize("a\r\nb \"c\"", 100))
	assert.Equal(t, "ção", shared.Summarize("çãozinho", 3))
}
