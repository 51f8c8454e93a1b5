// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"participa-scan/internal/config"
	"participa-scan/internal/detector"
	"participa-scan/internal/loader"
	"participa-scan/internal/merge"
	"participa-scan/internal/metrics"
	"participa-scan/internal/ner"
	"participa-scan/internal/performance"
	"participa-scan/internal/suppressions"
	"participa-scan/internal/validators/personname"
)

const (
	personalText = "Meu nome é João Silva, CPF 123.456.789-09, telefone (61) 99999-8888"
	potholeText  = "Gostaria de informar que há vários buracos na via em frente à escola do bairro, causando riscos aos motoristas e pedestres."
)

var names = personname.NewValidator()

type fakeRecognizer struct {
	entities []ner.Entity
	err      error
}

func (f *fakeRecognizer) Recognize(context.Context, string) ([]ner.Entity, error) {
	return f.entities, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

type countingJudgeFake struct {
	flagged bool
	conf    float64
	err     error
	calls   atomic.Int32
}

func (j *countingJudgeFake) Judge(context.Context, string) (bool, float64, error) {
	j.calls.Add(1)
	return j.flagged, j.conf, j.err
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Names == nil {
		opts.Names = names
	}
	p, err := NewPipeline(opts)
	require.NoError(t, err)
	return p
}

// counterValue reads one series of a counter from the registry
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
			if label == "" {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestAnalyze_PersonalData(t *testing.T) {
	p := newTestPipeline(t, Options{})

	res := p.Analyze(context.Background(), loader.Record{ID: "1", Text: personalText})
	assert.True(t, res.ContainsPII)
	assert.Equal(t, 1, res.Prediction())
	for _, k := range []detector.Kind{detector.KindNome, detector.KindCPF, detector.KindTelefone} {
		assert.Contains(t, res.ByType, k)
	}
	assert.Equal(t, []string{"123.456.789-09"}, res.ByType[detector.KindCPF])

	for i := 1; i < len(res.Detections); i++ {
		assert.LessOrEqual(t, res.Detections[i-1].Span.Start, res.Detections[i].Span.Start)
	}
}

func TestAnalyze_NoPersonalData(t *testing.T) {
	judge := &countingJudgeFake{}
	p := newTestPipeline(t, Options{Judge: judge})

	res := p.Analyze(context.Background(), loader.Record{ID: "2", Text: potholeText})
	assert.False(t, res.ContainsPII)
	assert.Empty(t, res.Detections)
	assert.Equal(t, int32(1), judge.calls.Load(), "judge runs only on the empty path")

	p.Analyze(context.Background(), loader.Record{ID: "1", Text: personalText})
	assert.Equal(t, int32(1), judge.calls.Load())
}

func TestAnalyze_Fallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := performance.NewRunMetrics(reg)

	flagging := &countingJudgeFake{flagged: true, conf: 0.9}
	p := newTestPipeline(t, Options{Judge: flagging, Metrics: m})
	res := p.Analyze(context.Background(), loader.Record{ID: "3", Text: potholeText})
	require.True(t, res.ContainsPII)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, detector.KindOutros, res.Detections[0].Kind)
	assert.Equal(t, detector.MethodLLM, res.Detections[0].Method)

	failing := &countingJudgeFake{err: errors.New("quota exceeded")}
	p = newTestPipeline(t, Options{Judge: failing, Metrics: m})
	res = p.Analyze(context.Background(), loader.Record{ID: "4", Text: potholeText})
	assert.False(t, res.ContainsPII, "judge failure counts as no")

	assert.Equal(t, 1.0, counterValue(t, reg, "participa_scan_fallback_invocations_total", performance.FallbackFlagged))
	assert.Equal(t, 1.0, counterValue(t, reg, "participa_scan_fallback_invocations_total", performance.FallbackError))
	assert.Equal(t, 1.0, counterValue(t, reg, "participa_scan_documents_total", "1"))
	assert.Equal(t, 1.0, counterValue(t, reg, "participa_scan_documents_total", "0"))
}

func TestAnalyze_Malformed(t *testing.T) {
	p := newTestPipeline(t, Options{})

	for _, rec := range []loader.Record{
		{ID: "", Text: personalText},
		{ID: "5", Text: "   "},
		{ID: "6", Text: personalText, Err: errors.New("line 7: expected 2 fields, got 3")},
	} {
		res := p.Analyze(context.Background(), rec)
		assert.True(t, res.Skipped)
		assert.Equal(t, 0, res.Prediction())
		assert.NotEmpty(t, res.Error)
	}
}

func TestAnalyze_Suppressions(t *testing.T) {
	sm, err := suppressions.NewSuppressionManager(filepath.Join(t.TempDir(), "suppressions.yaml"))
	require.NoError(t, err)
	_, err = sm.AddSuppression(detector.KindTelefone, "(61) 99999-8888", "central de atendimento", "test", nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	p := newTestPipeline(t, Options{Suppressions: sm, Metrics: performance.NewRunMetrics(reg)})
	res := p.Analyze(context.Background(), loader.Record{ID: "1", Text: personalText})

	assert.True(t, res.ContainsPII)
	assert.NotContains(t, res.ByType, detector.KindTelefone)
	assert.Contains(t, res.ByType, detector.KindCPF)
	assert.Equal(t, 1.0, counterValue(t, reg, "participa_scan_suppressed_detections_total", "TELEFONE"))
}

func TestAnalyze_NER(t *testing.T) {
	text := "Encaminho a demanda de Kaiowá Tupinambá sobre o lote"
	start := strings.Index(text, "Kaiowá")
	rec := &fakeRecognizer{entities: []ner.Entity{
		{Label: "B-PER", Start: start, End: start + len("Kaiowá Tupinambá"), Score: 0.92},
		{Label: "B-ORG", Start: 0, End: 8, Score: 0.99},
	}}
	detCfg, err := detector.NewConfig(nil, true)
	require.NoError(t, err)

	p := newTestPipeline(t, Options{Config: detCfg, NER: ner.NewDetector(rec, 0)})
	res := p.Analyze(context.Background(), loader.Record{ID: "1", Text: text})
	require.True(t, res.ContainsPII)
	assert.Equal(t, []string{"Kaiowá Tupinambá"}, res.ByType[detector.KindNome])
	assert.Equal(t, detector.MethodML, res.Detections[0].Method)

	// the model is consulted only when ML is enabled
	p = newTestPipeline(t, Options{NER: ner.NewDetector(rec, 0)})
	res = p.Analyze(context.Background(), loader.Record{ID: "1", Text: text})
	assert.False(t, res.ContainsPII)

	// a failing model degrades to the other detectors
	broken := &fakeRecognizer{err: errors.New("session closed")}
	p = newTestPipeline(t, Options{Config: detCfg, NER: ner.NewDetector(broken, 0)})
	res = p.Analyze(context.Background(), loader.Record{ID: "2", Text: personalText})
	assert.True(t, res.ContainsPII)
	assert.Contains(t, res.ByType, detector.KindCPF)
}

func TestAnalyze_ChecksLimitDetectors(t *testing.T) {
	p := newTestPipeline(t, Options{Checks: map[detector.Kind]bool{detector.KindCPF: true}})
	res := p.Analyze(context.Background(), loader.Record{ID: "1", Text: personalText})
	assert.Equal(t, []detector.Kind{detector.KindCPF}, res.Kinds())
}

func TestAnalyzeBatch_PreservesOrder(t *testing.T) {
	p := newTestPipeline(t, Options{Workers: 4})

	var records []loader.Record
	for i := 0; i < 40; i++ {
		text := potholeText
		if i%3 == 0 {
			text = personalText
		}
		records = append(records, loader.Record{ID: string(rune('A'+i%26)) + strings.Repeat("x", i/26), Text: text})
	}
	records = append(records, loader.Record{ID: "bad", Err: errors.New("broken row")})

	var completed atomic.Int32
	results, stats := p.AnalyzeBatch(context.Background(), records, func(done, total int, id string) {
		completed.Add(1)
	})
	require.Len(t, results, len(records))
	for i, r := range results {
		assert.Equal(t, records[i].ID, r.ID)
		assert.Equal(t, i%3 == 0 && i < 40, r.ContainsPII, "record %d", i)
	}
	assert.True(t, results[40].Skipped)
	assert.Equal(t, 1, stats.SkippedDocuments)
	assert.Equal(t, int32(len(records)), completed.Load())
}

func TestJudgeCountingWrapperPassesThrough(t *testing.T) {
	inner := merge.JudgeFunc(func(context.Context, string) (bool, float64, error) { return true, 0.5, nil })
	wrapped := countingJudge(inner, performance.NewRunMetrics(nil))
	flagged, conf, err := wrapped.Judge(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, 0.5, conf)
	assert.Nil(t, countingJudge(nil, nil))
}

func TestBuild_DegradesWithoutCollaborators(t *testing.T) {
	t.Setenv("PARTICIPA_CONFIG_DIR", t.TempDir())
	t.Setenv(config.DefaultAPIKeyEnv, "")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	p, warnings, err := Build(context.Background(), cfg, BuildOptions{EnableML: true, EnableLLM: true})
	require.NoError(t, err)
	defer p.Close()
	assert.Len(t, warnings, 2)
	assert.True(t, p.Config().MLEnabled())

	res := p.Analyze(context.Background(), loader.Record{ID: "1", Text: personalText})
	assert.True(t, res.ContainsPII)

	_, _, err = Build(context.Background(), cfg, BuildOptions{Checks: "CPF,SSN"})
	assert.Error(t, err)
}

func TestBuild_Profile(t *testing.T) {
	t.Setenv("PARTICIPA_CONFIG_DIR", t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	p, warnings, err := Build(context.Background(), cfg, BuildOptions{Profile: cfg.GetProfile("completo")})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0.75, p.Config().Threshold(detector.KindNome))
}

func TestEvaluate(t *testing.T) {
	p := newTestPipeline(t, Options{Workers: 2})
	records := []loader.Record{
		{ID: "1", Text: personalText},
		{ID: "2", Text: potholeText},
		{ID: "3", Text: potholeText},
		{ID: "4", Text: "Contato: maria.souza@gmail.com"},
		{ID: "5", Text: potholeText},
	}
	labels := map[string]bool{"1": true, "2": false, "3": true, "4": true}

	eval := p.Evaluate(context.Background(), records, labels, 0.95, nil)
	require.Len(t, eval.Results, 5)
	assert.Equal(t, 1, eval.Unlabeled)
	assert.Len(t, eval.Records, 4)
	assert.Equal(t, metrics.ConfusionMatrix{TP: 2, FP: 0, FN: 1, TN: 1}, eval.Summary.ConfusionMatrix)
	assert.InDelta(t, 1.0, eval.Summary.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, eval.Summary.Recall, 1e-9)
	assert.Contains(t, eval.Summary.ByType, detector.KindEmail)
	assert.NotEmpty(t, eval.Report(true))
}

func TestAccumulateMatchesSequential(t *testing.T) {
	var records []metrics.Record
	add := func(n int, predicted, truth bool) {
		for i := 0; i < n; i++ {
			records = append(records, metrics.Record{Predicted: predicted, Truth: truth})
		}
	}
	add(45, true, true)
	add(2, true, false)
	add(3, false, true)
	add(49, false, false)

	m := Accumulate(records)
	assert.Equal(t, metrics.ConfusionMatrix{TP: 45, FP: 2, FN: 3, TN: 49}, m)
	s := m.Compute(0.95)
	assert.InDelta(t, 45.0/47.0, s.Precision, 1e-4)
	assert.InDelta(t, 0.9375, s.Recall, 1e-9)
	assert.InDelta(t, 0.9474, s.F1, 1e-4)
	assert.InDelta(t, 94.0/99.0, s.Accuracy, 1e-9)

	assert.Equal(t, metrics.ConfusionMatrix{}, Accumulate(nil))
}

func TestTune(t *testing.T) {
	p := newTestPipeline(t, Options{})
	records := []loader.Record{
		{ID: "1", Text: personalText},
		{ID: "2", Text: potholeText},
		{ID: "3", Text: "CPF do requerente: 529.982.247-25"},
		{ID: "4", Text: potholeText},
		{ID: "5", Text: "sem rótulo"},
	}
	labels := map[string]bool{"1": true, "2": false, "3": true, "4": false}

	best, err := p.Tune(context.Background(), records, labels, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, best.Trials)
	assert.Equal(t, 1.0, best.Summary.F1)
	// every combination scores the same, so the first one tried wins
	assert.Equal(t, map[detector.Kind]float64{
		detector.KindCPF:   0.6,
		detector.KindNome:  0.6,
		detector.KindEmail: 0.6,
	}, best.Thresholds)
	assert.Equal(t, 0.6, best.Config.Threshold(detector.KindCPF))
	assert.Equal(t, 0.75, best.Config.Threshold(detector.KindRG), "untuned kinds keep their thresholds")

	_, err = p.Tune(context.Background(), records, map[string]bool{"x": true}, nil)
	assert.ErrorIs(t, err, ErrNoLabels)

	_, err = p.Tune(context.Background(), records, labels, []float64{0.5, 1.5})
	assert.Error(t, err)
}

func TestTune_PicksBetterThreshold(t *testing.T) {
	// A bare 11-digit number with a valid checksum scores 0.80 as CPF:
	// labelled negative, only thresholds above 0.8 get it right.
	p := newTestPipeline(t, Options{})
	records := []loader.Record{
		{ID: "1", Text: "Referência 52998224725 do sistema antigo"},
		{ID: "2", Text: personalText},
	}
	labels := map[string]bool{"1": false, "2": true}

	best, err := p.Tune(context.Background(), records, labels, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, best.Thresholds[detector.KindCPF])
	assert.Equal(t, 1.0, best.Summary.F1)
}

func TestWithConfigSharesCollaborators(t *testing.T) {
	judge := &countingJudgeFake{flagged: true, conf: 0.95}
	p := newTestPipeline(t, Options{Judge: judge})
	strict, err := p.Config().With(map[detector.Kind]float64{detector.KindCPF: 1})
	require.NoError(t, err)

	q := p.WithConfig(strict)
	assert.Equal(t, 1.0, q.Config().Threshold(detector.KindCPF))
	res := q.Analyze(context.Background(), loader.Record{ID: "1", Text: potholeText})
	assert.True(t, res.ContainsPII)
	assert.Equal(t, int32(1), judge.calls.Load())
}
