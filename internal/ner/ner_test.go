// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"participa-scan/internal/detector"
)

type fakeRecognizer struct {
	entities []Entity
	err      error
	closed   bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	return f.entities, f.err
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

func entityAt(text, label, value string, score float64) Entity {
	start := strings.Index(text, value)
	return Entity{Label: label, Text: value, Start: start, End: start + len(value), Score: score}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		label string
		want  detector.Kind
		ok    bool
	}{
		{"person", detector.KindNome, true},
		{"B-FIRSTNAME", detector.KindNome, true},
		{"I-SURNAME", detector.KindNome, true},
		{"phone_number", detector.KindTelefone, true},
		{"Email Address", detector.KindEmail, true},
		{"tax identification number", detector.KindCPF, true},
		{"B-IDCARDNUM", detector.KindRG, true},
		{"credit card number", "", false},
		{"passport number", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := KindFor(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBIO(t *testing.T) {
	text := "Sou João Silva de Brasília"
	tokens := []TokenLabel{
		{Label: "O", Score: 0.99, Start: 0, End: 3},
		{Label: "B-PER", Score: 0.9, Start: 4, End: 9},
		{Label: "I-PER", Score: 0.8, Start: 10, End: 15},
		{Label: "O", Score: 0.99, Start: 16, End: 18},
		{Label: "B-LOC", Score: 0.3, Start: 19, End: 28},
	}

	got := DecodeBIO(text, tokens, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, "PER", got[0].Label)
	assert.Equal(t, "João Silva", got[0].Text)
	assert.Equal(t, 4, got[0].Start)
	assert.Equal(t, 15, got[0].End)
	assert.InDelta(t, 0.85, got[0].Score, 1e-9)
}

func TestDecodeBIOLabelChange(t *testing.T) {
	text := "Ana 61999998888"
	tokens := []TokenLabel{
		{Label: "B-PER", Score: 0.9, Start: 0, End: 3},
		{Label: "I-PHONE", Score: 0.9, Start: 4, End: 15},
		{Label: "I-PHONE", Score: 0.7, Start: 15, End: 15},
	}
	got := DecodeBIO(text, tokens, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Text)
	assert.Equal(t, "PHONE", got[1].Label)
	assert.Equal(t, "61999998888", got[1].Text)
}

func TestSoftmax(t *testing.T) {
	best, prob := Softmax([]float32{1, 3, 2})
	assert.Equal(t, 1, best)
	assert.InDelta(t, 0.6652, prob, 0.001)

	best, prob = Softmax(nil)
	assert.Equal(t, 0, best)
	assert.Zero(t, prob)
}

func TestDetectorMapsEntities(t *testing.T) {
	text := "Nome: João Silva, cartão 4111111111111111, email ana@exemplo.com"
	rec := &fakeRecognizer{entities: []Entity{
		entityAt(text, "B-FIRSTNAME", "João", 0.9),
		entityAt(text, "B-SURNAME", "Silva", 0.8),
		entityAt(text, "CREDITCARDNUMBER", "4111111111111111", 0.99),
		entityAt(text, "EMAIL", "ana@exemplo.com", 0.3),
		{Label: "person", Start: 10, End: 500, Score: 0.9},
	}}
	d := NewDetector(rec, 0)

	dets, err := d.DetectContext(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, detector.KindNome, dets[0].Kind)
	assert.Equal(t, "João Silva", dets[0].Value)
	assert.Equal(t, detector.MethodML, dets[0].Method)
	assert.InDelta(t, 0.85, dets[0].Confidence, 1e-9)
	assert.Equal(t, "ner", d.Name())
	assert.Equal(t, detector.MethodML, d.Method())
}

func TestDetectorKeepsSeparateNonNames(t *testing.T) {
	text := "a@x.com b@y.com"
	rec := &fakeRecognizer{entities: []Entity{
		entityAt(text, "email", "a@x.com", 0.9),
		entityAt(text, "email", "b@y.com", 0.9),
	}}
	dets, err := NewDetector(rec, 0.5).DetectContext(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, dets, 2)
}

func TestDetectorFailure(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("session crashed")}
	d := NewDetector(rec, 0.5)

	_, err := d.DetectContext(context.Background(), "João Silva")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session crashed")
	assert.Nil(t, d.Detect("João Silva"))

	dets, err := d.DetectContext(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Nil(t, dets)

	require.NoError(t, d.Close())
	assert.True(t, rec.closed)
}

func TestLoadLabelMappings(t *testing.T) {
	dir := t.TempDir()

	flat := filepath.Join(dir, "flat.json")
	require.NoError(t, os.WriteFile(flat, []byte(`{"id2label": {"0": "O", "1": "B-PER", "2": "I-PER"}}`), 0o600))
	got, err := LoadLabelMappings(flat)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "O", 1: "B-PER", 2: "I-PER"}, got)
	assert.Equal(t, 3, labelCount(got))

	nested := filepath.Join(dir, "nested.json")
	require.NoError(t, os.WriteFile(nested, []byte(`{"pii": {"id2label": {"-100": "IGNORE", "0": "O", "4": "B-EMAIL"}}}`), 0o600))
	got, err = LoadLabelMappings(nested)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "O", 4: "B-EMAIL"}, got)
	assert.Equal(t, 5, labelCount(got))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	_, err = LoadLabelMappings(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id2label": {"x": "O"}}`), 0o600))
	_, err = LoadLabelMappings(bad)
	assert.Error(t, err)
}

func TestModelConfigValidate(t *testing.T) {
	err := ModelConfig{}.Validate()
	assert.ErrorIs(t, err, ErrModelUnavailable)

	err = ModelConfig{ModelDir: t.TempDir()}.Validate()
	assert.ErrorIs(t, err, ErrModelUnavailable)

	cfg := ModelConfig{}.withDefaults()
	assert.Equal(t, DefaultMaxSeqLen, cfg.MaxSeqLen)
	assert.Equal(t, DefaultThreshold, cfg.MinScore)
}
