// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"participa-scan/internal/detector"
)

func TestEmbeddedLists(t *testing.T) {
	v := NewValidator()
	assert.True(t, v.FirstNames().Contains("João"))
	assert.True(t, v.FirstNames().Contains("MARIA"))
	assert.True(t, v.LastNames().Contains("Silva"))
	assert.Greater(t, v.FirstNames().Len(), 100)

	stats := GetEmbeddedDataStats()
	assert.Equal(t, v.FirstNames().Len(), stats["first_names"])
}

func TestNameSet(t *testing.T) {
	s := NewNameSet()
	assert.Equal(t, 1, s.Add("José", "jose", "JOSÉ"))
	assert.Equal(t, 0, s.Add("", "x", "1abc"))
	assert.True(t, s.Contains("Jose"))
	assert.True(t, s.Contains("JOSÉ"))
	assert.False(t, s.Contains("Josefa"))
	assert.Equal(t, 1, s.Len())

	var nilSet *NameSet
	assert.False(t, nilSet.Contains("jose"))
	assert.Equal(t, 0, nilSet.Len())
}

func TestNameSetLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomes.txt")
	require.NoError(t, os.WriteFile(path, []byte("# extras\nAnacleto\n\nBenvinda\nanacleto\n"), 0o644))

	s := NewNameSet()
	added, err := s.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.True(t, s.Contains("Benvinda"))

	_, err = s.LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	var texts []string
	for _, tok := range tokenize("D'Ávila Ana-Maria, x - y") {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"D'Ávila", "Ana-Maria", "x", "y"}, texts)
}

func TestDetect(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		text     string
		want     string
		wantConf float64
	}{
		{"known first and last with cue", "Meu nome é João Silva, CPF 123.456.789-09", "João Silva", 1.0},
		{"known first and last", "Maria Souza compareceu ao balcão", "Maria Souza", 0.95},
		{"connective inside", "vi Maria da Conceição Souza ontem", "Maria da Conceição Souza", 0.95},
		{"trailing connective trimmed", "vi Ana Costa e fui embora", "Ana Costa", 0.95},
		{"all caps", "REQUERIMENTO: JOÃO DA SILVA", "JOÃO DA SILVA", 0.95},
		{"mixed casing", "enviado por João SILVA hoje", "João SILVA", 0.85},
		{"cue only", "requerente Fulano Beltrano solicita", "Fulano Beltrano", 0.65},
		{"short run", "conversei com Ana Luz hoje", "Ana Luz", 0.65},
		{"long run", "Maria Clara Beatriz Helena Sofia Laura Souza", "Maria Clara Beatriz Helena Sofia Laura Souza", 0.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Detect(tt.text)
			require.Len(t, got, 1, "detections: %+v", got)
			d := got[0]
			assert.Equal(t, tt.want, d.Value)
			assert.Equal(t, detector.KindNome, d.Kind)
			assert.Equal(t, detector.MethodDictionary, d.Method)
			assert.InDelta(t, tt.wantConf, d.Confidence, 1e-9)

			start := strings.Index(tt.text, tt.want)
			assert.Equal(t, detector.Span{Start: start, End: start + len(tt.want)}, d.Span)
		})
	}
}

func TestDetectRejects(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		text string
	}{
		{"empty", "   "},
		{"unknown without cue", "Fulano Beltrano compareceu"},
		{"institution", "A Secretaria de Saúde informou"},
		{"month", "Maria Janeiro"},
		{"acronyms", "O CPF e o RG do GDF"},
		{"single word", "Maria compareceu"},
		{"punctuation breaks run", "Pedro, Silva e outros"},
		{"pothole complaint", "Gostaria de informar que há vários buracos na via em frente à escola do bairro, causando riscos aos motoristas e pedestres."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, v.Detect(tt.text))
		})
	}
}

func TestAddOperations(t *testing.T) {
	v := NewValidatorWithSets(NewNameSet("Kauã"), NewNameSet())
	assert.Empty(t, v.Detect("Iracema Tupinambá"))

	assert.Equal(t, 1, v.AddNames("Iracema"))
	assert.Equal(t, 0, v.AddNames("IRACEMA"))
	assert.Equal(t, 1, v.AddSurnames("Tupinambá"))

	got := v.Detect("Iracema Tupinambá")
	require.Len(t, got, 1)
	assert.InDelta(t, 0.95, got[0].Confidence, 1e-9)

	v.AddExclusions("Tupinambá")
	assert.Empty(t, v.Detect("Iracema Tupinambá"))
}

func TestGetCheckInfo(t *testing.T) {
	info := NewValidator().GetCheckInfo()
	assert.Equal(t, "NOME", info.Name)
	assert.InDelta(t, 0.70, info.DefaultThreshold, 1e-9)
	assert.NotEmpty(t, info.ConfidenceFactors)
}
