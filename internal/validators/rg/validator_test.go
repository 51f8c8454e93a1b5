// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rg

import (
	"testing"

	"participa-scan/internal/detector"
)

func TestDetect(t *testing.T) {
	threshold := detector.DefaultThresholds()[detector.KindRG]
	v := NewValidator()

	tests := []struct {
		name      string
		text      string
		wantValue string
		wantAbove bool
	}{
		{"issuer", "identidade 1234567 SSP/DF", "1234567 SSP/DF", true},
		{"punctuated with context", "Meu RG é 12.345.678-9", "12.345.678-9", true},
		{"x verifier", "carteira 12.345.678-X", "12.345.678-X", true},
		{"punctuated under protocol", "Protocolo 12.345.678-9 aberto", "12.345.678-9", false},
		{"bare digits without context", "Foram 1234567 atendimentos", "1234567", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Detect(tt.text)
			if len(got) == 0 {
				t.Fatalf("expected a detection in %q", tt.text)
			}
			d := got[0]
			if d.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", d.Value, tt.wantValue)
			}
			if above := d.Confidence >= threshold; above != tt.wantAbove {
				t.Errorf("confidence %.2f: above=%v, want %v", d.Confidence, above, tt.wantAbove)
			}
		})
	}
}

func TestDetectRejectsShortAndRepeated(t *testing.T) {
	v := NewValidator()
	for _, text := range []string{"número 123456", "RG 1111111", "", "sem números"} {
		if got := v.Detect(text); len(got) != 0 {
			t.Errorf("Detect(%q) = %+v, want none", text, got)
		}
	}
}

func TestPositiveContextOverridesNegative(t *testing.T) {
	v := NewValidator()
	got := v.Detect("Processo de emissão de RG 12.345.678-9")
	if len(got) != 1 {
		t.Fatalf("expected one detection, got %+v", got)
	}
	if got[0].Confidence < 0.85 {
		t.Errorf("positive context should win, got %.2f", got[0].Confidence)
	}
}
