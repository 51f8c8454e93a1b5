// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plate

import "testing"

func TestDetect(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		text string
		want []string
	}{
		{"Meu carro placa JKL-1234 foi multado", []string{"JKL-1234"}},
		{"veículo BRA2E19 e moto PQR 5678", []string{"BRA2E19", "PQR 5678"}},
		{"conforme LEI 8112 e ART 5", nil},
		{"no ano 2023 houve", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := v.Detect(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Detect(%q) = %+v, want %v", tt.text, got, tt.want)
			}
			for i, d := range got {
				if d.Value != tt.want[i] {
					t.Errorf("value[%d] = %q, want %q", i, d.Value, tt.want[i])
				}
				if d.Confidence != 1.0 {
					t.Errorf("confidence = %v, want 1.0", d.Confidence)
				}
			}
		})
	}
}
