// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the address check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindEndereco),
		ShortDescription: "Detects postal codes (CEP) and street addresses",
		DetailedDescription: `The ENDERECO check finds CEPs and addresses that start with a street designator (rua, avenida, quadra, conjunto, bloco, lote).

Street matches only reach the default threshold when a residence word (endereço, moro, resido, CEP) precedes them. This keeps references to public places such as "a quadra de esportes" from being flagged.`,
		Patterns: []string{
			"XXXXX-XXX / XX.XXX-XXX (CEP)",
			"XXXXXXXX (bare CEP, needs context)",
			"Rua|Av.|Quadra|Conjunto|Bloco|Lote <5-50 characters>",
		},
		SupportedFormats: []string{"CEP range 01000-000 to 99999-999"},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "CEP format", Description: "Base confidence 0.85", Delta: 0.85},
			{Name: "Street pattern", Description: "Base confidence 0.75", Delta: 0.75},
			{Name: "Context", Description: "Residence keyword within 30 characters before", Delta: contextBoost},
			{Name: "Out of range", Description: "CEP outside the national range, floor 0.30", Delta: -rangePenalty},
		},
		PositiveKeywords: v.positiveKeywords,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindEndereco],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks ENDERECO",
		},
	}
}
