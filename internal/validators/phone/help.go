// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package phone

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the phone check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindTelefone),
		ShortDescription: "Detects Brazilian phone numbers (landline and mobile)",
		DetailedDescription: `The TELEFONE check finds phone numbers with or without the +55 country code and area code (DDD).

Numbers with an area code are checked against the list of DDDs in service. An unknown DDD lowers the score instead of rejecting the number. Eleven-digit runs that validate as a CPF are left to the CPF check.`,
		Patterns: []string{
			"+55 (XX) XXXXX-XXXX",
			"(XX) XXXXX-XXXX / XX XXXX-XXXX",
			"XXXXX-XXXX (no area code)",
		},
		SupportedFormats: []string{
			"8 to 13 digits",
			"Area codes 11-99 in service",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "International", Description: "Base confidence 0.98", Delta: 0.98},
			{Name: "With DDD", Description: "Base confidence 0.85", Delta: 0.85},
			{Name: "Local", Description: "Base confidence 0.65", Delta: 0.65},
			{Name: "Valid DDD", Description: "Area code in service", Delta: dddBoost},
			{Name: "Invalid DDD", Description: "Area code not in service, floor 0.30", Delta: -dddPenalty},
			{Name: "Context", Description: "Phone keyword within 30 characters before", Delta: v.context.Boost},
			{Name: "Negative context", Description: "Document keyword nearby, floor 0.20", Delta: -v.context.Penalty},
		},
		PositiveKeywords: v.context.Positive,
		NegativeKeywords: v.context.Negative,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindTelefone],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks TELEFONE,EMAIL",
		},
	}
}
