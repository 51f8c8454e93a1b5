// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cnpj

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the CNPJ check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindCNPJ),
		ShortDescription: "Detects CNPJ numbers (corporate taxpayer registry)",
		DetailedDescription: `The CNPJ check finds 14-digit corporate registry numbers and validates both check digits.

A CNPJ of an individual entrepreneur (MEI) identifies a person, so requests that carry one are flagged the same way as a CPF.`,
		Patterns: []string{
			"XX.XXX.XXX/XXXX-XX (punctuated)",
			"XXXXXXXXXXXXXX (14 bare digits)",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Punctuated format", Description: "Base confidence 0.95", Delta: 0.95},
			{Name: "Bare digits", Description: "Base confidence 0.70", Delta: 0.70},
			{Name: "Context", Description: "CNPJ keyword within 30 characters before", Delta: contextBoost},
			{Name: "Valid checksum", Description: "Both check digits match", Delta: checksumBoost},
		},
		PositiveKeywords: v.positiveKeywords,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindCNPJ],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks CNPJ,CPF",
		},
	}
}
