// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cpf

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the CPF check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindCPF),
		ShortDescription: "Detects CPF numbers (individual taxpayer registry)",
		DetailedDescription: `The CPF check finds 11-digit individual taxpayer numbers, punctuated or bare.

Both check digits are verified with the official modulus-11 algorithm. Bare digit runs that fail the checksum are discarded, since they are usually protocol or placeholder numbers. Punctuated runs that fail are kept with a low confidence that sits below the default threshold.`,
		Patterns: []string{
			"XXX.XXX.XXX-XX (punctuated, dots or spaces)",
			"XXXXXXXXXXX (11 bare digits)",
		},
		SupportedFormats: []string{
			"Check digits validated (modulus 11)",
			"Repeated-digit and sequential placeholders rejected",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Punctuated format", Description: "Base confidence 0.95", Delta: 0.95},
			{Name: "Bare digits", Description: "Base confidence 0.70", Delta: 0.70},
			{Name: "Context", Description: "CPF keyword within 30 characters before", Delta: contextBoost},
			{Name: "Valid checksum", Description: "Both check digits match", Delta: checksumBoost},
			{Name: "Invalid checksum", Description: "Punctuated match capped at 0.50", Delta: -0.20},
		},
		PositiveKeywords: v.positiveKeywords,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindCPF],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks CPF",
		},
	}
}
