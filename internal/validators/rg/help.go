// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rg

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the RG check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindRG),
		ShortDescription: "Detects RG identity card numbers",
		DetailedDescription: `The RG check finds state identity card numbers with 7 to 9 digits.

Each state issues its own numbering, so there is no universal checksum. Numbers followed by an issuing body (SSP, SDS, DETRAN, PC, IML, IGP) and a state code are the strongest signal. Bare digit runs only qualify when identity-card words are nearby, and words like "processo" or "protocolo" lower the score.`,
		Patterns: []string{
			"XXXXXXX SSP/DF (with issuing body)",
			"XX.XXX.XXX-X (punctuated, X verifier allowed)",
			"X.XXX.XXX (seven-digit dotted)",
			"X X X X X X X (spaced digits)",
			"XXXXXXX (7-9 bare digits)",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Issuer", Description: "Base confidence 0.95", Delta: 0.95},
			{Name: "Punctuated", Description: "Base confidence 0.85", Delta: 0.85},
			{Name: "Bare digits", Description: "Base confidence 0.50", Delta: 0.50},
			{Name: "Context", Description: "Identity keyword within 40 characters", Delta: v.context.Boost},
			{Name: "Negative context", Description: "Process/protocol keyword nearby, floor 0.20", Delta: -v.context.Penalty},
		},
		PositiveKeywords: v.context.Positive,
		NegativeKeywords: v.context.Negative,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindRG],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks RG",
		},
	}
}
