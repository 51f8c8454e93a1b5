// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the process-number check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindProcesso),
		ShortDescription: "Detects SEI process, protocol and occurrence numbers",
		DetailedDescription: `The PROCESSO check finds numbers that point to a specific person's administrative case: SEI process numbers, protocol numbers with year, police occurrence numbers and active-debt certificates (CDA).

Ten-digit CDA numbers are ambiguous and only count when a case keyword is within 50 characters.`,
		Patterns: []string{
			"NNNNN-NNNNNNNN/AAAA-DV (SEI)",
			"NNNNNNNNNN/AAAA-DV (process)",
			"NNNNNNNN/AAAA (protocol)",
			"16 digits (occurrence)",
			"10 digits (CDA, context required)",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "SEI format", Description: "Base confidence 0.95", Delta: 0.95},
			{Name: "Protocol format", Description: "Base confidence 0.85", Delta: 0.85},
			{Name: "Context", Description: "Case keyword within 50 characters before or 30 after", Delta: v.context.Boost},
			{Name: "Negative context", Description: "Document or date keyword nearby, floor 0.20", Delta: -v.context.Penalty},
		},
		PositiveKeywords: v.context.Positive,
		NegativeKeywords: v.context.Negative,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindProcesso],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks PROCESSO",
		},
	}
}
