// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sensitive

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the sensitive-context check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	var patterns []string
	for _, tp := range v.topics {
		patterns = append(patterns, tp.name)
	}
	return help.CheckInfo{
		Name:             string(detector.KindContexto),
		ShortDescription: "Flags first-person disclosures of sensitive situations (opt-in)",
		DetailedDescription: `The CONTEXTO check looks for health, violence, minors, welfare and disciplinary terms. It targets requests where the text itself reveals something about the requester even though no identifier is present.

Statistical wording ("quantos", "total", "levantamento") lowers the score of generic topics. Document terms only count in first-person requests. The check is not part of the default set; enable it with --checks.`,
		Patterns: patterns,
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Violence/health term", Description: "Base confidence 0.85-0.90", Delta: 0.90},
			{Name: "First-person context", Description: "meu/minha/solicito within 50 characters before", Delta: v.context.Boost},
			{Name: "Statistical context", Description: "Generic wording nearby, floor 0.20", Delta: -v.context.Penalty},
		},
		PositiveKeywords: v.context.Positive,
		NegativeKeywords: v.context.Negative,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindContexto],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks all,CONTEXTO",
		},
	}
}
