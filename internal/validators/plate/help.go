// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plate

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the plate check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindPlaca),
		ShortDescription: "Detects vehicle license plates",
		DetailedDescription: `The PLACA check finds Brazilian license plates in the old layout (ABC-1234) and the Mercosul layout (ABC1D23).

A plate links the request to a vehicle owner, so exact matches are reported with full confidence. Common legal abbreviations such as LEI or ART followed by a number are ignored.`,
		Patterns: []string{
			"ABC-1234 / ABC 1234 / ABC1234",
			"ABC1D23 (Mercosul)",
		},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Exact layout", Description: "Upper-case letters and digits in plate order", Delta: 1.0},
		},
		DefaultThreshold: detector.DefaultThresholds()[detector.KindPlaca],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks PLACA",
		},
	}
}
