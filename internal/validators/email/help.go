// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package email

import (
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the email check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindEmail),
		ShortDescription: "Detects email addresses",
		DetailedDescription: `The EMAIL check finds addresses of the form local@domain.tld.

Addresses on consumer providers (gmail.com, hotmail.com, uol.com.br and others) are almost always personal and score highest. Government domains are still personal data when they name a public servant. Institutional mailboxes that should not count can be listed in the suppressions file.`,
		Patterns: []string{"local-part@domain.tld"},
		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Consumer domain", Description: "Base confidence 0.98", Delta: commonConfidence},
			{Name: "Government domain", Description: "Base confidence 0.95", Delta: govConfidence},
			{Name: "Other domain", Description: "Base confidence 0.90", Delta: baseConfidence},
			{Name: "Context", Description: "Email keyword within 30 characters before", Delta: contextBoost},
		},
		PositiveKeywords: v.positiveKeywords,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindEmail],
		Examples: []string{
			"participa-scan --input pedidos.csv --checks EMAIL --suppression-file publicos.yaml",
		},
	}
}
