// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"fmt"

	"participa-scan/internal/detector"
	"participa-scan/internal/help"
)

// GetCheckInfo returns standardized information about the person name check
func (v *Validator) GetCheckInfo() help.CheckInfo {
	return help.CheckInfo{
		Name:             string(detector.KindNome),
		ShortDescription: "Detects person names using name dictionaries and context cues",
		DetailedDescription: fmt.Sprintf(`The NOME check finds runs of capitalized words and matches them against embedded Brazilian first-name and surname lists (%d first names, %d surnames loaded).

A run qualifies when its first word is a known first name, or when a cue such as "nome", "sr./sra." or "requerente" appears just before it. Connectives (de, da, do, dos, das, e) may appear inside a run. Short all-caps acronyms and institutional words (secretaria, ministério, months, weekdays) never form names.`,
			v.firstNames.Len(), v.lastNames.Len()),

		Patterns: []string{
			"First Last (e.g., João Silva)",
			"First connective Last (e.g., Maria da Conceição Souza)",
			"Cue followed by a capitalized run (e.g., requerente Fulano Beltrano)",
		},

		SupportedFormats: []string{
			"Title case runs",
			"All-caps runs (JOÃO DA SILVA)",
			"Accented and unaccented spellings",
		},

		ConfidenceFactors: []help.ConfidenceFactor{
			{Name: "Base", Description: "Capitalized run with at least two significant words", Delta: baseConfidence},
			{Name: "Known First Name", Description: "First word found in the first-name list", Delta: firstNameBoost},
			{Name: "Known Surname", Description: "Last word found in the surname list", Delta: surnameBoost},
			{Name: "Context Cue", Description: "Name cue within 30 characters before the run", Delta: cueBoost},
			{Name: "Short Run", Description: "Run shorter than 8 characters", Delta: -shortNamePenalty},
			{Name: "Long Run", Description: "More than 5 significant words", Delta: -longNamePenalty},
			{Name: "Mixed Casing", Description: "Words mix title case and all caps", Delta: -mixedCasePenalty},
		},

		PositiveKeywords: v.cues,
		DefaultThreshold: detector.DefaultThresholds()[detector.KindNome],

		Examples: []string{
			"participa-scan --input pedidos.csv --checks NOME",
			"participa-scan --input pedidos.csv --checks NOME,CPF --format json",
		},
	}
}
