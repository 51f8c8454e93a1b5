// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package gemini

import "participa-scan/internal/detector"

// candidateKeywords gate calls to the model. Entries are folded and matched
// as whole words.
var candidateKeywords = map[string][]string{
	"politica": {
		"partido", "eleicao", "voto", "candidato", "lula", "bolsonaro", "esquerda", "direita",
		"comunista", "fascista", "socialismo", "militante", "ideologia",
	},
	"religiao": {
		"deus", "igreja", "fe", "religiao", "crenca", "biblia", "culto", "pastor", "padre",
		"bencao", "espirita", "umbanda", "candomble", "evangelico", "catolico",
	},
	"saude": {
		"doenca", "doente", "enfermo", "paciente", "tratamento", "dor", "remedio", "medicamento",
		"cancer", "hiv", "aids", "depressao", "ansiedade", "terapia", "laudo", "atestado", "cid",
		"diagnostico", "sintoma",
	},
	"sindicato": {
		"sindicato", "sindical", "greve", "assembleia", "filiado", "associacao de classe",
	},
	"sexualidade_etnia": {
		"gay", "lesbica", "homossexual", "trans", "travesti", "lgbt", "orientacao sexual",
		"negro", "pardo", "preto", "indigena", "raca", "etnia",
	},
}

// HasCandidateKeywords reports whether text mentions any topic worth a
// model call
func HasCandidateKeywords(text string) bool {
	folded := detector.Fold(text)
	for _, words := range candidateKeywords {
		if len(detector.FindKeywords(folded, words)) > 0 {
			return true
		}
	}
	return false
}

// CandidateTopics lists the topics whose keywords occur in text
func CandidateTopics(text string) []string {
	folded := detector.Fold(text)
	var topics []string
	for _, topic := range []string{"politica", "religiao", "saude", "sindicato", "sexualidade_etnia"} {
		if len(detector.FindKeywords(folded, candidateKeywords[topic])) > 0 {
			topics = append(topics, topic)
		}
	}
	return topics
}
