// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sensitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	v := NewValidator()

	got := v.Detect("Solicito cópia do meu laudo médico")
	require.Len(t, got, 1)
	assert.Equal(t, "laudo", got[0].Value)
	assert.Equal(t, 1.0, got[0].Confidence)

	stats := v.Detect("Quantos processos disciplinares foram abertos")
	assert.Empty(t, stats, "plural form does not match the singular term")

	generic := v.Detect("Qual o total de beneficiários em vulnerabilidade no DF")
	require.Len(t, generic, 1)
	assert.Less(t, generic[0].Confidence, 0.65)

	assert.Empty(t, v.Detect("Preciso renovar a identidade do órgão"))
	assert.Empty(t, v.Detect(""))
}
