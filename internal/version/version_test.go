// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()
	assert.True(t, strings.HasPrefix(info, "participa-scan "+Version))
	assert.Contains(t, info, "ner: "+NERBackend())
	assert.Equal(t, Version, Short())
}

func TestFull(t *testing.T) {
	full := Full()
	assert.Equal(t, Version, full["version"])
	assert.Equal(t, Platform, full["platform"])
	assert.Contains(t, []string{"onnx", "none"}, full["ner"])
}
