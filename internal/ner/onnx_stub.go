// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !onnx

package ner

import "fmt"

// Available reports whether a model backend is compiled in
func Available() bool { return false }

// OpenONNX is unavailable without the onnx build tag
func OpenONNX(cfg ModelConfig) (Recognizer, error) {
	return nil, fmt.Errorf("%w: built without the onnx tag", ErrModelUnavailable)
}
