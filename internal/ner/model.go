// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultMaxSeqLen is the model's maximum position count
const DefaultMaxSeqLen = 512

// ModelConfig locates an exported token-classification model. ModelDir holds
// model.onnx, tokenizer.json and label_mappings.json.
type ModelConfig struct {
	ModelDir    string
	LibraryPath string // onnxruntime shared library; ONNXRUNTIME_SHARED_LIBRARY_PATH when empty
	MaxSeqLen   int
	MinScore    float64
}

func (c ModelConfig) modelPath() string     { return filepath.Join(c.ModelDir, "model.onnx") }
func (c ModelConfig) tokenizerPath() string { return filepath.Join(c.ModelDir, "tokenizer.json") }
func (c ModelConfig) labelsPath() string    { return filepath.Join(c.ModelDir, "label_mappings.json") }

func (c ModelConfig) withDefaults() ModelConfig {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = DefaultMaxSeqLen
	}
	if c.MinScore <= 0 {
		c.MinScore = DefaultThreshold
	}
	if c.LibraryPath == "" {
		c.LibraryPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	return c
}

// Validate checks that every model file exists
func (c ModelConfig) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("%w: no model directory configured", ErrModelUnavailable)
	}
	for _, p := range []string{c.modelPath(), c.tokenizerPath(), c.labelsPath()} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	}
	return nil
}

// LoadLabelMappings reads id2label from label_mappings.json. Both a flat
// {"id2label": {...}} document and one nested under "pii" are accepted.
func LoadLabelMappings(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label mappings: %w", err)
	}

	var doc struct {
		ID2Label map[string]string `json:"id2label"`
		PII      struct {
			ID2Label map[string]string `json:"id2label"`
		} `json:"pii"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse label mappings: %w", err)
	}
	raw := doc.ID2Label
	if len(raw) == 0 {
		raw = doc.PII.ID2Label
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("label mappings in %s have no id2label entries", path)
	}

	out := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label id %q: %w", k, err)
		}
		if id < 0 {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// labelCount is the width of the model's logits row
func labelCount(id2label map[int]string) int {
	n := 0
	for id := range id2label {
		n = max(n, id+1)
	}
	return n
}
