// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build onnx

package ner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
)

// Available reports whether a model backend is compiled in
func Available() bool { return true }

// onnxRecognizer runs a BERT-style token classifier. The session reuses
// fixed input and output tensors, so calls are serialized.
type onnxRecognizer struct {
	mu        sync.Mutex
	tk        *tokenizers.Tokenizer
	session   *ort.AdvancedSession
	input     *ort.Tensor[int64]
	mask      *ort.Tensor[int64]
	output    *ort.Tensor[float32]
	id2label  map[int]string
	numLabels int
	maxSeqLen int
	minScore  float64
}

// OpenONNX loads the model, tokenizer and label mappings from cfg.ModelDir
func OpenONNX(cfg ModelConfig) (Recognizer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id2label, err := LoadLabelMappings(cfg.labelsPath())
	if err != nil {
		return nil, err
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	tk, err := tokenizers.FromFile(cfg.tokenizerPath())
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	r := &onnxRecognizer{
		tk:        tk,
		id2label:  id2label,
		numLabels: labelCount(id2label),
		maxSeqLen: cfg.MaxSeqLen,
		minScore:  cfg.MinScore,
	}
	if err := r.initSession(cfg.modelPath()); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *onnxRecognizer) initSession(modelPath string) error {
	shape := ort.NewShape(1, int64(r.maxSeqLen))
	input, err := ort.NewTensor(shape, make([]int64, r.maxSeqLen))
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}
	r.input = input

	mask, err := ort.NewTensor(shape, make([]int64, r.maxSeqLen))
	if err != nil {
		return fmt.Errorf("create mask tensor: %w", err)
	}
	r.mask = mask

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(r.maxSeqLen), int64(r.numLabels)))
	if err != nil {
		return fmt.Errorf("create output tensor: %w", err)
	}
	r.output = output

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{r.input, r.mask},
		[]ort.Value{r.output},
		nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	r.session = session
	return nil
}

// Recognize tokenizes text, runs the model over consecutive windows of at
// most maxSeqLen tokens and decodes the BIO labels.
func (r *onnxRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := r.tk.EncodeWithOptions(text, true, tokenizers.WithReturnOffsets())
	n := min(len(enc.IDs), len(enc.Offsets))

	var labelled []TokenLabel
	for start := 0; start < n; start += r.maxSeqLen {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+r.maxSeqLen, n)
		if err := r.run(enc.IDs[start:end]); err != nil {
			return nil, err
		}

		logits := r.output.GetData()
		for i := start; i < end; i++ {
			row := (i - start) * r.numLabels
			if row+r.numLabels > len(logits) {
				break
			}
			best, prob := Softmax(logits[row : row+r.numLabels])
			label, ok := r.id2label[best]
			if !ok {
				label = "O"
			}
			labelled = append(labelled, TokenLabel{
				Label: label,
				Score: prob,
				Start: int(enc.Offsets[i][0]),
				End:   int(enc.Offsets[i][1]),
			})
		}
	}
	return DecodeBIO(text, labelled, r.minScore), nil
}

func (r *onnxRecognizer) run(ids []uint32) error {
	in := r.input.GetData()
	mask := r.mask.GetData()
	for i := range in {
		in[i], mask[i] = 0, 0
	}
	for i, id := range ids {
		in[i] = int64(id)
		mask[i] = 1
	}
	if err := r.session.Run(); err != nil {
		return fmt.Errorf("run inference: %w", err)
	}
	return nil
}

// Close releases the session, tensors and tokenizer
func (r *onnxRecognizer) Close() error {
	var errs []error
	if r.session != nil {
		errs = append(errs, r.session.Destroy())
	}
	if r.input != nil {
		errs = append(errs, r.input.Destroy())
	}
	if r.mask != nil {
		errs = append(errs, r.mask.Destroy())
	}
	if r.output != nil {
		errs = append(errs, r.output.Destroy())
	}
	if r.tk != nil {
		errs = append(errs, r.tk.Close())
	}
	return errors.Join(errs...)
}
