// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package merge reconciles candidate detections from every detection
// method into a single per-document decision.
package merge

import (
	"context"
	"sort"

	"participa-scan/internal/detector"
	"participa-scan/internal/observability"
)

// FallbackThreshold is the minimum judge confidence that flags a document
// with no located detections.
const FallbackThreshold = 0.7

// MethodResult is what one detector produced for a document. A non-nil Err
// means the detector failed; its detections are ignored.
type MethodResult struct {
	Source     string
	Method     detector.Method
	Detections []detector.Detection
	Err        error
}

// Judge is the last-resort binary classifier consulted when nothing else
// was found. Implementations must be safe for concurrent use.
type Judge interface {
	Judge(ctx context.Context, text string) (containsPII bool, confidence float64, err error)
}

// NoopJudge never flags anything
type NoopJudge struct{}

// Judge implements Judge
func (NoopJudge) Judge(context.Context, string) (bool, float64, error) { return false, 0, nil }

// JudgeFunc adapts a function to the Judge interface
type JudgeFunc func(ctx context.Context, text string) (bool, float64, error)

// Judge implements Judge
func (f JudgeFunc) Judge(ctx context.Context, text string) (bool, float64, error) {
	return f(ctx, text)
}

// Engine merges detector output. It holds no per-document state and is
// safe for concurrent use when its judge is.
type Engine struct {
	cfg      *detector.Config
	judge    Judge
	observer *observability.StandardObserver
}

// NewEngine creates an engine; a nil cfg uses the defaults and a nil judge
// disables the fallback.
func NewEngine(cfg *detector.Config, judge Judge) *Engine {
	if cfg == nil {
		cfg = detector.DefaultConfig()
	}
	if judge == nil {
		judge = NoopJudge{}
	}
	return &Engine{cfg: cfg, judge: judge}
}

// SetObserver sets the observability component
func (e *Engine) SetObserver(observer *observability.StandardObserver) {
	e.observer = observer
}

// Config returns the thresholds the engine applies
func (e *Engine) Config() *detector.Config { return e.cfg }

// Merge pools the results, reconciles overlapping same-kind detections,
// applies the thresholds and, if nothing survives, consults the judge.
func (e *Engine) Merge(ctx context.Context, id, text string, results []MethodResult) detector.DocumentResult {
	var pooled []detector.Detection
	for _, r := range results {
		if r.Err != nil {
			e.observer.LogFailure("merge", "collect", id, r.Err, map[string]interface{}{
				"source": r.Source,
				"method": string(r.Method),
			})
			continue
		}
		for _, d := range r.Detections {
			if !d.Kind.Known() || d.Kind == detector.KindOutros {
				continue
			}
			pooled = append(pooled, d)
		}
	}

	var surviving []detector.Detection
	for _, d := range Reconcile(text, pooled) {
		if e.cfg.Passes(d) {
			surviving = append(surviving, d)
		}
	}

	if len(surviving) == 0 {
		if d, ok := e.fallback(ctx, id, text); ok {
			surviving = append(surviving, d)
		}
	}

	return Result(id, text, surviving)
}

func (e *Engine) fallback(ctx context.Context, id, text string) (detector.Detection, bool) {
	flagged, conf, err := e.judge.Judge(ctx, text)
	if err != nil {
		e.observer.LogFailure("merge", "fallback", id, err, nil)
		return detector.Detection{}, false
	}
	if !flagged || conf < FallbackThreshold {
		return detector.Detection{}, false
	}
	return detector.Detection{
		Kind:       detector.KindOutros,
		Span:       detector.Span{Start: 0, End: len(text)},
		Confidence: detector.ClampConfidence(conf),
		Method:     detector.MethodLLM,
	}, true
}

// Result builds the document result for an already reconciled set
func Result(id, text string, dets []detector.Detection) detector.DocumentResult {
	detector.SortByStart(dets)
	res := detector.DocumentResult{
		ID:          id,
		Text:        text,
		Detections:  dets,
		ContainsPII: len(dets) > 0,
	}
	if len(dets) > 0 {
		res.ByType = make(map[detector.Kind][]string)
		for _, d := range dets {
			res.ByType[d.Kind] = append(res.ByType[d.Kind], d.Value)
		}
	}
	return res
}

// Reconcile groups same-kind detections whose spans overlap, directly or
// through a chain of overlaps, and keeps one detection per group. Empty
// spans are dropped. The kept
// detection is the most confident member (method priority breaks ties),
// widened to the union of the group's spans. Detections of different kinds
// never merge.
func Reconcile(text string, dets []detector.Detection) []detector.Detection {
	byKind := make(map[detector.Kind][]detector.Detection)
	var out []detector.Detection
	for _, d := range dets {
		// an empty span locates no text
		if d.Span.Len() <= 0 {
			continue
		}
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}

	for _, kind := range detector.AllKinds {
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Span.Start != group[j].Span.Start {
				return group[i].Span.Start < group[j].Span.Start
			}
			return group[i].Span.End < group[j].Span.End
		})

		current := []detector.Detection{group[0]}
		end := group[0].Span.End
		for _, d := range group[1:] {
			if d.Span.Start < end {
				current = append(current, d)
				end = max(end, d.Span.End)
				continue
			}
			out = append(out, resolve(text, current))
			current = []detector.Detection{d}
			end = d.Span.End
		}
		out = append(out, resolve(text, current))
	}
	detector.SortByStart(out)
	return out
}

// resolve picks the representative of one overlap group
func resolve(text string, group []detector.Detection) detector.Detection {
	best := group[0]
	span := best.Span
	for _, d := range group[1:] {
		span = span.Union(d.Span)
		if better(d, best) {
			best = d
		}
	}
	if span != best.Span {
		best.Span = span
		best.Value = valueAt(text, span, best.Value)
	}
	return best
}

// better reports whether a should represent a group over b
func better(a, b detector.Detection) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Method.Priority() > b.Method.Priority()
}

func valueAt(text string, span detector.Span, fallback string) string {
	if span.Start < 0 || span.End > len(text) || span.Start > span.End {
		return fallback
	}
	return text[span.Start:span.End]
}
