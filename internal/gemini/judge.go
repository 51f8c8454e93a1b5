// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gemini implements the fallback judge on top of the Gemini API.
// It scores whether a request carries subjective sensitive data (political
// opinion, religion, health, union membership, sexuality, ethnicity) that
// the located detectors cannot point at.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"participa-scan/internal/detector"
	"participa-scan/internal/observability"
	"participa-scan/internal/performance"
	"participa-scan/internal/resilience"
)

const (
	DefaultModel         = "gemini-2.0-flash"
	DefaultMaxChars      = 3000
	DefaultRatePerMinute = 60
	DefaultTimeout       = 30 * time.Second
)

var (
	// ErrNoAPIKey is returned by New when no key is configured
	ErrNoAPIKey = errors.New("GEMINI_API_KEY is empty")

	// ErrEmptyResponse means the model returned no text, usually because
	// the answer was blocked
	ErrEmptyResponse = errors.New("empty or blocked response")
)

// Config controls the judge
type Config struct {
	APIKey        string
	Model         string
	MaxChars      int
	RatePerMinute int
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxChars <= 0 {
		c.MaxChars = DefaultMaxChars
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = DefaultRatePerMinute
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Generator sends one prompt and returns the model's text answer
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Judge scores documents with a remote model. It is safe for concurrent use:
// the limiter and circuit breaker are shared by every worker.
type Judge struct {
	gen      Generator
	model    string
	maxChars int
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	retry    resilience.RetryConfig
	observer *observability.StandardObserver
	metrics  *performance.RunMetrics
	closer   func() error
}

// New connects to the Gemini API
func New(ctx context.Context, cfg Config) (*Judge, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	gen, err := newClientGenerator(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	j := NewWithGenerator(gen, cfg)
	j.closer = gen.Close
	return j, nil
}

// NewWithGenerator builds a judge around any Generator
func NewWithGenerator(gen Generator, cfg Config) *Judge {
	cfg = cfg.withDefaults()
	perRequest := time.Minute / time.Duration(cfg.RatePerMinute)
	j := &Judge{
		gen:      gen,
		model:    cfg.Model,
		maxChars: cfg.MaxChars,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(rate.Every(perRequest), 1),
	}
	j.breaker = resilience.NewBreaker(j.breakerConfig(resilience.JudgeBreakerConfig("gemini")))
	j.WithRetry(resilience.RemoteModelRetryConfig())
	return j
}

// SetObserver sets the observability component
func (j *Judge) SetObserver(observer *observability.StandardObserver) {
	j.observer = observer
}

// SetMetrics reports breaker transitions to the run metrics
func (j *Judge) SetMetrics(m *performance.RunMetrics) {
	j.metrics = m
	m.SetBreakerState("gemini", int(j.breaker.State()))
}

// WithRetry replaces the retry policy. Retries are logged through the
// observer.
func (j *Judge) WithRetry(cfg resilience.RetryConfig) *Judge {
	cfg.OnRetry = func(attempt int, err error) {
		j.observer.LogFailure("gemini", "retry", j.model, err, map[string]interface{}{
			"attempt":    attempt,
			"error_type": resilience.ClassifyError(err).Type.String(),
		})
	}
	j.retry = cfg
	return j
}

// WithBreaker replaces the breaker settings
func (j *Judge) WithBreaker(cfg resilience.BreakerConfig) *Judge {
	j.breaker = resilience.NewBreaker(j.breakerConfig(cfg))
	return j
}

// BreakerState returns the position of the judge's circuit breaker
func (j *Judge) BreakerState() resilience.State { return j.breaker.State() }

func (j *Judge) breakerConfig(cfg resilience.BreakerConfig) resilience.BreakerConfig {
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		j.metrics.SetBreakerState(name, int(to))
		j.observer.LogOperation(observability.StandardObservabilityData{
			Component: "gemini",
			Operation: "breaker",
			Target:    name,
			Success:   to == resilience.StateClosed,
			Metadata:  map[string]interface{}{"from": from.String(), "to": to.String()},
		})
	}
	return cfg
}

// Model returns the configured model name
func (j *Judge) Model() string { return j.model }

// Close releases the API client
func (j *Judge) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer()
}

// Judge scores text. Blank text and text without any candidate keyword are
// never sent. Any positive score flags the document; the caller decides
// whether the confidence is high enough.
func (j *Judge) Judge(ctx context.Context, text string) (bool, float64, error) {
	if strings.TrimSpace(text) == "" {
		return false, 0, nil
	}
	text = Truncate(text, j.maxChars)
	if !HasCandidateKeywords(text) {
		return false, 0, nil
	}

	finish := j.observer.StartTiming("gemini", "judge", j.model)
	if err := j.limiter.Wait(ctx); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return false, 0, fmt.Errorf("rate limiter: %w", err)
	}

	answer, err := resilience.RetryWithResult(ctx, j.retry, func(ctx context.Context) (string, error) {
		var out string
		err := j.breaker.Execute(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, j.timeout)
			defer cancel()
			var err error
			out, err = j.gen.Generate(callCtx, BuildPrompt(text))
			return err
		})
		return out, err
	})
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return false, 0, fmt.Errorf("gemini judge: %w", err)
	}

	score, err := ParseScore(answer)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error(), "answer": Truncate(answer, 200)})
		return false, 0, err
	}
	finish(true, map[string]interface{}{"score": score})
	return score > 0, score, nil
}

// BuildPrompt renders the instruction sent to the model
func BuildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Você é um detector de dados pessoais sensíveis.\n\n")
	b.WriteString("Analise o texto abaixo e determine se ele contém informações pessoais sensíveis de natureza subjetiva:\n")
	b.WriteString("- opiniões políticas\n")
	b.WriteString("- crenças religiosas ou filosóficas\n")
	b.WriteString("- filiação sindical\n")
	b.WriteString("- dados de saúde (doenças, sintomas, tratamentos)\n")
	b.WriteString("- orientação sexual\n")
	b.WriteString("- origem racial ou étnica\n\n")
	b.WriteString("Texto para análise:\n\"\"\"")
	b.WriteString(text)
	b.WriteString("\"\"\"\n\n")
	b.WriteString(`Responda apenas com um JSON, sem markdown e sem explicação: {"score": 0.0}` + "\n")
	b.WriteString("onde score vai de 0.0 (nenhum dado sensível) a 1.0 (alta sensibilidade).\n")
	return b.String()
}

// ParseScore extracts {"score": x} from a model answer, tolerating code
// fences and surrounding prose. A missing score is 0; the result is clamped
// to [0,1].
func ParseScore(answer string) (float64, error) {
	s := strings.TrimSpace(answer)
	if open, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); open >= 0 && end > open {
		s = s[open : end+1]
	}

	var doc struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return 0, fmt.Errorf("parse judge answer: %w", err)
	}
	if doc.Score == nil {
		return 0, nil
	}
	return detector.ClampConfidence(*doc.Score), nil
}

// Truncate keeps at most maxChars runes of text
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}
