// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"participa-scan/internal/detector"
	"participa-scan/internal/metrics"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Verbose bool // Whether to display per-detection details
	NoColor bool // Whether to disable colored output
	Redact  bool // Whether to hide detected values and their context
}

// Run is one analysed batch as handed to the formatters
type Run struct {
	ID        string
	Timestamp time.Time
	Source    string
	Results   []detector.DocumentResult

	// Labels, Summary and Records are set only when ground truth was given
	Labels  map[string]bool
	Summary *metrics.Summary
	Records []metrics.Record
}

// NewRun wraps results under a fresh run id
func NewRun(source string, results []detector.DocumentResult) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Results:   results,
	}
}

// WithEvaluation attaches ground truth and the computed summary
func (r *Run) WithEvaluation(labels map[string]bool, summary metrics.Summary, records []metrics.Record) *Run {
	r.Labels = labels
	r.Summary = &summary
	r.Records = records
	return r
}

// Truth returns the ground-truth label for id, if any
func (r *Run) Truth(id string) (bool, bool) {
	if r.Labels == nil {
		return false, false
	}
	v, ok := r.Labels[id]
	return v, ok
}

// Counts returns the number of positive and skipped results
func (r *Run) Counts() (positives, skipped int) {
	for _, res := range r.Results {
		if res.Skipped {
			skipped++
		}
		positives += res.Prediction()
	}
	return positives, skipped
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders the run in the formatter's output format
	Format(run *Run, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatInfo describes a registered formatter for help output
type FormatInfo struct {
	Name        string
	Description string
	Extension   string
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Export formats run with the named formatter from the default registry
func Export(format string, run *Run, options FormatterOptions) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	if run == nil {
		return "", fmt.Errorf("nothing to format")
	}
	return formatter.Format(run, options)
}

// GetSupportedFormats returns information about all available formatters
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		f, _ := Get(name)
		formats = append(formats, FormatInfo{
			Name:        f.Name(),
			Description: f.Description(),
			Extension:   f.FileExtension(),
		})
	}
	return formats
}
