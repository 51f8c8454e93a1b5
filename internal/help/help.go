// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// CheckInfo contains standardized information about a check
type CheckInfo struct {
	Name                string             // Kind the check emits (e.g., "CPF")
	ShortDescription    string             // Short description for the checks list
	DetailedDescription string             // Detailed description of what the check does
	Patterns            []string           // Patterns the check looks for
	SupportedFormats    []string           // Formats or validation rules
	ConfidenceFactors   []ConfidenceFactor // Factors affecting confidence
	PositiveKeywords    []string           // Keywords that increase confidence
	NegativeKeywords    []string           // Keywords that decrease confidence
	DefaultThreshold    float64            // Sensitivity threshold applied when not configured
	Examples            []string           // Usage examples
}

// ConfidenceFactor represents a factor that affects confidence scoring
type ConfidenceFactor struct {
	Name        string  // Name of the factor
	Description string  // Description of the factor
	Delta       float64 // Signed change applied to the confidence score
}

// Provider defines the interface for help content providers
type Provider interface {
	GetCheckInfo() CheckInfo
}

// System manages help content for the application
type System struct {
	providers map[string]Provider
	out       io.Writer
	colors    map[string]*color.Color
}

// NewSystem creates a new help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	return &System{
		providers: make(map[string]Provider),
		out:       out,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"positive": color.New(color.FgGreen),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// RegisterProvider adds a help provider to the system
func (h *System) RegisterProvider(provider Provider) {
	info := provider.GetCheckInfo()
	h.providers[strings.ToLower(info.Name)] = provider
}

// CheckNames returns the registered check names, sorted
func (h *System) CheckNames() []string {
	names := make([]string, 0, len(h.providers))
	for _, p := range h.providers {
		names = append(names, p.GetCheckInfo().Name)
	}
	sort.Strings(names)
	return names
}

// ShowGeneralHelp displays usage information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "Participa Scan - Detecção de dados pessoais em pedidos de acesso à informação")
	fmt.Fprintln(h.out, strings.Repeat("=", 78))
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  participa-scan --input <file|dir> [options]")
	fmt.Fprintln(h.out, "  participa-scan --watch <dir> --out-dir <dir> [options]")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --input\t<path>\tRecords file (csv, tsv, json, txt) or attachment directory")
	fmt.Fprintln(w, "  --labels\t<path>\tGround-truth labels file; enables the performance report")
	fmt.Fprintln(w, "  --output\t<path>\tOutput file (default: stdout)")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: predictions, csv, json, yaml, text (default: predictions)")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles")
	fmt.Fprintln(w, "  --checks\t<checks>\tChecks to run: "+strings.Join(h.CheckNames(), ",")+",all")
	fmt.Fprintln(w, "  --enable-ml\t\tEnable the NER model collaborator (requires the onnx build)")
	fmt.Fprintln(w, "  --enable-llm\t\tEnable the Gemini fallback judge (requires GEMINI_API_KEY)")
	fmt.Fprintln(w, "  --workers\t<n>\tParallel workers for batch analysis")
	fmt.Fprintln(w, "  --tune\t\tGrid-search thresholds against --labels")
	fmt.Fprintln(w, "  --watch\t<dir>\tWatch an inbox directory and analyse new files")
	fmt.Fprintln(w, "  --out-dir\t<dir>\tDirectory for watch-mode predictions")
	fmt.Fprintln(w, "  --db\t<path>\tSQLite database for run history")
	fmt.Fprintln(w, "  --metrics-file\t<path>\tWrite Prometheus metrics in textfile format")
	fmt.Fprintln(w, "  --suppression-file\t<path>\tAllowlist of public values to ignore")
	fmt.Fprintln(w, "  --redact\t\tHide detected values in csv, json, yaml and text output")
	fmt.Fprintln(w, "  --verbose\t\tShow per-record progress")
	fmt.Fprintln(w, "  --debug\t\tEnable debug logging")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --list-checks\t\tList all available checks")
	fmt.Fprintln(w, "  --help-check\t<check>\tShow detailed help for a specific check")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXAMPLES:")
	h.colors["example"].Fprintln(h.out, "  participa-scan --input pedidos.csv --output predicoes.csv")
	h.colors["example"].Fprintln(h.out, "  participa-scan --input pedidos.csv --labels rotulos.csv --format text")
	h.colors["example"].Fprintln(h.out, "  participa-scan --input pedidos.csv --labels rotulos.csv --tune")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: participa.yaml or .participa-scan.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config: ~/.participa-scan/config.yaml")
	fmt.Fprintln(h.out, "  Environment: PARTICIPA_CONFIG_DIR, GEMINI_API_KEY (.env files are loaded)")
}

// ShowChecksHelp lists every registered check
func (h *System) ShowChecksHelp() {
	h.colors["title"].Fprintln(h.out, "Available Checks")
	fmt.Fprintln(h.out, "================")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(w, "  CHECK\tTHRESHOLD\tDESCRIPTION")
	h.colors["header"].Fprintln(w, "  -----\t---------\t-----------")
	for _, name := range h.CheckNames() {
		info := h.providers[strings.ToLower(name)].GetCheckInfo()
		fmt.Fprintf(w, "  %s\t%.2f\t%s\n", info.Name, info.DefaultThreshold, info.ShortDescription)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "For detailed information about a specific check, use:")
	h.colors["example"].Fprintln(h.out, "  participa-scan --help-check <check>")
}

// ShowCheckHelp prints the detailed help for one check; false if unknown
func (h *System) ShowCheckHelp(checkName string) bool {
	provider, exists := h.providers[strings.ToLower(checkName)]
	if !exists {
		h.colors["negative"].Fprintf(h.out, "Error: Check '%s' not found.\n", checkName)
		fmt.Fprintln(h.out, "Use 'participa-scan --list-checks' to see a list of available checks.")
		return false
	}

	info := provider.GetCheckInfo()

	h.colors["title"].Fprintf(h.out, "%s Check\n", info.Name)
	fmt.Fprintln(h.out, strings.Repeat("=", len(info.Name)+6))
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, info.DetailedDescription)
	fmt.Fprintln(h.out)

	h.list("PATTERNS DETECTED:", info.Patterns)
	h.list("SUPPORTED FORMATS:", info.SupportedFormats)

	if len(info.ConfidenceFactors) > 0 {
		h.colors["header"].Fprintln(h.out, "CONFIDENCE SCORING:")
		for _, factor := range info.ConfidenceFactors {
			fmt.Fprint(h.out, "  - ")
			h.colors["item"].Fprintf(h.out, "%s ", factor.Name)
			fmt.Fprintf(h.out, "(%+.2f): %s\n", factor.Delta, factor.Description)
		}
		fmt.Fprintf(h.out, "  Default threshold: %.2f\n\n", info.DefaultThreshold)
	}

	if len(info.PositiveKeywords) > 0 {
		fmt.Fprint(h.out, "  Positive context: ")
		h.colors["positive"].Fprintln(h.out, strings.Join(info.PositiveKeywords, ", "))
	}
	if len(info.NegativeKeywords) > 0 {
		fmt.Fprint(h.out, "  Negative context: ")
		h.colors["negative"].Fprintln(h.out, strings.Join(info.NegativeKeywords, ", "))
	}

	if len(info.Examples) > 0 {
		fmt.Fprintln(h.out)
		h.colors["header"].Fprintln(h.out, "EXAMPLES:")
		for _, ex := range info.Examples {
			h.colors["example"].Fprintf(h.out, "  %s\n", ex)
		}
	}
	return true
}

func (h *System) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	h.colors["header"].Fprintln(h.out, title)
	for _, item := range items {
		fmt.Fprint(h.out, "  - ")
		h.colors["item"].Fprintln(h.out, item)
	}
	fmt.Fprintln(h.out)
}
