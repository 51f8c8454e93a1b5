// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"participa-scan/internal/config"
	"participa-scan/internal/core"
	"participa-scan/internal/detector"
	"participa-scan/internal/help"
	"participa-scan/internal/loader"
	"participa-scan/internal/metrics"
	"participa-scan/internal/observability"
	"participa-scan/internal/parallel"
	"participa-scan/internal/performance"
	"participa-scan/internal/store"
	"participa-scan/internal/validators"
	"participa-scan/internal/validators/personname"
	"participa-scan/internal/version"
	"participa-scan/internal/watch"

	"participa-scan/internal/formatters"
	_ "participa-scan/internal/formatters/csv"
	_ "participa-scan/internal/formatters/json"
	_ "participa-scan/internal/formatters/predictions"
	_ "participa-scan/internal/formatters/text"
	_ "participa-scan/internal/formatters/yaml"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	cfg, err := config.LoadConfigOrDefault(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
	}
	return cfg
}

// configFlags holds command line flag values
type configFlags struct {
	outputFormat string
	checksToRun  string
	verbose      bool
	debug        bool
	noColor      bool
	enableML     bool
	enableLLM    bool
	workers      int
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format      string
	checksToRun string
	verbose     bool
	debug       bool
	noColor     bool
	enableML    bool
	enableLLM   bool
	workers     int
}

// resolveConfiguration resolves final configuration values from config
// file, profile, and command line flags. isSet reports whether a flag was
// given on the command line.
func resolveConfiguration(cfg *config.Config, activeProfile *config.Profile, flags *configFlags, isSet func(string) bool) *finalConfiguration {
	final := &finalConfiguration{}

	// Format
	final.format = "predictions" // default fallback
	if cfg != nil && cfg.Defaults.Format != "" {
		final.format = cfg.Defaults.Format
	}
	if activeProfile != nil && activeProfile.Format != "" {
		final.format = activeProfile.Format
	}
	if isSet("format") && flags.outputFormat != "" {
		final.format = flags.outputFormat
	}

	// Checks to run
	final.checksToRun = "all" // default fallback
	if cfg != nil && cfg.Defaults.Checks != "" {
		final.checksToRun = cfg.Defaults.Checks
	}
	if activeProfile != nil && activeProfile.Checks != "" {
		final.checksToRun = activeProfile.Checks
	}
	if isSet("checks") && flags.checksToRun != "" {
		final.checksToRun = flags.checksToRun
	}

	// Verbose
	if cfg != nil {
		final.verbose = cfg.Defaults.Verbose
	}
	if activeProfile != nil && activeProfile.Verbose {
		final.verbose = true
	}
	if isSet("verbose") {
		final.verbose = flags.verbose
	}

	// Debug
	if cfg != nil {
		final.debug = cfg.Defaults.Debug
	}
	if isSet("debug") {
		final.debug = flags.debug
	}

	// No color
	if cfg != nil {
		final.noColor = cfg.Defaults.NoColor
	}
	if isSet("no-color") {
		final.noColor = flags.noColor
	}

	// NER model
	if cfg != nil {
		final.enableML = cfg.ML.Enabled
	}
	if activeProfile != nil && activeProfile.EnableML != nil {
		final.enableML = *activeProfile.EnableML
	}
	if isSet("enable-ml") {
		final.enableML = flags.enableML
	}

	// Fallback judge
	if cfg != nil {
		final.enableLLM = cfg.LLM.Enabled
	}
	if activeProfile != nil && activeProfile.EnableLLM != nil {
		final.enableLLM = *activeProfile.EnableLLM
	}
	if isSet("enable-llm") {
		final.enableLLM = flags.enableLLM
	}

	// Workers
	if cfg != nil {
		final.workers = cfg.Defaults.Workers
	}
	if isSet("workers") && flags.workers > 0 {
		final.workers = flags.workers
	}

	return final
}

// handleProfiles handles profile listing and selection
func handleProfiles(cfg *config.Config, listProfiles bool, profileName string) (*config.Profile, bool, error) {
	if listProfiles {
		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles defined in configuration file.")
			return nil, true, nil
		}
		fmt.Println("Available profiles:")
		for _, name := range profiles {
			profile := cfg.GetProfile(name)
			if profile != nil && profile.Description != "" {
				fmt.Printf("  - %s: %s\n", name, profile.Description)
			} else {
				fmt.Printf("  - %s\n", name)
			}
		}
		return nil, true, nil
	}

	if profileName == "" {
		return nil, false, nil
	}
	activeProfile := cfg.GetProfile(profileName)
	if activeProfile == nil {
		return nil, false, fmt.Errorf("profile '%s' not found. Available profiles: %s", profileName, strings.Join(cfg.ListProfiles(), ", "))
	}
	return activeProfile, false, nil
}

// newHelpSystem registers every check with the help system
func newHelpSystem(noColor bool) *help.System {
	h := help.NewSystem(os.Stdout, noColor)
	for _, v := range validators.Builtin() {
		h.RegisterProvider(v)
	}
	h.RegisterProvider(personname.NewValidator())
	return h
}

// newObserver picks the observability level from the debug and verbose switches
func newObserver(final *finalConfiguration) *observability.StandardObserver {
	switch {
	case final.debug:
		return observability.NewDebugStandardObserver(os.Stderr)
	case final.verbose:
		return observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)
	default:
		return observability.NewStandardObserver(observability.ObservabilityOff, os.Stderr)
	}
}

// isFlagSet reports whether the named flag was given on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isTerminal checks if the file descriptor is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	inputPath := flag.String("input", "", "Records file (csv, tsv, json, txt) or directory of attachments")
	labelsFile := flag.String("labels", "", "Ground-truth labels file; enables the performance report")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	outputFormat := flag.String("format", "", "Output format: "+strings.Join(formatters.List(), ", ")+" (default: predictions)")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles")
	checksToRun := flag.String("checks", "", "Checks to run, e.g. 'CPF,EMAIL' or 'all,CONTEXTO'")
	enableML := flag.Bool("enable-ml", false, "Enable the NER model collaborator")
	enableLLM := flag.Bool("enable-llm", false, "Enable the Gemini fallback judge (requires GEMINI_API_KEY)")
	workers := flag.Int("workers", 0, "Parallel workers (default: derived from CPU count)")
	tune := flag.Bool("tune", false, "Grid-search CPF, NOME and EMAIL thresholds against --labels")
	watchDir := flag.String("watch", "", "Watch an inbox directory and analyse new files")
	outDir := flag.String("out-dir", "", "Directory for watch-mode predictions (default: the watched directory)")
	dbPath := flag.String("db", "", "SQLite database for run history")
	metricsFile := flag.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	suppressionFile := flag.String("suppression-file", "", "Allowlist of public values to ignore")
	redact := flag.Bool("redact", false, "Hide detected values in csv, json, yaml and text output")
	verbose := flag.Bool("verbose", false, "Show progress and detection details")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	listChecks := flag.Bool("list-checks", false, "List all available checks")
	helpCheck := flag.String("help-check", "", "Show detailed help for a specific check")
	showHelp := flag.Bool("help", false, "Show help information")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// Auto-detect non-interactive environment
	isInteractive := isTerminal(os.Stderr)
	if !isInteractive || os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *noColor {
		color.NoColor = true
	}

	if *showHelp || *listChecks || *helpCheck != "" {
		h := newHelpSystem(*noColor)
		switch {
		case *helpCheck != "":
			if !h.ShowCheckHelp(*helpCheck) {
				fmt.Fprintf(os.Stderr, "Error: unknown check '%s'. Available checks: %s\n", *helpCheck, strings.Join(h.CheckNames(), ", "))
				return 1
			}
		case *listChecks:
			h.ShowChecksHelp()
		default:
			h.ShowGeneralHelp()
		}
		return 0
	}

	// Load configuration
	cfg := loadConfiguration(*configFile)

	activeProfile, done, err := handleProfiles(cfg, *listProfiles, *profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if done {
		return 0
	}

	finalConfig := resolveConfiguration(cfg, activeProfile, &configFlags{
		outputFormat: *outputFormat,
		checksToRun:  *checksToRun,
		verbose:      *verbose,
		debug:        *debug,
		noColor:      *noColor,
		enableML:     *enableML,
		enableLLM:    *enableLLM,
		workers:      *workers,
	}, isFlagSet)
	if *noColor {
		finalConfig.noColor = true
	}
	if finalConfig.noColor {
		color.NoColor = true
	}

	if _, ok := formatters.Get(finalConfig.format); !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s'. Available formats: %s\n", finalConfig.format, strings.Join(formatters.List(), ", "))
		return 1
	}

	// Command line paths override the file
	if *suppressionFile != "" {
		cfg.Suppressions.File = *suppressionFile
		cfg.Suppressions.Enabled = true
	}
	if *dbPath != "" {
		cfg.Storage.Database = *dbPath
	}
	if *metricsFile != "" {
		cfg.Metrics.Textfile = *metricsFile
	}

	if *watchDir == "" && *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --input or --watch is required (see --help)")
		return 1
	}
	if *tune && *labelsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --tune requires --labels")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer := newObserver(finalConfig)
	runMetrics := performance.NewRunMetrics(nil)

	pipeline, warnings, err := core.Build(ctx, cfg, core.BuildOptions{
		Checks:    finalConfig.checksToRun,
		Profile:   activeProfile,
		EnableML:  finalConfig.enableML,
		EnableLLM: finalConfig.enableLLM,
		Workers:   finalConfig.workers,
		Observer:  observer,
		Metrics:   runMetrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer pipeline.Close()

	warn := color.New(color.FgYellow)
	for _, w := range warnings {
		warn.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if *watchDir != "" {
		if err := runWatch(ctx, cfg, pipeline, runMetrics, observer, *watchDir, *outDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	records, err := loader.Load(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		warn.Fprintf(os.Stderr, "Warning: no records found in %s\n", *inputPath)
	}

	var labels map[string]bool
	if *labelsFile != "" {
		if labels, err = loader.LoadLabels(*labelsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if *tune {
		return runTune(ctx, pipeline, records, labels)
	}

	var progress parallel.ProgressCallback
	if finalConfig.verbose && isInteractive {
		progress = func(completed, total int, _ string) {
			if completed%50 == 0 || completed == total {
				fmt.Fprintf(os.Stderr, "\r  Processados: %d/%d", completed, total)
				if completed == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		}
	}

	started := time.Now()
	runInfo := formatters.NewRun(*inputPath, nil)
	observer.WithRunID(runInfo.ID)

	if labels != nil {
		eval := pipeline.Evaluate(ctx, records, labels, metrics.DefaultLevel, progress)
		eval.Summary.Timestamp = time.Now()
		runInfo.Results = eval.Results
		runInfo.WithEvaluation(labels, eval.Summary, eval.Records)
		if eval.Unlabeled > 0 {
			warn.Fprintf(os.Stderr, "Warning: %d record(s) have no label and were left out of the metrics\n", eval.Unlabeled)
		}
		// The text format carries the report itself
		if finalConfig.format != "text" {
			fmt.Fprintln(os.Stderr, eval.Report(finalConfig.verbose))
		}
	} else {
		runInfo.Results, _ = pipeline.AnalyzeBatch(ctx, records, progress)
	}

	output, err := formatters.Export(finalConfig.format, runInfo, formatters.FormatterOptions{
		Verbose: finalConfig.verbose,
		NoColor: finalConfig.noColor || *outputFile != "",
		Redact:  *redact,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			return 1
		}
	} else {
		fmt.Print(output)
	}

	if cfg.Storage.Database != "" {
		if err := saveRun(ctx, cfg, runInfo); err != nil {
			warn.Fprintf(os.Stderr, "Warning: run not stored: %v\n", err)
		}
	}

	runMetrics.MarkRunComplete(time.Now())
	if cfg.Metrics.Textfile != "" {
		if err := runMetrics.WriteToTextfile(cfg.Metrics.Textfile); err != nil {
			warn.Fprintf(os.Stderr, "Warning: metrics not written: %v\n", err)
		}
	}

	if finalConfig.verbose || *outputFile != "" {
		positives, skipped := runInfo.Counts()
		summary := fmt.Sprintf("%d registro(s) analisado(s) em %s: %d com dados pessoais, %d ignorado(s)",
			len(runInfo.Results), time.Since(started).Round(time.Millisecond), positives, skipped)
		color.New(color.FgGreen).Fprintln(os.Stderr, summary)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return 130
	}
	return 0
}

// runWatch serves the inbox until interrupted
func runWatch(ctx context.Context, cfg *config.Config, pipeline *core.Pipeline, runMetrics *performance.RunMetrics, observer *observability.StandardObserver, inDir, outDir string) error {
	var runStore watch.RunStore
	if cfg.Storage.Database != "" {
		s, err := store.Open(ctx, cfg.Storage.Database)
		if err != nil {
			return err
		}
		defer s.Close()
		runStore = s
	}

	w, err := watch.New(watch.Config{
		InDir:           inDir,
		OutDir:          outDir,
		ProcessExisting: true,
		RetentionDays:   cfg.Storage.RetentionDays,
		Schedule:        cfg.Storage.Schedule,
		MetricsFile:     cfg.Metrics.Textfile,
	}, pipeline, runStore, runMetrics, observer)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", inDir)
	return w.Run(ctx)
}

// saveRun stores the run and applies the retention window
func saveRun(ctx context.Context, cfg *config.Config, run *formatters.Run) error {
	s, err := store.Open(ctx, cfg.Storage.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveRun(ctx, run); err != nil {
		return err
	}
	if cfg.Storage.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Storage.RetentionDays)
		if _, err := s.PurgeOlderThan(ctx, cutoff); err != nil {
			return err
		}
	}
	return nil
}

// runTune prints the best thresholds as a config snippet
func runTune(ctx context.Context, pipeline *core.Pipeline, records []loader.Record, labels map[string]bool) int {
	result, err := pipeline.Tune(ctx, records, labels, core.DefaultTuneGrid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	snippet := map[string]map[string]float64{"thresholds": {}}
	kinds := make([]string, 0, len(result.Thresholds))
	for k, v := range result.Thresholds {
		snippet["thresholds"][string(k)] = v
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	defaults := detector.DefaultThresholds()

	fmt.Fprintf(os.Stderr, "%d combination(s) tried, best F1 %.4f (precision %.4f, recall %.4f)\n",
		result.Trials, result.Summary.F1, result.Summary.Precision, result.Summary.Recall)
	for _, k := range kinds {
		fmt.Fprintf(os.Stderr, "  %-6s %.2f (default %.2f)\n", k, result.Thresholds[detector.Kind(k)], defaults[detector.Kind(k)])
	}

	out, err := yaml.Marshal(snippet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}
