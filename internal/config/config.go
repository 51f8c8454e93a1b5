// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"participa-scan/internal/detector"
	"participa-scan/internal/paths"
)

// DefaultAPIKeyEnv names the variable holding the Gemini key
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// Output formats accepted by the CLI
var validFormats = map[string]bool{
	"predictions": true,
	"csv":         true,
	"json":        true,
	"yaml":        true,
	"text":        true,
}

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Checks  string `yaml:"checks"`
		Workers int    `yaml:"workers"`
		Verbose bool   `yaml:"verbose"`
		Debug   bool   `yaml:"debug"`
		NoColor bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	// Per-kind sensitivity thresholds, keyed by kind name
	Thresholds map[string]float64 `yaml:"thresholds"`

	// Token-classification model
	ML struct {
		Enabled     bool    `yaml:"enabled"`
		ModelDir    string  `yaml:"model_dir"`
		LibraryPath string  `yaml:"library_path"`
		Threshold   float64 `yaml:"threshold"`
	} `yaml:"ml"`

	// Remote fallback judge
	LLM struct {
		Enabled       bool   `yaml:"enabled"`
		Model         string `yaml:"model"`
		MaxChars      int    `yaml:"max_chars"`
		RatePerMinute int    `yaml:"rate_per_minute"`
		APIKeyEnv     string `yaml:"api_key_env"`
	} `yaml:"llm"`

	// Extra dictionary files, one name per line, and inline exclusion words
	Names struct {
		FirstNames []string `yaml:"first_names"`
		Surnames   []string `yaml:"surnames"`
		Exclusions []string `yaml:"exclusions"`
	} `yaml:"names"`

	Suppressions struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
	} `yaml:"suppressions"`

	Storage struct {
		Database      string `yaml:"database"`
		RetentionDays int    `yaml:"retention_days"`
		Schedule      string `yaml:"schedule"`
	} `yaml:"storage"`

	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`

	// Profiles for different analysis scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a named set of overrides. Pointer fields distinguish
// "not set" from false.
type Profile struct {
	Description string             `yaml:"description"`
	Format      string             `yaml:"format"`
	Checks      string             `yaml:"checks"`
	Verbose     bool               `yaml:"verbose"`
	EnableML    *bool              `yaml:"enable_ml,omitempty"`
	EnableLLM   *bool              `yaml:"enable_llm,omitempty"`
	Thresholds  map[string]float64 `yaml:"thresholds"`
}

func boolPtr(b bool) *bool { return &b }

// defaultConfig returns the built-in configuration
func defaultConfig() *Config {
	config := &Config{
		Thresholds: make(map[string]float64),
		Profiles:   make(map[string]Profile),
	}

	config.Defaults.Format = "predictions"
	config.Defaults.Checks = "all"

	config.ML.Threshold = 0.5

	config.LLM.Model = "gemini-2.0-flash"
	config.LLM.MaxChars = 3000
	config.LLM.RatePerMinute = 60
	config.LLM.APIKeyEnv = DefaultAPIKeyEnv

	config.Suppressions.Enabled = true

	config.Storage.RetentionDays = 90
	config.Storage.Schedule = "@daily"

	// Quick regex and dictionary pass for triaging an inbox
	config.Profiles["triagem"] = Profile{
		Description: "Regex and dictionary only, no model or remote calls",
		Format:      "predictions",
		Checks:      "all",
		EnableML:    boolPtr(false),
		EnableLLM:   boolPtr(false),
	}
	// Everything on, with a stricter name threshold to offset the model's recall
	config.Profiles["completo"] = Profile{
		Description: "All detection methods including the NER model and fallback judge",
		Format:      "csv",
		Checks:      "all",
		EnableML:    boolPtr(true),
		EnableLLM:   boolPtr(true),
		Thresholds:  map[string]float64{"NOME": 0.75},
	}
	return config
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	defaultSuppressions := config.Suppressions.Enabled
	defaultProfiles := config.Profiles

	if err := decodeStrict(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// yaml leaves absent bools false, so restore defaults not set in the file
	if !containsField(data, "suppressions", "enabled") {
		config.Suppressions.Enabled = defaultSuppressions
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	for name, p := range defaultProfiles {
		if _, ok := config.Profiles[name]; !ok {
			config.Profiles[name] = p
		}
	}
	if config.Thresholds == nil {
		config.Thresholds = make(map[string]float64)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// FindConfigFile looks for a configuration file in the current directory,
// then in the user configuration directory. It returns "" when none exists.
func FindConfigFile() string {
	for _, name := range []string{"participa.yaml", "participa.yml", ".participa-scan.yaml", ".participa-scan.yml"} {
		if fileExists(name) {
			return name
		}
	}

	if standardConfig := paths.GetConfigFile(); fileExists(standardConfig) {
		return standardConfig
	}
	return ""
}

// decodeStrict requires a mapping at the document root and rejects keys
// the Config does not declare. An empty document keeps the defaults.
func decodeStrict(data []byte, config *Config) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 {
		return nil
	}
	if doc := root.Content[0]; doc.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping at the top level", doc.Line)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return false
		}
		current = next
	}
	return false
}

// ValidateConfig checks formats, thresholds and numeric settings. All
// problems are reported together.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	var problems []string
	if config.Defaults.Format != "" && !validFormats[config.Defaults.Format] {
		problems = append(problems, fmt.Sprintf("unknown output format %q", config.Defaults.Format))
	}
	if config.Defaults.Workers < 0 {
		problems = append(problems, "defaults.workers must not be negative")
	}
	if _, err := detector.NewConfigFromNames(config.Thresholds, false); err != nil {
		problems = append(problems, err.Error())
	}
	if config.ML.Threshold < 0 || config.ML.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("ml.threshold must be within [0,1], got %v", config.ML.Threshold))
	}
	if config.LLM.MaxChars < 0 {
		problems = append(problems, "llm.max_chars must not be negative")
	}
	if config.LLM.RatePerMinute < 0 {
		problems = append(problems, "llm.rate_per_minute must not be negative")
	}
	if config.Storage.RetentionDays < 0 {
		problems = append(problems, "storage.retention_days must not be negative")
	}

	for _, name := range config.ListProfiles() {
		p := config.Profiles[name]
		if p.Format != "" && !validFormats[p.Format] {
			problems = append(problems, fmt.Sprintf("profile %s: unknown output format %q", name, p.Format))
		}
		if _, err := detector.NewConfigFromNames(p.Thresholds, false); err != nil {
			problems = append(problems, fmt.Sprintf("profile %s: %v", name, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ListProfiles returns the profile names in sorted order
func (c *Config) ListProfiles() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, ok := c.Profiles[name]; ok {
		return &profile
	}
	return nil
}

// DetectorConfig builds the detector thresholds from the file and the
// optional profile; the profile wins for kinds it names.
func (c *Config) DetectorConfig(profile *Profile, enableML bool) (*detector.Config, error) {
	merged := make(map[string]float64, len(c.Thresholds))
	for k, v := range c.Thresholds {
		merged[strings.ToUpper(k)] = v
	}
	if profile != nil {
		for k, v := range profile.Thresholds {
			merged[strings.ToUpper(k)] = v
		}
	}
	return detector.NewConfigFromNames(merged, enableML)
}

// APIKey returns the judge credential from the configured variable
func (c *Config) APIKey() string {
	name := c.LLM.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return strings.TrimSpace(os.Getenv(name))
}

// LoadEnv loads .env files into the process environment. Missing files are
// skipped and variables already set are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", filepath.Join(paths.GetConfigDir(), ".env")}
	}
	var existing []string
	for _, f := range files {
		if fileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches
// standard locations when configFile is empty). If loading fails, it
// returns the default configuration together with the error so callers can
// warn without aborting.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return defaultConfig(), err
	}
	return cfg, nil
}
