// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"participa-scan/internal/detector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "participa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "predictions", cfg.Defaults.Format)
	assert.Equal(t, "all", cfg.Defaults.Checks)
	assert.True(t, cfg.Suppressions.Enabled)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.LLM.APIKeyEnv)
	assert.Equal(t, 3000, cfg.LLM.MaxChars)
	assert.Equal(t, 90, cfg.Storage.RetentionDays)
	assert.Equal(t, []string{"completo", "triagem"}, cfg.ListProfiles())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: csv
  workers: 4
thresholds:
  cpf: 0.9
  NOME: 0.6
ml:
  enabled: true
  model_dir: /opt/models/pii
llm:
  enabled: true
  rate_per_minute: 10
storage:
  database: /tmp/runs.db
profiles:
  rigoroso:
    description: high precision
    enable_llm: false
    thresholds:
      EMAIL: 0.95
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Defaults.Format)
	assert.Equal(t, 4, cfg.Defaults.Workers)
	assert.True(t, cfg.ML.Enabled)
	assert.Equal(t, 0.5, cfg.ML.Threshold, "unset fields keep their defaults")
	assert.Equal(t, 10, cfg.LLM.RatePerMinute)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.True(t, cfg.Suppressions.Enabled, "absent bool must keep its default")

	// built-in profiles survive next to the file's own
	assert.NotNil(t, cfg.GetProfile("triagem"))
	p := cfg.GetProfile("rigoroso")
	require.NotNil(t, p)
	require.NotNil(t, p.EnableLLM)
	assert.False(t, *p.EnableLLM)
	assert.Nil(t, p.EnableML)
	assert.Nil(t, cfg.GetProfile("missing"))

	dc, err := cfg.DetectorConfig(p, true)
	require.NoError(t, err)
	assert.Equal(t, 0.9, dc.Threshold(detector.KindCPF))
	assert.Equal(t, 0.6, dc.Threshold(detector.KindNome))
	assert.Equal(t, 0.95, dc.Threshold(detector.KindEmail))
	assert.Equal(t, 0.75, dc.Threshold(detector.KindRG))
	assert.True(t, dc.MLEnabled())
}

func TestLoadConfig_SuppressionsDisabled(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "suppressions:\n  enabled: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Suppressions.Enabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", ":::invalid yaml:::"},
		{"scalar root", "just a sentence"},
		{"list root", "- csv\n- json\n"},
		{"misspelled section", "defualts:\n  format: csv\n"},
		{"misspelled field", "llm:\n  rate_per_minut: 10\n"},
		{"unclosed flow", "thresholds: {CPF: 0.9\n"},
		{"unknown format", "defaults:\n  format: sarif\n"},
		{"unknown kind", "thresholds:\n  SSN: 0.5\n"},
		{"threshold range", "thresholds:\n  CPF: 1.5\n"},
		{"negative workers", "defaults:\n  workers: -1\n"},
		{"ml threshold", "ml:\n  threshold: 2\n"},
		{"profile threshold", "profiles:\n  x:\n    thresholds:\n      NOME: -0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig("/nonexistent/path/participa.yaml")
	assert.Error(t, err)
}

func TestLoadConfigOrDefault(t *testing.T) {
	cfg, err := LoadConfigOrDefault(writeConfig(t, "defaults:\n  format: json\n"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Defaults.Format)

	cfg, err = LoadConfigOrDefault(writeConfig(t, ":::invalid yaml:::"))
	assert.Error(t, err)
	require.NotNil(t, cfg, "falls back to defaults on parse error")
	assert.Equal(t, "predictions", cfg.Defaults.Format)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "# only a comment\n"))
	require.NoError(t, err)
	assert.Equal(t, "predictions", cfg.Defaults.Format)
}

func TestValidateConfig_Nil(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))
}

func TestAPIKeyAndLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PARTICIPA_TEST_KEY=segredo\n"), 0o600))

	os.Unsetenv("PARTICIPA_TEST_KEY")
	t.Cleanup(func() { os.Unsetenv("PARTICIPA_TEST_KEY") })

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.LLM.APIKeyEnv = "PARTICIPA_TEST_KEY"
	assert.Equal(t, "segredo", cfg.APIKey())

	require.NoError(t, LoadEnv(filepath.Join(dir, "none.env")))
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARTICIPA_CONFIG_DIR", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "", FindConfigFile())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0o600))
	assert.Equal(t, filepath.Join(dir, "config.yaml"), FindConfigFile())

	require.NoError(t, os.WriteFile("participa.yaml", []byte("{}"), 0o600))
	assert.Equal(t, "participa.yaml", FindConfigFile())
}
