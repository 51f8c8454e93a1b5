// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package suppressions holds the allowlist of public values (institutional
// e-mail addresses, switchboard numbers, the agency's own CNPJ) that must
// never count as personal data.
package suppressions

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"participa-scan/internal/detector"
	"participa-scan/internal/paths"
)

// SuppressionRule allowlists one value of one kind. Either Value or Hash is
// set; Hash is the SHA-256 of the kind and normalized value, for files that
// should not hold the value in clear text.
type SuppressionRule struct {
	ID        string     `yaml:"id"`
	Kind      string     `yaml:"kind"`
	Value     string     `yaml:"value,omitempty"`
	Hash      string     `yaml:"hash,omitempty"`
	Reason    string     `yaml:"reason"`
	Enabled   bool       `yaml:"enabled"`
	CreatedBy string     `yaml:"created_by,omitempty"`
	CreatedAt time.Time  `yaml:"created_at"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// SuppressionConfig represents the suppression configuration file
type SuppressionConfig struct {
	Version string            `yaml:"version"`
	Rules   []SuppressionRule `yaml:"rules"`
}

// SuppressedDetection is a detection removed by a rule
type SuppressedDetection struct {
	Detection    detector.Detection `json:"deteccao" yaml:"deteccao"`
	SuppressedBy string             `json:"suprimida_por" yaml:"suprimida_por"`
	RuleReason   string             `json:"motivo" yaml:"motivo"`
	ExpiresAt    *time.Time         `json:"expira_em,omitempty" yaml:"expira_em,omitempty"`
}

// SuppressionManager matches detections against the allowlist. Lookups are
// safe for concurrent use; edits take the write lock.
type SuppressionManager struct {
	mu         sync.RWMutex
	configPath string
	config     *SuppressionConfig
	index      map[string]int
	enabled    bool
	now        func() time.Time
}

// NewSuppressionManager loads the allowlist at configPath, or the default
// file when empty. A missing file yields an empty allowlist.
func NewSuppressionManager(configPath string) (*SuppressionManager, error) {
	if configPath == "" {
		configPath = paths.GetSuppressionsFile()
	}

	sm := &SuppressionManager{
		configPath: configPath,
		enabled:    true,
		now:        time.Now,
	}
	if err := sm.loadConfig(); err != nil {
		return nil, err
	}
	return sm, nil
}

func emptyConfig() *SuppressionConfig {
	return &SuppressionConfig{Version: "1.0", Rules: []SuppressionRule{}}
}

// loadConfig loads the suppression configuration
func (sm *SuppressionManager) loadConfig() error {
	data, err := os.ReadFile(filepath.Clean(sm.configPath))
	if os.IsNotExist(err) {
		sm.config = emptyConfig()
		sm.reindex()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read suppressions %s: %w", sm.configPath, err)
	}

	var config SuppressionConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse suppressions %s: %w", sm.configPath, err)
	}
	for i, r := range config.Rules {
		if _, err := detector.ParseKind(r.Kind); err != nil {
			return fmt.Errorf("suppression rule %d (%s): %w", i+1, r.ID, err)
		}
		if r.Value == "" && r.Hash == "" {
			return fmt.Errorf("suppression rule %d (%s): value or hash is required", i+1, r.ID)
		}
	}
	if config.Rules == nil {
		config.Rules = []SuppressionRule{}
	}
	sm.config = &config
	sm.reindex()
	return nil
}

// reindex rebuilds the hash lookup; callers hold the write lock
func (sm *SuppressionManager) reindex() {
	sm.index = make(map[string]int, len(sm.config.Rules))
	for i, r := range sm.config.Rules {
		h := r.Hash
		if h == "" {
			h = ValueHash(detector.Kind(strings.ToUpper(r.Kind)), r.Value)
		}
		if _, dup := sm.index[h]; !dup {
			sm.index[h] = i
		}
	}
}

// Normalize canonicalizes a value for comparison: document numbers keep only
// their digits, plates drop punctuation, everything else is folded.
func Normalize(kind detector.Kind, value string) string {
	switch kind {
	case detector.KindCPF, detector.KindCNPJ, detector.KindRG, detector.KindTelefone, detector.KindProcesso:
		if d := detector.Digits(value); d != "" {
			return d
		}
	case detector.KindPlaca:
		return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(value))
	}
	return strings.Join(strings.Fields(detector.Fold(value)), " ")
}

// ValueHash is the rule hash for a kind and value
func ValueHash(kind detector.Kind, value string) string {
	sum := sha256.Sum256([]byte(string(kind) + "|" + Normalize(kind, value)))
	return fmt.Sprintf("%x", sum)
}

// IsSuppressed checks if a detection is allowlisted by an enabled,
// unexpired rule
func (sm *SuppressionManager) IsSuppressed(d detector.Detection) (bool, *SuppressionRule) {
	if sm == nil {
		return false, nil
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.enabled || sm.config == nil {
		return false, nil
	}

	i, ok := sm.index[ValueHash(d.Kind, d.Value)]
	if !ok {
		return false, nil
	}
	rule := sm.config.Rules[i]
	if !rule.Enabled || sm.expired(rule) {
		return false, nil
	}
	return true, &rule
}

func (sm *SuppressionManager) expired(r SuppressionRule) bool {
	return r.ExpiresAt != nil && sm.now().After(*r.ExpiresAt)
}

// Filter splits dets into kept and suppressed detections, preserving order
func (sm *SuppressionManager) Filter(dets []detector.Detection) ([]detector.Detection, []SuppressedDetection) {
	if sm == nil || len(dets) == 0 {
		return dets, nil
	}
	var kept []detector.Detection
	var suppressed []SuppressedDetection
	for _, d := range dets {
		if ok, rule := sm.IsSuppressed(d); ok {
			suppressed = append(suppressed, SuppressedDetection{
				Detection:    d,
				SuppressedBy: rule.ID,
				RuleReason:   rule.Reason,
				ExpiresAt:    rule.ExpiresAt,
			})
			continue
		}
		kept = append(kept, d)
	}
	return kept, suppressed
}

// AddSuppression allowlists value for kind and saves the file
func (sm *SuppressionManager) AddSuppression(kind detector.Kind, value, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	if !kind.Known() || kind == detector.KindOutros {
		return nil, fmt.Errorf("cannot suppress kind %q", string(kind))
	}
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("suppression value is empty")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.index[ValueHash(kind, value)]; exists {
		return nil, fmt.Errorf("suppression rule already exists for this %s value", kind)
	}

	rule := SuppressionRule{
		ID:        sm.nextID(),
		Kind:      string(kind),
		Value:     value,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: sm.now().UTC(),
		ExpiresAt: expiresAt,
	}
	sm.config.Rules = append(sm.config.Rules, rule)
	sm.reindex()
	if err := sm.saveConfig(); err != nil {
		return nil, err
	}
	return &rule, nil
}

// nextID returns the next sequential rule id; callers hold the lock
func (sm *SuppressionManager) nextID() string {
	maxID := 0
	for _, r := range sm.config.Rules {
		var num int
		if _, err := fmt.Sscanf(r.ID, "SUP-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}
	return fmt.Sprintf("SUP-%08d", maxID+1)
}

// RemoveSuppression removes a suppression rule by ID
func (sm *SuppressionManager) RemoveSuppression(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for i, rule := range sm.config.Rules {
		if rule.ID == id {
			sm.config.Rules = append(sm.config.Rules[:i], sm.config.Rules[i+1:]...)
			sm.reindex()
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// SetRuleEnabled toggles a rule by ID
func (sm *SuppressionManager) SetRuleEnabled(id string, enabled bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for i := range sm.config.Rules {
		if sm.config.Rules[i].ID == id {
			sm.config.Rules[i].Enabled = enabled
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("suppression rule with ID %s not found", id)
}

// ListSuppressions returns a copy of all suppression rules
func (sm *SuppressionManager) ListSuppressions() []SuppressionRule {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]SuppressionRule, len(sm.config.Rules))
	copy(out, sm.config.Rules)
	return out
}

// saveConfig writes the file with owner-only permissions; callers hold the lock
func (sm *SuppressionManager) saveConfig() error {
	data, err := yaml.Marshal(sm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression config: %w", err)
	}
	if err := paths.EnsureDir(filepath.Dir(sm.configPath)); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(sm.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write suppression config: %w", err)
	}
	return nil
}

// CleanupExpired removes expired suppression rules
func (sm *SuppressionManager) CleanupExpired() (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	active := make([]SuppressionRule, 0, len(sm.config.Rules))
	for _, rule := range sm.config.Rules {
		if !sm.expired(rule) {
			active = append(active, rule)
		}
	}
	removed := len(sm.config.Rules) - len(active)
	if removed == 0 {
		return 0, nil
	}
	sm.config.Rules = active
	sm.reindex()
	return removed, sm.saveConfig()
}

// SetEnabled enables or disables the suppression manager
func (sm *SuppressionManager) SetEnabled(enabled bool) {
	sm.mu.Lock()
	sm.enabled = enabled
	sm.mu.Unlock()
}

// IsEnabled returns whether the suppression manager is enabled
func (sm *SuppressionManager) IsEnabled() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.enabled
}

// GetConfigPath returns the path to the suppression config file
func (sm *SuppressionManager) GetConfigPath() string {
	return sm.configPath
}
