// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDirEnv overrides the configuration directory on every platform
const ConfigDirEnv = "PARTICIPA_CONFIG_DIR"

// GetConfigDir returns the participa-scan configuration directory.
// Windows uses %APPDATA%\participa-scan, everything else ~/.participa-scan.
func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "participa-scan")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".participa-scan"
	}
	return filepath.Join(home, ".participa-scan")
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetSuppressionsFile returns the path to the suppressions file
func GetSuppressionsFile() string {
	return filepath.Join(GetConfigDir(), "suppressions.yaml")
}

// GetDatabaseFile returns the default run-history database
func GetDatabaseFile() string {
	return filepath.Join(GetConfigDir(), "runs.db")
}

// EnsureDir creates dir with owner-only permissions when missing
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}
