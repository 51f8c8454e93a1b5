// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"

	"participa-scan/internal/ner"
)

// Version information set at link time with -ldflags "-X"
var (
	// Version is the current version of participa-scan
	Version = "0.0.0-development"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildDate is when the binary was built
	BuildDate = "unknown"

	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()

	// Platform is the OS/Arch combination
	Platform = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)

// NERBackend names the token-classification backend compiled in
func NERBackend() string {
	if ner.Available() {
		return "onnx"
	}
	return "none"
}

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("participa-scan %s (commit: %s, built: %s, go: %s, platform: %s, ner: %s)",
		Version, GitCommit, BuildDate, GoVersion, Platform, NERBackend())
}

// Short returns just the version number
func Short() string {
	return Version
}

// Full returns detailed version information
func Full() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
		"goVersion": GoVersion,
		"platform":  Platform,
		"ner":       NERBackend(),
	}
}
