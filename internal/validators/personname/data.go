// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package personname

import (
	"bufio"
	"bytes"
	"compress/gzip"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"participa-scan/internal/detector"
)

// Embedded compressed name lists, one folded name per line
//
//go:embed data/first_names.txt.gz
var firstNamesDataGZ []byte

//go:embed data/last_names.txt.gz
var lastNamesDataGZ []byte

var (
	// Decompressed once; every validator gets its own NameSet copy
	embeddedFirst []string
	embeddedLast  []string
	loadOnce      sync.Once
	loadError     error
)

func loadEmbedded() ([]string, []string, error) {
	loadOnce.Do(func() {
		embeddedFirst, loadError = readNames(bytes.NewReader(firstNamesDataGZ), true)
		if loadError != nil {
			loadError = fmt.Errorf("failed to load first names: %w", loadError)
			return
		}
		embeddedLast, loadError = readNames(bytes.NewReader(lastNamesDataGZ), true)
		if loadError != nil {
			loadError = fmt.Errorf("failed to load last names: %w", loadError)
		}
	})
	return embeddedFirst, embeddedLast, loadError
}

// NameSet is a case- and accent-insensitive set of names.
//
// A NameSet has no internal locking. Add it to before detection starts
// and only read it afterwards; calling Add while a detector is using the
// set from other goroutines is unsafe.
type NameSet struct {
	names map[string]struct{}
}

// NewNameSet creates a set holding names
func NewNameSet(names ...string) *NameSet {
	s := &NameSet{names: make(map[string]struct{}, len(names))}
	s.Add(names...)
	return s
}

// Add inserts names, ignoring blanks and duplicates. It returns how many
// names were new.
func (s *NameSet) Add(names ...string) int {
	added := 0
	for _, n := range names {
		key := detector.Fold(strings.TrimSpace(n))
		if !isValidName(key) {
			continue
		}
		if _, ok := s.names[key]; ok {
			continue
		}
		s.names[key] = struct{}{}
		added++
	}
	return added
}

// Contains reports whether name is in the set, ignoring case and accents
func (s *NameSet) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[detector.Fold(name)]
	return ok
}

// Len returns the number of distinct names
func (s *NameSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// LoadFile adds the names listed in path, one per line. Files ending in
// .gz are decompressed; lines starting with # are comments.
func (s *NameSet) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open name list: %w", err)
	}
	defer f.Close()

	names, err := readNames(f, strings.HasSuffix(path, ".gz"))
	if err != nil {
		return 0, fmt.Errorf("failed to read name list %s: %w", path, err)
	}
	return s.Add(names...), nil
}

func readNames(r io.Reader, compressed bool) ([]string, error) {
	if compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading name data: %w", err)
	}
	return names, nil
}

// isValidName accepts letters with inner spaces, hyphens and apostrophes
func isValidName(name string) bool {
	if len(name) < 2 || len(name) > 40 {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != ' ' {
			return false
		}
	}
	return true
}

// GetEmbeddedDataStats returns statistics about the embedded lists
func GetEmbeddedDataStats() map[string]interface{} {
	first, last, _ := loadEmbedded()
	return map[string]interface{}{
		"first_names":                 len(first),
		"last_names":                  len(last),
		"first_names_compressed_size": len(firstNamesDataGZ),
		"last_names_compressed_size":  len(lastNamesDataGZ),
	}
}
