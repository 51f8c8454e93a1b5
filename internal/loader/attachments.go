// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rwcarlsen/goexif/exif"
)

// maxPDFBytes bounds the text kept from one PDF
const maxPDFBytes = 1 << 20

// exifTextFields are the free-text EXIF tags people type names into
var exifTextFields = []exif.FieldName{
	exif.ImageDescription,
	exif.Artist,
	exif.Copyright,
	exif.UserComment,
	exif.XPAuthor,
	exif.XPComment,
	exif.XPSubject,
	exif.XPTitle,
}

// attachmentExts lists what LoadAttachments reads
var attachmentExts = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// IsAttachment reports whether path has an attachment extension
func IsAttachment(path string) bool {
	return attachmentExts[strings.ToLower(filepath.Ext(path))]
}

// IsRecordFile reports whether path is a tabular record file
func IsRecordFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".json", ".xlsx":
		return true
	}
	return false
}

// LoadAttachments makes one record per supported file in dir, in name
// order, with the file name as id. A file that cannot be read becomes a
// malformed record.
func LoadAttachments(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var records []Record
	for _, e := range entries {
		if e.IsDir() || !IsAttachment(e.Name()) {
			continue
		}
		records = append(records, LoadAttachment(filepath.Join(dir, e.Name())))
	}
	return records, nil
}

// LoadAttachment extracts the text of one file
func LoadAttachment(path string) Record {
	rec := Record{ID: filepath.Base(path), Source: path, Line: 1}
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		var data []byte
		data, err = readFile(path)
		rec.Text = string(data)
	case ".pdf":
		rec.Text, err = ExtractPDFText(path)
	case ".jpg", ".jpeg", ".tif", ".tiff":
		rec.Text, err = ExtractEXIFText(path)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		rec.Err = err
	}
	return rec
}

// Load reads a record file, or every record file and attachment in a
// directory. Inside a directory a .txt file is one document.
func Load(path string) ([]Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		if IsRecordFile(path) || strings.EqualFold(filepath.Ext(path), ".txt") {
			return LoadRecords(path)
		}
		if IsAttachment(path) {
			return []Record{LoadAttachment(path)}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	var records []Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		full := filepath.Join(path, e.Name())
		switch {
		case IsRecordFile(full):
			recs, err := LoadRecords(full)
			if err != nil {
				records = append(records, Record{ID: e.Name(), Source: full, Err: err})
				continue
			}
			records = append(records, recs...)
		case IsAttachment(full):
			records = append(records, LoadAttachment(full))
		}
	}
	return records, nil
}

// ExtractPDFText validates the file structure and returns its plain text
func ExtractPDFText(path string) (string, error) {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("invalid PDF file: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract PDF text: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(plain, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("extract PDF text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ExtractEXIFText returns the free-text EXIF fields as "Field: value" lines
func ExtractEXIFText(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", fmt.Errorf("no EXIF data found: %w", err)
	}

	var lines []string
	for _, name := range exifTextFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			value = tag.String()
		}
		value = strings.Trim(strings.TrimSpace(value), "\x00\"")
		if value != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", name, value))
		}
	}
	return strings.Join(lines, "\n"), nil
}
