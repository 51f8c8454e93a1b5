// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package loader reads request records and ground-truth labels from
// tabular files, and turns attachment directories into records.
package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for file extensions the loader cannot read
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Record is one request to analyse. A non-nil Err marks a malformed row that
// is still reported, with prediction 0, so output rows line up with input.
type Record struct {
	ID     string
	Text   string
	Source string
	Line   int
	Err    error
}

// Malformed reports whether the record cannot be analysed
func (r Record) Malformed() bool {
	return r.Err != nil || strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Text) == ""
}

var textColumnNames = []string{
	"texto", "text", "conteudo", "content", "descricao", "description",
	"mensagem", "message", "pedido", "solicitacao", "manifestacao",
	"texto_mascarado", "body", "corpo",
}

var idColumnNames = []string{"id", "codigo", "numero", "protocolo"}

// table is a decoded tabular file. bad holds row-level problems by row index.
type table struct {
	header []string
	rows   [][]string
	lines  []int
	bad    map[int]error
}

// LoadRecords reads a .csv, .tsv, .json, .xlsx or .txt file. The text and
// id columns are found by name; see Columns for the fallbacks. Every sheet
// of a workbook is read, each with its own header, and the sheet name is
// appended to Source.
func LoadRecords(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return loadLines(path)
	case ".xlsx":
		tables, names, err := readWorkbook(path)
		if err != nil {
			return nil, err
		}
		var records []Record
		for i, t := range tables {
			records = tableRecords(records, path+"#"+names[i], t)
		}
		return records, nil
	}

	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return tableRecords(nil, path, t), nil
}

// tableRecords appends the rows of t to records. Rows of a table without an
// id column are numbered after the records already present.
func tableRecords(records []Record, source string, t *table) []Record {
	if len(t.header) == 0 {
		return records
	}
	textCol, idCol := Columns(t.header, t.rows)
	base := len(records)
	for i, row := range t.rows {
		rec := Record{Source: source, Line: t.lines[i], ID: strconv.Itoa(base + i + 1)}
		if err, bad := t.bad[i]; bad {
			rec.Err = err
			if idCol >= 0 && idCol < len(row) {
				rec.ID = strings.TrimSpace(row[idCol])
			}
			records = append(records, rec)
			continue
		}
		if idCol >= 0 {
			rec.ID = strings.TrimSpace(row[idCol])
		}
		rec.Text = row[textCol]
		records = append(records, rec)
	}
	return records
}

// Columns picks the text and id columns of a table. The text column falls
// back to the one with the longest average value; idCol is -1 when no id
// column exists and row numbers are used instead.
func Columns(header []string, rows [][]string) (textCol, idCol int) {
	idCol = findColumn(header, idColumnNames)
	textCol = findColumn(header, textColumnNames)
	if textCol >= 0 {
		return textCol, idCol
	}

	best, bestAvg := 0, -1.0
	for c := range header {
		if c == idCol && len(header) > 1 {
			continue
		}
		total, n := 0, 0
		for _, row := range rows {
			if c < len(row) {
				total += utf8.RuneCountInString(row[c])
				n++
			}
		}
		avg := 0.0
		if n > 0 {
			avg = float64(total) / float64(n)
		}
		if avg > bestAvg {
			best, bestAvg = c, avg
		}
	}
	return best, idCol
}

func findColumn(header []string, names []string) int {
	for _, want := range names {
		for i, h := range header {
			if normalizeHeader(h) == want {
				return i
			}
		}
	}
	return -1
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

// readFile returns the file content as UTF-8. Files that are not valid
// UTF-8 are decoded as Windows-1252, the usual export encoding.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}

// readTable decodes a single table. For a workbook that is the first sheet
// holding a header.
func readTable(path string) (*table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		tables, _, err := readWorkbook(path)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if len(t.header) > 0 {
				return t, nil
			}
		}
		return &table{}, nil
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readDelimited(data, detectComma(data))
	case ".tsv":
		return readDelimited(data, '\t')
	case ".json":
		return readJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// detectComma picks ';' for spreadsheets exported with a Brazilian locale
func detectComma(data []byte) rune {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func readDelimited(data []byte, comma rune) (*table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return &table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{header: header, bad: map[int]error{}}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line, _ := r.FieldPos(0)
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			t.bad[len(t.rows)] = fmt.Errorf("line %d: %w", parseErr.Line, parseErr.Err)
			t.rows = append(t.rows, row)
			t.lines = append(t.lines, parseErr.Line)
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(header) {
			t.bad[len(t.rows)] = fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row))
		}
		t.rows = append(t.rows, row)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// readJSON accepts a list of objects, or an object holding the list under
// "data" or "registros". Any other object is a single record.
func readJSON(data []byte) (*table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if list, ok := v["data"].([]interface{}); ok {
			items = list
		} else if list, ok := v["registros"].([]interface{}); ok {
			items = list
		} else {
			items = []interface{}{v}
		}
	default:
		return nil, fmt.Errorf("parse json: expected an object or a list")
	}

	seen := map[string]bool{}
	var header []string
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				if !seen[k] {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	t := &table{header: header, bad: map[int]error{}}
	for i, item := range items {
		row := make([]string, len(header))
		obj, ok := item.(map[string]interface{})
		if !ok {
			t.bad[i] = fmt.Errorf("item %d: expected an object", i+1)
		}
		for c, k := range header {
			if obj != nil {
				row[c] = jsonString(obj[k])
			}
		}
		t.rows = append(t.rows, row)
		t.lines = append(t.lines, i+1)
	}
	return t, nil
}

func jsonString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// loadLines makes one record per non-blank line, id = line number
func loadLines(path string) ([]Record, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, Record{ID: strconv.Itoa(i + 1), Text: line, Source: path, Line: i + 1})
	}
	return records, nil
}

// LoadLabels reads ground truth as id to label. The id column is the first
// whose name contains "id", else the first column; the label column is the
// first naming label, class, target or rotulo, else the last column.
func LoadLabels(path string) (map[string]bool, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(t.header) < 2 {
		return nil, fmt.Errorf("labels file %s needs an id and a label column", path)
	}

	idCol, labelCol := 0, len(t.header)-1
	for i, h := range t.header {
		if strings.Contains(normalizeHeader(h), "id") {
			idCol = i
			break
		}
	}
	for i, h := range t.header {
		n := normalizeHeader(h)
		if i != idCol && (strings.Contains(n, "label") || strings.Contains(n, "class") ||
			strings.Contains(n, "target") || strings.Contains(n, "rotulo")) {
			labelCol = i
			break
		}
	}

	labels := make(map[string]bool, len(t.rows))
	for i, row := range t.rows {
		if _, bad := t.bad[i]; bad || idCol >= len(row) || labelCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		labels[id] = ParseLabel(row[labelCol])
	}
	return labels, nil
}

// ParseLabel reads a ground-truth cell; 1, true, sim and yes are positive
func ParseLabel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "1.0", "true", "sim", "yes", "s", "y":
		return true
	}
	return false
}
