// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// maxWorkbookPart bounds the decompressed size of a single workbook part
const maxWorkbookPart = 64 << 20

type xlsxText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (x xlsxText) String() string {
	if len(x.Runs) == 0 {
		return x.T
	}
	var b strings.Builder
	b.WriteString(x.T)
	for _, r := range x.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxSharedStrings struct {
	Items []xlsxText `xml:"si"`
}

type xlsxCell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Value  string    `xml:"v"`
	Inline *xlsxText `xml:"is"`
}

type xlsxRow struct {
	Num   int        `xml:"r,attr"`
	Cells []xlsxCell `xml:"c"`
}

type xlsxWorksheet struct {
	Rows []xlsxRow `xml:"sheetData>row"`
}

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// sheet is one worksheet of a workbook, in workbook order
type sheet struct {
	name string
	file *zip.File
}

// readWorkbook decodes every worksheet of an .xlsx file into its own table.
// The first non-empty row of a sheet is its header.
func readWorkbook(p string) ([]*table, []string, error) {
	zr, err := zip.OpenReader(filepath.Clean(p))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook %s: %w", p, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var shared []string
	if f, ok := files["xl/sharedStrings.xml"]; ok {
		var sst xlsxSharedStrings
		if err := decodePart(f, &sst); err != nil {
			return nil, nil, fmt.Errorf("workbook %s: %w", p, err)
		}
		shared = make([]string, len(sst.Items))
		for i, si := range sst.Items {
			shared[i] = si.String()
		}
	}

	sheets := workbookSheets(files)
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook %s: no worksheets", p)
	}

	tables := make([]*table, 0, len(sheets))
	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		var ws xlsxWorksheet
		if err := decodePart(s.file, &ws); err != nil {
			return nil, nil, fmt.Errorf("workbook %s sheet %s: %w", p, s.name, err)
		}
		tables = append(tables, sheetTable(ws, shared))
		names = append(names, s.name)
	}
	return tables, names, nil
}

// workbookSheets lists worksheets in tab order using the workbook part and
// its relationships. Workbooks missing either fall back to the worksheet
// parts sorted by number.
func workbookSheets(files map[string]*zip.File) []sheet {
	var wb xlsxWorkbook
	var rels xlsxRelationships
	wbFile, hasWB := files["xl/workbook.xml"]
	relFile, hasRels := files["xl/_rels/workbook.xml.rels"]
	if hasWB && hasRels && decodePart(wbFile, &wb) == nil && decodePart(relFile, &rels) == nil {
		targets := make(map[string]string, len(rels.Items))
		for _, r := range rels.Items {
			targets[r.ID] = r.Target
		}
		var out []sheet
		for _, s := range wb.Sheets {
			target, ok := targets[s.RID]
			if !ok {
				continue
			}
			name := path.Clean("xl/" + target)
			if strings.HasPrefix(target, "/") {
				name = strings.TrimPrefix(path.Clean(target), "/")
			}
			if f, ok := files[name]; ok {
				out = append(out, sheet{name: s.Name, file: f})
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var out []sheet
	for name, f := range files {
		if strings.HasPrefix(name, "xl/worksheets/sheet") && strings.HasSuffix(name, ".xml") {
			out = append(out, sheet{name: strings.TrimSuffix(path.Base(name), ".xml"), file: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return sheetNumber(out[i].name) < sheetNumber(out[j].name) })
	return out
}

func sheetNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "sheet"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func decodePart(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(io.LimitReader(rc, maxWorkbookPart)).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return nil
}

// sheetTable lays the cells of a worksheet out by column reference. Cells
// left blank in the sheet are not stored, so short rows are padded to the
// header width.
func sheetTable(ws xlsxWorksheet, shared []string) *table {
	t := &table{bad: map[int]error{}}
	for i, row := range ws.Rows {
		cells := rowCells(row, shared)
		if blankRow(cells) {
			continue
		}
		line := row.Num
		if line == 0 {
			line = i + 1
		}
		if t.header == nil {
			t.header = cells
			continue
		}
		if len(cells) < len(t.header) {
			cells = append(cells, make([]string, len(t.header)-len(cells))...)
		}
		t.rows = append(t.rows, cells)
		t.lines = append(t.lines, line)
	}
	return t
}

func rowCells(row xlsxRow, shared []string) []string {
	var cells []string
	for i, c := range row.Cells {
		col := i
		if c.Ref != "" {
			if n, ok := columnIndex(c.Ref); ok {
				col = n
			}
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = cellValue(c, shared)
	}
	return cells
}

func cellValue(c xlsxCell, shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
		return ""
	case "b":
		if c.Value == "1" {
			return "true"
		}
		return "false"
	default:
		return c.Value
	}
}

// columnIndex turns the letters of a cell reference such as "AB12" into a
// zero-based column.
func columnIndex(ref string) (int, bool) {
	n := 0
	letters := 0
	for _, r := range ref {
		switch {
		case r >= 'A' && r <= 'Z':
			n = n*26 + int(r-'A'+1)
		case r >= 'a' && r <= 'z':
			n = n*26 + int(r-'a'+1)
		default:
			if letters == 0 {
				return 0, false
			}
			return n - 1, true
		}
		letters++
	}
	if letters == 0 {
		return 0, false
	}
	return n - 1, true
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
