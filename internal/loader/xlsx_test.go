// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetNS = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`

func writeWorkbook(t *testing.T, dir, name string, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for partName, content := range parts {
		w, err := zw.Create(partName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

// pedidosWorkbook has two sheets whose tab order differs from their part
// numbers.
func pedidosWorkbook() map[string]string {
	return map[string]string{
		"xl/workbook.xml": `<workbook ` + sheetNS + ` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
			`<sheets><sheet name="Pedidos" sheetId="1" r:id="rId2"/><sheet name="Extra" sheetId="2" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>` +
			`<Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<sst ` + sheetNS + `>` +
			`<si><t>ID</t></si><si><t>Texto</t></si>` +
			`<si><r><t xml:space="preserve">Meu CPF é </t></r><r><t>123.456.789-09</t></r></si></sst>`,
		"xl/worksheets/sheet2.xml": `<worksheet ` + sheetNS + `><sheetData>` +
			`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
			`<row r="2"><c r="A2"><v>10</v></c><c r="B2" t="s"><v>2</v></c></row>` +
			`<row r="4"><c r="A4"><v>11</v></c><c r="B4" t="inlineStr"><is><t>sem identificador</t></is></c></row>` +
			`<row r="5"><c r="A5"><v>12</v></c></row>` +
			`</sheetData></worksheet>`,
		"xl/worksheets/sheet1.xml": `<worksheet ` + sheetNS + `><sheetData>` +
			`<row r="1"></row>` +
			`<row r="2"><c r="A2" t="inlineStr"><is><t>protocolo</t></is></c><c r="C2" t="inlineStr"><is><t>descricao</t></is></c></row>` +
			`<row r="3"><c r="A3" t="inlineStr"><is><t>P-1</t></is></c><c r="C3" t="inlineStr"><is><t>Buraco na rua</t></is></c></row>` +
			`</sheetData></worksheet>`,
	}
}

func TestLoadRecords_XLSX(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), "pedidos.xlsx", pedidosWorkbook())

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "10", records[0].ID)
	assert.Equal(t, "Meu CPF é 123.456.789-09", records[0].Text)
	assert.Equal(t, path+"#Pedidos", records[0].Source)
	assert.Equal(t, 2, records[0].Line)

	assert.Equal(t, "11", records[1].ID)
	assert.Equal(t, "sem identificador", records[1].Text)
	assert.Equal(t, 4, records[1].Line)

	assert.Equal(t, "12", records[2].ID)
	assert.True(t, records[2].Malformed(), "row without text")

	assert.Equal(t, "P-1", records[3].ID)
	assert.Equal(t, "Buraco na rua", records[3].Text)
	assert.Equal(t, path+"#Extra", records[3].Source)
	assert.Equal(t, 3, records[3].Line)
}

func TestLoadRecords_XLSXWithoutWorkbookPart(t *testing.T) {
	parts := map[string]string{
		"xl/worksheets/sheet10.xml": `<worksheet ` + sheetNS + `><sheetData>` +
			`<row r="1"><c r="A1" t="inlineStr"><is><t>a</t></is></c><c r="B1" t="inlineStr"><is><t>b</t></is></c></row>` +
			`<row r="2"><c r="A2" t="inlineStr"><is><t>x</t></is></c><c r="B2" t="inlineStr"><is><t>texto bem mais comprido</t></is></c></row>` +
			`</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet ` + sheetNS + `><sheetData>` +
			`<row r="1"><c r="A1" t="inlineStr"><is><t>texto</t></is></c></row>` +
			`<row r="2"><c r="A2" t="inlineStr"><is><t>primeiro</t></is></c></row>` +
			`</sheetData></worksheet>`,
	}
	path := writeWorkbook(t, t.TempDir(), "solto.xlsx", parts)

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "primeiro", records[0].Text)
	assert.Equal(t, path+"#sheet2", records[0].Source)
	assert.Equal(t, "2", records[1].ID, "row numbers continue across sheets")
	assert.Equal(t, "texto bem mais comprido", records[1].Text)
}

func TestLoadRecords_XLSXBroken(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadRecords(writeFile(t, dir, "quebrado.xlsx", "not a zip"))
	assert.Error(t, err)

	empty := writeWorkbook(t, dir, "vazio.xlsx", map[string]string{"docProps/core.xml": "<coreProperties/>"})
	_, err = LoadRecords(empty)
	assert.Error(t, err)

	all, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Malformed())
	assert.True(t, all[1].Malformed())
}

func TestLoadLabels_XLSX(t *testing.T) {
	parts := map[string]string{
		"xl/worksheets/sheet1.xml": `<worksheet ` + sheetNS + `><sheetData>` +
			`<row r="1"><c r="A1" t="inlineStr"><is><t>ID</t></is></c><c r="B1" t="inlineStr"><is><t>Rotulo</t></is></c></row>` +
			`<row r="2"><c r="A2"><v>1</v></c><c r="B2"><v>1</v></c></row>` +
			`<row r="3"><c r="A3"><v>2</v></c><c r="B3" t="b"><v>0</v></c></row>` +
			`<row r="4"><c r="A4"><v>3</v></c><c r="B4" t="b"><v>1</v></c></row>` +
			`</sheetData></worksheet>`,
	}
	path := writeWorkbook(t, t.TempDir(), "gabarito.xlsx", parts)

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true, "2": false, "3": true}, labels)
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		ref  string
		want int
		ok   bool
	}{
		{"A1", 0, true},
		{"C7", 2, true},
		{"Z3", 25, true},
		{"AA10", 26, true},
		{"ab2", 27, true},
		{"12", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := columnIndex(tt.ref)
		assert.Equal(t, tt.ok, ok, tt.ref)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.ref)
		}
	}
}
