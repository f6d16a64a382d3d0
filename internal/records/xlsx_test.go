package records

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkbook builds a minimal single-sheet workbook using shared and inline strings.
func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	parts := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Visits" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/sheet1.xml"/>
</Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>visit_id</t></si><si><t>visit_timestamp</t></si><si><t>disease_name</t></si><si><t>Flu</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c></row>
<row r="2"><c r="A2" t="inlineStr"><is><t>V1</t></is></c><c r="B2"><v>45323.4375</v></c><c r="C2" t="s"><v>3</v></c></row>
<row r="3"></row>
<row r="4"><c r="A4" t="inlineStr"><is><t>V2</t></is></c><c r="B4" t="inlineStr"><is><t>2/2/2024 11:00</t></is></c></row>
</sheetData></worksheet>`,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestParseFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.xlsx")
	writeWorkbook(t, path)

	res, err := NewParser(Options{}).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsRead, "blank rows are skipped")
	require.Len(t, res.Appointments, 2)

	first := res.Appointments[0]
	assert.Equal(t, "V1", first.VisitID)
	assert.Equal(t, "Flu", first.DiseaseName)
	assert.Equal(t, "2024-02-01 10:30", first.Timestamp.Format("2006-01-02 15:04"), "serial date converted")

	second := res.Appointments[1]
	assert.Equal(t, "", second.DiseaseName, "short row padded")
	assert.Equal(t, 2, second.Timestamp.Day())
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A1"))
	assert.Equal(t, 2, columnIndex("C12"))
	assert.Equal(t, 27, columnIndex("AB3"))
	assert.Equal(t, -1, columnIndex(""))
}

func TestSheetPathUnknownSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.xlsx")
	writeWorkbook(t, path)
	_, err := readXLSXTable(path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Visits")
}
