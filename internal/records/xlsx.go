package records

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// readXLSXTable loads one worksheet of an .xlsx workbook. An empty sheet name selects the first sheet.
// Short rows are padded to the header width and blank rows are skipped.
func readXLSXTable(p, sheet string) (*Table, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	wb, err := openWorkbook(b)
	if err != nil {
		return nil, err
	}
	target, err := wb.sheetPath(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	rows := wb.rows(target)
	if len(rows) == 0 {
		return nil, errors.New("input is empty")
	}
	t := &Table{Source: filepath.Base(p), Header: rows[0], SerialDates: true}
	width := len(t.Header)
	for _, r := range rows[1:] {
		if blankRow(r) {
			continue
		}
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			r = padded
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type sheetEntry struct {
	name string
	id   int
	rid  string
}

type workbook struct {
	zr     *zip.Reader
	sheets []sheetEntry
	rels   map[string]string
	shared []string
}

func openWorkbook(b []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb := &workbook{zr: zr}
	wb.sheets = parseSheetEntries(wb.file("xl/workbook.xml"))
	wb.rels = parseRels(wb.file("xl/_rels/workbook.xml.rels"))
	wb.shared = parseSharedStrings(wb.file("xl/sharedStrings.xml"))
	return wb, nil
}

func (wb *workbook) file(name string) []byte {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// sheetPath resolves a sheet name to its part path inside the archive.
func (wb *workbook) sheetPath(name string) (string, error) {
	if name == "" {
		if len(wb.sheets) > 0 {
			if target, ok := wb.rels[wb.sheets[0].rid]; ok {
				return relToPart(target), nil
			}
		}
		return "xl/worksheets/sheet1.xml", nil
	}
	names := make([]string, 0, len(wb.sheets))
	for _, s := range wb.sheets {
		if strings.EqualFold(s.name, name) {
			if target, ok := wb.rels[s.rid]; ok {
				return relToPart(target), nil
			}
			return fmt.Sprintf("xl/worksheets/sheet%d.xml", s.id), nil
		}
		names = append(names, s.name)
	}
	return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(names, ", "))
}

// relToPart converts a relationship target ("worksheets/sheet1.xml" or "/xl/worksheets/sheet1.xml")
// to a zip entry name.
func relToPart(target string) string {
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

func parseSheetEntries(data []byte) []sheetEntry {
	var out []sheetEntry
	eachStart(data, "sheet", func(se xml.StartElement) {
		var s sheetEntry
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "sheetId":
				s.id, _ = strconv.Atoi(a.Value)
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

func parseRels(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, "Relationship", func(se xml.StartElement) {
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

// eachStart calls fn for every start element with the given local name.
func eachStart(data []byte, local string, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			fn(se)
		}
	}
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inText = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inText {
				buf.Write(se)
			}
		}
	}
}

// rows decodes every <row> of a worksheet part into string cells.
func (wb *workbook) rows(part string) [][]string {
	data := wb.file(part)
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out [][]string
	var cur []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "row":
				cur = nil
			case "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(cur)
				}
				for len(cur) <= col {
					cur = append(cur, "")
				}
				cur[col] = wb.cellValue(dec, typ)
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				out = append(out, cur)
			}
		}
	}
}

// cellValue consumes tokens up to </c> and returns the cell text, resolving shared strings.
func (wb *workbook) cellValue(dec *xml.Decoder, typ string) string {
	var val strings.Builder
	inValue := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return val.String()
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				inValue = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				if typ == "s" {
					idx, err := strconv.Atoi(strings.TrimSpace(val.String()))
					if err != nil || idx < 0 || idx >= len(wb.shared) {
						return ""
					}
					return wb.shared[idx]
				}
				return val.String()
			}
		case xml.CharData:
			if inValue {
				val.Write(se)
			}
		}
	}
}

// columnIndex converts a cell reference like "C12" to a 0-based column index, or -1 when absent.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
