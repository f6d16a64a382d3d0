package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a raw tabular input: a header row and the data rows below it.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
	// SerialDates is set for spreadsheet sources where timestamps may arrive as day serial numbers.
	SerialDates bool
}

// ReadTable loads a CSV, TSV or XLSX file based on its extension.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSXTable(path, "")
	case ".tsv":
		return readDelimitedFile(path, '\t')
	default:
		return readDelimitedFile(path, ',')
	}
}

func readDelimitedFile(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	t, err := ReadDelimited(f, comma)
	if err != nil {
		return nil, err
	}
	t.Source = filepath.Base(path)
	return t, nil
}

// ReadDelimited reads delimited text. A UTF-8 or UTF-16 byte order mark is honored and stripped.
func ReadDelimited(r io.Reader, comma rune) (*Table, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(dec)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("input is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// normalizeHeader lowercases a column title and joins words with underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}
