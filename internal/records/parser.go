package records

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTimestampLayout reads day/month/year hour:minute with one- or two-digit day and month.
const DefaultTimestampLayout = "2/1/2006 15:04"

// DefaultMaxAge is the largest accepted age in years.
const DefaultMaxAge = 150

// Options configures a Parser.
type Options struct {
	TimestampLayout string
	MaxAge          int
}

// ParseResult is the outcome of parsing a table. Appointments keep their raw text;
// normalization happens in a later stage.
type ParseResult struct {
	Source        string
	RowsRead      int
	Appointments  []Appointment
	Errors        []ParseError
	InvalidAges   int
	AbsentColumns []string
}

// Parser turns raw rows into typed appointments and flags structurally invalid rows.
type Parser struct {
	layout string
	maxAge int
}

func NewParser(opt Options) *Parser {
	p := &Parser{layout: opt.TimestampLayout, maxAge: opt.MaxAge}
	if p.layout == "" {
		p.layout = DefaultTimestampLayout
	}
	if p.maxAge <= 0 {
		p.maxAge = DefaultMaxAge
	}
	return p
}

// ParseFile reads and parses a CSV, TSV or XLSX file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(t)
}

// Parse converts table rows. Row problems are collected in Errors and never abort the parse;
// only a header lacking required columns is an error.
func (p *Parser) Parse(t *Table) (*ParseResult, error) {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		name := normalizeHeader(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	res := &ParseResult{Source: t.Source}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			res.AbsentColumns = append(res.AbsentColumns, col)
		}
	}
	sort.Strings(res.AbsentColumns)

	width := len(t.Header)
	for i, row := range t.Rows {
		res.RowsRead++
		rowNum := i + 1
		get := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		visitID := get(ColVisitID)
		if len(row) < width {
			res.Errors = append(res.Errors, ParseError{Row: rowNum, VisitID: visitID, Reason: ReasonMalformedRow,
				Detail: fmt.Sprintf("expected %d fields, got %d", width, len(row))})
			continue
		}
		if IsMissing(visitID) {
			res.Errors = append(res.Errors, ParseError{Row: rowNum, Reason: ReasonMissingVisitID})
			continue
		}
		rawTS := get(ColTimestamp)
		ts, ok := p.parseTimestamp(rawTS, t.SerialDates)
		if !ok {
			res.Errors = append(res.Errors, ParseError{Row: rowNum, VisitID: visitID, Reason: ReasonInvalidTimestamp,
				Detail: fmt.Sprintf("cannot parse %q", rawTS)})
			continue
		}
		age, valid := p.parseAge(get(ColAge))
		if !valid {
			res.InvalidAges++
		}
		res.Appointments = append(res.Appointments, Appointment{
			Row:         rowNum,
			VisitID:     visitID,
			BranchName:  get(ColBranchName),
			PatientID:   get(ColPatientID),
			PatientName: get(ColPatientName),
			Gender:      get(ColGender),
			Age:         age,
			DoctorName:  get(ColDoctorName),
			Specialty:   get(ColSpecialty),
			Timestamp:   ts,
			DiseaseName: get(ColDiseaseName),
		})
	}
	return res, nil
}

// excelEpoch is day zero of the 1900 date system as used by spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func (p *Parser) parseTimestamp(s string, serial bool) (time.Time, bool) {
	if IsMissing(s) {
		return time.Time{}, false
	}
	if ts, err := time.Parse(p.layout, s); err == nil {
		return ts, true
	}
	if serial {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			d := time.Duration(math.Round(f*24*60)) * time.Minute
			return excelEpoch.Add(d), true
		}
	}
	return time.Time{}, false
}

// parseAge returns nil for absent ages. valid is false when a value was present but unusable.
func (p *Parser) parseAge(s string) (age *int, valid bool) {
	if IsMissing(s) {
		return nil, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, false
		}
		n = int(f)
	}
	if n < 0 || n > p.maxAge {
		return nil, false
	}
	return &n, true
}
