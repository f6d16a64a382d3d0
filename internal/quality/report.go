// Package quality summarizes what a pipeline run accepted, rejected and found missing.
package quality

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/tables"
)

// ReportFile is the file name of the JSON report inside the cleaned directory.
const ReportFile = "cleaning_report.json"

// Status values.
const (
	StatusOK       = "ok"
	StatusWarnings = "warnings"
)

// RunInfo identifies a run. Only these fields may differ between runs over identical input.
type RunInfo struct {
	RunID       string
	GeneratedAt time.Time
}

type RowCounts struct {
	Read     int `json:"read"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

type DistinctCounts struct {
	Patients int `json:"patients"`
	Doctors  int `json:"doctors"`
	Branches int `json:"branches"`
	Areas    int `json:"areas"`
	Diseases int `json:"diseases"`
}

type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Check is one named validation outcome.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report is the data-quality report of one run.
type Report struct {
	RunID            string                `json:"run_id"`
	GeneratedAt      string                `json:"generated_at"`
	InputFile        string                `json:"input_file"`
	Status           string                `json:"status"`
	Rows             RowCounts             `json:"rows"`
	RejectionReasons map[string]int        `json:"rejection_reasons"`
	Rejections       []records.ParseError  `json:"rejections"`
	MissingValues    records.MissingCounts `json:"missing_values"`
	InvalidAges      int                   `json:"invalid_ages"`
	Distinct         DistinctCounts        `json:"distinct"`
	DateRange        DateRange             `json:"date_range"`
	Checks           []Check               `json:"checks"`
}

// Build assembles the report. It performs no I/O.
func Build(run RunInfo, parsed *records.ParseResult, norm *records.NormalizeResult, t *tables.Tables) *Report {
	rejections := make([]records.ParseError, 0, len(parsed.Errors)+len(norm.Duplicates))
	rejections = append(rejections, parsed.Errors...)
	rejections = append(rejections, norm.Duplicates...)
	sort.SliceStable(rejections, func(i, j int) bool { return rejections[i].Row < rejections[j].Row })

	reasons := map[string]int{}
	for _, r := range rejections {
		reasons[r.Reason]++
	}

	r := &Report{
		RunID:       run.RunID,
		GeneratedAt: run.GeneratedAt.UTC().Format(time.RFC3339),
		InputFile:   parsed.Source,
		Rows: RowCounts{
			Read:     parsed.RowsRead,
			Accepted: len(t.Appointments),
			Rejected: len(rejections),
		},
		RejectionReasons: reasons,
		Rejections:       rejections,
		MissingValues:    norm.Missing,
		InvalidAges:      parsed.InvalidAges,
		Distinct:         distinct(t),
	}
	if n := len(t.Appointments); n > 0 {
		r.DateRange = DateRange{
			Start: t.Appointments[0].Timestamp.Format(tables.TimestampFormat),
			End:   t.Appointments[n-1].Timestamp.Format(tables.TimestampFormat),
		}
	}
	r.Checks = checks(parsed, reasons, t)
	r.Status = StatusOK
	for _, c := range r.Checks {
		if !c.Passed {
			r.Status = StatusWarnings
			break
		}
	}
	return r
}

func distinct(t *tables.Tables) DistinctCounts {
	patients := map[string]bool{}
	areas := map[string]bool{}
	for _, a := range t.Appointments {
		if a.PatientID != "" {
			patients[a.PatientID] = true
		}
		areas[a.Area] = true
	}
	return DistinctCounts{
		Patients: len(patients),
		Doctors:  len(t.Doctors),
		Branches: len(t.Branches),
		Areas:    len(areas),
		Diseases: len(t.Diseases),
	}
}

func checks(parsed *records.ParseResult, reasons map[string]int, t *tables.Tables) []Check {
	out := []Check{
		{Name: "expected_columns", Passed: len(parsed.AbsentColumns) == 0},
		{Name: "timestamps_parsed", Passed: reasons[records.ReasonInvalidTimestamp] == 0},
		{Name: "unique_visit_ids", Passed: reasons[records.ReasonDuplicateVisitID] == 0},
		{Name: "age_range", Passed: parsed.InvalidAges == 0},
	}
	if len(parsed.AbsentColumns) > 0 {
		out[0].Detail = "absent: " + strings.Join(parsed.AbsentColumns, ", ")
	}
	if n := reasons[records.ReasonInvalidTimestamp]; n > 0 {
		out[1].Detail = fmt.Sprintf("%d rows with unparseable timestamps", n)
	}
	if n := reasons[records.ReasonDuplicateVisitID]; n > 0 {
		out[2].Detail = fmt.Sprintf("%d duplicate visit ids dropped", n)
	}
	if parsed.InvalidAges > 0 {
		out[3].Detail = fmt.Sprintf("%d ages outside 0..max or non-numeric set to null", parsed.InvalidAges)
	}
	sum := 0
	for _, d := range t.Diseases {
		sum += d.Count
	}
	consistent := Check{Name: "disease_counts_consistent", Passed: sum == t.DiseaseMentions}
	if !consistent.Passed {
		consistent.Detail = fmt.Sprintf("per-disease sum %d != mentions %d", sum, t.DiseaseMentions)
	}
	return append(out, consistent)
}
