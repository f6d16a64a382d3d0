// Package records reads raw appointment rows, parses them into typed visits and
// normalizes their text fields.
package records

import (
	"errors"
	"fmt"
	"time"
)

// Input column names after header normalization.
const (
	ColVisitID     = "visit_id"
	ColBranchName  = "branch_name"
	ColPatientID   = "patient_id"
	ColPatientName = "patient_name"
	ColGender      = "gender"
	ColAge         = "age"
	ColDoctorName  = "doctor_name"
	ColSpecialty   = "specialty"
	ColTimestamp   = "visit_timestamp"
	ColDiseaseName = "disease_name"
)

// Columns lists the expected input columns in canonical order.
var Columns = []string{
	ColVisitID, ColBranchName, ColPatientID, ColPatientName, ColGender,
	ColAge, ColDoctorName, ColSpecialty, ColTimestamp, ColDiseaseName,
}

// requiredColumns must be present in the header; the others are treated as missing when absent.
var requiredColumns = []string{ColVisitID, ColTimestamp}

// Rejection reasons recorded on ParseError.
const (
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonMissingVisitID   = "missing_visit_id"
	ReasonDuplicateVisitID = "duplicate_visit_id"
	ReasonMalformedRow     = "malformed_row"
)

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// Appointment is one visit. Empty strings denote missing values; Age is nil when unknown.
type Appointment struct {
	Row         int
	VisitID     string
	BranchName  string
	Area        string
	PatientID   string
	PatientName string
	Gender      string
	Age         *int
	DoctorName  string
	Specialty   string
	Timestamp   time.Time
	DiseaseName string
}

// Field returns the string value of a named column, used for missing-value tallies.
func (a Appointment) Field(col string) string {
	switch col {
	case ColVisitID:
		return a.VisitID
	case ColBranchName:
		return a.BranchName
	case ColPatientID:
		return a.PatientID
	case ColPatientName:
		return a.PatientName
	case ColGender:
		return a.Gender
	case ColAge:
		if a.Age == nil {
			return ""
		}
		return fmt.Sprint(*a.Age)
	case ColDoctorName:
		return a.DoctorName
	case ColSpecialty:
		return a.Specialty
	case ColTimestamp:
		if a.Timestamp.IsZero() {
			return ""
		}
		return a.Timestamp.Format(time.RFC3339)
	case ColDiseaseName:
		return a.DiseaseName
	}
	return ""
}

// ParseError describes a rejected input row. Row is the 1-based data row index.
type ParseError struct {
	Row     int    `json:"row"`
	VisitID string `json:"visit_id,omitempty"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

func (e ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Reason, e.Detail)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// MissingCounts maps a column name to the number of accepted rows lacking a value.
type MissingCounts map[string]int
