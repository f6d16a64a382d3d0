package tables

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/medloom/internal/utils"
)

// Output file names inside the cleaned directory.
const (
	AppointmentsFile = "appointments.csv"
	DoctorsFile      = "doctors.csv"
	BranchesFile     = "branches.csv"
	DiseasesFile     = "diseases.csv"
)

// TimestampFormat is used for visit timestamps in every derived artifact.
const TimestampFormat = "2006-01-02 15:04"

// WriteCSV writes the four relations into dir and returns the written paths in a fixed order.
func (t *Tables) WriteCSV(dir string) ([]string, error) {
	files := []struct {
		name string
		rows [][]string
	}{
		{AppointmentsFile, t.appointmentRows()},
		{DoctorsFile, t.doctorRows()},
		{BranchesFile, t.branchRows()},
		{DiseasesFile, t.diseaseRows()},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		b, err := encodeCSV(f.rows)
		if err != nil {
			return paths, fmt.Errorf("encode %s: %w", f.name, err)
		}
		p := filepath.Join(dir, f.name)
		if err := utils.SafeWriteFile(p, b); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tables) appointmentRows() [][]string {
	rows := [][]string{{
		"visit_id", "visit_timestamp", "branch_name", "area", "patient_id", "patient_name",
		"gender", "age", "doctor_name", "specialty", "disease_name",
	}}
	for _, a := range t.Appointments {
		age := ""
		if a.Age != nil {
			age = strconv.Itoa(*a.Age)
		}
		rows = append(rows, []string{
			a.VisitID, a.Timestamp.Format(TimestampFormat), a.BranchName, a.Area, a.PatientID, a.PatientName,
			a.Gender, age, a.DoctorName, a.Specialty, a.DiseaseName,
		})
	}
	return rows
}

func (t *Tables) doctorRows() [][]string {
	rows := [][]string{{"doctor_id", "doctor_name", "specialty", "visit_count"}}
	for _, d := range t.Doctors {
		rows = append(rows, []string{strconv.Itoa(d.ID), d.Name, d.Specialty, strconv.Itoa(d.Visits)})
	}
	return rows
}

func (t *Tables) branchRows() [][]string {
	rows := [][]string{{"branch_id", "branch_name", "area", "visit_count"}}
	for _, b := range t.Branches {
		rows = append(rows, []string{strconv.Itoa(b.ID), b.Name, b.Area, strconv.Itoa(b.Visits)})
	}
	return rows
}

func (t *Tables) diseaseRows() [][]string {
	rows := [][]string{{"disease_id", "disease_name", "category", "case_count", "percentage"}}
	for _, d := range t.Diseases {
		rows = append(rows, []string{
			strconv.Itoa(d.ID), d.Name, d.Category, strconv.Itoa(d.Count), strconv.FormatFloat(d.Percentage, 'f', 2, 64),
		})
	}
	return rows
}
