package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/tables"
)

func sampleTables() *tables.Tables {
	age := 34
	ts := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	return tables.Derive([]records.Appointment{
		{VisitID: "V1", DoctorName: "Dr. Ahmed", Specialty: "Cardiology", BranchName: "Clifton Clinic", Area: "Clifton", DiseaseName: "Hypertension", Age: &age, Timestamp: ts},
		{VisitID: "V2", DoctorName: "Dr. Ahmed", Specialty: "Cardiology", BranchName: "Clifton Clinic", Area: "Clifton", DiseaseName: "Flu", Timestamp: ts.Add(time.Hour)},
		{VisitID: "V3", DoctorName: "Dr. Khan", BranchName: "Saddar Medical", Area: "Saddar", Timestamp: ts.Add(2 * time.Hour)},
	})
}

func TestReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "medloom.db"))
	require.NoError(t, err)
	defer s.Close()

	// replacing twice must not duplicate rows
	require.NoError(t, s.Replace(ctx, sampleTables()))
	require.NoError(t, s.Replace(ctx, sampleTables()))

	want := map[string]int{"appointments": 3, "doctors": 2, "branches": 2, "diseases": 2}
	for table, n := range want {
		got, err := s.Count(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, n, got, table)
	}
	visits, err := s.DoctorVisits(ctx, "Dr. Ahmed")
	require.NoError(t, err)
	assert.Equal(t, 2, visits)

	_, err = s.Count(ctx, "patients; DROP TABLE doctors")
	assert.Error(t, err)
}
