package kb

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: Dr. Zaidi and Dr. Ahmed both have 10 visits, Dr. Khan 4.
func fixture() *tables.Tables {
	var appts []records.Appointment
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	add := func(n int, doctor, specialty, branch, area, disease string, dayOffset int) {
		for i := 0; i < n; i++ {
			appts = append(appts, records.Appointment{
				VisitID:     fmt.Sprintf("V%03d", len(appts)+1),
				PatientID:   fmt.Sprintf("P%02d", len(appts)%7),
				DoctorName:  doctor,
				Specialty:   specialty,
				BranchName:  branch,
				Area:        area,
				DiseaseName: disease,
				Timestamp:   base.AddDate(0, 0, dayOffset).Add(time.Duration(i) * time.Minute),
			})
		}
	}
	add(10, "Dr. Zaidi", "Cardiology", "Korangi Branch", "Korangi", "Hypertension", 0)
	add(10, "Dr. Ahmed", "General Practice", "Gulshan Medical", "Gulshan", "Flu", 2)
	add(3, "Dr. Khan", "General Practice", "Gulshan Medical", "Gulshan", "Flu", 9)
	add(1, "Dr. Khan", "General Practice", "Downtown Clinic", records.AreaUnknown, "", 9)
	return tables.Derive(appts)
}

func TestBusiestDoctorTieBreaksByName(t *testing.T) {
	kb := Build(fixture(), Options{Source: "sample.csv"})
	w := kb.Analytics.DoctorWorkload
	require.NotNil(t, w.Overview.Busiest)
	assert.Equal(t, "Dr. Ahmed", w.Overview.Busiest.Name)
	assert.Equal(t, 10, w.Overview.Busiest.VisitCount)
	assert.Equal(t, []string{"Dr. Ahmed", "Dr. Zaidi", "Dr. Khan"}, []string{w.Doctors[0].Name, w.Doctors[1].Name, w.Doctors[2].Name})
	assert.Equal(t, 8.0, w.Overview.AverageVisits)
	assert.Equal(t, 1.25, w.Doctors[0].LoadVsAverage)
}

func TestDiseaseTrendsInvariants(t *testing.T) {
	tb := fixture()
	kb := Build(tb, Options{})
	d := kb.Analytics.DiseaseTrends
	sum, pct := 0, 0.0
	for _, s := range d.Diseases {
		sum += s.CaseCount
		pct += s.Percentage
	}
	mentions := 0
	for _, a := range tb.Appointments {
		if a.DiseaseName != "" {
			mentions++
		}
	}
	assert.Equal(t, mentions, sum)
	assert.InDelta(t, 100.0, pct, 0.1)
	require.NotNil(t, d.Overview.MostCommon)
	assert.Equal(t, "Flu", d.Overview.MostCommon.Name)
	assert.Equal(t, 13, d.Overview.MostCommon.CaseCount)
}

func TestEntityNamesAppearInAppointments(t *testing.T) {
	tb := fixture()
	kb := Build(tb, Options{})
	doctors, branches, diseases := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, a := range tb.Appointments {
		doctors[a.DoctorName] = true
		branches[a.BranchName] = true
		diseases[a.DiseaseName] = true
	}
	for _, d := range kb.Entities.Doctors {
		assert.True(t, doctors[d.Name], d.Name)
	}
	for _, b := range kb.Analytics.Geographic.Branches {
		assert.True(t, branches[b.Name], b.Name)
	}
	for _, d := range kb.Analytics.DiseaseTrends.Diseases {
		assert.True(t, diseases[d.Name], d.Name)
	}
}

func TestTemporalUsesCalendarSpan(t *testing.T) {
	kb := Build(fixture(), Options{})
	o := kb.Analytics.Temporal.Overview
	assert.Equal(t, "2024-01-01", o.FirstVisitDate)
	assert.Equal(t, "2024-01-10", o.LastVisitDate)
	assert.Equal(t, 10, o.DaySpan)
	assert.Equal(t, 3, o.ActiveDays)
	assert.Equal(t, 2.4, o.AverageDailyVisits)
	assert.Equal(t, 8.0, o.AveragePerActiveDay)
	require.NotNil(t, o.PeakDay)
	assert.Equal(t, DayStat{Date: "2024-01-01", VisitCount: 10}, *o.PeakDay, "ties resolve to the earliest date")
	assert.Len(t, kb.Analytics.Temporal.Weekdays, 7)
	assert.Equal(t, "Monday", kb.Analytics.Temporal.Weekdays[0].Weekday)
}

func TestGeographicAndSummary(t *testing.T) {
	kb := Build(fixture(), Options{TopN: 2})
	g := kb.Analytics.Geographic
	assert.Equal(t, 3, g.Overview.TotalAreas)
	require.Len(t, g.Areas, 2)
	assert.Equal(t, AreaStat{Rank: 1, Name: "Gulshan", VisitCount: 13, Percentage: 54.17}, g.Areas[0])
	assert.Len(t, g.Branches, 2)

	s := kb.Summary
	assert.Equal(t, 24, s.TotalAppointments)
	assert.Equal(t, 7, s.TotalPatients)
	assert.Equal(t, []string{"Gulshan", "Korangi", records.AreaUnknown}, kb.Entities.Areas)
	assert.Contains(t, s.KeyInsights, "Busiest doctor: Dr. Ahmed (10 visits)")
	assert.Contains(t, s.KeyInsights, "1 visits could not be mapped to a known area")
}

func TestBuildIsByteIdentical(t *testing.T) {
	a, err := Encode(Build(fixture(), Options{Source: "x.csv"}))
	require.NoError(t, err)
	b, err := Encode(Build(fixture(), Options{Source: "x.csv"}))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestBuildEmpty(t *testing.T) {
	kb := Build(tables.Derive(nil), Options{})
	assert.Nil(t, kb.Analytics.DiseaseTrends.Overview.MostCommon)
	assert.Nil(t, kb.Analytics.DoctorWorkload.Overview.Busiest)
	assert.Equal(t, "No visits were recorded.", kb.Analytics.Temporal.Interpretation)
	assert.NotPanics(t, func() {
		_ = Context(kb)
		_ = Insights(kb)
	})
}

func TestContextSections(t *testing.T) {
	kb := Build(fixture(), Options{})
	ctx := Context(kb)
	for _, h := range []string{"=== SUMMARY ===", "=== DISEASE TRENDS ===", "=== DOCTOR WORKLOAD ===", "=== GEOGRAPHIC DISTRIBUTION ===", "=== TEMPORAL PATTERNS ==="} {
		assert.Contains(t, ctx, h)
	}
	assert.True(t, strings.HasPrefix(ctx, "=== SUMMARY ==="))
	doc := Section(kb, GroupDoctorWorkload)
	assert.Contains(t, doc, "Busiest doctor: Dr. Ahmed (10 visits)")
	assert.NotContains(t, doc, "DISEASE")

	ins := Insights(kb)
	assert.Contains(t, ins, "## Doctor Workload")
	assert.Contains(t, ins, "| 1 | Dr. Ahmed | General Practice | 10 | 1.25x |")
}
