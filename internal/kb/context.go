package kb

import (
	"fmt"
	"strings"
)

// contextListLimit caps ranked entries per section in rendered text.
const contextListLimit = 10

// contextOrder is the section order of the full context text.
var contextOrder = []Group{GroupSummary, GroupDiseaseTrends, GroupDoctorWorkload, GroupGeographic, GroupTemporal}

// Context renders every group as sectioned plain text, the form handed to external models.
func Context(kb *KnowledgeBase) string {
	var b strings.Builder
	for i, g := range contextOrder {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Section(kb, g))
	}
	return b.String()
}

// Section renders one statistic group as plain text.
func Section(kb *KnowledgeBase, g Group) string {
	var b strings.Builder
	b.WriteString("=== " + strings.ToUpper(g.Title()) + " ===\n")
	a := kb.Analytics
	switch g {
	case GroupSummary:
		s := kb.Summary
		b.WriteString(fmt.Sprintf("Total appointments: %d\n", s.TotalAppointments))
		b.WriteString(fmt.Sprintf("Unique patients: %d\n", s.TotalPatients))
		b.WriteString(fmt.Sprintf("Doctors: %d, branches: %d, areas: %d, conditions: %d\n",
			s.TotalDoctors, s.TotalBranches, s.TotalAreas, s.TotalDiseases))
		if len(s.KeyInsights) > 0 {
			b.WriteString("Key insights:\n")
			for _, k := range s.KeyInsights {
				b.WriteString("  - " + k + "\n")
			}
		}
	case GroupDiseaseTrends:
		d := a.DiseaseTrends
		b.WriteString(fmt.Sprintf("Recorded diagnoses: %d across %d conditions\n", d.Overview.TotalCases, d.Overview.TotalUniqueDiseases))
		if m := d.Overview.MostCommon; m != nil {
			b.WriteString(fmt.Sprintf("Most common: %s (%d cases, %.2f%%)\n", m.Name, m.CaseCount, m.Percentage))
		}
		if len(d.Diseases) > 0 {
			b.WriteString("Top conditions:\n")
			for _, s := range d.Diseases[:limit(len(d.Diseases), contextListLimit)] {
				b.WriteString(fmt.Sprintf("  %d. %s: %d cases (%.2f%%)\n", s.Rank, s.Name, s.CaseCount, s.Percentage))
			}
		}
	case GroupDoctorWorkload:
		d := a.DoctorWorkload
		b.WriteString(fmt.Sprintf("Doctors: %d, average visits per doctor: %.2f\n", d.Overview.TotalDoctors, d.Overview.AverageVisits))
		if m := d.Overview.Busiest; m != nil {
			b.WriteString(fmt.Sprintf("Busiest doctor: %s (%d visits)\n", m.Name, m.VisitCount))
		}
		if len(d.Doctors) > 0 {
			b.WriteString("Workload ranking:\n")
			for _, s := range d.Doctors[:limit(len(d.Doctors), contextListLimit)] {
				spec := ""
				if s.Specialty != "" {
					spec = " (" + s.Specialty + ")"
				}
				b.WriteString(fmt.Sprintf("  %d. %s%s: %d visits, %.2fx average\n", s.Rank, s.Name, spec, s.VisitCount, s.LoadVsAverage))
			}
		}
	case GroupGeographic:
		d := a.Geographic
		b.WriteString(fmt.Sprintf("Areas served: %d, branches: %d\n", d.Overview.TotalAreas, d.Overview.TotalBranches))
		if m := d.Overview.MostServedArea; m != nil {
			b.WriteString(fmt.Sprintf("Most served area: %s (%d visits, %.2f%%)\n", m.Name, m.VisitCount, m.Percentage))
		}
		if len(d.Areas) > 0 {
			b.WriteString("Areas:\n")
			for _, s := range d.Areas[:limit(len(d.Areas), contextListLimit)] {
				b.WriteString(fmt.Sprintf("  %d. %s: %d visits (%.2f%%)\n", s.Rank, s.Name, s.VisitCount, s.Percentage))
			}
		}
		if len(d.Branches) > 0 {
			b.WriteString("Branches:\n")
			for _, s := range d.Branches[:limit(len(d.Branches), contextListLimit)] {
				b.WriteString(fmt.Sprintf("  %d. %s [%s]: %d visits (%.2f%%)\n", s.Rank, s.Name, s.Area, s.VisitCount, s.Percentage))
			}
		}
	case GroupTemporal:
		o := a.Temporal.Overview
		if o.FirstVisitDate == "" {
			b.WriteString("No visits recorded\n")
			break
		}
		b.WriteString(fmt.Sprintf("Period: %s to %s (%d calendar days, %d with visits)\n", o.FirstVisitDate, o.LastVisitDate, o.DaySpan, o.ActiveDays))
		b.WriteString(fmt.Sprintf("Average daily visits: %.2f\n", o.AverageDailyVisits))
		b.WriteString(fmt.Sprintf("Average visits per active day: %.2f\n", o.AveragePerActiveDay))
		if o.PeakDay != nil {
			b.WriteString(fmt.Sprintf("Peak day: %s (%d visits)\n", o.PeakDay.Date, o.PeakDay.VisitCount))
		}
		if len(a.Temporal.Weekdays) > 0 {
			parts := make([]string, 0, len(a.Temporal.Weekdays))
			for _, w := range a.Temporal.Weekdays {
				day := w.Weekday
				if len(day) > 3 {
					day = day[:3]
				}
				parts = append(parts, fmt.Sprintf("%s %d", day, w.VisitCount))
			}
			b.WriteString("By weekday: " + strings.Join(parts, ", ") + "\n")
		}
	}
	return b.String()
}
