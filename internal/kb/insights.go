package kb

import (
	"fmt"
	"strings"
)

// Insights renders the human-readable insights summary written next to the knowledge base.
func Insights(kb *KnowledgeBase) string {
	var b strings.Builder
	b.WriteString("# Appointment Analytics Insights\n\n")
	if kb.Metadata.Source != "" {
		b.WriteString(fmt.Sprintf("Source: `%s`\n\n", kb.Metadata.Source))
	}

	b.WriteString("## Summary\n\n")
	s := kb.Summary
	b.WriteString("| Metric | Value |\n|---|---|\n")
	b.WriteString(fmt.Sprintf("| Appointments | %d |\n", s.TotalAppointments))
	b.WriteString(fmt.Sprintf("| Unique patients | %d |\n", s.TotalPatients))
	b.WriteString(fmt.Sprintf("| Doctors | %d |\n", s.TotalDoctors))
	b.WriteString(fmt.Sprintf("| Branches | %d |\n", s.TotalBranches))
	b.WriteString(fmt.Sprintf("| Areas | %d |\n", s.TotalAreas))
	b.WriteString(fmt.Sprintf("| Conditions | %d |\n\n", s.TotalDiseases))
	for _, k := range s.KeyInsights {
		b.WriteString("- " + k + "\n")
	}
	if len(s.KeyInsights) > 0 {
		b.WriteString("\n")
	}

	a := kb.Analytics
	sections := []struct {
		g      Group
		interp string
		rows   [][]string
		head   []string
	}{
		{GroupDiseaseTrends, a.DiseaseTrends.Interpretation, diseaseRows(a.DiseaseTrends), []string{"Rank", "Condition", "Category", "Cases", "%"}},
		{GroupDoctorWorkload, a.DoctorWorkload.Interpretation, doctorRows(a.DoctorWorkload), []string{"Rank", "Doctor", "Specialty", "Visits", "vs avg"}},
		{GroupGeographic, a.Geographic.Interpretation, areaRows(a.Geographic), []string{"Rank", "Area", "Visits", "%"}},
		{GroupTemporal, a.Temporal.Interpretation, weekdayRows(a.Temporal), []string{"Weekday", "Visits"}},
	}
	for _, sec := range sections {
		b.WriteString("## " + sec.g.Title() + "\n\n")
		b.WriteString(sec.interp + "\n\n")
		if len(sec.rows) == 0 {
			continue
		}
		b.WriteString("| " + strings.Join(sec.head, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat("---|", len(sec.head)) + "\n")
		for _, r := range sec.rows {
			b.WriteString("| " + strings.Join(r, " | ") + " |\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func diseaseRows(d DiseaseTrends) [][]string {
	var rows [][]string
	for _, s := range d.Diseases[:limit(len(d.Diseases), contextListLimit)] {
		rows = append(rows, []string{fmt.Sprint(s.Rank), s.Name, s.Category, fmt.Sprint(s.CaseCount), fmt.Sprintf("%.2f", s.Percentage)})
	}
	return rows
}

func doctorRows(d DoctorWorkload) [][]string {
	var rows [][]string
	for _, s := range d.Doctors[:limit(len(d.Doctors), contextListLimit)] {
		rows = append(rows, []string{fmt.Sprint(s.Rank), s.Name, s.Specialty, fmt.Sprint(s.VisitCount), fmt.Sprintf("%.2fx", s.LoadVsAverage)})
	}
	return rows
}

func areaRows(d GeographicDistribution) [][]string {
	var rows [][]string
	for _, s := range d.Areas[:limit(len(d.Areas), contextListLimit)] {
		rows = append(rows, []string{fmt.Sprint(s.Rank), s.Name, fmt.Sprint(s.VisitCount), fmt.Sprintf("%.2f", s.Percentage)})
	}
	return rows
}

func weekdayRows(d TemporalPatterns) [][]string {
	var rows [][]string
	for _, w := range d.Weekdays {
		rows = append(rows, []string{w.Weekday, fmt.Sprint(w.VisitCount)})
	}
	return rows
}
