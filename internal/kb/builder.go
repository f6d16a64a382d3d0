package kb

import (
	"fmt"
	"sort"
	"time"

	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/tables"
)

const dateFormat = "2006-01-02"

// Options configures Build.
type Options struct {
	// Source names the input the tables were derived from.
	Source string
	// TopN limits ranked lists; 0 keeps every entry.
	TopN int
}

// Build computes the knowledge base from derived tables. It is pure and deterministic.
func Build(t *tables.Tables, opt Options) *KnowledgeBase {
	kb := &KnowledgeBase{
		Metadata: Metadata{
			Version:     Version,
			Source:      opt.Source,
			Description: "Aggregated appointment analytics: disease trends, doctor workload, geographic distribution and temporal patterns",
		},
	}
	kb.Analytics.DiseaseTrends = diseaseTrends(t, opt.TopN)
	kb.Analytics.DoctorWorkload = doctorWorkload(t, opt.TopN)
	kb.Analytics.Geographic = geographic(t, opt.TopN)
	kb.Analytics.Temporal = temporal(t)
	kb.Entities = entities(t)
	kb.Summary = summary(t, kb)
	return kb
}

func limit(n, topN int) int {
	if topN > 0 && topN < n {
		return topN
	}
	return n
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return tables.Round2(float64(n) / float64(total) * 100)
}

func diseaseTrends(t *tables.Tables, topN int) DiseaseTrends {
	ranked := make([]tables.Disease, len(t.Diseases))
	copy(ranked, t.Diseases)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	out := DiseaseTrends{
		Overview: DiseaseOverview{TotalUniqueDiseases: len(ranked), TotalCases: t.DiseaseMentions},
		Diseases: []DiseaseStat{},
	}
	for i, d := range ranked[:limit(len(ranked), topN)] {
		out.Diseases = append(out.Diseases, DiseaseStat{
			Rank: i + 1, Name: d.Name, Category: d.Category, CaseCount: d.Count, Percentage: d.Percentage,
		})
	}
	if len(out.Diseases) == 0 {
		out.Interpretation = "No diagnoses were recorded."
		return out
	}
	top := out.Diseases[0]
	out.Overview.MostCommon = &top
	out.Interpretation = fmt.Sprintf("%s is the most common condition with %d cases (%.2f%% of %d recorded diagnoses across %d distinct conditions).",
		top.Name, top.CaseCount, top.Percentage, t.DiseaseMentions, len(ranked))
	return out
}

func doctorWorkload(t *tables.Tables, topN int) DoctorWorkload {
	total := 0
	for _, d := range t.Doctors {
		total += d.Visits
	}
	avg := 0.0
	if len(t.Doctors) > 0 {
		avg = float64(total) / float64(len(t.Doctors))
	}
	ranked := make([]tables.Doctor, len(t.Doctors))
	copy(ranked, t.Doctors)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Visits != ranked[j].Visits {
			return ranked[i].Visits > ranked[j].Visits
		}
		return ranked[i].Name < ranked[j].Name
	})
	out := DoctorWorkload{
		Overview: DoctorOverview{
			TotalDoctors:      len(ranked),
			TotalAppointments: total,
			AverageVisits:     tables.Round2(avg),
		},
		Doctors: []DoctorStat{},
	}
	for i, d := range ranked[:limit(len(ranked), topN)] {
		load := 0.0
		if avg > 0 {
			load = tables.Round2(float64(d.Visits) / avg)
		}
		out.Doctors = append(out.Doctors, DoctorStat{
			Rank: i + 1, Name: d.Name, Specialty: d.Specialty, VisitCount: d.Visits, LoadVsAverage: load,
		})
	}
	if len(out.Doctors) == 0 {
		out.Interpretation = "No doctors were recorded."
		return out
	}
	busiest := out.Doctors[0]
	out.Overview.Busiest = &busiest
	out.Interpretation = fmt.Sprintf("%s is the busiest doctor with %d visits, %.2fx the average of %.2f visits per doctor across %d doctors.",
		busiest.Name, busiest.VisitCount, busiest.LoadVsAverage, out.Overview.AverageVisits, len(ranked))
	return out
}

func geographic(t *tables.Tables, topN int) GeographicDistribution {
	total := len(t.Appointments)
	areaCounts := map[string]int{}
	for _, a := range t.Appointments {
		areaCounts[a.Area]++
	}
	areas := make([]AreaStat, 0, len(areaCounts))
	for name, n := range areaCounts {
		areas = append(areas, AreaStat{Name: name, VisitCount: n, Percentage: percent(n, total)})
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].VisitCount != areas[j].VisitCount {
			return areas[i].VisitCount > areas[j].VisitCount
		}
		return areas[i].Name < areas[j].Name
	})
	areas = areas[:limit(len(areas), topN)]
	for i := range areas {
		areas[i].Rank = i + 1
	}

	branches := make([]BranchStat, 0, len(t.Branches))
	for _, b := range t.Branches {
		branches = append(branches, BranchStat{Name: b.Name, Area: b.Area, VisitCount: b.Visits, Percentage: percent(b.Visits, total)})
	}
	sort.SliceStable(branches, func(i, j int) bool {
		if branches[i].VisitCount != branches[j].VisitCount {
			return branches[i].VisitCount > branches[j].VisitCount
		}
		return branches[i].Name < branches[j].Name
	})
	branches = branches[:limit(len(branches), topN)]
	for i := range branches {
		branches[i].Rank = i + 1
	}

	out := GeographicDistribution{
		Overview: GeographicOverview{TotalAreas: len(areaCounts), TotalBranches: len(t.Branches)},
		Areas:    areas,
		Branches: branches,
	}
	if len(areas) == 0 {
		out.Interpretation = "No visits were recorded."
		return out
	}
	top := areas[0]
	out.Overview.MostServedArea = &top
	out.Interpretation = fmt.Sprintf("%s is the most served area with %d visits (%.2f%% of all visits) across %d areas and %d branches.",
		top.Name, top.VisitCount, top.Percentage, len(areaCounts), len(t.Branches))
	return out
}

func temporal(t *tables.Tables) TemporalPatterns {
	out := TemporalPatterns{Weekdays: []WeekdayStat{}, Months: []MonthStat{}}
	if len(t.Appointments) == 0 {
		out.Interpretation = "No visits were recorded."
		return out
	}
	daily := map[string]int{}
	weekdays := map[time.Weekday]int{}
	months := map[string]int{}
	for _, a := range t.Appointments {
		daily[a.Timestamp.Format(dateFormat)]++
		weekdays[a.Timestamp.Weekday()]++
		months[a.Timestamp.Format("2006-01")]++
	}
	first := dayOf(t.Appointments[0].Timestamp)
	last := dayOf(t.Appointments[len(t.Appointments)-1].Timestamp)
	span := int(last.Sub(first).Hours()/24) + 1

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	peak := DayStat{}
	for _, d := range days {
		if daily[d] > peak.VisitCount {
			peak = DayStat{Date: d, VisitCount: daily[d]}
		}
	}

	total := len(t.Appointments)
	out.Overview = TemporalOverview{
		FirstVisitDate:      first.Format(dateFormat),
		LastVisitDate:       last.Format(dateFormat),
		DaySpan:             span,
		ActiveDays:          len(days),
		AverageDailyVisits:  tables.Round2(float64(total) / float64(span)),
		AveragePerActiveDay: tables.Round2(float64(total) / float64(len(days))),
		PeakDay:             &peak,
	}
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		out.Weekdays = append(out.Weekdays, WeekdayStat{Weekday: wd.String(), VisitCount: weekdays[wd]})
	}
	monthKeys := make([]string, 0, len(months))
	for m := range months {
		monthKeys = append(monthKeys, m)
	}
	sort.Strings(monthKeys)
	for _, m := range monthKeys {
		out.Months = append(out.Months, MonthStat{Month: m, VisitCount: months[m]})
	}
	out.Interpretation = fmt.Sprintf("%d visits over %d calendar days (%d with visits) average %.2f visits per day; the peak was %s with %d visits.",
		total, span, len(days), out.Overview.AverageDailyVisits, peak.Date, peak.VisitCount)
	return out
}

func dayOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entities(t *tables.Tables) Entities {
	out := Entities{
		Doctors:  make([]DoctorEntity, 0, len(t.Doctors)),
		Branches: make([]BranchEntity, 0, len(t.Branches)),
		Diseases: make([]DiseaseEntity, 0, len(t.Diseases)),
		Areas:    []string{},
	}
	for _, d := range t.Doctors {
		out.Doctors = append(out.Doctors, DoctorEntity{Name: d.Name, Specialty: d.Specialty})
	}
	for _, b := range t.Branches {
		out.Branches = append(out.Branches, BranchEntity{Name: b.Name, Area: b.Area})
	}
	for _, d := range t.Diseases {
		out.Diseases = append(out.Diseases, DiseaseEntity{Name: d.Name, Category: d.Category})
	}
	seen := map[string]bool{}
	for _, a := range t.Appointments {
		if !seen[a.Area] {
			seen[a.Area] = true
			out.Areas = append(out.Areas, a.Area)
		}
	}
	sort.Strings(out.Areas)
	return out
}

func summary(t *tables.Tables, kb *KnowledgeBase) Summary {
	patients := map[string]bool{}
	for _, a := range t.Appointments {
		if a.PatientID != "" {
			patients[a.PatientID] = true
		}
	}
	s := Summary{
		TotalAppointments: len(t.Appointments),
		TotalPatients:     len(patients),
		TotalDoctors:      len(t.Doctors),
		TotalBranches:     len(t.Branches),
		TotalAreas:        len(kb.Entities.Areas),
		TotalDiseases:     len(t.Diseases),
		KeyInsights:       []string{},
	}
	a := kb.Analytics
	if d := a.DiseaseTrends.Overview.MostCommon; d != nil {
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("Most common condition: %s (%d cases, %.2f%%)", d.Name, d.CaseCount, d.Percentage))
	}
	if d := a.DoctorWorkload.Overview.Busiest; d != nil {
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("Busiest doctor: %s (%d visits)", d.Name, d.VisitCount))
	}
	if ar := a.Geographic.Overview.MostServedArea; ar != nil {
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("Most served area: %s (%.2f%% of visits)", ar.Name, ar.Percentage))
	}
	if p := a.Temporal.Overview.PeakDay; p != nil {
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("Peak day: %s (%d visits)", p.Date, p.VisitCount))
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("Average daily visits: %.2f over %d calendar days", a.Temporal.Overview.AverageDailyVisits, a.Temporal.Overview.DaySpan))
	}
	if unknown := areaVisits(t, records.AreaUnknown); unknown > 0 {
		s.KeyInsights = append(s.KeyInsights, fmt.Sprintf("%d visits could not be mapped to a known area", unknown))
	}
	return s
}

func areaVisits(t *tables.Tables, area string) int {
	n := 0
	for _, a := range t.Appointments {
		if a.Area == area {
			n++
		}
	}
	return n
}
