// Package kb builds, persists and renders the analytics knowledge base.
package kb

// Version of the knowledge-base document layout.
const Version = "1.0"

// File names inside the knowledge-base directory.
const (
	FileName     = "analytics_kb.json"
	InsightsFile = "analytics_insights.md"
)

// Group identifies one statistic group of the knowledge base.
type Group string

const (
	GroupDiseaseTrends  Group = "disease_trends"
	GroupDoctorWorkload Group = "doctor_workload"
	GroupGeographic     Group = "geographic_distribution"
	GroupTemporal       Group = "temporal_patterns"
	GroupSummary        Group = "summary"
)

// Groups lists every group in its fixed order. The order breaks ties during matching.
var Groups = []Group{GroupDiseaseTrends, GroupDoctorWorkload, GroupGeographic, GroupTemporal, GroupSummary}

// Title returns the display title of a group.
func (g Group) Title() string {
	switch g {
	case GroupDiseaseTrends:
		return "Disease Trends"
	case GroupDoctorWorkload:
		return "Doctor Workload"
	case GroupGeographic:
		return "Geographic Distribution"
	case GroupTemporal:
		return "Temporal Patterns"
	case GroupSummary:
		return "Summary"
	}
	return string(g)
}

// KnowledgeBase is the persisted analytics document. It holds no run timestamps so that
// identical input produces an identical document.
type KnowledgeBase struct {
	Metadata  Metadata  `json:"metadata"`
	Analytics Analytics `json:"analytics"`
	Entities  Entities  `json:"entities"`
	Summary   Summary   `json:"summary"`
}

type Metadata struct {
	Version     string `json:"version"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

type Analytics struct {
	DiseaseTrends  DiseaseTrends          `json:"disease_trends"`
	DoctorWorkload DoctorWorkload         `json:"doctor_workload"`
	Geographic     GeographicDistribution `json:"geographic_distribution"`
	Temporal       TemporalPatterns       `json:"temporal_patterns"`
}

type DiseaseStat struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"disease_name"`
	Category   string  `json:"category"`
	CaseCount  int     `json:"case_count"`
	Percentage float64 `json:"percentage"`
}

type DiseaseOverview struct {
	TotalUniqueDiseases int          `json:"total_unique_diseases"`
	TotalCases          int          `json:"total_cases"`
	MostCommon          *DiseaseStat `json:"most_common_disease,omitempty"`
}

type DiseaseTrends struct {
	Overview       DiseaseOverview `json:"overview"`
	Diseases       []DiseaseStat   `json:"diseases"`
	Interpretation string          `json:"interpretation"`
}

type DoctorStat struct {
	Rank          int     `json:"rank"`
	Name          string  `json:"doctor_name"`
	Specialty     string  `json:"specialty"`
	VisitCount    int     `json:"visit_count"`
	LoadVsAverage float64 `json:"load_vs_average"`
}

type DoctorOverview struct {
	TotalDoctors      int         `json:"total_doctors"`
	TotalAppointments int         `json:"total_appointments"`
	AverageVisits     float64     `json:"average_visits_per_doctor"`
	Busiest           *DoctorStat `json:"busiest_doctor,omitempty"`
}

type DoctorWorkload struct {
	Overview       DoctorOverview `json:"overview"`
	Doctors        []DoctorStat   `json:"doctors"`
	Interpretation string         `json:"interpretation"`
}

type AreaStat struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"area_name"`
	VisitCount int     `json:"visit_count"`
	Percentage float64 `json:"percentage"`
}

type BranchStat struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"branch_name"`
	Area       string  `json:"area"`
	VisitCount int     `json:"visit_count"`
	Percentage float64 `json:"percentage"`
}

type GeographicOverview struct {
	TotalAreas     int       `json:"total_areas_served"`
	TotalBranches  int       `json:"total_branches"`
	MostServedArea *AreaStat `json:"most_served_area,omitempty"`
}

type GeographicDistribution struct {
	Overview       GeographicOverview `json:"overview"`
	Areas          []AreaStat         `json:"areas"`
	Branches       []BranchStat       `json:"branches"`
	Interpretation string             `json:"interpretation"`
}

type DayStat struct {
	Date       string `json:"date"`
	VisitCount int    `json:"visit_count"`
}

type WeekdayStat struct {
	Weekday    string `json:"weekday"`
	VisitCount int    `json:"visit_count"`
}

type MonthStat struct {
	Month      string `json:"month"`
	VisitCount int    `json:"visit_count"`
}

type TemporalOverview struct {
	FirstVisitDate      string   `json:"first_visit_date,omitempty"`
	LastVisitDate       string   `json:"last_visit_date,omitempty"`
	DaySpan             int      `json:"day_span"`
	ActiveDays          int      `json:"active_days"`
	AverageDailyVisits  float64  `json:"average_daily_visits"`
	AveragePerActiveDay float64  `json:"average_visits_per_active_day"`
	PeakDay             *DayStat `json:"peak_day,omitempty"`
}

type TemporalPatterns struct {
	Overview       TemporalOverview `json:"overview"`
	Weekdays       []WeekdayStat    `json:"weekday_distribution"`
	Months         []MonthStat      `json:"monthly_visits"`
	Interpretation string           `json:"interpretation"`
}

type Entities struct {
	Doctors  []DoctorEntity  `json:"doctors"`
	Branches []BranchEntity  `json:"branches"`
	Diseases []DiseaseEntity `json:"diseases"`
	Areas    []string        `json:"areas"`
}

type DoctorEntity struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type BranchEntity struct {
	Name string `json:"name"`
	Area string `json:"area"`
}

type DiseaseEntity struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Summary struct {
	TotalAppointments int      `json:"total_appointments"`
	TotalPatients     int      `json:"total_patients"`
	TotalDoctors      int      `json:"total_doctors"`
	TotalBranches     int      `json:"total_branches"`
	TotalAreas        int      `json:"total_areas"`
	TotalDiseases     int      `json:"total_diseases_recorded"`
	KeyInsights       []string `json:"key_insights"`
}
