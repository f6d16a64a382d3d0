// Package tables derives the appointment, doctor, branch and disease relations from
// normalized visits.
package tables

import (
	"math"
	"sort"

	"github.com/KaramelBytes/medloom/internal/records"
)

// CategoryUncategorized is used for diseases never seen with a specialty.
const CategoryUncategorized = "Uncategorized"

type Doctor struct {
	ID        int
	Name      string
	Specialty string
	Visits    int
}

type Branch struct {
	ID     int
	Name   string
	Area   string
	Visits int
}

type Disease struct {
	ID         int
	Name       string
	Category   string
	Count      int
	Percentage float64
}

// Tables is the derived relational view of one run.
type Tables struct {
	Appointments []records.Appointment
	Doctors      []Doctor
	Branches     []Branch
	Diseases     []Disease
	// DiseaseMentions counts appointments with a non-empty disease; it is the percentage base.
	DiseaseMentions int
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// SortAppointments orders visits by timestamp, then visit id.
func SortAppointments(appts []records.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.VisitID < b.VisitID
	})
}

// Derive builds all relations. The input slice is copied, not modified.
func Derive(in []records.Appointment) *Tables {
	appts := make([]records.Appointment, len(in))
	copy(appts, in)
	SortAppointments(appts)

	t := &Tables{Appointments: appts}
	t.Doctors = deriveDoctors(appts)
	t.Branches = deriveBranches(appts)
	t.Diseases, t.DiseaseMentions = deriveDiseases(appts)
	return t
}

func deriveDoctors(appts []records.Appointment) []Doctor {
	byName := map[string]*Doctor{}
	for _, a := range appts {
		if a.DoctorName == "" {
			continue
		}
		d, ok := byName[a.DoctorName]
		if !ok {
			d = &Doctor{Name: a.DoctorName}
			byName[a.DoctorName] = d
		}
		if d.Specialty == "" {
			d.Specialty = a.Specialty
		}
		d.Visits++
	}
	out := make([]Doctor, 0, len(byName))
	for _, d := range byName {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func deriveBranches(appts []records.Appointment) []Branch {
	byName := map[string]*Branch{}
	for _, a := range appts {
		if a.BranchName == "" {
			continue
		}
		b, ok := byName[a.BranchName]
		if !ok {
			b = &Branch{Name: a.BranchName, Area: a.Area}
			byName[a.BranchName] = b
		}
		b.Visits++
	}
	out := make([]Branch, 0, len(byName))
	for _, b := range byName {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func deriveDiseases(appts []records.Appointment) ([]Disease, int) {
	counts := map[string]int{}
	specialties := map[string]map[string]int{}
	total := 0
	for _, a := range appts {
		if a.DiseaseName == "" {
			continue
		}
		total++
		counts[a.DiseaseName]++
		if a.Specialty != "" {
			if specialties[a.DiseaseName] == nil {
				specialties[a.DiseaseName] = map[string]int{}
			}
			specialties[a.DiseaseName][a.Specialty]++
		}
	}
	out := make([]Disease, 0, len(counts))
	for name, n := range counts {
		out = append(out, Disease{
			Name:       name,
			Category:   dominant(specialties[name]),
			Count:      n,
			Percentage: Round2(float64(n) / float64(total) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i].ID = i + 1
	}
	return out, total
}

// dominant returns the most frequent key, ties by name ascending.
func dominant(m map[string]int) string {
	best, bestN := "", 0
	for k, n := range m {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	if best == "" {
		return CategoryUncategorized
	}
	return best
}
