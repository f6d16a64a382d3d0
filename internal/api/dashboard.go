package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/KaramelBytes/medloom/internal/kb"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// dashboardListLimit caps the rows of each dashboard table.
const dashboardListLimit = 10

type dashboardData struct {
	Loaded   bool
	KB       *kb.KnowledgeBase
	Diseases []kb.DiseaseStat
	Doctors  []kb.DoctorStat
	Areas    []kb.AreaStat
}

func topRows[T any](s []T) []T {
	if len(s) > dashboardListLimit {
		return s[:dashboardListLimit]
	}
	return s
}

func (s *server) dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{}
	if doc, _, err := s.cfg.Store.Current(); err == nil {
		data = dashboardData{
			Loaded:   true,
			KB:       doc,
			Diseases: topRows(doc.Analytics.DiseaseTrends.Diseases),
			Doctors:  topRows(doc.Analytics.DoctorWorkload.Doctors),
			Areas:    topRows(doc.Analytics.Geographic.Areas),
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Error("render dashboard")
	}
}
