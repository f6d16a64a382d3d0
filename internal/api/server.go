// Package api serves the knowledge base, the cleaning report and the query responder over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/logging"
	"github.com/KaramelBytes/medloom/internal/metrics"
	"github.com/KaramelBytes/medloom/internal/quality"
	"github.com/KaramelBytes/medloom/internal/responder"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Config holds server dependencies. Store and Responder are required.
type Config struct {
	Store      *kb.Store
	Responder  *responder.Responder
	CleanedDir string

	Logger         logrus.FieldLogger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// ChatRate is the allowed chat queries per second per client; 0 disables limiting.
	ChatRate  float64
	ChatBurst int
}

type server struct {
	cfg Config
	log logrus.FieldLogger
}

// New creates the chi router with every route configured.
func New(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	s := &server{cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/", s.dashboard)
	r.Get("/health", s.health)
	r.Get("/quality", s.quality)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", s.group(kb.GroupSummary))
		r.Get("/disease-trends", s.group(kb.GroupDiseaseTrends))
		r.Get("/doctor-workload", s.group(kb.GroupDoctorWorkload))
		r.Get("/geographic-distribution", s.group(kb.GroupGeographic))
		r.Get("/temporal-patterns", s.group(kb.GroupTemporal))
		r.Post("/search", s.search)
	})
	r.With(rateLimit(cfg.ChatRate, cfg.ChatBurst)).Post("/chat/query", s.chat)
	r.Post("/admin/reload", s.reload)
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// current returns the loaded knowledge base or writes 503.
func (s *server) current(w http.ResponseWriter) (*kb.KnowledgeBase, bool) {
	doc, _, err := s.cfg.Store.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base not loaded; run the pipeline first")
		return nil, false
	}
	return doc, true
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	loaded, at := s.cfg.Store.Loaded()
	resp := map[string]any{"status": "ok", "kb_loaded": loaded}
	if loaded {
		resp["kb_loaded_at"] = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) group(g kb.Group) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := s.current(w)
		if !ok {
			return
		}
		var payload any
		switch g {
		case kb.GroupSummary:
			payload = doc.Summary
		case kb.GroupDiseaseTrends:
			payload = doc.Analytics.DiseaseTrends
		case kb.GroupDoctorWorkload:
			payload = doc.Analytics.DoctorWorkload
		case kb.GroupGeographic:
			payload = doc.Analytics.Geographic
		case kb.GroupTemporal:
			payload = doc.Analytics.Temporal
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *server) quality(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile(filepath.Join(s.cfg.CleanedDir, quality.ReportFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "cleaning report not found; run the pipeline first")
			return
		}
		writeError(w, http.StatusInternalServerError, "read cleaning report")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

type queryRequest struct {
	Query string `json:"query"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return "", false
	}
	return req.Query, true
}

type searchHit struct {
	responder.GroupMatch
	Title   string `json:"title"`
	Section string `json:"section"`
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	doc, ok := s.current(w)
	if !ok {
		return
	}
	hits := []searchHit{}
	for _, m := range responder.Match(doc, q) {
		hits = append(hits, searchHit{GroupMatch: m, Title: m.Group.Title(), Section: kb.Section(doc, m.Group)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits})
}

func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuery(w, r)
	if !ok {
		return
	}
	ans, err := s.cfg.Responder.Answer(r.Context(), q)
	switch {
	case errors.Is(err, kb.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "knowledge base not loaded; run the pipeline first")
		return
	case errors.Is(err, responder.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query is required")
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		s.log.WithError(err).Error("chat query failed")
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Store.Reload(); err != nil {
		s.log.WithError(err).Warn("knowledge base reload failed")
		writeError(w, http.StatusServiceUnavailable, "reload failed: "+err.Error())
		return
	}
	_, at := s.cfg.Store.Loaded()
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "kb_loaded_at": at.UTC().Format(time.RFC3339)})
}
