package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for pipeline runs, query answering and the HTTP API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	pipelineRuns   *prometheus.CounterVec
	pipelineRows   *prometheus.CounterVec
	queriesTotal   *prometheus.CounterVec
	primaryLatency *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New registers the collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medloom",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome",
		}, []string{"status"}),
		pipelineRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medloom",
			Subsystem: "pipeline",
			Name:      "rows_total",
			Help:      "Input rows processed by outcome",
		}, []string{"outcome"}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medloom",
			Subsystem: "responder",
			Name:      "queries_total",
			Help:      "Answered queries by path and match state",
		}, []string{"path", "matched"}),
		primaryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medloom",
			Subsystem: "responder",
			Name:      "primary_latency_seconds",
			Help:      "Latency of external model attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medloom",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medloom",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.pipelineRuns, m.pipelineRows, m.queriesTotal, m.primaryLatency, m.httpRequests, m.httpLatency)
	return m
}

func (m *Metrics) ObservePipelineRun(status string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRows(accepted, rejected int) {
	if m == nil {
		return
	}
	m.pipelineRows.WithLabelValues("accepted").Add(float64(accepted))
	m.pipelineRows.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *Metrics) ObserveQuery(path string, matched bool) {
	if m == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.queriesTotal.WithLabelValues(path, label).Inc()
}

func (m *Metrics) ObservePrimaryLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.primaryLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveHTTP(route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
	m.httpLatency.WithLabelValues(route).Observe(seconds)
}
