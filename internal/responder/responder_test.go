package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medloom/internal/ai"
	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/metrics"
	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/tables"
)

type fakeRuntime struct {
	calls int32
	fn    func(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error)
}

func (f *fakeRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, req)
}

func reply(text string) *ai.GenerateResponse {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: text}}}}
}

// Dr. A and Dr. B tie at 10 visits.
func tieStore(t *testing.T) *kb.Store {
	t.Helper()
	var appts []records.Appointment
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	add := func(n int, doctor, branch, area, disease string) {
		for i := 0; i < n; i++ {
			appts = append(appts, records.Appointment{
				VisitID:     fmt.Sprintf("V%04d", len(appts)+1),
				PatientID:   fmt.Sprintf("P%d", len(appts)%5),
				DoctorName:  doctor,
				Specialty:   "General Practice",
				BranchName:  branch,
				Area:        area,
				DiseaseName: disease,
				Timestamp:   base.Add(time.Duration(len(appts)) * time.Hour),
			})
		}
	}
	add(10, "Dr. B", "Clifton Clinic", "Clifton", "Flu")
	add(10, "Dr. A", "Saddar Medical", "Saddar", "Diabetes")
	s := kb.NewStore("unused.json")
	require.NoError(t, s.Set(kb.Build(tables.Derive(appts), kb.Options{Source: "fixture"})))
	return s
}

func TestFallbackBusiestDoctorTie(t *testing.T) {
	r, err := New(tieStore(t), Options{})
	require.NoError(t, err)
	ans, err := r.Answer(context.Background(), "Who is the busiest doctor?")
	require.NoError(t, err)
	assert.Equal(t, PathFallback, ans.Path)
	assert.Equal(t, kb.GroupDoctorWorkload, ans.Group)
	assert.Contains(t, ans.Text, "Busiest doctor: Dr. A (10 visits)")
}

func TestForcedPrimaryFailureFallsBack(t *testing.T) {
	rt := &fakeRuntime{fn: func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, &ai.QuotaExceededError{APIError: &ai.APIError{StatusCode: 429, Message: "quota"}}
	}}
	r, err := New(tieStore(t), Options{Runtime: rt, Model: "m"})
	require.NoError(t, err)

	ans, err := r.Answer(context.Background(), "which disease is most common")
	require.NoError(t, err)
	assert.Equal(t, PathFallback, ans.Path)
	assert.True(t, ans.Matched)
	assert.Equal(t, kb.GroupDiseaseTrends, ans.Group)
	assert.NotEmpty(t, strings.TrimSpace(ans.Text))
	var q *ai.QuotaExceededError
	assert.True(t, errors.As(ans.Err, &q))

	ans, err = r.Answer(context.Background(), "what is the weather on mars")
	require.NoError(t, err)
	assert.Equal(t, PathFallback, ans.Path)
	assert.False(t, ans.Matched)
	assert.Equal(t, NoMatchAnswer, ans.Text)

	// no breaker: every query tries the primary again
	assert.Equal(t, int32(2), atomic.LoadInt32(&rt.calls))
}

func TestEmptyPrimaryReplyFallsBack(t *testing.T) {
	rt := &fakeRuntime{fn: func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return reply("   "), nil
	}}
	r, err := New(tieStore(t), Options{Runtime: rt})
	require.NoError(t, err)
	ans, err := r.Answer(context.Background(), "summary please")
	require.NoError(t, err)
	assert.Equal(t, PathFallback, ans.Path)
	assert.Equal(t, kb.GroupSummary, ans.Group)
	assert.Error(t, ans.Err)
}

func TestPrimaryTimeoutFallsBack(t *testing.T) {
	rt := &fakeRuntime{fn: func(ctx context.Context, _ ai.GenerateRequest) (*ai.GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r, err := New(tieStore(t), Options{Runtime: rt, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	start := time.Now()
	ans, err := r.Answer(context.Background(), "which area has the most visits")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, PathFallback, ans.Path)
	assert.Equal(t, kb.GroupGeographic, ans.Group)
	require.Error(t, ans.Err)
	assert.Contains(t, ans.Err.Error(), "timed out")
}

func TestPrimaryAnswerIsCached(t *testing.T) {
	var prompt string
	rt := &fakeRuntime{fn: func(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
		prompt = req.Messages[0].Content
		return reply("Dr. A and Dr. B each saw 10 patients."), nil
	}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r, err := New(tieStore(t), Options{Runtime: rt, Model: "m", CacheSize: 8, Metrics: m, ContextTokenLimit: 4000})
	require.NoError(t, err)

	first, err := r.Answer(context.Background(), "Busiest doctor?")
	require.NoError(t, err)
	assert.Equal(t, PathExternal, first.Path)
	assert.False(t, first.Cached)
	assert.Contains(t, prompt, "=== DOCTOR WORKLOAD ===")

	second, err := r.Answer(context.Background(), "  busiest   DOCTOR? ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rt.calls))
	assert.Equal(t, 2.0, counterValue(t, reg, "medloom_responder_queries_total", string(PathExternal)))
}

// counterValue sums the samples of a counter family whose path label equals path.
func counterValue(t *testing.T, reg *prometheus.Registry, name, path string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" && l.GetValue() == path {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestAnswerErrors(t *testing.T) {
	r, err := New(kb.NewStore("missing.json"), Options{})
	require.NoError(t, err)
	_, err = r.Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = r.Answer(context.Background(), "summary")
	assert.ErrorIs(t, err, kb.ErrNotLoaded)
}

func TestMatchRanking(t *testing.T) {
	doc, _, err := tieStore(t).Current()
	require.NoError(t, err)

	cases := map[string]kb.Group{
		"What are the top diseases?":     kb.GroupDiseaseTrends,
		"how many patients were seen":    kb.GroupSummary,
		"busiest day of the week":        kb.GroupTemporal,
		"tell me about Saddar Medical":   kb.GroupGeographic,
		"how is dr a doing":              kb.GroupDoctorWorkload,
		"Which branches serve the most?": kb.GroupGeographic,
		"monthly visit numbers":          kb.GroupTemporal,
		"diabetes":                       kb.GroupDiseaseTrends,
	}
	for q, want := range cases {
		got := Match(doc, q)
		require.NotEmpty(t, got, q)
		assert.Equal(t, want, got[0].Group, q)
	}
	assert.Empty(t, Match(doc, "?!"))
}

func TestMatchTieUsesGroupOrder(t *testing.T) {
	// one keyword each for disease trends and summary
	got := Match(nil, "condition total")
	require.Len(t, got, 2)
	assert.Equal(t, kb.GroupDiseaseTrends, got[0].Group)
	assert.Equal(t, kb.GroupSummary, got[1].Group)
	assert.Equal(t, got[0].Score, got[1].Score)
}
