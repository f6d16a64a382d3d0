// Package responder answers free-text questions about the analytics knowledge base.
// Each query first tries the external model and falls back to keyword matching
// against the knowledge base when that call fails for any reason.
package responder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/medloom/internal/ai"
	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/logging"
	"github.com/KaramelBytes/medloom/internal/metrics"
	"github.com/KaramelBytes/medloom/internal/utils"
)

// Path names the strategy that produced an answer.
type Path string

const (
	PathExternal Path = "external-model"
	PathFallback Path = "fallback"
)

// NoMatchAnswer is returned by the fallback when no statistic group matches.
const NoMatchAnswer = "I could not find anything in the analytics knowledge base about that. " +
	"Try asking about disease trends, doctor workload, geographic distribution, temporal patterns or the overall summary."

// DefaultTimeout bounds the external-model call of a single query.
const DefaultTimeout = 8 * time.Second

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = errors.New("query is empty")

const systemPrompt = `You are an analytics assistant for a network of medical clinics.
Answer the question using only the statistics below. Quote numbers exactly as given.
If the statistics do not contain the answer, say so plainly. Do not give medical advice.

`

// Answer is the reply to one query.
type Answer struct {
	Text    string   `json:"answer"`
	Path    Path     `json:"path"`
	Group   kb.Group `json:"group,omitempty"`
	Matched bool     `json:"matched"`
	Cached  bool     `json:"cached,omitempty"`
	// Err is the external-model failure that caused a fallback, if any.
	Err error `json:"-"`
}

// Options configures a Responder. A nil Runtime sends every query to the fallback.
type Options struct {
	Runtime           ai.Runtime
	Model             string
	Timeout           time.Duration
	MaxTokens         int
	Temperature       float64
	ContextTokenLimit int
	// CacheSize bounds the external answer cache; 0 disables it.
	CacheSize int
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// Responder holds no per-query state besides the optional answer cache.
type Responder struct {
	store *kb.Store
	opt   Options
	cache *lru.Cache[string, string]
	log   logrus.FieldLogger
}

// New builds a Responder reading the knowledge base from store.
func New(store *kb.Store, opt Options) (*Responder, error) {
	if store == nil {
		return nil, errors.New("responder: nil knowledge-base store")
	}
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	r := &Responder{store: store, opt: opt, log: opt.Logger}
	if r.log == nil {
		r.log = logging.Discard()
	}
	if opt.CacheSize > 0 {
		c, err := lru.New[string, string](opt.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("responder: answer cache: %w", err)
		}
		r.cache = c
	}
	return r, nil
}

// Answer replies to query. External-model failures are never returned; they only show up
// as PathFallback and Answer.Err. The returned error covers a blank query or a missing
// knowledge base.
func (r *Responder) Answer(ctx context.Context, query string) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, ErrEmptyQuery
	}
	doc, fp, err := r.store.Current()
	if err != nil {
		return Answer{}, err
	}
	log := r.log.WithField("query_len", len(query))

	var primaryErr error
	if r.opt.Runtime != nil {
		key := cacheKey(query, fp)
		if r.cache != nil {
			if text, ok := r.cache.Get(key); ok {
				r.opt.Metrics.ObserveQuery(string(PathExternal), true)
				return Answer{Text: text, Path: PathExternal, Matched: true, Cached: true}, nil
			}
		}
		text, err := r.primary(ctx, doc, query)
		if err == nil {
			if r.cache != nil {
				r.cache.Add(key, text)
			}
			r.opt.Metrics.ObserveQuery(string(PathExternal), true)
			return Answer{Text: text, Path: PathExternal, Matched: true}, nil
		}
		primaryErr = err
		log.WithError(err).Warn("external model failed; answering from knowledge base")
	}

	ans := Fallback(doc, query)
	ans.Err = primaryErr
	r.opt.Metrics.ObserveQuery(string(PathFallback), ans.Matched)
	log.WithFields(logrus.Fields{"group": ans.Group, "matched": ans.Matched}).Debug("fallback answer")
	return ans, nil
}

// primary asks the external model under the configured timeout.
func (r *Responder) primary(ctx context.Context, doc *kb.KnowledgeBase, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opt.Timeout)
	defer cancel()

	budget := ai.PromptBudget(r.opt.Model, r.opt.ContextTokenLimit, r.opt.MaxTokens)
	req := ai.GenerateRequest{
		Model: r.opt.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt + utils.TruncateToTokenLimit(kb.Context(doc), budget)},
			{Role: "user", Content: query},
		},
		MaxTokens:   r.opt.MaxTokens,
		Temperature: r.opt.Temperature,
	}
	start := time.Now()
	resp, err := r.opt.Runtime.Generate(ctx, req)
	outcome := "ok"
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
		err = fmt.Errorf("external model timed out after %s: %w", r.opt.Timeout, err)
	case err != nil:
		outcome = "error"
	case resp.Text() == "":
		outcome = "empty"
		err = &ai.EmptyResponseError{Provider: "external model"}
	}
	r.opt.Metrics.ObservePrimaryLatency(outcome, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Fallback answers from the knowledge base alone: the best matching statistic group is
// rendered as text, or NoMatchAnswer when nothing matches.
func Fallback(doc *kb.KnowledgeBase, query string) Answer {
	matches := Match(doc, query)
	if len(matches) == 0 {
		return Answer{Text: NoMatchAnswer, Path: PathFallback}
	}
	g := matches[0].Group
	text := fmt.Sprintf("From the analytics knowledge base (%s):\n\n%s", g.Title(), kb.Section(doc, g))
	return Answer{Text: strings.TrimRight(text, "\n"), Path: PathFallback, Group: g, Matched: true}
}

func cacheKey(query, fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + strings.ToLower(strings.Join(strings.Fields(query), " "))))
	return hex.EncodeToString(sum[:])
}
