package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/medloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/medloom/internal/config"
	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/metrics"
	"github.com/KaramelBytes/medloom/internal/responder"
)

// newRuntime is swapped in tests.
var newRuntime = ai.NewRuntime

// buildRuntime returns the external model runtime for the provider, or nil when the
// provider is "none". Runtimes get a single attempt: a failed query goes to the fallback.
func buildRuntime(c *cfgpkg.Global, providerFlag string) (ai.Runtime, string, error) {
	provider := strings.ToLower(strings.TrimSpace(providerFlag))
	if provider == "" {
		provider = strings.ToLower(strings.TrimSpace(c.Provider))
	}
	switch provider {
	case "", ai.ProviderNone, "offline":
		return nil, ai.ProviderNone, nil
	case "local":
		provider = ai.ProviderOllama
	case "google":
		provider = ai.ProviderGemini
	}
	httpTimeout := 30 * time.Second
	if c.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	rt, err := newRuntime(provider, ai.RuntimeConfig{
		HTTPTimeout:  httpTimeout,
		RetryMax:     1,
		Model:        c.Model,
		APIKey:       c.APIKey,
		GeminiAPIKey: c.GeminiAPIKey,
		Host:         c.OllamaHost,
	})
	if err != nil {
		return nil, provider, fmt.Errorf("init %s runtime: %w", provider, err)
	}
	return rt, provider, nil
}

// newResponder wires the responder over store. A runtime that cannot be built is reported
// and the responder answers from the knowledge base only.
func newResponder(c *cfgpkg.Global, store *kb.Store, m *metrics.Metrics, providerFlag, modelFlag string) (*responder.Responder, error) {
	if modelFlag != "" {
		c.Model = modelFlag
	}
	rt, provider, err := buildRuntime(c, providerFlag)
	if err != nil {
		log.WithError(err).Warn("external model unavailable; answering from the knowledge base only")
	}
	log.WithField("provider", provider).Debug("responder configured")
	return responder.New(store, responder.Options{
		Runtime:           rt,
		Model:             c.Model,
		Timeout:           time.Duration(c.QueryTimeoutSec) * time.Second,
		MaxTokens:         c.MaxTokens,
		Temperature:       c.Temperature,
		ContextTokenLimit: c.ContextTokenLimit,
		CacheSize:         c.AnswerCacheSize,
		Logger:            log,
		Metrics:           m,
	})
}
