package ai

import (
	"errors"
	"testing"
	"time"
)

func TestNewRuntimeKnownProviders(t *testing.T) {
	rt, err := NewRuntime("Ollama", RuntimeConfig{Host: "http://127.0.0.1:11434", HTTPTimeout: time.Second, RetryMax: 1})
	if err != nil {
		t.Fatalf("ollama runtime: %v", err)
	}
	if _, ok := rt.(*OllamaClient); !ok {
		t.Fatalf("expected *OllamaClient, got %T", rt)
	}
	rt, err = NewRuntime(ProviderOpenRouter, RuntimeConfig{APIKey: "k", RetryMax: 1})
	if err != nil {
		t.Fatalf("openrouter runtime: %v", err)
	}
	c, ok := rt.(*Client)
	if !ok {
		t.Fatalf("expected *Client, got %T", rt)
	}
	if c.retry.attempts != 1 {
		t.Fatalf("expected single attempt, got %d", c.retry.attempts)
	}
}

func TestNewRuntimeErrors(t *testing.T) {
	if _, err := NewRuntime("carrier-pigeon", RuntimeConfig{}); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := NewRuntime(ProviderOpenRouter, RuntimeConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewRuntime(ProviderGemini, RuntimeConfig{}); err == nil {
		t.Fatalf("expected missing gemini key error")
	}
}
