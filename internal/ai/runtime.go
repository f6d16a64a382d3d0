package ai

import "context"

// Runtime is implemented by every external model backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted in configuration.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	// ProviderNone disables the external model; every query is answered by the fallback.
	ProviderNone = "none"
)
