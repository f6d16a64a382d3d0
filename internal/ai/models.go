package ai

import "strings"

// ModelInfo records the context window of a known model.
type ModelInfo struct {
	Name          string
	ContextTokens int
}

var models = map[string]ModelInfo{
	"gemini-1.5-flash":                 {Name: "gemini-1.5-flash", ContextTokens: 1000000},
	"gemini-1.5-pro":                   {Name: "gemini-1.5-pro", ContextTokens: 2000000},
	"gemini-2.0-flash":                 {Name: "gemini-2.0-flash", ContextTokens: 1000000},
	"google/gemini-1.5-flash":          {Name: "google/gemini-1.5-flash", ContextTokens: 1000000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"anthropic/claude-3-haiku":         {Name: "anthropic/claude-3-haiku", ContextTokens: 200000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", ContextTokens: 131072},
	"deepseek/deepseek-r1:free":        {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	"llama3:latest":                    {Name: "llama3:latest", ContextTokens: 8192},
	"llama3.1:8b-instruct":             {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"phi3:mini-4k-instruct":            {Name: "phi3:mini-4k-instruct", ContextTokens: 4096},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[strings.TrimSpace(name)]
	return mi, ok
}

// PromptBudget returns how many tokens of knowledge-base context fit in a prompt for model.
// limit caps the result; unknown models get limit unchanged.
func PromptBudget(model string, limit, maxOutput int) int {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return limit
	}
	// keep room for the question, the instructions and the reply
	avail := mi.ContextTokens - maxOutput - 512
	if avail < 256 {
		avail = 256
	}
	if limit > 0 && limit < avail {
		return limit
	}
	return avail
}
