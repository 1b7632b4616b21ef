package engine

import (
	"fmt"
	"strings"
)

// Backend names accepted by Detect.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Backend       string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
}

// ResolveBackend normalizes backend. An empty backend picks OpenAI when an
// API key is configured and Ollama otherwise.
func ResolveBackend(backend, openAIAPIKey string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend != "" {
		return backend
	}
	if openAIAPIKey != "" {
		return BackendOpenAI
	}
	return BackendOllama
}

// Detect returns the engine named by cfg.Backend, resolved with ResolveBackend.
func Detect(cfg DetectConfig) (Engine, error) {
	switch ResolveBackend(cfg.Backend, cfg.OpenAIAPIKey) {
	case BackendOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	case BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key (set openai.api_key)")
		}
		return NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q (want %s or %s)", cfg.Backend, BackendOllama, BackendOpenAI)
	}
}
