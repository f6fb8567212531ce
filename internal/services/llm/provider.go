package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Backend is a Completer that can also verify its own credentials.
type Backend interface {
	Completer
	HealthCheck(ctx context.Context) error
	Model() string
}

// New returns the backend for provider. httpClient may be nil.
func New(provider string, cfg Config, httpClient *http.Client) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenRouter:
		return NewClient(cfg, WithHTTPClient(httpClient)), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", provider)
	}
}
