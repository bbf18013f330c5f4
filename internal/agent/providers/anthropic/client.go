// Package anthropic is the Anthropic Messages API CompletionModel:
// client.go is the transport (auth header injection), completion.go is the
// request/response shaping. This is one of the few places the core talks
// to a concrete vendor wire format; everything above it only ever sees
// toolloop.CompletionModel.
package anthropic

import (
	"fmt"
	"net/http"
	"os"

	"github.com/libra-vcs/libra/internal/agent/providers"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	anthropicVersion  = "2023-06-01"
	envAPIKey         = "ANTHROPIC_API_KEY"
	envBaseURLOverride = "ANTHROPIC_BASE_URL"
)

// decorator returns the Decorator that stamps Anthropic's non-standard
// auth headers: x-api-key instead of Bearer, plus the required
// anthropic-version header.
func decorator(apiKey string) providers.Decorator {
	return func(req *http.Request) {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}
}

// FromEnv builds a client from ANTHROPIC_API_KEY / ANTHROPIC_BASE_URL.
func FromEnv() (*providers.HTTPClient, error) {
	apiKey := os.Getenv(envAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", envAPIKey)
	}
	baseURL := os.Getenv(envBaseURLOverride)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return providers.New(baseURL, decorator(apiKey)), nil
}

// WithAPIKey builds a client directly from an API key (e.g. brokered
// through internal/vault rather than read straight from the environment).
func WithAPIKey(apiKey string) *providers.HTTPClient {
	return providers.New(defaultBaseURL, decorator(apiKey))
}
