// Package gemini is the Google Gemini CompletionModel.
// Gemini's generateContent wire format (contents/parts,
// functionCall/functionResponse, query-string API key) differs enough from
// the OpenAI/Anthropic shapes that it gets its own completion.go rather
// than reusing either.
package gemini

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/libra-vcs/libra/internal/agent/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	envAPIKey      = "GEMINI_API_KEY"
	envBaseURL     = "GEMINI_BASE_URL"
)

// apiKeyQuery stamps Gemini's ?key= query-string auth onto every request,
// the one vendor in the set that authenticates outside the header.
func apiKeyQuery(apiKey string) providers.Decorator {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Set("key", apiKey)
		req.URL.RawQuery = q.Encode()
	}
}

// FromEnv builds a client from GEMINI_API_KEY / GEMINI_BASE_URL.
func FromEnv() (*providers.HTTPClient, error) {
	apiKey := os.Getenv(envAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", envAPIKey)
	}
	baseURL := os.Getenv(envBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return providers.New(baseURL, apiKeyQuery(apiKey)), nil
}

// WithAPIKey builds a client directly from an API key.
func WithAPIKey(apiKey string) *providers.HTTPClient {
	return providers.New(defaultBaseURL, apiKeyQuery(apiKey))
}

// path builds the :generateContent path for model, URL-escaping the model
// name the way Gemini's REST surface expects.
func path(model string) string {
	return "/models/" + url.PathEscape(model) + ":generateContent"
}
