// Package openai is the OpenAI Chat Completions CompletionModel.
// DeepSeek (internal/agent/providers/deepseek) and Zhipu
// (internal/agent/providers/zhipu) both speak OpenAI-compatible wire
// formats and reuse this package's wire shapes rather than duplicating
// them.
package openai

import (
	"fmt"
	"net/http"
	"os"

	"github.com/libra-vcs/libra/internal/agent/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	envAPIKey      = "OPENAI_API_KEY"
	envBaseURL     = "OPENAI_BASE_URL"
)

// decorator stamps the standard Bearer-token auth OpenAI and its
// compatible vendors (DeepSeek, Zhipu) all use.
func decorator(apiKey string) providers.Decorator {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// FromEnv builds a client from OPENAI_API_KEY / OPENAI_BASE_URL.
func FromEnv() (*providers.HTTPClient, error) {
	apiKey := os.Getenv(envAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", envAPIKey)
	}
	baseURL := os.Getenv(envBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return providers.New(baseURL, decorator(apiKey)), nil
}

// WithAPIKey builds a client directly from an API key.
func WithAPIKey(apiKey string) *providers.HTTPClient {
	return providers.New(defaultBaseURL, decorator(apiKey))
}

// BearerDecorator is exported so DeepSeek/Zhipu (OpenAI wire-compatible)
// can decorate their own clients with the same Bearer-token scheme without
// importing net/http directly in their own client.go.
func BearerDecorator(apiKey string) providers.Decorator { return decorator(apiKey) }
