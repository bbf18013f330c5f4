// Package deepseek is the DeepSeek CompletionModel.
// DeepSeek's chat API is wire-compatible with OpenAI's chat/completions
// endpoint, so completion shaping is delegated to
// internal/agent/providers/openai rather than duplicated.
package deepseek

import (
	"fmt"
	"os"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/agent/providers/openai"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	envAPIKey      = "DEEPSEEK_API_KEY"
	envBaseURL     = "DEEPSEEK_BASE_URL"
)

// FromEnv builds a client from DEEPSEEK_API_KEY / DEEPSEEK_BASE_URL.
func FromEnv() (*providers.HTTPClient, error) {
	apiKey := os.Getenv(envAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", envAPIKey)
	}
	baseURL := os.Getenv(envBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return providers.New(baseURL, openai.BearerDecorator(apiKey)), nil
}

// WithAPIKey builds a client directly from an API key.
func WithAPIKey(apiKey string) *providers.HTTPClient {
	return providers.New(defaultBaseURL, openai.BearerDecorator(apiKey))
}
