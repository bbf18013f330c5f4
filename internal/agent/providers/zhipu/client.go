// Package zhipu is the Zhipu (GLM) CompletionModel.
// Zhipu's chat/completions endpoint is OpenAI wire-compatible, so request
// and response shaping is delegated to internal/agent/providers/openai.
package zhipu

import (
	"fmt"
	"os"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/agent/providers/openai"
)

const (
	defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"
	envAPIKey      = "ZHIPU_API_KEY"
	envBaseURL     = "ZHIPU_BASE_URL"
)

// FromEnv builds a client from ZHIPU_API_KEY / ZHIPU_BASE_URL.
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
