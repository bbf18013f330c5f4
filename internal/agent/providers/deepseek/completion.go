package deepseek

import (
	"context"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/agent/providers/openai"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// Model is the DeepSeek CompletionModel.
type Model struct {
	client *providers.HTTPClient
	model  string
}

// New wraps client as a CompletionModel using the named DeepSeek model
// (e.g. "deepseek-chat", "deepseek-reasoner").
func New(client *providers.HTTPClient, model string) *Model {
	return &Model{client: client, model: model}
}

var _ toolloop.CompletionModel = (*Model)(nil)

// Complete implements toolloop.CompletionModel via the shared
// OpenAI-compatible chat/completions shaping.
func (m *Model) Complete(ctx context.Context, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	return openai.Complete(ctx, m.client, "deepseek", "/chat/completions", m.model, req)
}
