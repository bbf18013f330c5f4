package zhipu

import (
	"context"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/agent/providers/openai"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// Model is the Zhipu CompletionModel.
type Model struct {
	client *providers.HTTPClient
	model  string
}

// New wraps client as a CompletionModel using the named GLM model (e.g.
// "glm-4-plus").
func New(client *providers.HTTPClient, model string) *Model {
	return &Model{client: client, model: model}
}

var _ toolloop.CompletionModel = (*Model)(nil)

// Complete implements toolloop.CompletionModel via the shared
// OpenAI-compatible chat/completions shaping.
func (m *Model) Complete(ctx context.Context, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	return openai.Complete(ctx, m.client, "zhipu", "/chat/completions", m.model, req)
}
