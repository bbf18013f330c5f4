package anthropic

import (
	"context"
	"encoding/json"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// Model is the Anthropic CompletionModel: a transport client plus the
// vendor model name (e.g. "claude-opus-4-x"), mirroring the Rust
// providers::anthropic::completion::Model wrapper around Client.
type Model struct {
	client *providers.HTTPClient
	model  string
}

// New wraps client as a CompletionModel using the named Anthropic model.
func New(client *providers.HTTPClient, model string) *Model {
	return &Model{client: client, model: model}
}

var _ toolloop.CompletionModel = (*Model)(nil)

// wire shapes for the Messages API.

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireResponse struct {
	ID         string      `json:"id"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
}

const defaultMaxTokens = 4096

func toWireMessages(history []toolloop.Message) []wireMessage {
	out := make([]wireMessage, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == toolloop.RoleAssistant {
			role = "assistant"
		}
		blocks := make([]wireBlock, 0, len(m.Content))
		for _, c := range m.Content {
			switch c.Kind {
			case toolloop.ContentText:
				blocks = append(blocks, wireBlock{Type: "text", Text: c.Text})
			case toolloop.ContentToolCall:
				blocks = append(blocks, wireBlock{Type: "tool_use", ID: c.ID, Name: c.Name, Input: c.Arguments})
			case toolloop.ContentToolResult:
				content := string(c.Result)
				isErr := c.Error != ""
				if isErr {
					content = c.Error
				}
				blocks = append(blocks, wireBlock{Type: "tool_result", ToolUseID: c.ID, Content: content, IsError: isErr})
			}
		}
		out = append(out, wireMessage{Role: role, Content: blocks})
	}
	return out
}

func toWireTools(defs []toolloop.ToolDefinition) []wireTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]wireTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, wireTool{Name: d.Name, Description: d.Description, InputSchema: d.Parameters})
	}
	return out
}

func fromWireContent(blocks []wireBlock) []toolloop.Content {
	out := make([]toolloop.Content, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, toolloop.TextContent(b.Text))
		case "tool_use":
			out = append(out, toolloop.Content{
				Kind: toolloop.ContentToolCall, ID: b.ID, Name: b.Name, Arguments: b.Input,
			})
		}
	}
	return out
}

// Complete implements toolloop.CompletionModel against the Anthropic
// Messages API (POST /v1/messages).
func (m *Model) Complete(ctx context.Context, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	wreq := wireRequest{
		Model:       m.model,
		MaxTokens:   defaultMaxTokens,
		System:      req.Preamble,
		Messages:    toWireMessages(req.History),
		Tools:       toWireTools(req.Tools),
		Temperature: req.Temperature,
	}

	var wresp wireResponse
	if _, err := m.client.PostJSON(ctx, "/v1/messages", wreq, &wresp); err != nil {
		return toolloop.CompletionResponse{}, providers.ClassifyError("anthropic", err)
	}

	return toolloop.CompletionResponse{ID: wresp.ID, Content: fromWireContent(wresp.Content)}, nil
}
