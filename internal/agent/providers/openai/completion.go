package openai

import (
	"context"
	"encoding/json"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// Model is the OpenAI CompletionModel.
type Model struct {
	client *providers.HTTPClient
	model  string
}

// New wraps client as a CompletionModel using the named OpenAI model.
func New(client *providers.HTTPClient, model string) *Model {
	return &Model{client: client, model: model}
}

var _ toolloop.CompletionModel = (*Model)(nil)

// Chat Completions wire shapes. Exported: DeepSeek and Zhipu's own
// completion.go build on these directly since both vendors speak the same
// OpenAI-compatible chat/completions format.

type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

type ChatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type ChatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type ChatTool struct {
	Type     string          `json:"type"`
	Function ChatFunctionDef `json:"function"`
}

type ChatRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Tools       []ChatTool     `json:"tools,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
}

type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

type ChatResponse struct {
	ID      string       `json:"id"`
	Choices []ChatChoice `json:"choices"`
}

// ToChatMessages flattens toolloop's Message/Content model into the
// flat chat-completions message list: assistant tool calls become a
// tool_calls array on one assistant message, and each ToolResult content
// element becomes its own role:"tool" message (the shape the API requires).
func ToChatMessages(preamble string, history []toolloop.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	if preamble != "" {
		out = append(out, ChatMessage{Role: "system", Content: preamble})
	}

	for _, m := range history {
		switch m.Role {
		case toolloop.RoleAssistant:
			var text string
			var calls []ChatToolCall
			for _, c := range m.Content {
				switch c.Kind {
				case toolloop.ContentText:
					text += c.Text
				case toolloop.ContentToolCall:
					calls = append(calls, ChatToolCall{
						ID:   c.ID,
						Type: "function",
						Function: ChatFunctionCall{
							Name:      c.Name,
							Arguments: string(c.Arguments),
						},
					})
				}
			}
			out = append(out, ChatMessage{Role: "assistant", Content: text, ToolCalls: calls})
		default:
			var text string
			var toolMsgs []ChatMessage
			for _, c := range m.Content {
				switch c.Kind {
				case toolloop.ContentText:
					text += c.Text
				case toolloop.ContentToolResult:
					content := string(c.Result)
					if c.Error != "" {
						content = c.Error
					}
					toolMsgs = append(toolMsgs, ChatMessage{Role: "tool", ToolCallID: c.ID, Content: content})
				}
			}
			if text != "" {
				role := "user"
				if m.Role == toolloop.RoleSystem {
					role = "system"
				}
				out = append(out, ChatMessage{Role: role, Content: text})
			}
			out = append(out, toolMsgs...)
		}
	}
	return out
}

// ToChatTools maps tool definitions to the chat/completions "tools" array.
func ToChatTools(defs []toolloop.ToolDefinition) []ChatTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]ChatTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// FromChatMessage turns a response message back into AssistantContent.
func FromChatMessage(msg ChatMessage) []toolloop.Content {
	var out []toolloop.Content
	if msg.Content != "" {
		out = append(out, toolloop.TextContent(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		out = append(out, toolloop.Content{
			Kind:      toolloop.ContentToolCall,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}

// Complete drives one chat/completions round trip against path using
// client/model, shared by OpenAI/DeepSeek/Zhipu's Model.Complete.
func Complete(ctx context.Context, client *providers.HTTPClient, vendor, path, model string, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	wreq := ChatRequest{
		Model:       model,
		Messages:    ToChatMessages(req.Preamble, req.History),
		Tools:       ToChatTools(req.Tools),
		Temperature: req.Temperature,
	}

	var wresp ChatResponse
	if _, err := client.PostJSON(ctx, path, wreq, &wresp); err != nil {
		return toolloop.CompletionResponse{}, providers.ClassifyError(vendor, err)
	}
	if len(wresp.Choices) == 0 {
		return toolloop.CompletionResponse{ID: wresp.ID}, nil
	}
	return toolloop.CompletionResponse{ID: wresp.ID, Content: FromChatMessage(wresp.Choices[0].Message)}, nil
}

// Complete implements toolloop.CompletionModel.
func (m *Model) Complete(ctx context.Context, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	return Complete(ctx, m.client, "openai", "/chat/completions", m.model, req)
}
