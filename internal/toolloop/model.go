// Package toolloop drives an iterative model-to-tool conversation: a
// CompletionModel is asked for its next move, any tool calls it emits are
// dispatched through a sandboxed ToolRegistry, and the results are fed
// back until the model stops calling tools or the step budget runs out.
package toolloop

import (
	"context"
	"encoding/json"
)

// ContentKind discriminates the variants of AssistantContent/UserContent:
// a string enum plus a struct carrying every variant's optional fields.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentImage      ContentKind = "image"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// Content is one piece of a message. Which fields are populated depends on
// Kind: Text for ContentText, ImageData for ContentImage, ID/Name/Arguments
// for ContentToolCall, ID/Name/Result for ContentToolResult.
type Content struct {
	Kind      ContentKind     `json:"kind"`
	Text      string          `json:"text,omitempty"`
	ImageData []byte          `json:"image_data,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// TextContent builds a Text content element.
func TextContent(text string) Content { return Content{Kind: ContentText, Text: text} }

// ToolResultContent builds a ToolResult content element, optionally
// carrying an error instead of a result payload (used when a hook blocks
// the call before dispatch).
func ToolResultContent(id, name string, result json.RawMessage, errMsg string) Content {
	return Content{Kind: ContentToolResult, ID: id, Name: name, Result: result, Error: errMsg}
}

// Role discriminates Message's sum type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in the conversation history. The engine is the sole
// writer of History; tool code never appends to it directly.
type Message struct {
	Role    Role      `json:"role"`
	ID      string    `json:"id,omitempty"`
	Content []Content `json:"content"`
}

// UserMessage wraps one or more UserContent elements (Text, Image, or
// ToolResult) as a User message.
func UserMessage(content ...Content) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage wraps response content as an Assistant message.
func AssistantMessage(id string, content ...Content) Message {
	return Message{Role: RoleAssistant, ID: id, Content: content}
}

// ToolCalls returns the ContentToolCall elements of a message, in order.
func (m Message) ToolCalls() []Content {
	var calls []Content
	for _, c := range m.Content {
		if c.Kind == ContentToolCall {
			calls = append(calls, c)
		}
	}
	return calls
}

// TextOnly concatenates every Text content element of a message.
func (m Message) TextOnly() string {
	var out string
	for _, c := range m.Content {
		if c.Kind == ContentText {
			out += c.Text
		}
	}
	return out
}

// ToolDefinition is what the engine advertises to the model: a tool's
// name, description and JSON-schema parameter shape.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// CompletionRequest is the input to CompletionModel.Complete.
type CompletionRequest struct {
	Preamble    string
	History     []Message
	Temperature *float64
	Tools       []ToolDefinition
	Documents   []string
}

// CompletionResponse is a model's answer for one turn: a sequence of
// AssistantContent elements (Text and/or ToolCall).
type CompletionResponse struct {
	ID      string
	Content []Content
}

// CompletionModel is the single abstraction the engine depends on; every
// vendor integration (internal/agent/providers) implements this and
// nothing in this package imports a vendor package directly.
type CompletionModel interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
