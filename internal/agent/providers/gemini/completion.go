package gemini

import (
	"context"
	"encoding/json"

	"github.com/libra-vcs/libra/internal/agent/providers"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// Model is the Gemini CompletionModel.
type Model struct {
	client *providers.HTTPClient
	model  string
}

// New wraps client as a CompletionModel using the named Gemini model
// (e.g. "gemini-2.0-flash").
func New(client *providers.HTTPClient, model string) *Model {
	return &Model{client: client, model: model}
}

var _ toolloop.CompletionModel = (*Model)(nil)

// generateContent wire shapes.

type part struct {
	Text             string           `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type functionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

// toGeminiContents maps toolloop history to Gemini's contents array.
// Gemini has no "tool" role distinct from "user": a ToolResult content
// element is wrapped in a functionResponse part inside a user-role turn,
// matching the official client libraries' convention.
func toGeminiContents(history []toolloop.Message) []content {
	out := make([]content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == toolloop.RoleAssistant {
			role = "model"
		}
		var parts []part
		for _, c := range m.Content {
			switch c.Kind {
			case toolloop.ContentText:
				parts = append(parts, part{Text: c.Text})
			case toolloop.ContentToolCall:
				parts = append(parts, part{FunctionCall: &functionCall{Name: c.Name, Args: c.Arguments}})
			case toolloop.ContentToolResult:
				resp := c.Result
				if c.Error != "" {
					resp, _ = json.Marshal(map[string]string{"error": c.Error})
				}
				parts = append(parts, part{FunctionResponse: &functionResponse{Name: c.Name, Response: resp}})
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, content{Role: role, Parts: parts})
	}
	return out
}

func toGeminiTools(defs []toolloop.ToolDefinition) []tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]functionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, functionDeclaration{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return []tool{{FunctionDeclarations: decls}}
}

func fromGeminiParts(parts []part) []toolloop.Content {
	var out []toolloop.Content
	for _, p := range parts {
		switch {
		case p.Text != "":
			out = append(out, toolloop.TextContent(p.Text))
		case p.FunctionCall != nil:
			out = append(out, toolloop.Content{
				Kind:      toolloop.ContentToolCall,
				ID:        p.FunctionCall.Name,
				Name:      p.FunctionCall.Name,
				Arguments: p.FunctionCall.Args,
			})
		}
	}
	return out
}

// Complete implements toolloop.CompletionModel against Gemini's
// :generateContent endpoint.
func (m *Model) Complete(ctx context.Context, req toolloop.CompletionRequest) (toolloop.CompletionResponse, error) {
	wreq := generateRequest{
		Contents: toGeminiContents(req.History),
		Tools:    toGeminiTools(req.Tools),
	}
	if req.Preamble != "" {
		wreq.SystemInstruction = &content{Parts: []part{{Text: req.Preamble}}}
	}
	if req.Temperature != nil {
		wreq.GenerationConfig = &generationConfig{Temperature: req.Temperature}
	}

	var wresp generateResponse
	if _, err := m.client.PostJSON(ctx, path(m.model), wreq, &wresp); err != nil {
		return toolloop.CompletionResponse{}, providers.ClassifyError("gemini", err)
	}
	if len(wresp.Candidates) == 0 {
		return toolloop.CompletionResponse{}, nil
	}
	return toolloop.CompletionResponse{Content: fromGeminiParts(wresp.Candidates[0].Content.Parts)}, nil
}
