package toolloop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/libra-vcs/libra/internal/hooks"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// queueModel is a CompletionModel that returns a fixed sequence of
// responses, one per call, and records how many times it was invoked.
type queueModel struct {
	responses []CompletionResponse
	calls     int
}

func (m *queueModel) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return resp, nil
}

func toolCallResponse(id, name string, args string) CompletionResponse {
	return CompletionResponse{
		ID: id,
		Content: []Content{
			{Kind: ContentToolCall, ID: id, Name: name, Arguments: json.RawMessage(args)},
		},
	}
}

func textResponse(text string) CompletionResponse {
	return CompletionResponse{Content: []Content{TextContent(text)}}
}

func newFullRegistry(t *testing.T, workDir string) *ToolRegistry {
	t.Helper()
	r := NewToolRegistry(workDir)
	RegisterReadFile(r)
	RegisterListDir(r)
	RegisterGrepFiles(r)
	RegisterApplyPatch(r)
	return r
}

// TestEngine_ToolLoopTermination: with max_steps=N, the loop
// returns after at most N model calls when the model never stops calling
// tools.
func TestEngine_ToolLoopTermination(t *testing.T) {
	workDir := t.TempDir()
	registry := newFullRegistry(t, workDir)

	model := &queueModel{responses: []CompletionResponse{
		toolCallResponse("1", "list_dir", `{"path":"`+workDir+`"}`),
	}}

	engine := NewEngine(model, registry, hooks.NewRegistry())
	engine.MaxSteps = 3

	_, _, err := engine.Run(context.Background(), nil, "do the thing")
	if err == nil {
		t.Fatal("expected ToolLoopExhausted, got nil")
	}
	var verr *vcserrors.Error
	if !errors.As(err, &verr) || verr.Kind != vcserrors.KindToolLoopExhausted {
		t.Fatalf("expected KindToolLoopExhausted, got %v", err)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want 3 (max_steps)", model.calls)
	}
}

// TestEngine_SandboxViolationContinuesLoop: a tool call to
// read_file on a path outside the sandbox surfaces a ToolResult error in
// history and the loop continues to the model's next turn instead of
// aborting.
func TestEngine_SandboxViolationContinuesLoop(t *testing.T) {
	workDir := t.TempDir()
	registry := newFullRegistry(t, workDir)

	model := &queueModel{responses: []CompletionResponse{
		toolCallResponse("1", "read_file", `{"path":"/etc/passwd"}`),
		textResponse("done"),
	}}

	engine := NewEngine(model, registry, hooks.NewRegistry())
	text, history, err := engine.Run(context.Background(), nil, "read a file")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if text != "done" {
		t.Errorf("text = %q, want %q", text, "done")
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}

	found := false
	for _, msg := range history {
		for _, c := range msg.Content {
			if c.Kind == ContentToolResult && c.Error != "" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a ToolResult with an error in history")
	}
}

// TestRegistry_SandboxRejectsOutsidePaths: every path-bearing
// built-in tool rejects a path outside the registry's working directory.
func TestRegistry_SandboxRejectsOutsidePaths(t *testing.T) {
	workDir := t.TempDir()
	registry := newFullRegistry(t, workDir)

	cases := []struct {
		tool string
		args string
	}{
		{"read_file", `{"path":"/etc/passwd"}`},
		{"list_dir", `{"path":"/etc"}`},
		{"grep_files", `{"pattern":"root","path":"/etc"}`},
	}

	for _, tc := range cases {
		_, err := registry.Dispatch(context.Background(), tc.tool, json.RawMessage(tc.args))
		if err == nil {
			t.Errorf("%s: expected PathOutsideWorkingDir error, got nil", tc.tool)
			continue
		}
		var verr *vcserrors.Error
		if !errors.As(err, &verr) || verr.Kind != vcserrors.KindPathOutsideWorkDir {
			t.Errorf("%s: expected KindPathOutsideWorkDir, got %v", tc.tool, err)
		}
	}
}

func TestRegistry_SandboxRejectsRelativePaths(t *testing.T) {
	workDir := t.TempDir()
	registry := newFullRegistry(t, workDir)

	_, err := registry.Dispatch(context.Background(), "read_file", json.RawMessage(`{"path":"relative.txt"}`))
	if err == nil {
		t.Fatal("expected PathNotAbsolute error, got nil")
	}
	var verr *vcserrors.Error
	if !errors.As(err, &verr) || verr.Kind != vcserrors.KindPathNotAbsolute {
		t.Fatalf("expected KindPathNotAbsolute, got %v", err)
	}
}

// TestEngine_PreToolUseHookBlocks verifies a blocking PreToolUse hook
// short-circuits dispatch entirely.
func TestEngine_PreToolUseHookBlocks(t *testing.T) {
	workDir := t.TempDir()
	registry := newFullRegistry(t, workDir)

	model := &queueModel{responses: []CompletionResponse{
		toolCallResponse("1", "read_file", `{"path":"`+workDir+`/nope.txt"}`),
		textResponse("done"),
	}}

	hookRegistry := hooks.NewRegistry()
	hookRegistry.Register(hooks.Hook{
		Event:   hooks.EventPreToolUse,
		Matcher: "read_file",
		Command: "echo '{\"decision\":\"block\",\"reason\":\"no reading allowed\"}'",
	})

	engine := NewEngine(model, registry, hookRegistry)
	text, history, err := engine.Run(context.Background(), nil, "read a file")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if text != "done" {
		t.Errorf("text = %q, want %q", text, "done")
	}

	found := false
	for _, msg := range history {
		for _, c := range msg.Content {
			if c.Kind == ContentToolResult && c.Error == "no reading allowed" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected blocked tool result carrying hook reason")
	}
}
