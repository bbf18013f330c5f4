package toolloop

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// ToolHandlerKind discriminates how a tool is invoked: an in-process Go
// function, or an external MCP server call. Only Function handlers are
// implemented by the built-in tools; Mcp exists so dispatch's kind check
// has something real to validate against.
type ToolHandlerKind string

const (
	ToolKindFunction ToolHandlerKind = "function"
	ToolKindMcp      ToolHandlerKind = "mcp"
)

// ToolHandler is one registered tool: its advertised definition, its kind,
// and the function that executes it.
type ToolHandler struct {
	Definition ToolDefinition
	Kind       ToolHandlerKind
	// PathArgs names the JSON fields of Arguments that carry filesystem
	// paths requiring sandbox validation.
	PathArgs []string
	Call      func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// ToolRegistry maps tool names to handlers and fixes the working directory
// every path-bearing argument must resolve under.
type ToolRegistry struct {
	WorkingDir string
	handlers   map[string]ToolHandler
}

// NewToolRegistry creates a registry sandboxed to workDir, which must be
// an absolute, cleaned path.
func NewToolRegistry(workDir string) *ToolRegistry {
	return &ToolRegistry{WorkingDir: workDir, handlers: map[string]ToolHandler{}}
}

// Register adds or replaces a tool handler.
func (r *ToolRegistry) Register(h ToolHandler) {
	r.handlers[h.Definition.Name] = h
}

// Definitions returns every registered tool's advertised definition, for
// inclusion in a CompletionRequest.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.handlers))
	for _, h := range r.handlers {
		defs = append(defs, h.Definition)
	}
	return defs
}

// genericPathArgs is the JSON shape used to extract path-bearing fields
// generically, without each tool's full argument struct.
type genericPathArgs map[string]json.RawMessage

// Dispatch validates and executes a tool call:
//   - the tool must be registered and of kind ToolKindFunction,
//   - every argument field named in the handler's PathArgs must decode to
//     an absolute path lying under the registry's WorkingDir,
//   - the arguments must otherwise be valid JSON.
func (r *ToolRegistry) Dispatch(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("unknown tool %q", name))
	}
	if h.Kind != ToolKindFunction {
		return nil, vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("tool %q is not a function handler", name))
	}

	var fields genericPathArgs
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &fields); err != nil {
			return nil, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("tool %q arguments are not a JSON object", name), err)
		}
	}
	for _, field := range h.PathArgs {
		raw, present := fields[field]
		if !present {
			continue
		}
		var path string
		if err := json.Unmarshal(raw, &path); err != nil {
			return nil, vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("tool %q field %q is not a string path", name, field), err)
		}
		if err := r.validatePath(path); err != nil {
			return nil, err
		}
	}

	return h.Call(ctx, arguments)
}

// validatePath enforces PathNotAbsolute/PathOutsideWorkingDir against the
// registry's sandbox root.
func (r *ToolRegistry) validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return vcserrors.PathNotAbsolute(path)
	}
	cleaned := filepath.Clean(path)
	root := filepath.Clean(r.WorkingDir)
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return vcserrors.PathOutsideWorkingDir(path)
	}
	return nil
}
