package toolloop

import (
	"context"
	"encoding/json"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/hooks"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// Status is the engine's published execution state.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusThinking      Status = "thinking"
	StatusExecutingTool Status = "executing_tool"
	StatusAwaitingInput Status = "awaiting_user_input"
)

// Engine drives the model-to-tool loop.
type Engine struct {
	Model    CompletionModel
	Registry *ToolRegistry
	Hooks    *hooks.Registry
	MaxSteps int
	Preamble string

	status       Status
	statusStream chan Status
}

// NewEngine builds an Engine with the default step budget
// (constants.DefaultMaxSteps) unless overridden by the caller afterward.
func NewEngine(model CompletionModel, registry *ToolRegistry, hookRegistry *hooks.Registry) *Engine {
	return &Engine{
		Model:        model,
		Registry:     registry,
		Hooks:        hookRegistry,
		MaxSteps:     constants.DefaultMaxSteps,
		status:       StatusIdle,
		statusStream: make(chan Status, 16),
	}
}

// StatusStream returns a channel of status transitions a UI can observe.
// It is buffered and never closed by the engine; callers drain it
// best-effort.
func (e *Engine) StatusStream() <-chan Status {
	return e.statusStream
}

func (e *Engine) setStatus(s Status) {
	e.status = s
	select {
	case e.statusStream <- s:
	default:
	}
}

// Status returns the engine's current published status.
func (e *Engine) Status() Status {
	return e.status
}

// Run drives the loop to completion: append the user
// prompt, alternate model calls with tool dispatch, and return the
// concatenated text of the final tool-call-free response. Returns
// vcserrors.ToolLoopExhausted if max_steps is reached without the model
// stopping, and vcserrors.Cancelled if ctx is cancelled mid-flight.
func (e *Engine) Run(ctx context.Context, history []Message, prompt string) (string, []Message, error) {
	history = append(history, UserMessage(TextContent(prompt)))

	maxSteps := e.MaxSteps
	if maxSteps <= 0 {
		maxSteps = constants.DefaultMaxSteps
	}

	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", history, vcserrors.Cancelled()
		}

		e.setStatus(StatusThinking)
		resp, err := e.Model.Complete(ctx, CompletionRequest{
			Preamble: e.Preamble,
			History:  history,
			Tools:    e.Registry.Definitions(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", history, vcserrors.Cancelled()
			}
			return "", history, err
		}

		assistantMsg := AssistantMessage(resp.ID, resp.Content...)
		history = append(history, assistantMsg)

		toolCalls := assistantMsg.ToolCalls()
		if len(toolCalls) == 0 {
			e.setStatus(StatusIdle)
			return assistantMsg.TextOnly(), history, nil
		}

		for _, call := range toolCalls {
			if err := ctx.Err(); err != nil {
				return "", history, vcserrors.Cancelled()
			}

			hookIn := hooks.Input{
				Event:      hooks.EventPreToolUse,
				ToolName:   call.Name,
				ToolInput:  json.RawMessage(call.Arguments),
				WorkingDir: e.Registry.WorkingDir,
			}
			if e.Hooks != nil {
				if res := e.Hooks.RunAll(ctx, hooks.EventPreToolUse, hookIn); res.Blocked {
					history = append(history, UserMessage(ToolResultContent(call.ID, call.Name, nil, res.Reason)))
					continue
				}
			}

			if call.Name == "request_user_input" {
				e.setStatus(StatusAwaitingInput)
			} else {
				e.setStatus(StatusExecutingTool)
			}
			result, dispatchErr := e.Registry.Dispatch(ctx, call.Name, call.Arguments)

			var resultJSON json.RawMessage
			errMsg := ""
			if dispatchErr != nil {
				errMsg = dispatchErr.Error()
			} else {
				resultJSON = result
			}

			if e.Hooks != nil {
				postIn := hooks.Input{
					Event:      hooks.EventPostToolUse,
					ToolName:   call.Name,
					ToolInput:  json.RawMessage(call.Arguments),
					ToolOutput: resultJSON,
					WorkingDir: e.Registry.WorkingDir,
				}
				e.Hooks.RunAll(ctx, hooks.EventPostToolUse, postIn)
			}

			history = append(history, UserMessage(ToolResultContent(call.ID, call.Name, resultJSON, errMsg)))
		}
	}

	e.setStatus(StatusIdle)
	return "", history, vcserrors.ToolLoopExhausted(maxSteps)
}
