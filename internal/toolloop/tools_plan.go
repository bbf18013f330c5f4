package toolloop

import (
	"context"
	"encoding/json"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

const updatePlanSchema = `{"type":"object","properties":{"explanation":{"type":"string"},"plan":{"type":"array","items":{"type":"object","properties":{"step":{"type":"string"},"status":{"type":"string"}},"required":["step","status"]}}},"required":["plan"]}`

// PlanStep is one entry of an update_plan call.
type PlanStep struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

type updatePlanArgs struct {
	Explanation string     `json:"explanation,omitempty"`
	Plan        []PlanStep `json:"plan"`
}

// PlanSink receives update_plan calls for a UI to render; nil means the
// plan is surfaced nowhere (still a valid no-op).
type PlanSink func(explanation string, plan []PlanStep)

// RegisterUpdatePlan adds the update_plan built-in: it has no filesystem
// effect, it only surfaces the plan to sink.
func RegisterUpdatePlan(r *ToolRegistry, sink PlanSink) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "update_plan",
			Description: "Surface the current step-by-step plan to the UI. No filesystem effect.",
			Parameters:  json.RawMessage(updatePlanSchema),
		},
		Kind: ToolKindFunction,
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args updatePlanArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "update_plan arguments", err)
			}
			if sink != nil {
				sink(args.Explanation, args.Plan)
			}
			return json.Marshal("Plan updated")
		},
	})
}

const requestUserInputSchema = `{"type":"object","properties":{"questions":{"type":"array","items":{"type":"object","properties":{"id":{"type":"string"},"header":{"type":"string"},"question":{"type":"string"},"options":{"type":"array","items":{"type":"object","properties":{"label":{"type":"string"},"description":{"type":"string"}}}}},"required":["id","question"]}}},"required":["questions"]}`

// QuestionOption is one choice offered for a question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is one item of a request_user_input call.
type Question struct {
	ID       string           `json:"id"`
	Header   string           `json:"header,omitempty"`
	Question string           `json:"question"`
	Options  []QuestionOption `json:"options,omitempty"`
}

type requestUserInputArgs struct {
	Questions []Question `json:"questions"`
}

type requestUserInputResult struct {
	Answers map[string]string `json:"answers"`
}

// UserInputChannel is the host's bridge for request_user_input; Ask blocks
// until the UI returns an id-to-label answer map. A nil channel means no
// interactive UI is attached.
type UserInputChannel interface {
	Ask(ctx context.Context, questions []Question) (map[string]string, error)
}

// RegisterRequestUserInput adds the request_user_input built-in. With no
// channel attached, every call fails with a KindValidation error "TUI is
// not available".
func RegisterRequestUserInput(r *ToolRegistry, channel UserInputChannel) {
	r.Register(ToolHandler{
		Definition: ToolDefinition{
			Name:        "request_user_input",
			Description: "Ask the user one or more questions and block until answered.",
			Parameters:  json.RawMessage(requestUserInputSchema),
		},
		Kind: ToolKindFunction,
		Call: func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
			var args requestUserInputArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, vcserrors.Wrap(vcserrors.KindValidation, "request_user_input arguments", err)
			}
			if channel == nil {
				return nil, vcserrors.New(vcserrors.KindValidation, "TUI is not available")
			}
			answers, err := channel.Ask(ctx, args.Questions)
			if err != nil {
				return nil, err
			}
			return json.Marshal(requestUserInputResult{Answers: answers})
		},
	})
}
