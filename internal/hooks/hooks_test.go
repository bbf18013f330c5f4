package hooks

import (
	"context"
	"testing"
	"time"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		matcher  string
		toolName string
		want     bool
	}{
		{"", "read_file", true},
		{"*", "apply_patch", true},
		{"read_file", "read_file", true},
		{"read_file", "list_dir", false},
		{"read_file|apply_patch", "apply_patch", true},
		{"read_file|apply_patch", "grep_files", false},
	}
	for _, tc := range cases {
		h := Hook{Matcher: tc.matcher}
		if got := h.Matches(tc.toolName); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.matcher, tc.toolName, got, tc.want)
		}
	}
}

func preInput(tool string) Input {
	return Input{Event: EventPreToolUse, ToolName: tool, WorkingDir: "/w"}
}

func TestPreHookExitTwoBlocksWithStderr(t *testing.T) {
	h := Hook{Event: EventPreToolUse, Matcher: "*", Command: `echo "no network tools" >&2; exit 2`}
	res := Run(context.Background(), h, preInput("read_file"))
	if !res.Blocked {
		t.Fatal("exit code 2 must block a PreToolUse call")
	}
	if res.Reason != "no network tools" {
		t.Fatalf("block reason = %q, want the hook's stderr", res.Reason)
	}
}

func TestPreHookOtherNonzeroExitIsNonBlocking(t *testing.T) {
	h := Hook{Event: EventPreToolUse, Matcher: "*", Command: `exit 1`}
	res := Run(context.Background(), h, preInput("read_file"))
	if res.Blocked {
		t.Fatalf("exit code 1 must not block, got reason %q", res.Reason)
	}
}

func TestHookTimeoutPolicy(t *testing.T) {
	cases := []struct {
		name      string
		event     Event
		wantBlock bool
	}{
		{"pre blocks", EventPreToolUse, true},
		{"post does not", EventPostToolUse, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Hook{Event: tc.event, Matcher: "*", Command: `sleep 5`, Timeout: 100 * time.Millisecond}
			res := Run(context.Background(), h, Input{Event: tc.event, ToolName: "read_file", WorkingDir: "/w"})
			if res.Blocked != tc.wantBlock {
				t.Fatalf("timeout blocked=%v, want %v", res.Blocked, tc.wantBlock)
			}
			if tc.wantBlock && res.Reason != "timeout" {
				t.Fatalf("timeout reason = %q", res.Reason)
			}
		})
	}
}

func TestInvalidJSONStdout(t *testing.T) {
	pre := Hook{Event: EventPreToolUse, Matcher: "*", Command: `echo this-is-not-json`}
	res := Run(context.Background(), pre, preInput("read_file"))
	if !res.Blocked || res.Reason != "invalid hook output" {
		t.Fatalf("pre hook with garbage stdout = %+v, want Block(invalid hook output)", res)
	}

	post := Hook{Event: EventPostToolUse, Matcher: "*", Command: `echo this-is-not-json`}
	res = Run(context.Background(), post, Input{Event: EventPostToolUse, ToolName: "read_file", WorkingDir: "/w"})
	if res.Blocked {
		t.Fatalf("post hook with garbage stdout must be treated as allow, got %+v", res)
	}
}

func TestBlockDecisionViaStdout(t *testing.T) {
	h := Hook{Event: EventPreToolUse, Matcher: "*", Command: `echo '{"decision":"block","reason":"nope"}'`}
	res := Run(context.Background(), h, preInput("apply_patch"))
	if !res.Blocked || res.Reason != "nope" {
		t.Fatalf("stdout block decision = %+v", res)
	}
}

func TestHookReceivesInputOnStdin(t *testing.T) {
	// The hook greps its own stdin for the tool name and blocks when it is
	// present, proving the JSON payload actually arrives.
	h := Hook{
		Event:   EventPreToolUse,
		Matcher: "*",
		Command: `if grep -q '"tool_name":"read_file"'; then echo "saw it" >&2; exit 2; fi`,
	}
	res := Run(context.Background(), h, preInput("read_file"))
	if !res.Blocked || res.Reason != "saw it" {
		t.Fatalf("hook did not observe its stdin payload: %+v", res)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Hook{Event: EventPreToolUse, Matcher: "grep_files", Command: `exit 2`})
	reg.Register(Hook{Event: EventPostToolUse, Matcher: "*", Command: `exit 2`})
	reg.Register(Hook{Event: EventPreToolUse, Matcher: "read_file", Command: `echo "blocked by matcher" >&2; exit 2`})

	// Only the hook whose event AND matcher both line up runs.
	res := reg.RunAll(context.Background(), EventPreToolUse, preInput("read_file"))
	if !res.Blocked || res.Reason != "blocked by matcher" {
		t.Fatalf("RunAll = %+v, want the read_file hook's block", res)
	}

	res = reg.RunAll(context.Background(), EventPreToolUse, preInput("list_dir"))
	if res.Blocked {
		t.Fatalf("no registered hook matches list_dir, got %+v", res)
	}
}
