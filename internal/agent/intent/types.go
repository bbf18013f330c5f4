// Package intent defines the AI process objects the history ledger
// tracks — Intent, Task, Run, Plan, PatchSet, Evidence, ToolInvocation,
// Provenance, Decision, ContextSnapshot — each with a UUID, a
// constructor, and a MarshalBlob/UnmarshalBlob round-trip to the JSON
// blob shape the ledger persists.
package intent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntentStatus is the closed lifecycle enum of an Intent.
type IntentStatus string

const (
	IntentDraft     IntentStatus = "draft"
	IntentActive    IntentStatus = "active"
	IntentCompleted IntentStatus = "completed"
	IntentDiscarded IntentStatus = "discarded"
)

// Intent is a user prompt or high-level goal, the root of the AI history
// chain.
type Intent struct {
	ID          string       `json:"id"`
	ParentID    string       `json:"parent_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	TaskID      string       `json:"task_id,omitempty"`
	CommitSHA   string       `json:"commit_sha,omitempty"`
	Status      IntentStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewIntent builds an Active Intent with a fresh id, optionally chained
// to parentID (empty string for a root intent).
func NewIntent(title, description, parentID string, createdAt time.Time) Intent {
	return Intent{
		ID:          uuid.NewString(),
		ParentID:    parentID,
		Title:       title,
		Description: description,
		Status:      IntentActive,
		CreatedAt:   createdAt,
	}
}

// MarshalBlob serializes an Intent to the JSON blob the ledger persists.
func (i Intent) MarshalBlob() ([]byte, error) { return json.Marshal(i) }

// UnmarshalIntent reverses MarshalBlob.
func UnmarshalIntent(blob []byte) (Intent, error) {
	var i Intent
	err := json.Unmarshal(blob, &i)
	return i, err
}

// TaskStatus tracks a Task's progress through the tool loop.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is one unit of work an Intent decomposes into, driven by one or
// more Runs of the tool loop.
type Task struct {
	ID        string     `json:"id"`
	IntentID  string     `json:"intent_id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewTask builds a Pending Task under intentID.
func NewTask(intentID, title string, createdAt time.Time) Task {
	return Task{ID: uuid.NewString(), IntentID: intentID, Title: title, Status: TaskPending, CreatedAt: createdAt}
}

func (t Task) MarshalBlob() ([]byte, error) { return json.Marshal(t) }

func UnmarshalTask(blob []byte) (Task, error) {
	var t Task
	err := json.Unmarshal(blob, &t)
	return t, err
}

// Run is one invocation of the tool loop engine against a Task: it
// records the model used, the step count reached, and the final outcome.
type Run struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Model      string    `json:"model"`
	Steps      int       `json:"steps"`
	FinalText  string    `json:"final_text,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewRun starts a Run record for taskID against model.
func NewRun(taskID, model string, startedAt time.Time) Run {
	return Run{ID: uuid.NewString(), TaskID: taskID, Model: model, StartedAt: startedAt}
}

func (r Run) MarshalBlob() ([]byte, error) { return json.Marshal(r) }

func UnmarshalRun(blob []byte) (Run, error) {
	var r Run
	err := json.Unmarshal(blob, &r)
	return r, err
}

// PlanEntry is one step of a Plan, matching the update_plan tool's
// {step, status} shape.
type PlanEntry struct {
	Step   string `json:"step"`
	Status string `json:"status"`
}

// Plan is the step-by-step plan surfaced by update_plan during a Run,
// persisted so it can be reconstructed after a process restart.
type Plan struct {
	ID          string      `json:"id"`
	RunID       string      `json:"run_id"`
	Explanation string      `json:"explanation,omitempty"`
	Entries     []PlanEntry `json:"entries"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewPlan builds a Plan for runID.
func NewPlan(runID, explanation string, entries []PlanEntry, createdAt time.Time) Plan {
	return Plan{ID: uuid.NewString(), RunID: runID, Explanation: explanation, Entries: entries, CreatedAt: createdAt}
}

func (p Plan) MarshalBlob() ([]byte, error) { return json.Marshal(p) }

func UnmarshalPlan(blob []byte) (Plan, error) {
	var p Plan
	err := json.Unmarshal(blob, &p)
	return p, err
}

// PatchSetFile summarizes one file's change within a PatchSet, matching
// the toolloop package's FileDiff shape.
type PatchSetFile struct {
	Path         string `json:"path"`
	NewPath      string `json:"new_path,omitempty"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// PatchSet records one apply_patch call's effect: the raw patch text and
// the per-file summary it produced.
type PatchSet struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	PatchText string         `json:"patch_text"`
	Files     []PatchSetFile `json:"files"`
	AppliedAt time.Time      `json:"applied_at"`
}

// NewPatchSet builds a PatchSet record for runID.
func NewPatchSet(runID, patchText string, files []PatchSetFile, appliedAt time.Time) PatchSet {
	return PatchSet{ID: uuid.NewString(), RunID: runID, PatchText: patchText, Files: files, AppliedAt: appliedAt}
}

func (p PatchSet) MarshalBlob() ([]byte, error) { return json.Marshal(p) }

func UnmarshalPatchSet(blob []byte) (PatchSet, error) {
	var p PatchSet
	err := json.Unmarshal(blob, &p)
	return p, err
}

// Evidence is a supporting artifact a Run collected while working a
// Task — a grep result, a test log excerpt, a fetched URL's contents.
type Evidence struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvidence builds an Evidence record for runID.
func NewEvidence(runID, description, content string, createdAt time.Time) Evidence {
	return Evidence{ID: uuid.NewString(), RunID: runID, Description: description, Content: content, CreatedAt: createdAt}
}

func (e Evidence) MarshalBlob() ([]byte, error) { return json.Marshal(e) }

func UnmarshalEvidence(blob []byte) (Evidence, error) {
	var e Evidence
	err := json.Unmarshal(blob, &e)
	return e, err
}

// ToolInvocation is one dispatched tool call within a Run: its name,
// arguments, result (or error), and duration.
type ToolInvocation struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	ToolName  string        `json:"tool_name"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewToolInvocation builds a ToolInvocation record.
func NewToolInvocation(runID, toolName, arguments string, createdAt time.Time) ToolInvocation {
	return ToolInvocation{ID: uuid.NewString(), RunID: runID, ToolName: toolName, Arguments: arguments, CreatedAt: createdAt}
}

func (t ToolInvocation) MarshalBlob() ([]byte, error) { return json.Marshal(t) }

func UnmarshalToolInvocation(blob []byte) (ToolInvocation, error) {
	var t ToolInvocation
	err := json.Unmarshal(blob, &t)
	return t, err
}

// Provenance links a resulting commit hash back to the Run (and, through
// it, the Task/Intent) that produced it — the join table a reviewer or
// auditor walks to answer "why does this commit exist".
type Provenance struct {
	ID        string    `json:"id"`
	CommitSHA string    `json:"commit_sha"`
	RunID     string    `json:"run_id"`
	TaskID    string    `json:"task_id"`
	IntentID  string    `json:"intent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProvenance builds a Provenance record linking a commit to its run.
func NewProvenance(commitSHA, runID, taskID, intentID string, createdAt time.Time) Provenance {
	return Provenance{ID: uuid.NewString(), CommitSHA: commitSHA, RunID: runID, TaskID: taskID, IntentID: intentID, CreatedAt: createdAt}
}

func (p Provenance) MarshalBlob() ([]byte, error) { return json.Marshal(p) }

func UnmarshalProvenance(blob []byte) (Provenance, error) {
	var p Provenance
	err := json.Unmarshal(blob, &p)
	return p, err
}

// Decision records a point where the agent (or a human) chose between
// alternatives — e.g. which of several patch strategies to apply —
// together with the reasoning, so the ledger can answer "why this path".
type Decision struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Question     string    `json:"question"`
	ChosenOption string    `json:"chosen_option"`
	Rationale    string    `json:"rationale,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewDecision builds a Decision record for runID.
func NewDecision(runID, question, chosenOption, rationale string, createdAt time.Time) Decision {
	return Decision{ID: uuid.NewString(), RunID: runID, Question: question, ChosenOption: chosenOption, Rationale: rationale, CreatedAt: createdAt}
}

func (d Decision) MarshalBlob() ([]byte, error) { return json.Marshal(d) }

func UnmarshalDecision(blob []byte) (Decision, error) {
	var d Decision
	err := json.Unmarshal(blob, &d)
	return d, err
}

// ContextSnapshot is the serialized conversation history at a point in a
// Run, letting a session resume after a process restart.
type ContextSnapshot struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Files     []string  `json:"files"`
	Summary   string    `json:"summary"`
	History   string    `json:"history"` // JSON-encoded []toolloop.Message
	CreatedAt time.Time `json:"created_at"`
}

// NewContextSnapshot builds a ContextSnapshot for runID.
func NewContextSnapshot(runID, summary string, files []string, historyJSON string, createdAt time.Time) ContextSnapshot {
	return ContextSnapshot{ID: uuid.NewString(), RunID: runID, Files: files, Summary: summary, History: historyJSON, CreatedAt: createdAt}
}

func (c ContextSnapshot) MarshalBlob() ([]byte, error) { return json.Marshal(c) }

func UnmarshalContextSnapshot(blob []byte) (ContextSnapshot, error) {
	var c ContextSnapshot
	err := json.Unmarshal(blob, &c)
	return c, err
}
