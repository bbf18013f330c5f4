// Package session keeps the append-only turn history a Run accumulates
// while driving the tool loop. A State is the in-memory working copy;
// Snapshot freezes it into the
// intent.ContextSnapshot shape the AI history ledger persists, so a
// session can be reconstructed after a process restart by replaying the
// most recent snapshot's History back into a fresh toolloop.Engine call.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/libra-vcs/libra/internal/agent/intent"
	"github.com/libra-vcs/libra/internal/toolloop"
)

// State is the live, mutable session the tool loop appends to during a
// Run. It is never itself persisted directly — Snapshot produces the
// immutable record that goes through the ledger.
type State struct {
	ID         string
	RunID      string
	WorkingDir string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Summary    string
	History    []toolloop.Message
}

// New starts a fresh session for runID rooted at workingDir.
func New(runID, workingDir string, now time.Time) *State {
	return &State{
		ID:         uuid.NewString(),
		RunID:      runID,
		WorkingDir: workingDir,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AppendUser records a user-role message (a prompt or a tool result fed
// back into the loop).
func (s *State) AppendUser(msg toolloop.Message, now time.Time) {
	s.History = append(s.History, msg)
	s.UpdatedAt = now
}

// AppendAssistant records the model's response for one step.
func (s *State) AppendAssistant(msg toolloop.Message, now time.Time) {
	s.History = append(s.History, msg)
	s.UpdatedAt = now
}

// MessageCount returns the number of turns recorded so far.
func (s *State) MessageCount() int { return len(s.History) }

// TouchedFiles collects the distinct "path" arguments of the tool calls in
// History (read_file, list_dir and grep_files carry one), used to populate
// Snapshot's Files field. apply_patch calls are not scanned: their paths
// sit inside the patch text.
func (s *State) TouchedFiles() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range s.History {
		for _, c := range m.Content {
			if c.Kind != toolloop.ContentToolCall {
				continue
			}
			var args struct {
				Path string `json:"path"`
			}
			if err := json.Unmarshal(c.Arguments, &args); err != nil || args.Path == "" {
				continue
			}
			if !seen[args.Path] {
				seen[args.Path] = true
				out = append(out, args.Path)
			}
		}
	}
	return out
}

// Snapshot freezes the current history into a ContextSnapshot ready for
// ledger.Append (as TypeContextSnapshot), so the session survives a
// process restart.
func (s *State) Snapshot(now time.Time) (intent.ContextSnapshot, error) {
	historyJSON, err := json.Marshal(s.History)
	if err != nil {
		return intent.ContextSnapshot{}, fmt.Errorf("marshal session history: %w", err)
	}
	return intent.NewContextSnapshot(s.RunID, s.Summary, s.TouchedFiles(), string(historyJSON), now), nil
}

// Restore rebuilds a State's History from a previously persisted
// ContextSnapshot (the reverse of Snapshot), letting a Run resume a tool
// loop across a process restart.
func Restore(snap intent.ContextSnapshot, workingDir string) (*State, error) {
	var history []toolloop.Message
	if snap.History != "" {
		if err := json.Unmarshal([]byte(snap.History), &history); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot history: %w", err)
		}
	}
	return &State{
		ID:         snap.ID,
		RunID:      snap.RunID,
		WorkingDir: workingDir,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.CreatedAt,
		Summary:    snap.Summary,
		History:    history,
	}, nil
}
