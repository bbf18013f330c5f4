package session

import (
	"testing"
	"time"

	"github.com/libra-vcs/libra/internal/toolloop"
)

func TestNewSessionHasUniqueID(t *testing.T) {
	now := time.Now()
	s1 := New("run-1", "/tmp/work", now)
	s2 := New("run-1", "/tmp/work", now)
	if s1.ID == "" {
		t.Fatal("expected a non-empty session id")
	}
	if s1.ID == s2.ID {
		t.Fatal("expected distinct session ids across New calls")
	}
	if s1.MessageCount() != 0 {
		t.Fatalf("expected a fresh session to have no history, got %d", s1.MessageCount())
	}
}

func TestAppendTracksMessageCount(t *testing.T) {
	now := time.Now()
	s := New("run-1", "/tmp/work", now)
	s.AppendUser(toolloop.UserMessage(toolloop.TextContent("hello")), now)
	s.AppendAssistant(toolloop.AssistantMessage("resp-1", toolloop.TextContent("hi there")), now)

	if s.MessageCount() != 2 {
		t.Fatalf("expected 2 messages, got %d", s.MessageCount())
	}
	if s.History[0].Role != toolloop.RoleUser || s.History[0].TextOnly() != "hello" {
		t.Fatalf("unexpected first message: %+v", s.History[0])
	}
	if s.History[1].Role != toolloop.RoleAssistant || s.History[1].TextOnly() != "hi there" {
		t.Fatalf("unexpected second message: %+v", s.History[1])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	s := New("run-1", "/tmp/work", now)
	s.AppendUser(toolloop.UserMessage(toolloop.TextContent("do the thing")), now)
	s.Summary = "did the thing"

	snap, err := s.Snapshot(now)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RunID != "run-1" || snap.Summary != "did the thing" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	restored, err := Restore(snap, "/tmp/work")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.MessageCount() != 1 {
		t.Fatalf("expected restored history to have 1 message, got %d", restored.MessageCount())
	}
	if restored.History[0].TextOnly() != "do the thing" {
		t.Fatalf("unexpected restored message: %+v", restored.History[0])
	}
}
