package toolloop

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

func addFilePatch(path, contents string) string {
	var b strings.Builder
	b.WriteString("*** Begin Patch\n")
	b.WriteString("*** Add File: " + path + "\n")
	for _, line := range strings.Split(contents, "\n") {
		b.WriteString("+" + line + "\n")
	}
	b.WriteString("*** End Patch")
	return b.String()
}

// TestApplyPatch_AddIdempotenceNegative: applying the same Add
// File patch twice fails on the second attempt, and the second attempt
// leaves the file untouched (no partial writes, since Add only ever
// either creates the whole file or fails before writing).
func TestApplyPatch_AddIdempotenceNegative(t *testing.T) {
	dir := t.TempDir()
	patch := addFilePatch(filepath.Join(dir, "new.txt"), "hello\nworld")

	result, err := ApplyPatch(dir, patch)
	if err != nil {
		t.Fatalf("first ApplyPatch: %v", err)
	}
	if len(result.AffectedPaths) != 1 {
		t.Fatalf("expected 1 affected path, got %+v", result.AffectedPaths)
	}

	before, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	if err != nil {
		t.Fatalf("read after first apply: %v", err)
	}

	_, err = ApplyPatch(dir, patch)
	if err == nil {
		t.Fatal("expected error re-applying Add File patch, got nil")
	}

	after, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	if err != nil {
		t.Fatalf("read after second apply: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("file contents changed after failed re-apply: before=%q after=%q", before, after)
	}
}

// TestApplyPatch_FuzzySeekOrder: an exact match never falls
// through to the looser tiers, and a hunk needing full trimming only
// succeeds after the exact and trailing-trim tiers have both failed.
func TestApplyPatch_FuzzySeekOrder(t *testing.T) {
	t.Run("exact match uses tier 0", func(t *testing.T) {
		file := []string{"line1", "line2", "line3"}
		search := []string{"line1", "line2"}
		start, tier := seekSequence(file, search)
		if start != 0 || tier != 0 {
			t.Fatalf("got start=%d tier=%d, want start=0 tier=0", start, tier)
		}
	})

	t.Run("trailing whitespace only matches at tier 1", func(t *testing.T) {
		file := []string{"line1  ", "line2", "line3"}
		search := []string{"line1", "line2"}
		start, tier := seekSequence(file, search)
		if start != 0 || tier != 1 {
			t.Fatalf("got start=%d tier=%d, want start=0 tier=1", start, tier)
		}
	})

	t.Run("leading and trailing whitespace only matches at tier 2", func(t *testing.T) {
		file := []string{"  line1  ", "line2"}
		search := []string{"line1", "  line2"}
		start, tier := seekSequence(file, search)
		if start != 0 || tier != 2 {
			t.Fatalf("got start=%d tier=%d, want start=0 tier=2", start, tier)
		}
	})

	t.Run("no match at any tier", func(t *testing.T) {
		file := []string{"alpha", "beta"}
		search := []string{"gamma"}
		start, tier := seekSequence(file, search)
		if start != -1 || tier != -1 {
			t.Fatalf("got start=%d tier=%d, want -1,-1", start, tier)
		}
	})
}

// TestApplyPatch_Scenario_FuzzyUpdateThenHunkNotFound: updating
// f.txt replaces "line2" with "line two", and re-applying the same patch
// fails with HunkNotFound since "line2" no longer exists to match.
func TestApplyPatch_Scenario_FuzzyUpdateThenHunkNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("line1\nline2\nline3\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	patch := "*** Begin Patch\n" +
		"*** Update File: " + path + "\n" +
		"@@\n" +
		" line1\n" +
		"-line2\n" +
		"+line two\n" +
		" line3\n" +
		"*** End Patch"

	_, err := ApplyPatch(dir, patch)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "line1\nline two\nline3\n" {
		t.Fatalf("got %q, want %q", got, "line1\nline two\nline3\n")
	}

	_, err = ApplyPatch(dir, patch)
	if err == nil {
		t.Fatal("expected HunkNotFound on re-apply, got nil")
	}
	var verr *vcserrors.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *vcserrors.Error, got %T: %v", err, err)
	}
	if verr.Kind != vcserrors.KindHunkNotFound {
		t.Errorf("Kind = %v, want KindHunkNotFound", verr.Kind)
	}
}

func TestApplyPatch_DeleteMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	patch := "*** Begin Patch\n*** Delete File: " + filepath.Join(dir, "missing.txt") + "\n*** End Patch"
	_, err := ApplyPatch(dir, patch)
	if err == nil {
		t.Fatal("expected error deleting a file that does not exist")
	}
}

func TestApplyPatch_MoveRenamesFile(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(oldPath, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	patch := "*** Begin Patch\n" +
		"*** Update File: " + oldPath + "\n" +
		"*** Move to: " + newPath + "\n" +
		"@@\n" +
		" a\n" +
		"-b\n" +
		"+b2\n" +
		"*** End Patch"

	_, err := ApplyPatch(dir, patch)
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("expected old path removed, stat err = %v", err)
	}
	got, err := os.ReadFile(newPath)
	if err != nil {
		t.Fatalf("read new path: %v", err)
	}
	if string(got) != "a\nb2\n" {
		t.Errorf("got %q, want %q", got, "a\nb2\n")
	}
}
