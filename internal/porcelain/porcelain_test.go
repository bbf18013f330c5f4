package porcelain

import (
	"strings"
	"testing"
	"time"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
)

func initTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Init(t.TempDir(), objstore.HashSHA1)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

var testAuthor = Actor{Name: "ada", Email: "ada@example.com"}

func TestInitCommitLog(t *testing.T) {
	repo := initTestRepo(t)

	commitID, err := repo.Commit(
		map[string][]byte{"a.txt": []byte("hello\n")},
		testAuthor, "init", time.Unix(1_700_000_000, 0),
	)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	head, err := refdb.HeadCurrent(repo.DB, nil)
	if err != nil {
		t.Fatalf("HeadCurrent: %v", err)
	}
	if !head.Symbolic || head.Branch != constants.DefaultBranch {
		t.Fatalf("expected HEAD on branch %s, got %+v", constants.DefaultBranch, head)
	}

	branch, err := refdb.FindBranch(repo.DB, constants.DefaultBranch, nil)
	if err != nil {
		t.Fatalf("FindBranch: %v", err)
	}
	if branch == nil || branch.Commit == nil || *branch.Commit != string(commitID) {
		t.Fatalf("branch %s should point at %s, got %+v", constants.DefaultBranch, commitID, branch)
	}

	payload, kind, err := repo.Store.Get(commitID)
	if err != nil || kind != objstore.KindCommit {
		t.Fatalf("Get commit = kind %v err %v", kind, err)
	}
	commit, err := DecodeCommit(payload)
	if err != nil {
		t.Fatalf("DecodeCommit: %v", err)
	}
	if len(commit.Parents) != 0 {
		t.Fatalf("initial commit should have no parents, got %v", commit.Parents)
	}
	if commit.Message != "init" {
		t.Fatalf("commit message = %q", commit.Message)
	}

	treePayload, kind, err := repo.Store.Get(commit.Tree)
	if err != nil || kind != objstore.KindTree {
		t.Fatalf("Get tree = kind %v err %v", kind, err)
	}
	entries, err := DecodeTree(treePayload)
	if err != nil {
		t.Fatalf("DecodeTree: %v", err)
	}
	wantBlob := objstore.Hash(objstore.KindBlob, []byte("hello\n"), objstore.HashSHA1)
	if len(entries) != 1 || entries[0].Name != "a.txt" || entries[0].ID != wantBlob || entries[0].Mode != ModeFile {
		t.Fatalf("tree entries = %+v, want one a.txt -> %s", entries, wantBlob)
	}

	log, err := repo.Log("HEAD", true)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected exactly one HEAD reflog row, got %d", len(log))
	}
	row := log[0]
	if row.Action != string(refdb.ActionCommit) || row.Message != "commit: init" {
		t.Fatalf("reflog row action/message = %q/%q", row.Action, row.Message)
	}
	if row.OldOID != strings.Repeat("0", 40) || row.NewOID != string(commitID) {
		t.Fatalf("reflog row oids = %s -> %s", row.OldOID, row.NewOID)
	}
}

func TestCommitChainsParent(t *testing.T) {
	repo := initTestRepo(t)

	first, err := repo.Commit(map[string][]byte{"a.txt": []byte("one\n")}, testAuthor, "first", time.Unix(100, 0))
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	second, err := repo.Commit(map[string][]byte{"a.txt": []byte("two\n")}, testAuthor, "second", time.Unix(200, 0))
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	payload, _, err := repo.Store.Get(second)
	if err != nil {
		t.Fatalf("Get second commit: %v", err)
	}
	commit, err := DecodeCommit(payload)
	if err != nil {
		t.Fatalf("DecodeCommit: %v", err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != first {
		t.Fatalf("second commit parents = %v, want [%s]", commit.Parents, first)
	}

	// Committing logs both the branch and HEAD, so two commits leave two
	// rows on each.
	branchLog, err := repo.Log(constants.RefsHeadsPrefix+constants.DefaultBranch, true)
	if err != nil || len(branchLog) != 2 {
		t.Fatalf("branch reflog rows = %d err %v", len(branchLog), err)
	}
}

func TestSwitchLogsHeadOnly(t *testing.T) {
	repo := initTestRepo(t)

	c1, err := repo.Commit(map[string][]byte{"a.txt": []byte("one\n")}, testAuthor, "first", time.Unix(100, 0))
	if err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	if err := refdb.UpdateBranch(repo.DB, "feature", string(c1), nil); err != nil {
		t.Fatalf("create feature branch: %v", err)
	}
	c2, err := repo.Commit(map[string][]byte{"a.txt": []byte("two\n")}, testAuthor, "second", time.Unix(200, 0))
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}

	if err := repo.Switch("feature", testAuthor, time.Unix(300, 0)); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	head, err := refdb.HeadCurrent(repo.DB, nil)
	if err != nil || !head.Symbolic || head.Branch != "feature" {
		t.Fatalf("HEAD after switch = %+v err %v", head, err)
	}

	log, err := repo.Log("HEAD", true)
	if err != nil {
		t.Fatalf("Log HEAD: %v", err)
	}
	if len(log) != 3 {
		t.Fatalf("expected 3 HEAD reflog rows (2 commits + 1 switch), got %d", len(log))
	}
	last := log[len(log)-1]
	if last.Action != string(refdb.ActionSwitch) || last.OldOID != string(c2) || last.NewOID != string(c1) {
		t.Fatalf("switch row = %+v, want switch %s -> %s", last, c2, c1)
	}
	if last.Message != "switch: moving from main to feature" {
		t.Fatalf("switch message = %q", last.Message)
	}

	// The target branch itself gets no reflog row from the switch.
	featureLog, err := repo.Log(constants.RefsHeadsPrefix+"feature", true)
	if err != nil {
		t.Fatalf("Log feature: %v", err)
	}
	if len(featureLog) != 0 {
		t.Fatalf("expected no rows on refs/heads/feature, got %d", len(featureLog))
	}
}

func TestCheckoutDetachesHead(t *testing.T) {
	repo := initTestRepo(t)

	c1, err := repo.Commit(map[string][]byte{"a.txt": []byte("one\n")}, testAuthor, "first", time.Unix(100, 0))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := repo.Checkout(c1, testAuthor, time.Unix(200, 0)); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	head, err := refdb.HeadCurrent(repo.DB, nil)
	if err != nil {
		t.Fatalf("HeadCurrent: %v", err)
	}
	if head.Symbolic || head.Commit != string(c1) {
		t.Fatalf("expected detached HEAD at %s, got %+v", c1, head)
	}

	// Committing on a detached HEAD is refused.
	if _, err := repo.Commit(map[string][]byte{"b.txt": []byte("x\n")}, testAuthor, "no", time.Unix(300, 0)); err == nil {
		t.Fatal("expected commit on detached HEAD to fail")
	}
}
