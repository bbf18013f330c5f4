package refdb

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "libra.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHeadOnMain(t *testing.T, db *DB, commit string) {
	t.Helper()
	if err := UpdateBranch(db, "main", commit, nil); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if err := HeadUpdate(db, Head{Symbolic: true, Branch: "main"}, nil); err != nil {
		t.Fatalf("seed head: %v", err)
	}
}

func TestWithReflog_CommitEmitsBranchAndHead(t *testing.T) {
	db := openTestDB(t)
	seedHeadOnMain(t, db, "c1")

	ctx := TxnContext{
		OldOID: "c1", NewOID: "c2",
		Action:         CommitAction("second commit"),
		CommitterName:  "a", CommitterEmail: "a@example.com",
		Timestamp: 100,
	}
	err := WithReflog(db, ctx, true, func(tx *sql.Tx) error {
		return UpdateBranch(tx, "main", "c2", nil)
	})
	if err != nil {
		t.Fatalf("WithReflog: %v", err)
	}

	headEntries, err := ReflogIter(db, "HEAD", true)
	if err != nil {
		t.Fatalf("ReflogIter HEAD: %v", err)
	}
	if len(headEntries) != 1 {
		t.Fatalf("expected 1 HEAD reflog row, got %d", len(headEntries))
	}

	branchEntries, err := ReflogIter(db, "refs/heads/main", true)
	if err != nil {
		t.Fatalf("ReflogIter branch: %v", err)
	}
	if len(branchEntries) != 1 {
		t.Fatalf("expected 1 branch reflog row, got %d", len(branchEntries))
	}
}

func TestWithReflog_SwitchEmitsOnlyHead(t *testing.T) {
	db := openTestDB(t)
	seedHeadOnMain(t, db, "c1")
	if err := UpdateBranch(db, "feature", "c1", nil); err != nil {
		t.Fatalf("create feature branch: %v", err)
	}

	ctx := TxnContext{
		OldOID: "c1", NewOID: "c1",
		Action:        SwitchAction("main", "feature"),
		CommitterName: "a", CommitterEmail: "a@example.com",
		Timestamp: 200,
	}
	err := WithReflog(db, ctx, false, func(tx *sql.Tx) error {
		return HeadUpdate(tx, Head{Symbolic: true, Branch: "feature"}, nil)
	})
	if err != nil {
		t.Fatalf("WithReflog: %v", err)
	}

	headEntries, err := ReflogIter(db, "HEAD", true)
	if err != nil || len(headEntries) != 1 {
		t.Fatalf("expected exactly 1 HEAD reflog row, got %d err=%v", len(headEntries), err)
	}

	branchEntries, err := ReflogIter(db, "refs/heads/feature", true)
	if err != nil {
		t.Fatalf("ReflogIter: %v", err)
	}
	if len(branchEntries) != 0 {
		t.Fatalf("expected no reflog row against refs/heads/feature, got %d", len(branchEntries))
	}
}

func TestWithReflog_RollsBackOnBodyError(t *testing.T) {
	db := openTestDB(t)
	seedHeadOnMain(t, db, "c1")

	wantErr := errors.New("body failed")
	ctx := TxnContext{OldOID: "c1", NewOID: "c2", Action: CommitAction("x"), Timestamp: 1}
	err := WithReflog(db, ctx, true, func(tx *sql.Tx) error {
		_ = UpdateBranch(tx, "main", "c2", nil)
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped body error, got %v", err)
	}

	ref, err := FindBranch(db, "main", nil)
	if err != nil {
		t.Fatalf("FindBranch: %v", err)
	}
	if ref == nil || *ref.Commit != "c1" {
		t.Fatalf("branch update should have been rolled back, got %+v", ref)
	}

	entries, _ := ReflogIter(db, "HEAD", true)
	if len(entries) != 0 {
		t.Fatalf("expected no reflog rows after rollback, got %d", len(entries))
	}
}

func TestReflogIter_OrderingAndDirection(t *testing.T) {
	db := openTestDB(t)
	for i, ts := range []int64{30, 10, 20} {
		e := ReflogEntry{
			RefName: "refs/heads/main", OldOID: "o", NewOID: "n",
			CommitterName: "a", CommitterEmail: "a@x.com",
			Timestamp: ts, Action: "commit", Message: "m",
		}
		_ = i
		if err := ReflogAppend(db, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	oldest, err := ReflogIter(db, "refs/heads/main", true)
	if err != nil {
		t.Fatalf("ReflogIter oldest-first: %v", err)
	}
	for i := 1; i < len(oldest); i++ {
		if oldest[i-1].Timestamp > oldest[i].Timestamp {
			t.Fatalf("expected oldest-first order, got %v", oldest)
		}
	}

	newest, err := ReflogIter(db, "refs/heads/main", false)
	if err != nil {
		t.Fatalf("ReflogIter newest-first: %v", err)
	}
	for i := 1; i < len(newest); i++ {
		if newest[i-1].Timestamp < newest[i].Timestamp {
			t.Fatalf("expected newest-first order, got %v", newest)
		}
	}
}

func TestConfig_GetAllAndRemove(t *testing.T) {
	db := openTestDB(t)
	sub := "origin"
	entries := []string{"https://a.example/repo.git", "https://b.example/repo.git"}
	for _, url := range entries {
		if err := ConfigInsert(db, ConfigEntry{Section: "remote", Subsection: &sub, Key: "url", Value: url}); err != nil {
			t.Fatalf("ConfigInsert: %v", err)
		}
	}

	all, err := ConfigGetAll(db, "remote", &sub, "url")
	if err != nil {
		t.Fatalf("ConfigGetAll: %v", err)
	}
	if len(all) != 2 || all[0] != entries[0] || all[1] != entries[1] {
		t.Fatalf("expected insertion order %v, got %v", entries, all)
	}

	if err := RemoveConfig(db, "remote", &sub, "url", false); err != nil {
		t.Fatalf("RemoveConfig: %v", err)
	}
	remaining, err := ConfigGetAll(db, "remote", &sub, "url")
	if err != nil {
		t.Fatalf("ConfigGetAll after remove: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != entries[1] {
		t.Fatalf("expected only %q left, got %v", entries[1], remaining)
	}
}

func TestRenameRemote(t *testing.T) {
	db := openTestDB(t)
	remoteName := "origin"
	if _, err := db.Exec(`INSERT INTO reference (kind, name, commit_hash, remote) VALUES (?, ?, ?, ?)`,
		string(KindBranch), "main", "c1", remoteName); err != nil {
		t.Fatalf("seed remote-tracking ref: %v", err)
	}
	if err := ConfigInsert(db, ConfigEntry{Section: "remote", Subsection: &remoteName, Key: "url", Value: "https://example/repo.git"}); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	if err := RenameRemote(db, "origin", "upstream"); err != nil {
		t.Fatalf("RenameRemote: %v", err)
	}

	upstream := "upstream"
	refs, err := ListBranches(db, &upstream)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 renamed remote-tracking ref, got %d", len(refs))
	}

	vals, err := ConfigGetAll(db, "remote", &upstream, "url")
	if err != nil {
		t.Fatalf("ConfigGetAll: %v", err)
	}
	if len(vals) != 1 {
		t.Fatalf("expected renamed config block, got %v", vals)
	}
}
