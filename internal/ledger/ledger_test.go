package ledger

import (
	"path/filepath"
	"testing"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
)

func newTestLedger(t *testing.T) (*Ledger, objstore.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := objstore.NewFileStore(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	db, err := refdb.Open(filepath.Join(dir, "libra.db"))
	if err != nil {
		t.Fatalf("refdb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(store, db, objstore.HashSHA1), store
}

func putBlob(t *testing.T, store objstore.Store, contents string) objstore.ID {
	t.Helper()
	id := objstore.Hash(objstore.KindBlob, []byte(contents), objstore.HashSHA1)
	if _, err := store.Put(id, []byte(contents), objstore.KindBlob); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	return id
}

// TestLedger_AppendOrderAndListing: appending Intent I1, Task
// T1, Intent I2 in sequence makes list_objects(Intent) return {I1, I2},
// list_objects(Task) return {T1}, and resolve_history_head advance with
// each append.
func TestLedger_AppendOrderAndListing(t *testing.T) {
	l, store := newTestLedger(t)

	blobI1 := putBlob(t, store, `{"id":"I1"}`)
	blobT1 := putBlob(t, store, `{"id":"T1"}`)
	blobI2 := putBlob(t, store, `{"id":"I2"}`)

	head0, has0, err := l.ResolveHistoryHead()
	if err != nil {
		t.Fatalf("ResolveHistoryHead (empty): %v", err)
	}
	if has0 {
		t.Fatalf("expected no ledger head before any append, got %s", head0)
	}

	c1, err := l.Append(TypeIntent, "I1", blobI1)
	if err != nil {
		t.Fatalf("append I1: %v", err)
	}
	c2, err := l.Append(TypeTask, "T1", blobT1)
	if err != nil {
		t.Fatalf("append T1: %v", err)
	}
	c3, err := l.Append(TypeIntent, "I2", blobI2)
	if err != nil {
		t.Fatalf("append I2: %v", err)
	}

	if c1 == c2 || c2 == c3 || c1 == c3 {
		t.Fatalf("expected distinct commit hashes per append, got %s, %s, %s", c1, c2, c3)
	}

	head, has, err := l.ResolveHistoryHead()
	if err != nil {
		t.Fatalf("ResolveHistoryHead: %v", err)
	}
	if !has || head != c3 {
		t.Fatalf("ResolveHistoryHead = (%s, %v), want (%s, true)", head, has, c3)
	}

	intents, err := l.ListObjects(TypeIntent)
	if err != nil {
		t.Fatalf("ListObjects(Intent): %v", err)
	}
	if len(intents) != 2 || intents[0] != "I1" || intents[1] != "I2" {
		t.Fatalf("ListObjects(Intent) = %v, want [I1 I2]", intents)
	}

	tasks, err := l.ListObjects(TypeTask)
	if err != nil {
		t.Fatalf("ListObjects(Task): %v", err)
	}
	if len(tasks) != 1 || tasks[0] != "T1" {
		t.Fatalf("ListObjects(Task) = %v, want [T1]", tasks)
	}

	hash, typ, err := l.FindObjectHash("T1")
	if err != nil {
		t.Fatalf("FindObjectHash(T1): %v", err)
	}
	if hash != blobT1 || typ != TypeTask {
		t.Fatalf("FindObjectHash(T1) = (%s, %s), want (%s, %s)", hash, typ, blobT1, TypeTask)
	}
}

func TestLedger_FindObjectHash_Missing(t *testing.T) {
	l, _ := newTestLedger(t)
	_, _, err := l.FindObjectHash("nope")
	if err == nil {
		t.Fatal("expected error for missing object id")
	}
}

// TestLedger_AppendReplacesExistingEntry covers the update path: appending
// the same (type, id) twice updates the value rather than duplicating it.
func TestLedger_AppendReplacesExistingEntry(t *testing.T) {
	l, store := newTestLedger(t)
	blobA := putBlob(t, store, `{"v":1}`)
	blobB := putBlob(t, store, `{"v":2}`)

	if _, err := l.Append(TypeRun, "R1", blobA); err != nil {
		t.Fatalf("append v1: %v", err)
	}
	if _, err := l.Append(TypeRun, "R1", blobB); err != nil {
		t.Fatalf("append v2: %v", err)
	}

	runs, err := l.ListObjects(TypeRun)
	if err != nil {
		t.Fatalf("ListObjects(Run): %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run entry after update, got %v", runs)
	}

	hash, _, err := l.FindObjectHash("R1")
	if err != nil {
		t.Fatalf("FindObjectHash: %v", err)
	}
	if hash != blobB {
		t.Fatalf("FindObjectHash = %s, want latest blob %s", hash, blobB)
	}
}
