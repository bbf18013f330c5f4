package objstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		kind     Kind
		payload  []byte
		hashKind HashKind
	}{
		{"sha1 blob", KindBlob, []byte("hello\n"), HashSHA1},
		{"sha1 empty blob", KindBlob, []byte{}, HashSHA1},
		{"sha256 blob", KindBlob, []byte("hello\n"), HashSHA256},
		{"sha1 tree", KindTree, []byte("100644 a.txt\x00" + string(make([]byte, 20))), HashSHA1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}

			id := Hash(tc.kind, tc.payload, tc.hashKind)
			if _, err := store.Put(id, tc.payload, tc.kind); err != nil {
				t.Fatalf("Put: %v", err)
			}

			gotPayload, gotKind, err := store.Get(id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if gotKind != tc.kind {
				t.Errorf("kind = %v, want %v", gotKind, tc.kind)
			}
			if string(gotPayload) != string(tc.payload) {
				t.Errorf("payload = %q, want %q", gotPayload, tc.payload)
			}
		})
	}
}

func TestIdStableAcrossCompressionAndSharding(t *testing.T) {
	payload := []byte("the quick brown fox\n")
	id1 := Hash(KindBlob, payload, HashSHA1)
	id2 := Hash(KindBlob, payload, HashSHA1)
	if id1 != id2 {
		t.Fatalf("hash is not deterministic: %s != %s", id1, id2)
	}

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Put(id1, payload, KindBlob); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Exists(id1) {
		t.Fatalf("expected id to exist after Put")
	}
}

func TestGetMissingObject(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	_, _, err = store.Get(ID("0000000000000000000000000000000000000a"))
	var vcsErr *vcserrors.Error
	if !errors.As(err, &vcsErr) || vcsErr.Kind != vcserrors.KindObjectNotFound {
		t.Fatalf("expected ObjectNotFound, got %v", err)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	payload := []byte("hello\n")
	id := Hash(KindBlob, payload, HashSHA1)

	if _, err := store.Put(id, payload, KindBlob); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := store.Put(id, payload, KindBlob); err != nil {
		t.Fatalf("second Put should succeed as a no-op: %v", err)
	}
}

func TestSearchNarrowsToShard(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ids := []ID{}
	for _, payload := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		id := Hash(KindBlob, payload, HashSHA1)
		if _, err := store.Put(id, payload, KindBlob); err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, id)
	}

	target := ids[0]
	prefix := string(target)[:4]
	found, err := store.Search(prefix)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	matched := false
	for _, f := range found {
		if f == target {
			matched = true
		}
		if f[:2] != ID(prefix)[:2] {
			t.Errorf("Search(%q) returned id from a different shard: %s", prefix, f)
		}
	}
	if !matched {
		t.Errorf("Search(%q) did not return %s", prefix, target)
	}
}

func TestSearchShortPrefixScansAllShards(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	payload := []byte("needle")
	id := Hash(KindBlob, payload, HashSHA1)
	if _, err := store.Put(id, payload, KindBlob); err != nil {
		t.Fatalf("Put: %v", err)
	}

	found, err := store.Search("")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0] != id {
		t.Errorf("Search(\"\") = %v, want [%s]", found, id)
	}
}

func TestShardLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	payload := []byte("hello\n")
	id := Hash(KindBlob, payload, HashSHA1)
	loc, err := store.Put(id, payload, KindBlob)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := filepath.Join(dir, string(id)[:2], string(id)[2:])
	if loc != want {
		t.Errorf("location = %s, want %s", loc, want)
	}
}
