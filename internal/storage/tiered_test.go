package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// fakeRemote is an in-memory RemoteStore. failPuts makes every Put fail so
// tests can exercise the no-partial-commit rule.
type fakeRemote struct {
	objects  map[objstore.ID]remoteObject
	failPuts bool
	gets     int
}

type remoteObject struct {
	payload []byte
	kind    objstore.Kind
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: map[objstore.ID]remoteObject{}}
}

func (f *fakeRemote) Get(id objstore.ID) ([]byte, objstore.Kind, error) {
	f.gets++
	obj, ok := f.objects[id]
	if !ok {
		return nil, 0, vcserrors.ObjectNotFound(string(id))
	}
	return obj.payload, obj.kind, nil
}

func (f *fakeRemote) Put(id objstore.ID, payload []byte, kind objstore.Kind) (string, error) {
	if f.failPuts {
		return "", errors.New("remote unavailable")
	}
	f.objects[id] = remoteObject{payload: payload, kind: kind}
	return "remote/" + string(id), nil
}

func (f *fakeRemote) Exists(id objstore.ID) bool {
	_, ok := f.objects[id]
	return ok
}

func newTestTiered(t *testing.T, cfg Config) (*TieredStore, *objstore.FileStore) {
	t.Helper()
	local, err := objstore.NewFileStore(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return New(local, cfg), local
}

func blobID(payload []byte) objstore.ID {
	return objstore.Hash(objstore.KindBlob, payload, objstore.HashSHA1)
}

// largePayload builds a payload of exactly n bytes whose content differs per
// seed, so every "unrelated large object" in the eviction tests hashes to a
// distinct id.
func largePayload(seed byte, n int) []byte {
	return bytes.Repeat([]byte{seed}, n)
}

func TestSmallObjectsArePermanent(t *testing.T) {
	remote := newFakeRemote()
	ts, local := newTestTiered(t, Config{ThresholdBytes: 64, CacheCount: 2, Remote: remote})

	small := []byte("hi\n")
	smallID := blobID(small)
	if _, err := ts.Put(smallID, small, objstore.KindBlob); err != nil {
		t.Fatalf("Put small: %v", err)
	}
	if !remote.Exists(smallID) {
		t.Fatal("small object should be written through to remote")
	}

	// Churn the LRU well past its capacity with unrelated large objects.
	for seed := byte(0); seed < 5; seed++ {
		payload := largePayload('a'+seed, 128)
		if _, err := ts.Put(blobID(payload), payload, objstore.KindBlob); err != nil {
			t.Fatalf("Put large %d: %v", seed, err)
		}
	}

	if !local.Exists(smallID) {
		t.Fatal("small object must survive LRU churn: its local copy is permanent")
	}
	payload, kind, err := ts.Get(smallID)
	if err != nil || kind != objstore.KindBlob || !bytes.Equal(payload, small) {
		t.Fatalf("Get small after churn = (%q, %v, %v)", payload, kind, err)
	}
}

func TestLargeObjectEvictionAndRefetch(t *testing.T) {
	remote := newFakeRemote()
	ts, local := newTestTiered(t, Config{ThresholdBytes: 16, CacheCount: 2, Remote: remote})

	var ids []objstore.ID
	for seed := byte(0); seed < 3; seed++ {
		payload := largePayload('a'+seed, 32)
		id := blobID(payload)
		ids = append(ids, id)
		if _, err := ts.Put(id, payload, objstore.KindBlob); err != nil {
			t.Fatalf("Put large %d: %v", seed, err)
		}
	}

	// cache_count=2, three large writes: the oldest large object's local
	// file must be gone.
	if local.Exists(ids[0]) {
		t.Fatal("oldest large object should have been evicted from local disk")
	}
	if !local.Exists(ids[1]) || !local.Exists(ids[2]) {
		t.Fatal("two most recent large objects should still be local")
	}

	// The evicted object is still retrievable through the remote half, and
	// the fetch re-caches it locally.
	payload, kind, err := ts.Get(ids[0])
	if err != nil {
		t.Fatalf("Get evicted object: %v", err)
	}
	if kind != objstore.KindBlob || !bytes.Equal(payload, largePayload('a', 32)) {
		t.Fatalf("Get evicted object returned wrong content")
	}
	if !local.Exists(ids[0]) {
		t.Fatal("remote fetch of a large object should leave a local cache copy")
	}
}

func TestGetServesLocallyAfterRemoteFetch(t *testing.T) {
	remote := newFakeRemote()
	ts, _ := newTestTiered(t, Config{ThresholdBytes: 16, CacheCount: 4, Remote: remote})

	payload := largePayload('z', 32)
	id := blobID(payload)
	if _, err := remote.Put(id, payload, objstore.KindBlob); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	if _, _, err := ts.Get(id); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	before := remote.gets
	if _, _, err := ts.Get(id); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if remote.gets != before {
		t.Fatalf("second Get should be a local hit, remote saw %d extra fetch(es)", remote.gets-before)
	}
}

func TestFailedRemotePutLeavesLocalUntouched(t *testing.T) {
	remote := newFakeRemote()
	remote.failPuts = true
	ts, local := newTestTiered(t, Config{ThresholdBytes: 16, CacheCount: 2, Remote: remote})

	payload := []byte("doomed write\n")
	id := blobID(payload)
	_, err := ts.Put(id, payload, objstore.KindBlob)
	if err == nil {
		t.Fatal("expected Put to fail when remote rejects the write")
	}
	var verr *vcserrors.Error
	if !errors.As(err, &verr) || verr.Kind != vcserrors.KindTransport {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if local.Exists(id) {
		t.Fatal("a failed remote write must leave local state unchanged")
	}
}

func TestSearchAnswersFromLocalOnly(t *testing.T) {
	remote := newFakeRemote()
	ts, _ := newTestTiered(t, Config{ThresholdBytes: 16, CacheCount: 2, Remote: remote})

	payload := []byte("remote only\n")
	id := blobID(payload)
	if _, err := remote.Put(id, payload, objstore.KindBlob); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	found, err := ts.Search(string(id)[:4])
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("prefix search must not consult the remote, got %v", found)
	}

	if _, _, err := ts.Get(id); err != nil {
		t.Fatalf("Get: %v", err)
	}
	found, err = ts.Search(string(id)[:4])
	if err != nil || len(found) != 1 {
		t.Fatalf("expected local search hit after fetch, got %v err=%v", found, err)
	}
}

func TestNilRemoteBehavesAsPureLocalStore(t *testing.T) {
	ts, local := newTestTiered(t, Config{ThresholdBytes: 8, CacheCount: 1})

	// With no remote there is nowhere to refetch from, so even objects over
	// the threshold must stay permanent: the local copy is the only copy.
	for seed := byte(0); seed < 3; seed++ {
		payload := largePayload('a'+seed, 64)
		if _, err := ts.Put(blobID(payload), payload, objstore.KindBlob); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	for seed := byte(0); seed < 3; seed++ {
		if !local.Exists(blobID(largePayload('a'+seed, 64))) {
			t.Fatalf("large object %d evicted despite having no remote backing", seed)
		}
	}

	_, _, err := ts.Get(blobID([]byte("never written\n")))
	var verr *vcserrors.Error
	if !errors.As(err, &verr) || verr.Kind != vcserrors.KindObjectNotFound {
		t.Fatalf("expected object_not_found for an absent object, got %v", err)
	}
}

func TestTieredRoundTripBothSizes(t *testing.T) {
	remote := newFakeRemote()
	ts, _ := newTestTiered(t, Config{ThresholdBytes: 16, CacheCount: 2, Remote: remote})

	cases := []struct {
		name    string
		payload []byte
	}{
		{"small", []byte("tiny\n")},
		{"large", largePayload('q', 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := blobID(tc.payload)
			if _, err := ts.Put(id, tc.payload, objstore.KindBlob); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, kind, err := ts.Get(id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if kind != objstore.KindBlob || !bytes.Equal(got, tc.payload) {
				t.Fatalf("round trip mismatch: got %d bytes kind %v", len(got), kind)
			}
		})
	}
}
