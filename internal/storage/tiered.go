// Package storage implements the tiered storage controller: a local
// objstore.FileStore composed with an optional remote object store, plus an
// LRU cache that bounds how many large objects stay on local disk.
package storage

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// RemoteStore is the contract a remote object-storage backend must satisfy.
// It mirrors objstore.Store minus Search — prefix search is answered from
// local only, since remote backends need not support listing.
type RemoteStore interface {
	Get(id objstore.ID) (payload []byte, kind objstore.Kind, err error)
	Put(id objstore.ID, payload []byte, kind objstore.Kind) (location string, err error)
	Exists(id objstore.ID) bool
}

// Config configures a TieredStore. Threshold and CacheCount have no
// canonical default; callers must choose values appropriate to their
// deployment.
type Config struct {
	// ThresholdBytes: objects smaller than this are written through to both
	// local and remote and considered permanent locally.
	ThresholdBytes int64
	// CacheCount bounds how many large objects' local copies are tracked by
	// the LRU; 0 disables the LRU, and large objects' local copies are then
	// kept permanently like small ones.
	CacheCount int
	// Remote is optional; a nil Remote makes the tiered store behave as a
	// pure local store (every object, regardless of size, is permanent).
	Remote RemoteStore
}

// TieredStore implements objstore.Store by composing a local FileStore with
// an optional remote backend and a size-based caching policy.
type TieredStore struct {
	local     *objstore.FileStore
	remote    RemoteStore
	threshold int64

	mu  sync.Mutex
	lru *lru.Cache // tracks ids of large objects whose local copy is a cache, not permanent
}

type cachedEntry struct {
	path string
}

// New creates a TieredStore backed by local and, optionally, cfg.Remote.
func New(local *objstore.FileStore, cfg Config) *TieredStore {
	ts := &TieredStore{
		local:     local,
		remote:    cfg.Remote,
		threshold: cfg.ThresholdBytes,
	}
	if cfg.CacheCount > 0 {
		ts.lru = lru.New(cfg.CacheCount)
		ts.lru.OnEvicted = func(key lru.Key, value interface{}) {
			entry := value.(cachedEntry)
			_ = removeLocalCopy(local, key.(objstore.ID), entry)
		}
	}
	return ts
}

// removeLocalCopy deletes the evicted object's local file. FileStore has no
// delete method of its own (loose objects are otherwise immutable), so
// the tiered controller — the only caller that ever needs to evict — does
// the filesystem removal directly via the recorded path.
func removeLocalCopy(local *objstore.FileStore, id objstore.ID, entry cachedEntry) error {
	return removeFile(entry.path)
}

// Get returns an object, preferring the local copy. On a remote fetch it
// re-applies the size rule to decide whether the new local copy is tracked
// by the LRU (and therefore evictable) or permanent.
func (t *TieredStore) Get(id objstore.ID) ([]byte, objstore.Kind, error) {
	if t.local.Exists(id) {
		t.touch(id)
		return t.local.Get(id)
	}

	if t.remote == nil {
		return nil, 0, vcserrors.ObjectNotFound(string(id))
	}

	payload, kind, err := t.remote.Get(id)
	if err != nil {
		return nil, 0, err
	}

	if err := t.cacheLocally(id, payload, kind); err != nil {
		return nil, 0, err
	}
	return payload, kind, nil
}

// touch records recency for an id that is already locally cached. Objects
// under threshold are never tracked by the LRU so touching them is a no-op.
func (t *TieredStore) touch(id objstore.ID) {
	if t.lru == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lru.Get(id)
}

// cacheLocally writes payload to the local store and, if it is large,
// registers it in the LRU so it can later be evicted.
func (t *TieredStore) cacheLocally(id objstore.ID, payload []byte, kind objstore.Kind) error {
	loc, err := t.local.Put(id, payload, kind)
	if err != nil {
		return fmt.Errorf("cache object %s locally: %w", id, err)
	}

	if int64(len(payload)) >= t.threshold && t.lru != nil {
		t.mu.Lock()
		t.lru.Add(id, cachedEntry{path: loc})
		t.mu.Unlock()
	}
	return nil
}

// Put writes through to remote (if configured) and applies the same
// small/large split locally: small objects are permanent, large objects'
// local copy is tracked by the LRU. A failed remote write leaves local
// state untouched.
func (t *TieredStore) Put(id objstore.ID, payload []byte, kind objstore.Kind) (string, error) {
	size := int64(len(payload))

	if t.remote != nil {
		if _, err := t.remote.Put(id, payload, kind); err != nil {
			return "", vcserrors.Transport("remote put", err)
		}
	}

	loc, err := t.local.Put(id, payload, kind)
	if err != nil {
		return "", fmt.Errorf("local put of %s: %w", id, err)
	}

	// Only a remote-backed object may be evicted locally; with no remote
	// the local copy is the only copy and must stay permanent.
	if t.remote != nil && size >= t.threshold && t.lru != nil {
		t.mu.Lock()
		t.lru.Add(id, cachedEntry{path: loc})
		t.mu.Unlock()
	}

	return loc, nil
}

// Exists checks local first (fast path), then remote.
func (t *TieredStore) Exists(id objstore.ID) bool {
	if t.local.Exists(id) {
		return true
	}
	if t.remote == nil {
		return false
	}
	return t.remote.Exists(id)
}

// Search answers prefix queries from local only; remote backends need not
// support listing.
func (t *TieredStore) Search(prefix string) ([]objstore.ID, error) {
	return t.local.Search(prefix)
}

var _ objstore.Store = (*TieredStore)(nil)
