package objstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// Store is the object-store contract: byte-level persistence of (hash, kind, payload)
// triples. Implementations must be safe for concurrent readers; writers must
// go through an atomic rename so a torn write is never visible.
type Store interface {
	Get(id ID) (payload []byte, kind Kind, err error)
	Put(id ID, payload []byte, kind Kind) (location string, err error)
	Exists(id ID) bool
	Search(prefix string) ([]ID, error)
}

// FileStore is the loose-object filesystem backend: two-hex-character shard
// directories, the remaining hex as the filename (e.g. "aa/bbcc…").
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir (typically
// "<storage>/objects"). The directory is created if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root %s: %w", dir, err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) path(id ID) string {
	str := string(id)
	return filepath.Join(s.root, str[:2], str[2:])
}

// Get reads, decompresses and parses an object by id.
func (s *FileStore) Get(id ID) ([]byte, Kind, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, vcserrors.ObjectNotFound(string(id))
		}
		return nil, 0, fmt.Errorf("read object %s: %w", id, err)
	}

	return DecompressFramed(data, id)
}

// parseFrame splits "<kind> <len>\0<payload>" at the first NUL byte and
// validates the ascii header against the trailing payload length.
func parseFrame(framed []byte) (Kind, []byte, error) {
	nul := bytes.IndexByte(framed, 0)
	if nul < 0 {
		return 0, nil, fmt.Errorf("no NUL byte in object framing")
	}
	header := string(framed[:nul])
	payload := framed[nul+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("malformed header %q", header)
	}
	kind, err := ParseKind(parts[0])
	if err != nil {
		return 0, nil, err
	}

	var length int
	if _, err := fmt.Sscanf(parts[1], "%d", &length); err != nil {
		return 0, nil, fmt.Errorf("malformed length in header %q: %w", header, err)
	}
	if length != len(payload) {
		return 0, nil, fmt.Errorf("header declares length %d, payload is %d bytes", length, len(payload))
	}

	return kind, payload, nil
}

// Put compresses and atomically writes an object. It is idempotent: if the
// destination already exists, the write is treated as a no-op success
// (content-addressing guarantees the existing bytes are exact).
func (s *FileStore) Put(id ID, payload []byte, kind Kind) (string, error) {
	dest := s.path(id)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create shard dir for %s: %w", id, err)
	}

	compressed, err := CompressFramed(kind, payload)
	if err != nil {
		return "", fmt.Errorf("compress object %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", id, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file for %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file for %s: %w", id, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename into place for %s: %w", id, err)
	}

	return dest, nil
}

// Exists reports whether id is present in this store.
func (s *FileStore) Exists(id ID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// Search lists all ids beginning with prefix, narrowing the directory scan
// to the shard named by the first two hex characters whenever possible.
func (s *FileStore) Search(prefix string) ([]ID, error) {
	var shards []string
	if len(prefix) >= 2 {
		shards = []string{prefix[:2]}
	} else {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("list object store root: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				shards = append(shards, e.Name())
			}
		}
	}

	rest := ""
	if len(prefix) > 2 {
		rest = prefix[2:]
	}

	var ids []ID
	for _, shard := range shards {
		entries, err := os.ReadDir(filepath.Join(s.root, shard))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("list shard %s: %w", shard, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			if strings.HasPrefix(e.Name(), rest) {
				ids = append(ids, ID(shard+e.Name()))
			}
		}
	}
	return ids, nil
}
