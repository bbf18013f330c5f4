// Package ledger implements the AI history ledger: an orphan ref,
// refs/libra/intent, whose commits carry a tree of object-type subtrees,
// each mapping an object id to the hash of the JSON blob
// (Intent/Task/Run/Plan/PatchSet/Evidence/ToolInvocation/Provenance/
// Decision/ContextSnapshot) already written through the object store.
package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// ObjectType is the closed set of AI process object kinds the ledger
// tracks.
type ObjectType string

const (
	TypeIntent          ObjectType = "Intent"
	TypeTask            ObjectType = "Task"
	TypeRun             ObjectType = "Run"
	TypePlan            ObjectType = "Plan"
	TypePatchSet        ObjectType = "PatchSet"
	TypeEvidence        ObjectType = "Evidence"
	TypeToolInvocation  ObjectType = "ToolInvocation"
	TypeProvenance      ObjectType = "Provenance"
	TypeDecision        ObjectType = "Decision"
	TypeContextSnapshot ObjectType = "ContextSnapshot"
)

// treeEntry is one line of a tree object: a name plus the kind and hash of
// the child it points at.
type treeEntry struct {
	name string
	kind objstore.Kind
	hash objstore.ID
}

// encodeTree serializes entries, sorted by name, as the tree payload: one
// "<kind> <hash> <name>\n" line per entry. This is the ledger's own tree
// framing (distinct from a porcelain VCS tree, which would additionally
// carry file modes); it only ever nests one level (root -> type subtrees
// -> object id leaves).
func encodeTree(entries []treeEntry) []byte {
	sorted := append([]treeEntry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s %s %s\n", e.kind, e.hash, e.name)
	}
	return buf.Bytes()
}

func decodeTree(payload []byte) ([]treeEntry, error) {
	var entries []treeEntry
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, vcserrors.New(vcserrors.KindCorruptObject, fmt.Sprintf("malformed ledger tree line %q", line))
		}
		kind, err := objstore.ParseKind(parts[0])
		if err != nil {
			return nil, err
		}
		entries = append(entries, treeEntry{kind: kind, hash: objstore.ID(parts[1]), name: parts[2]})
	}
	return entries, nil
}

// commitPayload is the ledger's commit framing: a tree hash, an optional
// parent, and a free-text message. Minimal compared to a porcelain commit
// (no author/committer split) since the ledger's commits are machine-only
// bookkeeping, not user-facing history.
type commitPayload struct {
	Tree    objstore.ID
	Parent  *objstore.ID
	Message string
}

func encodeCommit(c commitPayload) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if c.Parent != nil {
		fmt.Fprintf(&buf, "parent %s\n", *c.Parent)
	}
	buf.WriteString("\n")
	buf.WriteString(c.Message)
	return buf.Bytes()
}

func decodeCommit(payload []byte) (commitPayload, error) {
	text := string(payload)
	headerEnd := strings.Index(text, "\n\n")
	if headerEnd < 0 {
		return commitPayload{}, vcserrors.New(vcserrors.KindCorruptObject, "malformed ledger commit: missing header/body separator")
	}
	header, body := text[:headerEnd], text[headerEnd+2:]

	var c commitPayload
	c.Message = body
	for _, line := range strings.Split(header, "\n") {
		switch {
		case strings.HasPrefix(line, "tree "):
			c.Tree = objstore.ID(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			p := objstore.ID(strings.TrimPrefix(line, "parent "))
			c.Parent = &p
		}
	}
	if c.Tree == "" {
		return commitPayload{}, vcserrors.New(vcserrors.KindCorruptObject, "malformed ledger commit: missing tree")
	}
	return c, nil
}

// Ledger drives append/lookup operations against refs/libra/intent for a
// single repository. Append is serialized per repository with mu, and the
// ref advance happens inside a refdb transaction so readers never observe
// a tree that doesn't match the advertised commit.
type Ledger struct {
	store    objstore.Store
	db       *refdb.DB
	hashKind objstore.HashKind

	mu sync.Mutex
}

// New builds a Ledger writing objects to store and advancing its ref
// through db.
func New(store objstore.Store, db *refdb.DB, hashKind objstore.HashKind) *Ledger {
	return &Ledger{store: store, db: db, hashKind: hashKind}
}

func (l *Ledger) refName() string { return constants.LedgerRefName }

// head returns the current ledger commit hash, or ("", false, nil) if the
// ledger has never been initialized.
func (l *Ledger) head() (objstore.ID, bool, error) {
	ref, err := refdb.FindNamedRef(l.db, refdb.KindTag, l.refName())
	if err != nil {
		return "", false, err
	}
	if ref == nil || ref.Commit == nil {
		return "", false, nil
	}
	return objstore.ID(*ref.Commit), true, nil
}

// loadTree reads and decodes the tree object at hash.
func (l *Ledger) loadTree(hash objstore.ID) ([]treeEntry, error) {
	payload, kind, err := l.store.Get(hash)
	if err != nil {
		return nil, err
	}
	if kind != objstore.KindTree {
		return nil, vcserrors.New(vcserrors.KindCorruptObject, fmt.Sprintf("object %s is not a tree", hash))
	}
	return decodeTree(payload)
}

// Append records that object_id (of object_type) is backed by blobHash:
// it updates (or creates) the type subtree, rebuilds the root tree, and
// commits with the previous ledger head as sole parent. Returns the new
// ledger commit hash.
func (l *Ledger) Append(objectType ObjectType, objectID string, blobHash objstore.ID) (objstore.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	headHash, hasHead, err := l.head()
	if err != nil {
		return "", err
	}

	var rootEntries []treeEntry
	var parent *objstore.ID
	if hasHead {
		commit, err := l.loadCommit(headHash)
		if err != nil {
			return "", err
		}
		rootEntries, err = l.loadTree(commit.Tree)
		if err != nil {
			return "", err
		}
		parent = &headHash
	}

	var typeEntries []treeEntry
	for i, e := range rootEntries {
		if e.name == string(objectType) {
			typeEntries, err = l.loadTree(e.hash)
			if err != nil {
				return "", err
			}
			rootEntries = append(rootEntries[:i], rootEntries[i+1:]...)
			break
		}
	}

	replaced := false
	for i, e := range typeEntries {
		if e.name == objectID {
			typeEntries[i] = treeEntry{name: objectID, kind: objstore.KindBlob, hash: blobHash}
			replaced = true
			break
		}
	}
	if !replaced {
		typeEntries = append(typeEntries, treeEntry{name: objectID, kind: objstore.KindBlob, hash: blobHash})
	}

	typeTreePayload := encodeTree(typeEntries)
	typeTreeHash := objstore.Hash(objstore.KindTree, typeTreePayload, l.hashKind)
	if _, err := l.store.Put(typeTreeHash, typeTreePayload, objstore.KindTree); err != nil {
		return "", err
	}

	rootEntries = append(rootEntries, treeEntry{name: string(objectType), kind: objstore.KindTree, hash: typeTreeHash})
	rootPayload := encodeTree(rootEntries)
	rootHash := objstore.Hash(objstore.KindTree, rootPayload, l.hashKind)
	if _, err := l.store.Put(rootHash, rootPayload, objstore.KindTree); err != nil {
		return "", err
	}

	message := fmt.Sprintf("append %s %s", objectType, objectID)
	commitPayloadBytes := encodeCommit(commitPayload{Tree: rootHash, Parent: parent, Message: message})
	commitHash := objstore.Hash(objstore.KindCommit, commitPayloadBytes, l.hashKind)
	if _, err := l.store.Put(commitHash, commitPayloadBytes, objstore.KindCommit); err != nil {
		return "", err
	}

	tx, err := l.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin ledger ref transaction: %w", err)
	}
	if err := refdb.UpdateNamedRef(tx, refdb.KindTag, l.refName(), string(commitHash)); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit ledger ref transaction: %w", err)
	}

	return commitHash, nil
}

func (l *Ledger) loadCommit(hash objstore.ID) (commitPayload, error) {
	payload, kind, err := l.store.Get(hash)
	if err != nil {
		return commitPayload{}, err
	}
	if kind != objstore.KindCommit {
		return commitPayload{}, vcserrors.New(vcserrors.KindCorruptObject, fmt.Sprintf("object %s is not a commit", hash))
	}
	return decodeCommit(payload)
}

// FindObjectHash walks the latest ledger tree and returns the first
// (hash, type) match for objectID across every type subtree.
func (l *Ledger) FindObjectHash(objectID string) (objstore.ID, ObjectType, error) {
	headHash, hasHead, err := l.head()
	if err != nil {
		return "", "", err
	}
	if !hasHead {
		return "", "", vcserrors.ObjectNotFound(objectID)
	}
	commit, err := l.loadCommit(headHash)
	if err != nil {
		return "", "", err
	}
	rootEntries, err := l.loadTree(commit.Tree)
	if err != nil {
		return "", "", err
	}

	for _, typeEntry := range rootEntries {
		typeEntries, err := l.loadTree(typeEntry.hash)
		if err != nil {
			return "", "", err
		}
		for _, e := range typeEntries {
			if e.name == objectID {
				return e.hash, ObjectType(typeEntry.name), nil
			}
		}
	}
	return "", "", vcserrors.ObjectNotFound(objectID)
}

// ListObjects enumerates object ids under objectType's subtree of the
// latest ledger commit, sorted.
func (l *Ledger) ListObjects(objectType ObjectType) ([]string, error) {
	headHash, hasHead, err := l.head()
	if err != nil {
		return nil, err
	}
	if !hasHead {
		return nil, nil
	}
	commit, err := l.loadCommit(headHash)
	if err != nil {
		return nil, err
	}
	rootEntries, err := l.loadTree(commit.Tree)
	if err != nil {
		return nil, err
	}

	for _, typeEntry := range rootEntries {
		if typeEntry.name != string(objectType) {
			continue
		}
		typeEntries, err := l.loadTree(typeEntry.hash)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(typeEntries))
		for _, e := range typeEntries {
			ids = append(ids, e.name)
		}
		sort.Strings(ids)
		return ids, nil
	}
	return nil, nil
}

// ResolveHistoryHead returns the current ledger commit hash, or ("",
// false, nil) if the ledger has never been initialized.
func (l *Ledger) ResolveHistoryHead() (objstore.ID, bool, error) {
	return l.head()
}

// NewObjectID generates a fresh object id for an Intent/Task/Run/... .
func NewObjectID() string {
	return uuid.NewString()
}
