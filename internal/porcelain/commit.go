package porcelain

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// writeBlob hashes and persists payload as a Blob, returning its id.
func (r *Repository) writeBlob(payload []byte) (objstore.ID, error) {
	id := objstore.Hash(objstore.KindBlob, payload, r.HashKind)
	if _, err := r.Store.Put(id, payload, objstore.KindBlob); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return id, nil
}

// writeTree hashes and persists entries as a Tree, returning its id.
func (r *Repository) writeTree(entries []TreeEntry) (objstore.ID, error) {
	payload := EncodeTree(entries)
	id := objstore.Hash(objstore.KindTree, payload, r.HashKind)
	if _, err := r.Store.Put(id, payload, objstore.KindTree); err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}
	return id, nil
}

// writeCommit hashes and persists c as a Commit, returning its id.
func (r *Repository) writeCommit(c Commit) (objstore.ID, error) {
	payload := EncodeCommit(c)
	id := objstore.Hash(objstore.KindCommit, payload, r.HashKind)
	if _, err := r.Store.Put(id, payload, objstore.KindCommit); err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	return id, nil
}

// Commit builds a flat tree from files (path -> content, every file a
// plain ModeFile blob — the working-tree walk and directory nesting a
// full porcelain would need is out of scope), writes the commit object,
// and advances the current branch + HEAD through refdb.WithReflog with
// logForBranch=true: committing logs both the branch and HEAD.
func (r *Repository) Commit(files map[string][]byte, author Actor, subject string, now time.Time) (objstore.ID, error) {
	var entries []TreeEntry
	for path, content := range files {
		blobID, err := r.writeBlob(content)
		if err != nil {
			return "", err
		}
		entries = append(entries, TreeEntry{Mode: ModeFile, Name: path, ID: blobID})
	}
	treeID, err := r.writeTree(entries)
	if err != nil {
		return "", err
	}

	head, err := refdb.HeadCurrent(r.DB, nil)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if !head.Symbolic {
		return "", vcserrors.New(vcserrors.KindValidation, "cannot commit with a detached HEAD")
	}

	branch, err := refdb.FindBranch(r.DB, head.Branch, nil)
	if err != nil {
		return "", fmt.Errorf("find current branch %s: %w", head.Branch, err)
	}

	var parents []objstore.ID
	oldOID := zeroHash(r.HashKind)
	if branch != nil && branch.Commit != nil {
		oldOID = *branch.Commit
		parents = []objstore.ID{objstore.ID(*branch.Commit)}
	}

	author.When = now
	commit := Commit{
		Tree:      treeID,
		Parents:   parents,
		Author:    author,
		Committer: author,
		Message:   subject,
	}
	commitID, err := r.writeCommit(commit)
	if err != nil {
		return "", err
	}

	txnCtx := refdb.TxnContext{
		OldOID:         oldOID,
		NewOID:         string(commitID),
		Action:         refdb.CommitAction(subject),
		CommitterName:  author.Name,
		CommitterEmail: author.Email,
		Timestamp:      now.Unix(),
	}
	err = refdb.WithReflog(r.DB, txnCtx, true, func(tx *sql.Tx) error {
		return refdb.UpdateBranch(tx, head.Branch, string(commitID), nil)
	})
	if err != nil {
		return "", fmt.Errorf("advance branch %s: %w", head.Branch, err)
	}

	return commitID, nil
}
