package porcelain

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// branchCommitOID resolves a branch name to its commit oid (zero hash if
// the branch has no commits yet, e.g. a freshly created one).
func (r *Repository) branchCommitOID(name string) (string, error) {
	branch, err := refdb.FindBranch(r.DB, name, nil)
	if err != nil {
		return "", fmt.Errorf("find branch %s: %w", name, err)
	}
	if branch == nil {
		return "", vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("branch %s does not exist", name))
	}
	if branch.Commit == nil {
		return zeroHash(r.HashKind), nil
	}
	return *branch.Commit, nil
}

// headCommitOID resolves HEAD to the commit oid it currently points at,
// whether symbolic or detached.
func (r *Repository) headCommitOID() (string, error) {
	head, err := refdb.HeadCurrent(r.DB, nil)
	if err != nil {
		return "", err
	}
	if head.Symbolic {
		return r.branchCommitOID(head.Branch)
	}
	return head.Commit, nil
}

// Switch moves HEAD to point at an existing branch. It never logs a
// reflog entry against the
// target branch itself, only against HEAD (logForBranch=false), matching
// refdb.WithReflog's documented policy.
func (r *Repository) Switch(toBranch string, committer Actor, now time.Time) error {
	oldOID, err := r.headCommitOID()
	if err != nil {
		return fmt.Errorf("resolve current HEAD: %w", err)
	}
	newOID, err := r.branchCommitOID(toBranch)
	if err != nil {
		return err
	}

	head, err := refdb.HeadCurrent(r.DB, nil)
	if err != nil {
		return err
	}
	from := head.Commit
	if head.Symbolic {
		from = head.Branch
	}

	txnCtx := refdb.TxnContext{
		OldOID:         oldOID,
		NewOID:         newOID,
		Action:         refdb.SwitchAction(from, toBranch),
		CommitterName:  committer.Name,
		CommitterEmail: committer.Email,
		Timestamp:      now.Unix(),
	}
	err = refdb.WithReflog(r.DB, txnCtx, false, func(tx *sql.Tx) error {
		return refdb.HeadUpdate(tx, refdb.Head{Symbolic: true, Branch: toBranch}, nil)
	})
	if err != nil {
		return fmt.Errorf("switch to branch %s: %w", toBranch, err)
	}
	return nil
}

// Checkout moves HEAD to an arbitrary commit id, leaving HEAD detached.
// Like Switch it writes only the HEAD reflog: a detached checkout target
// never advances a branch ref, so logForBranch is always false.
func (r *Repository) Checkout(targetCommit objstore.ID, committer Actor, now time.Time) error {
	oldOID, err := r.headCommitOID()
	if err != nil {
		return fmt.Errorf("resolve current HEAD: %w", err)
	}

	head, err := refdb.HeadCurrent(r.DB, nil)
	if err != nil {
		return err
	}
	from := head.Commit
	if head.Symbolic {
		from = head.Branch
	}

	txnCtx := refdb.TxnContext{
		OldOID:         oldOID,
		NewOID:         string(targetCommit),
		Action:         refdb.CheckoutAction(from, string(targetCommit)),
		CommitterName:  committer.Name,
		CommitterEmail: committer.Email,
		Timestamp:      now.Unix(),
	}
	err = refdb.WithReflog(r.DB, txnCtx, false, func(tx *sql.Tx) error {
		return refdb.HeadUpdate(tx, refdb.Head{Symbolic: false, Commit: string(targetCommit)}, nil)
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", targetCommit, err)
	}
	return nil
}
