package refdb

import (
	"database/sql"
	"fmt"

	"github.com/libra-vcs/libra/internal/constants"
)

// TxnContext carries the old/new oid and the action being recorded, plus
// the actor attributed to the reflog rows.
type TxnContext struct {
	OldOID         string
	NewOID         string
	Action         ReflogAction
	CommitterName  string
	CommitterEmail string
	Timestamp      int64
}

// WithReflog is the transactional ref-update protocol:
//  1. open a transaction
//  2. run body(tx), which may perform any number of ref/config mutations
//  3. determine the reflog target(s): always HEAD, plus the current
//     branch's refs/heads/<name> when logForBranch is true
//  4. append the reflog row(s) in the same transaction
//  5. commit, or roll back atomically on any failure from any step
//
// Branch switching must NOT emit a reflog entry
// against the target branch (only against HEAD); committing MUST emit one
// against both. log_for_branch isolates that policy from the action name.
func WithReflog(db *DB, ctx TxnContext, logForBranch bool, body func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin with_reflog transaction: %w", err)
	}

	if err := body(tx); err != nil {
		tx.Rollback()
		return err
	}

	head, err := HeadCurrent(tx, nil)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("read HEAD inside with_reflog: %w", err)
	}

	message := ctx.Action.String()

	if head.Symbolic && logForBranch {
		entry := ReflogEntry{
			RefName:        constants.RefsHeadsPrefix + head.Branch,
			OldOID:         ctx.OldOID,
			NewOID:         ctx.NewOID,
			CommitterName:  ctx.CommitterName,
			CommitterEmail: ctx.CommitterEmail,
			Timestamp:      ctx.Timestamp,
			Action:         string(ctx.Action.Kind),
			Message:        message,
		}
		if err := ReflogAppend(tx, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("append branch reflog entry: %w", err)
		}
	}

	headEntry := ReflogEntry{
		RefName:        "HEAD",
		OldOID:         ctx.OldOID,
		NewOID:         ctx.NewOID,
		CommitterName:  ctx.CommitterName,
		CommitterEmail: ctx.CommitterEmail,
		Timestamp:      ctx.Timestamp,
		Action:         string(ctx.Action.Kind),
		Message:        message,
	}
	if err := ReflogAppend(tx, headEntry); err != nil {
		tx.Rollback()
		return fmt.Errorf("append HEAD reflog entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit with_reflog transaction: %w", err)
	}
	return nil
}
