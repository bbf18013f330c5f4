package refdb

import (
	"database/sql"
	"fmt"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// FindBranch returns the Reference row for (Branch, name, remote), or nil
// if none exists.
func FindBranch(q Querier, name string, remote *string) (*Reference, error) {
	return findOne(q, KindBranch, &name, remote)
}

func findOne(q Querier, kind Kind, name, remote *string) (*Reference, error) {
	query := `SELECT id, kind, name, commit_hash, remote FROM reference
		 WHERE kind = ? AND name IS ? AND remote IS ?`
	args := []any{string(kind), name, remote}
	if kind == KindHead {
		// One HEAD row per remote: a symbolic row keeps its branch in name,
		// a detached row leaves it NULL, so name is not part of the key.
		query = `SELECT id, kind, name, commit_hash, remote FROM reference
		 WHERE kind = ? AND remote IS ?`
		args = []any{string(kind), remote}
	}
	row := q.QueryRow(query, args...)
	ref, err := scanReference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reference: %w", err)
	}
	return ref, nil
}

func scanReference(row *sql.Row) (*Reference, error) {
	var r Reference
	var kind string
	if err := row.Scan(&r.ID, &kind, &r.Name, &r.Commit, &r.Remote); err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	return &r, nil
}

// ListBranches returns all branch rows for the given remote (nil ⇒ local).
func ListBranches(q Querier, remote *string) ([]*Reference, error) {
	rows, err := q.Query(
		`SELECT id, kind, name, commit_hash, remote FROM reference
		 WHERE kind = ? AND remote IS ? ORDER BY name`,
		string(KindBranch), remote,
	)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var out []*Reference
	for rows.Next() {
		var r Reference
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Name, &r.Commit, &r.Remote); err != nil {
			return nil, fmt.Errorf("scan branch row: %w", err)
		}
		r.Kind = Kind(kind)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// UpdateBranch upserts (Branch, name, remote) -> commit. Callers that want
// an audit trail MUST invoke this through WithReflog (txn.go).
func UpdateBranch(q Querier, name, commit string, remote *string) error {
	existing, err := FindBranch(q, name, remote)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err := q.Exec(`UPDATE reference SET commit_hash = ? WHERE id = ?`, commit, existing.ID)
		if err != nil {
			return fmt.Errorf("update branch %s: %w", name, err)
		}
		return nil
	}
	_, err = q.Exec(
		`INSERT INTO reference (kind, name, commit_hash, remote) VALUES (?, ?, ?, ?)`,
		string(KindBranch), name, commit, remote,
	)
	if err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// RenameRemote renames every reference row's remote column from old to
// new, and rewrites the matching branch.*.remote config entries and
// [remote "old"] configuration blocks. Fails if new already exists as a
// remote on any reference or config row.
func RenameRemote(q Querier, oldName, newName string) error {
	var count int
	if err := q.QueryRow(`SELECT COUNT(*) FROM reference WHERE remote = ?`, newName).Scan(&count); err != nil {
		return fmt.Errorf("check existing remote %s: %w", newName, err)
	}
	if count == 0 {
		if err := q.QueryRow(`SELECT COUNT(*) FROM config WHERE configuration = 'remote' AND name = ?`, newName).Scan(&count); err != nil {
			return fmt.Errorf("check existing remote %s: %w", newName, err)
		}
	}
	if count > 0 {
		return vcserrors.New(vcserrors.KindValidation, fmt.Sprintf("remote %s already exists", newName))
	}

	if _, err := q.Exec(`UPDATE reference SET remote = ? WHERE remote = ?`, newName, oldName); err != nil {
		return fmt.Errorf("rename remote refs %s -> %s: %w", oldName, newName, err)
	}

	if _, err := q.Exec(
		`UPDATE config SET value = ? WHERE configuration = 'branch' AND key = 'remote' AND value = ?`,
		newName, oldName,
	); err != nil {
		return fmt.Errorf("rewrite branch.*.remote config: %w", err)
	}

	if _, err := q.Exec(
		`UPDATE config SET name = ? WHERE configuration = 'remote' AND name = ?`,
		newName, oldName,
	); err != nil {
		return fmt.Errorf("rename [remote %q] config block: %w", oldName, err)
	}

	return nil
}

// FindNamedRef returns the (kind, name) reference row with no remote, used
// for single-pointer refs that aren't branches or HEAD (e.g. the AI
// history ledger's orphan ref). Returns nil if absent.
func FindNamedRef(q Querier, kind Kind, name string) (*Reference, error) {
	return findOne(q, kind, &name, nil)
}

// UpdateNamedRef upserts a (kind, name, nil remote) -> commit row. Used by
// the AI history ledger to advance refs/libra/intent; unlike UpdateBranch
// this never participates in reflog (orphan refs carry no reflog history).
func UpdateNamedRef(q Querier, kind Kind, name, commit string) error {
	existing, err := FindNamedRef(q, kind, name)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err := q.Exec(`UPDATE reference SET commit_hash = ? WHERE id = ?`, commit, existing.ID)
		if err != nil {
			return fmt.Errorf("update ref %s: %w", name, err)
		}
		return nil
	}
	_, err = q.Exec(
		`INSERT INTO reference (kind, name, commit_hash, remote) VALUES (?, ?, ?, NULL)`,
		string(kind), name, commit,
	)
	if err != nil {
		return fmt.Errorf("create ref %s: %w", name, err)
	}
	return nil
}

// HeadCurrent returns the HEAD reference (branch-symbolic or detached) for
// the given remote (nil ⇒ local HEAD).
func HeadCurrent(q Querier, remote *string) (*Head, error) {
	ref, err := findOne(q, KindHead, nil, remote)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, vcserrors.New(vcserrors.KindValidation, "no HEAD reference present")
	}
	if ref.Name != nil {
		return &Head{Symbolic: true, Branch: *ref.Name}, nil
	}
	if ref.Commit != nil {
		return &Head{Symbolic: false, Commit: *ref.Commit}, nil
	}
	return nil, vcserrors.New(vcserrors.KindCorruptObject, "HEAD row has neither name nor commit set")
}

// HeadUpdate upserts the HEAD row for remote (nil ⇒ local). A symbolic
// head sets name and clears commit; a detached head sets commit and
// clears name.
func HeadUpdate(q Querier, head Head, remote *string) error {
	existing, err := findOne(q, KindHead, nil, remote)
	if err != nil {
		return err
	}

	var name, commit *string
	if head.Symbolic {
		name = &head.Branch
	} else {
		commit = &head.Commit
	}

	if existing != nil {
		_, err := q.Exec(`UPDATE reference SET name = ?, commit_hash = ? WHERE id = ?`, name, commit, existing.ID)
		if err != nil {
			return fmt.Errorf("update HEAD: %w", err)
		}
		return nil
	}

	_, err = q.Exec(
		`INSERT INTO reference (kind, name, commit_hash, remote) VALUES (?, ?, ?, ?)`,
		string(KindHead), name, commit, remote,
	)
	if err != nil {
		return fmt.Errorf("create HEAD: %w", err)
	}
	return nil
}
