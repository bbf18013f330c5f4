package refdb

import "fmt"

// ReflogAppend appends one reflog row. Entries are append-only per
// ref_name.
func ReflogAppend(q Querier, e ReflogEntry) error {
	_, err := q.Exec(
		`INSERT INTO reflog (ref_name, old_oid, new_oid, committer_name, committer_email, timestamp, action, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RefName, e.OldOID, e.NewOID, e.CommitterName, e.CommitterEmail, e.Timestamp, e.Action, e.Message,
	)
	if err != nil {
		return fmt.Errorf("append reflog entry for %s: %w", e.RefName, err)
	}
	return nil
}

// ReflogIter enumerates reflog entries for refName. The canonical total
// order is timestamp ascending then id ascending; when oldestFirst is
// false (the default `git reflog`-style view) the result is reversed to
// newest-first.
func ReflogIter(q Querier, refName string, oldestFirst bool) ([]ReflogEntry, error) {
	rows, err := q.Query(
		`SELECT id, ref_name, old_oid, new_oid, committer_name, committer_email, timestamp, action, message
		 FROM reflog WHERE ref_name = ? ORDER BY timestamp ASC, id ASC`,
		refName,
	)
	if err != nil {
		return nil, fmt.Errorf("iterate reflog for %s: %w", refName, err)
	}
	defer rows.Close()

	var out []ReflogEntry
	for rows.Next() {
		var e ReflogEntry
		if err := rows.Scan(&e.ID, &e.RefName, &e.OldOID, &e.NewOID, &e.CommitterName, &e.CommitterEmail, &e.Timestamp, &e.Action, &e.Message); err != nil {
			return nil, fmt.Errorf("scan reflog row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !oldestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}
