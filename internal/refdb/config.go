package refdb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ConfigGet returns the first matching value for (section, subsection, key).
func ConfigGet(q Querier, section string, subsection *string, key string) (string, bool, error) {
	row := q.QueryRow(
		`SELECT value FROM config WHERE configuration = ? AND name IS ? AND key = ? ORDER BY id LIMIT 1`,
		section, subsection, key,
	)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("config_get %s.%s: %w", section, key, err)
	}
	return value, true, nil
}

// ConfigGetAll returns every matching value for (section, subsection, key)
// in insertion order, e.g. multiple `remote.origin.url` rows.
func ConfigGetAll(q Querier, section string, subsection *string, key string) ([]string, error) {
	rows, err := q.Query(
		`SELECT value FROM config WHERE configuration = ? AND name IS ? AND key = ? ORDER BY id`,
		section, subsection, key,
	)
	if err != nil {
		return nil, fmt.Errorf("config_get_all %s.%s: %w", section, key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ConfigInsert appends a new config row. Multiple rows per
// (section, subsection, key) are allowed, e.g. multiple remote URLs.
func ConfigInsert(q Querier, e ConfigEntry) error {
	_, err := q.Exec(
		`INSERT INTO config (configuration, name, key, value) VALUES (?, ?, ?, ?)`,
		e.Section, e.Subsection, e.Key, e.Value,
	)
	if err != nil {
		return fmt.Errorf("insert config %s.%s: %w", e.Section, e.Key, err)
	}
	return nil
}

// RemoveConfig deletes config rows matching (section, subsection, key).
// When all is false, only the first matching row (lowest id) is removed.
func RemoveConfig(q Querier, section string, subsection *string, key string, all bool) error {
	if all {
		_, err := q.Exec(
			`DELETE FROM config WHERE configuration = ? AND name IS ? AND key = ?`,
			section, subsection, key,
		)
		if err != nil {
			return fmt.Errorf("remove all config %s.%s: %w", section, key, err)
		}
		return nil
	}

	_, err := q.Exec(
		`DELETE FROM config WHERE id = (
			SELECT id FROM config WHERE configuration = ? AND name IS ? AND key = ? ORDER BY id LIMIT 1
		)`,
		section, subsection, key,
	)
	if err != nil {
		return fmt.Errorf("remove config %s.%s: %w", section, key, err)
	}
	return nil
}

// RemoveRemote deletes the [remote "name"] configuration block and every
// remote-tracking reference row for that remote.
func RemoveRemote(q Querier, remoteName string) error {
	if _, err := q.Exec(
		`DELETE FROM config WHERE configuration = 'remote' AND name = ?`, remoteName,
	); err != nil {
		return fmt.Errorf("remove [remote %q] config: %w", remoteName, err)
	}
	if _, err := q.Exec(`DELETE FROM reference WHERE remote = ?`, remoteName); err != nil {
		return fmt.Errorf("remove remote-tracking refs for %q: %w", remoteName, err)
	}
	return nil
}
