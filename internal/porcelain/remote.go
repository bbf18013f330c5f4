package porcelain

import (
	"fmt"

	"github.com/libra-vcs/libra/internal/refdb"
)

// AddRemote records a `[remote "name"]` config block with a url entry.
// It does not contact the remote; Clone and a
// future fetch/push porcelain are responsible for that.
func (r *Repository) AddRemote(name, url string) error {
	if err := refdb.ConfigInsert(r.DB, refdb.ConfigEntry{
		Section:    "remote",
		Subsection: &name,
		Key:        "url",
		Value:      url,
	}); err != nil {
		return fmt.Errorf("add remote %s: %w", name, err)
	}
	return nil
}

// RemoveRemote deletes the remote's config block and every remote-tracking
// reference row for it.
func (r *Repository) RemoveRemote(name string) error {
	if err := refdb.RemoveRemote(r.DB, name); err != nil {
		return fmt.Errorf("remove remote %s: %w", name, err)
	}
	return nil
}

// RenameRemote renames a remote's config block and every reference/config
// row that points at it.
func (r *Repository) RenameRemote(oldName, newName string) error {
	if err := refdb.RenameRemote(r.DB, oldName, newName); err != nil {
		return fmt.Errorf("rename remote %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// RemoteURL returns the configured url for name, if any.
func (r *Repository) RemoteURL(name string) (string, bool, error) {
	url, ok, err := refdb.ConfigGet(r.DB, "remote", &name, "url")
	if err != nil {
		return "", false, fmt.Errorf("read remote %s url: %w", name, err)
	}
	return url, ok, nil
}
