package porcelain

import (
	"fmt"

	"github.com/libra-vcs/libra/internal/refdb"
)

// Log returns refName's reflog entries, oldest-first or newest-first on
// request. refName is
// typically "HEAD" or "refs/heads/<branch>".
func (r *Repository) Log(refName string, oldestFirst bool) ([]refdb.ReflogEntry, error) {
	entries, err := refdb.ReflogIter(r.DB, refName, oldestFirst)
	if err != nil {
		return nil, fmt.Errorf("read reflog for %s: %w", refName, err)
	}
	return entries, nil
}
