package porcelain

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/refdb"
	"github.com/libra-vcs/libra/internal/wire"
)

// Clone populates a freshly Init'd repository from a remote: it discovers
// refs, fetches the full pack, records every advertised branch and the
// remote's HEAD, and points the local default branch + HEAD at it.
//
// internal/wire has no packfile parser or delta resolver; its
// responsibility ends at streaming pack bytes back into storage.
// Clone therefore persists the fetched stream as a single opaque Blob
// keyed by the hash of the pack bytes, rather than exploding it into
// individual loose objects; no checkout of the fetched tree is performed.
func (r *Repository) Clone(ctx context.Context, remoteName, remoteURL string, client wire.ProtocolClient, committer Actor, now time.Time) error {
	if err := r.AddRemote(remoteName, remoteURL); err != nil {
		return err
	}

	discovery, err := client.Discover(ctx, wire.ServiceUploadPack)
	if err != nil {
		return fmt.Errorf("discover refs from %s: %w", remoteName, err)
	}

	var headRef *wire.DiscoveredRef
	var wants []objstore.ID
	for i, ref := range discovery.Refs {
		if ref.Ref == "HEAD" {
			headRef = &discovery.Refs[i]
			continue
		}
		if !strings.HasPrefix(ref.Ref, constants.RefsHeadsPrefix) {
			continue
		}
		name := strings.TrimPrefix(ref.Ref, constants.RefsHeadsPrefix)
		if err := refdb.UpdateBranch(r.DB, name, string(ref.Hash), &remoteName); err != nil {
			return fmt.Errorf("record remote branch %s: %w", name, err)
		}
		wants = append(wants, ref.Hash)
	}
	if headRef == nil && len(discovery.Refs) > 0 {
		headRef = &discovery.Refs[0]
	}
	if headRef == nil {
		return fmt.Errorf("clone %s: remote advertised no refs", remoteURL)
	}

	packStream, err := client.Fetch(ctx, nil, wants, nil)
	if err != nil {
		return fmt.Errorf("fetch pack from %s: %w", remoteName, err)
	}
	defer packStream.Close()

	packBytes, err := io.ReadAll(packStream)
	if err != nil {
		return fmt.Errorf("read pack stream from %s: %w", remoteName, err)
	}
	packID := objstore.Hash(objstore.KindBlob, packBytes, r.HashKind)
	if _, err := r.Store.Put(packID, packBytes, objstore.KindBlob); err != nil {
		return fmt.Errorf("persist fetched pack: %w", err)
	}

	defaultBranch := strings.TrimPrefix(headRef.Ref, constants.RefsHeadsPrefix)
	if defaultBranch == "" || defaultBranch == "HEAD" {
		defaultBranch = constants.DefaultBranch
	}
	if err := refdb.UpdateBranch(r.DB, defaultBranch, string(headRef.Hash), nil); err != nil {
		return fmt.Errorf("seed local branch %s: %w", defaultBranch, err)
	}
	if err := refdb.HeadUpdate(r.DB, refdb.Head{Symbolic: true, Branch: defaultBranch}, &remoteName); err != nil {
		return fmt.Errorf("record remote HEAD for %s: %w", remoteName, err)
	}

	txnCtx := refdb.TxnContext{
		OldOID:         zeroHash(r.HashKind),
		NewOID:         string(headRef.Hash),
		Action:         refdb.CloneAction(remoteURL),
		CommitterName:  committer.Name,
		CommitterEmail: committer.Email,
		Timestamp:      now.Unix(),
	}
	err = refdb.WithReflog(r.DB, txnCtx, true, func(tx *sql.Tx) error {
		return refdb.HeadUpdate(tx, refdb.Head{Symbolic: true, Branch: defaultBranch}, nil)
	})
	if err != nil {
		return fmt.Errorf("set HEAD after clone: %w", err)
	}
	return nil
}
