package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/porcelain"
	"github.com/libra-vcs/libra/internal/refdb"
	"github.com/libra-vcs/libra/internal/repostate"
	"github.com/libra-vcs/libra/internal/wire"
)

// internalServeCmd is the server half of the local ("file://") transport.
// wire.LocalClient re-invokes the running binary with this
// hidden subcommand and talks pkt-lines over its stdin/stdout, the same
// shape git itself uses for local/bare-repo remotes — it is never meant
// to be typed by a user, hence Hidden.
var internalServeCmd = &cobra.Command{
	Use:    "internal-serve <upload-pack|receive-pack> <repo-path>",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, repoPath := args[0], args[1]

		repo, err := openRepositoryAt(repoPath)
		if err != nil {
			return err
		}
		defer repo.Close()

		refs, err := branchRefs(repo)
		if err != nil {
			return err
		}

		switch service {
		case "upload-pack":
			return wire.ServeUploadPack(os.Stdin, os.Stdout, refs, repo.HashKind, func(id objstore.ID) ([]byte, error) {
				payload, _, err := repo.Store.Get(id)
				return payload, err
			})
		case "receive-pack":
			return wire.ServeReceivePack(os.Stdin, os.Stdout, refs, repo.HashKind, func(updates []wire.RefUpdate, packData []byte) error {
				return applyReceivedPack(repo, updates, packData)
			})
		default:
			return fmt.Errorf("unknown service %q", service)
		}
	},
}

// openRepositoryAt opens the repository rooted at path rather than the
// current working directory, looking up its hash kind the same way
// openRepository does for the cwd case.
func openRepositoryAt(path string) (*porcelain.Repository, error) {
	stateMgr, err := repostate.NewManager("")
	if err != nil {
		return nil, fmt.Errorf("open repository state: %w", err)
	}
	entry, err := stateMgr.Get(path)
	if err != nil {
		return nil, fmt.Errorf("%s is not a libra repository: %w", path, err)
	}
	hashKind, err := hashKindFromString(entry.HashKind)
	if err != nil {
		return nil, err
	}
	return porcelain.Open(path, hashKind)
}

// branchRefs packages the repository's local branches as the
// wire.DiscoveredRef slice the advertisement encoder expects.
func branchRefs(repo *porcelain.Repository) ([]wire.DiscoveredRef, error) {
	branches, err := refdb.ListBranches(repo.DB, nil)
	if err != nil {
		return nil, fmt.Errorf("list branches for advertisement: %w", err)
	}
	var refs []wire.DiscoveredRef
	for _, b := range branches {
		if b.Name == nil || b.Commit == nil {
			continue
		}
		refs = append(refs, wire.DiscoveredRef{
			Hash: objstore.ID(*b.Commit),
			Ref:  constants.RefsHeadsPrefix + *b.Name,
		})
	}
	return refs, nil
}

// applyReceivedPack persists the pushed pack data and advances every
// named branch to its new tip, mirroring porcelain.Clone's own
// simplification of treating a fetched/pushed stream as a single opaque
// blob rather than exploding it into loose objects (internal/wire has no
// delta-packfile assembler — see DESIGN.md).
func applyReceivedPack(repo *porcelain.Repository, updates []wire.RefUpdate, packData []byte) error {
	if len(packData) > 0 {
		packID := objstore.Hash(objstore.KindBlob, packData, repo.HashKind)
		if _, err := repo.Store.Put(packID, packData, objstore.KindBlob); err != nil {
			return fmt.Errorf("persist pushed pack: %w", err)
		}
	}
	for _, u := range updates {
		name := strings.TrimPrefix(u.Name, constants.RefsHeadsPrefix)
		if err := refdb.UpdateBranch(repo.DB, name, string(u.New), nil); err != nil {
			return fmt.Errorf("advance branch %s: %w", name, err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(internalServeCmd)
}
