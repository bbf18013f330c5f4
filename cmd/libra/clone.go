package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/porcelain"
	"github.com/libra-vcs/libra/internal/repostate"
	"github.com/libra-vcs/libra/internal/wire"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <url> [dir]",
	Short: "Clone a remote repository",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runClone,
}

// clientForURL picks the wire.ProtocolClient variant for url's scheme:
// HTTPS, git://, or a local filesystem path.
func clientForURL(url string) (wire.ProtocolClient, error) {
	switch {
	case strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://"):
		return wire.NewHTTPSClient(url, nil), nil
	case strings.HasPrefix(url, "git://"):
		rest := strings.TrimPrefix(url, "git://")
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return nil, fmt.Errorf("invalid git:// url %q", url)
		}
		return wire.NewGitProtoClient(rest[:slash], constants.DefaultGitPort, rest[slash:]), nil
	default:
		return wire.NewLocalClient(url), nil
	}
}

func runClone(cmd *cobra.Command, args []string) error {
	out := newOutput()
	url := args[0]

	workDir := strings.TrimSuffix(strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".git"), "/")
	if len(args) == 2 {
		workDir = args[1]
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", workDir, err)
	}

	repo, err := porcelain.Init(workDir, objstore.HashSHA1)
	if err != nil {
		return fmt.Errorf("init clone target: %w", err)
	}
	defer repo.Close()

	client, err := clientForURL(url)
	if err != nil {
		return err
	}

	if !out.IsJSON() {
		out.Info(fmt.Sprintf("Cloning from %s...", url))
	}

	if err := repo.Clone(cmd.Context(), constants.DefaultRemote, url, client, defaultActor(), time.Now()); err != nil {
		return fmt.Errorf("clone: %w", err)
	}

	stateMgr, err := repostate.NewManager("")
	if err != nil {
		return fmt.Errorf("open repository state: %w", err)
	}
	if err := stateMgr.Put(workDir, &repostate.Repository{
		WorkDir:    workDir,
		StorageDir: repo.StorageDir,
		HashKind:   hashKindString(objstore.HashSHA1),
		Created:    time.Now(),
		Remote:     &repostate.Remote{Name: constants.DefaultRemote, URL: url, SyncStatus: "synced", LastSync: time.Now()},
	}); err != nil {
		return fmt.Errorf("record repository state: %w", err)
	}

	if !out.IsJSON() {
		out.Success(fmt.Sprintf("Cloned into %s", workDir))
	} else {
		out.JSON(map[string]string{"work_dir": workDir})
	}
	return nil
}
