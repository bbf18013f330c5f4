package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/libra-vcs/libra/internal/porcelain"
	"github.com/libra-vcs/libra/internal/repostate"
)

var initHashKind string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create an empty repository",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initHashKind, "hash", "sha1", "Object hash kind (sha1|sha256)")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := newOutput()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	if len(args) == 1 {
		workDir = args[0]
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", workDir, err)
		}
	}

	hashKind, err := hashKindFromString(initHashKind)
	if err != nil {
		return err
	}

	repo, err := porcelain.Init(workDir, hashKind)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repo.Close()

	stateMgr, err := repostate.NewManager("")
	if err != nil {
		return fmt.Errorf("open repository state: %w", err)
	}
	if err := stateMgr.Put(workDir, &repostate.Repository{
		WorkDir:    workDir,
		StorageDir: repo.StorageDir,
		HashKind:   hashKindString(hashKind),
		Created:    time.Now(),
	}); err != nil {
		return fmt.Errorf("record repository state: %w", err)
	}

	if !out.IsJSON() {
		out.Success(fmt.Sprintf("Initialized empty libra repository in %s", repo.StorageDir))
	} else {
		out.JSON(map[string]string{"work_dir": workDir, "storage_dir": repo.StorageDir})
	}
	return nil
}
