package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit <file>...",
	Short: "Record changes to tracked files",
	Long: `Commits one or more files from the working tree as a single flat tree
(directory nesting and a full index/staging area are out of scope here —
cmd/libra is a thin driver over internal/porcelain, not a full git
porcelain reimplementation).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")
}

func runCommit(cmd *cobra.Command, args []string) error {
	out := newOutput()

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	files := make(map[string][]byte, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files[filepath.Base(path)] = content
	}

	now := time.Now()
	commitID, err := repo.Commit(files, defaultActor(), commitMessage, now)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if !out.IsJSON() {
		out.Success(fmt.Sprintf("Committed %s", commitID))
	} else {
		out.JSON(map[string]string{"commit": string(commitID)})
	}
	return nil
}
