package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logRef string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show reflog history for HEAD or a named ref",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().StringVar(&logRef, "ref", "HEAD", "Reference to show history for")
}

func runLog(cmd *cobra.Command, args []string) error {
	out := newOutput()

	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.Log(logRef, false)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if out.IsJSON() {
		return out.JSON(entries)
	}
	if len(entries) == 0 {
		out.Info(fmt.Sprintf("no history for %s", logRef))
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s %s..%s %s\n", e.RefName, shortOID(e.OldOID), shortOID(e.NewOID), e.Message)
	}
	return nil
}

func shortOID(oid string) string {
	if len(oid) > 8 {
		return oid[:8]
	}
	return oid
}
