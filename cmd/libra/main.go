// Command libra is a thin cobra wiring shim: it owns no logic of its own,
// only flag parsing and construction of internal/porcelain.Repository
// (and, for `ai run`, internal/toolloop's engine) before handing off.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	format  string
	noColor bool
	quiet   bool
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "libra",
		Short: "A Git-compatible version control system with a built-in AI process ledger",
		Long: `libra stores source history the way Git does - content-addressed objects,
branches, a reflog - and additionally persists an AI coding agent's intents,
runs, plans and tool invocations as versioned objects in the same store.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format (human|json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(aiCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
