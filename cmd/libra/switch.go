package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch <branch>",
	Short: "Move HEAD to an existing branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Switch(args[0], defaultActor(), time.Now()); err != nil {
			return fmt.Errorf("switch: %w", err)
		}
		newOutput().Success(fmt.Sprintf("Switched to branch %s", args[0]))
		return nil
	},
}
