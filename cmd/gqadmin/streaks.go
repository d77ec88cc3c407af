package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildStreaksCmd = &cobra.Command{
	Use:   "rebuild-streaks",
	Short: "Replay every streak from its confirmed records",
	Long: `Recompute current and longest streak for every child and task from the
confirmed task records, and remove streak rows that have no confirmed record
left. Points and badges are not changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.tracker()
		if err != nil {
			return err
		}
		n, err := svc.RebuildAllStreaks(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d streaks\n", n)
		return nil
	},
}

var seedBadgesCmd = &cobra.Command{
	Use:   "seed-badges",
	Short: "Add the bronze to graduate streak badges to every task",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.tracker()
		if err != nil {
			return err
		}
		n, err := svc.SeedAllCatalogs(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d badges\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildStreaksCmd, seedBadgesCmd)
}
