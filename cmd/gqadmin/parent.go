package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

var createParentCmd = &cobra.Command{
	Use:   "create-parent USERNAME",
	Short: "Create a parent account",
	Long: `Create a parent account. The password is read from --password or, when
that is empty, from GROWTHQUEST_PARENT_PASSWORD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		if username == "" {
			return errors.New("username is required")
		}
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("GROWTHQUEST_PARENT_PASSWORD")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := store.NewParentStore(a.db).Create(username, hash)
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("username %q is taken", username)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created parent %s (id %d)\n", p.Username, p.ID)
		return nil
	},
}

func init() {
	createParentCmd.Flags().String("password", "", "password for the new account")
	rootCmd.AddCommand(createParentCmd)
}
