package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/curtbushko/drive-to-gong/internal/config"
	"github.com/curtbushko/drive-to-gong/internal/gong"
	"github.com/curtbushko/drive-to-gong/internal/logging"
)

// createListUsersCommand creates the list-users subcommand
func createListUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "Fetch the Gong user list for participant matching",
		Long: `Download all Gong users and write them to the identity map CSV. The
migration matches meeting participant names against this file to credit
calls to the right users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListUsers(cmd)
		},
	}
}

func runListUsers(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	client := gong.NewClient(cfg.Gong.BaseURL, cfg.Gong.AccessKey, cfg.Gong.AccessSecret)
	users, err := client.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list Gong users: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Identity.File), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := writeUserList(cfg.Identity.File, users); err != nil {
		return err
	}

	logger.Info("wrote %d users to %s", len(users), cfg.Identity.File)
	cmd.Printf("Wrote %d users to %s\n", len(users), cfg.Identity.File)
	return nil
}

// writeUserList writes the identity map CSV consumed by the identity package
func writeUserList(path string, users []gong.User) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create user list %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"id", "first_name", "last_name", "email", "active", "telephonyEnabled"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write user list header: %w", err)
	}

	for _, user := range users {
		row := []string{
			user.ID,
			user.FirstName,
			user.LastName,
			user.EmailAddress,
			strconv.FormatBool(user.Active),
			strconv.FormatBool(user.Settings.TelephonyCallsImported),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write user list row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush user list: %w", err)
	}

	return nil
}
