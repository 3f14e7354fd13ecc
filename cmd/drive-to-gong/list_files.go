package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/curtbushko/drive-to-gong/internal/config"
	"github.com/curtbushko/drive-to-gong/internal/drive"
	"github.com/curtbushko/drive-to-gong/internal/logging"
	"github.com/curtbushko/drive-to-gong/internal/manifest"
)

// createListFilesCommand creates the list-files subcommand
func createListFilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-files",
		Short: "Build the file manifest from the Drive folder",
		Long: `List the configured Drive folder and write the result to the manifest CSV.
Entries whose title repeats an earlier entry are dropped so a re-shared bundle
is only migrated once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListFiles(cmd)
		},
	}
}

func runListFiles(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}
	if cfg.Drive.FolderID == "" {
		return fmt.Errorf("drive.folder_id (or GOOGLE_FOLDER_ID) is required for list-files")
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	creds, err := drive.LoadServiceAccountCredentials(cfg.Drive.CredentialsFile)
	if err != nil {
		return err
	}
	client := drive.NewClient(cfg.Drive.BaseURL, drive.NewServiceAccountAuth(creds))

	files, err := client.ListFolder(cmd.Context(), cfg.Drive.FolderID)
	if err != nil {
		return fmt.Errorf("failed to list Drive folder: %w", err)
	}

	seenTitles := make(map[string]struct{})
	var items []manifest.Item
	duplicates := 0
	for _, file := range files {
		if _, ok := seenTitles[file.Name]; ok {
			duplicates++
			continue
		}
		seenTitles[file.Name] = struct{}{}
		items = append(items, manifest.Item{
			ID:       file.ID,
			Title:    file.Name,
			MimeType: file.MimeType,
		})
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Pipeline.UniverseFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := manifest.WriteUniverse(cfg.Pipeline.UniverseFile, items); err != nil {
		return err
	}

	logger.Info("wrote %d manifest entries (%d duplicate titles dropped)", len(items), duplicates)
	cmd.Printf("Wrote %d entries to %s (%d duplicate titles dropped)\n",
		len(items), cfg.Pipeline.UniverseFile, duplicates)
	return nil
}
