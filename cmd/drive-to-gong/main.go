package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set during build
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	verbose    bool
	dryRun     bool
	limit      int
)

// buildRootCommand creates and configures the root command
func buildRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drive-to-gong",
		Short: "Migrate recorded meetings from Google Drive into Gong",
		Long: `drive-to-gong moves recorded-meeting bundles out of a Google Drive folder
and into Gong as calls with attached media.

Each bundle is a zip holding one MP4 recording and one metadata JSON. The tool:
- Lists the Drive folder into a local file manifest
- Downloads and unpacks each bundle with a pool of workers
- Skips recordings shorter than the configured minimum
- Creates a Gong call per recording and uploads its media
- Tracks completed, skipped, and failed recordings in CSV ledgers so reruns
  only process what is left`,
		Run: func(cmd *cobra.Command, args []string) {
			// Most invocations want the migration itself; point at the
			// subcommands when the config cannot even be loaded.
			if err := runMigration(cmd); err != nil {
				cmd.Printf("Migration failed: %v\n", err)
				cmd.Printf("\nRun 'drive-to-gong config' for configuration help.\n")
				os.Exit(1)
			}
		},
	}

	rootCmd.AddCommand(createRunCommand())
	rootCmd.AddCommand(createListFilesCommand())
	rootCmd.AddCommand(createListUsersCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path (default: config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would be migrated without contacting Gong")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 0, "limit processing to N recordings (0 = no limit)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if limit < 0 {
			return fmt.Errorf("limit must be a positive number or 0, got: %d", limit)
		}
		return nil
	}

	return rootCmd
}

// createRunCommand creates the explicit run subcommand
func createRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the migration over the pending manifest entries",
		Long: `Load the file manifest, subtract everything already recorded in the
completed, short, and error ledgers, and push the remaining bundles through
the worker pool.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd)
		},
	}
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version, commit, and build information for drive-to-gong",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("drive-to-gong version %s\n", version)
			cmd.Printf("Commit: %s\n", commit)
			cmd.Printf("Build date: %s\n", buildDate)
		},
	}
}

// createConfigCommand creates the config help subcommand
func createConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration file structure and examples",
		Long:  "Display the required configuration file structure, environment variables, and examples",
		Run: func(cmd *cobra.Command, args []string) {
			configHelp := `Configuration File Structure (config.yaml):

GOOGLE DRIVE CONFIGURATION:
==========================
drive:
  credentials_file: "./service-account.json" # Service account key with drive.readonly scope
  folder_id: "your_drive_folder_id"          # Folder holding the recording bundles
  base_url: "https://www.googleapis.com/drive/v3" # Drive API base URL (default)

GONG CONFIGURATION (Required):
=============================
gong:
  base_url: "https://api.gong.io"  # Gong API base URL
  access_key: "your_access_key"    # Gong API access key
  access_secret: "your_secret"     # Gong API access secret
  default_user_id: "123"           # Gong user credited when no participant resolves
  default_user_name: "Migration"   # Display name for the fallback participant

PIPELINE CONFIGURATION:
======================
pipeline:
  workers: 5                  # Concurrent transfer workers (default: 5)
  max_attempts: 3             # Attempts per recording before giving up (default: 3)
  min_duration_seconds: 60    # Recordings shorter than this are skipped (default: 60)
  work_dir: "./dest"          # Scratch directory for downloads (default: ./dest)
  data_dir: "./data"          # Manifest and ledger directory (default: ./data)

LOGGING CONFIGURATION:
=====================
logging:
  level: "info"                  # Log level: debug, info, warn, error (default: info)
  file: "./drive-to-gong.log"    # Log file path
  console: true                  # Enable console output (default: true)
  json_format: false             # Use JSON log format (default: false)

IDENTITY MAP:
============
identity:
  file: "./data/user_list.csv"   # Gong user list produced by 'list-users'
  watch_file: false              # Reload the map when the file changes

ENVIRONMENT VARIABLES (override config file; .env is loaded if present):
=======================================================================
  GONG_KEY                - Gong API access key
  GONG_SECRET             - Gong API access secret
  GONG_API_URL            - Gong API base URL
  DEFAULT_USER_ID         - Fallback Gong user ID
  DEFAULT_USER_NAME       - Fallback participant display name
  GOOGLE_FOLDER_ID        - Drive folder ID
  DRIVE_CREDENTIALS_FILE  - Service account key path
  DRIVE_BASE_URL          - Drive API base URL
  PIPELINE_WORKERS        - Concurrent transfer workers
  PIPELINE_WORK_DIR       - Scratch directory for downloads

EXAMPLE USAGE:
=============

1. Build the manifest from the Drive folder:
   drive-to-gong list-files

2. Fetch the Gong user list for participant matching:
   drive-to-gong list-users

3. Run the migration:
   drive-to-gong run

4. Preview without contacting Gong:
   drive-to-gong run --dry-run --limit 10

Reruns are safe: anything already in the completed, short, or error ledgers
is not processed again.`
			cmd.Println(configHelp)
		},
	}
}

// configPath returns the effective config file path
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return "config.yaml"
}

func main() {
	rootCmd := buildRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
