package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/curtbushko/drive-to-gong/internal/config"
	"github.com/curtbushko/drive-to-gong/internal/drive"
	"github.com/curtbushko/drive-to-gong/internal/gong"
	"github.com/curtbushko/drive-to-gong/internal/identity"
	"github.com/curtbushko/drive-to-gong/internal/ledger"
	"github.com/curtbushko/drive-to-gong/internal/logging"
	"github.com/curtbushko/drive-to-gong/internal/manifest"
	"github.com/curtbushko/drive-to-gong/internal/media"
	"github.com/curtbushko/drive-to-gong/internal/pool"
	"github.com/curtbushko/drive-to-gong/internal/queue"
	"github.com/curtbushko/drive-to-gong/internal/workflow"
)

// runMigration wires the pipeline together and drains the pending manifest
func runMigration(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	universe, err := manifest.LoadUniverse(cfg.Pipeline.UniverseFile)
	if err != nil {
		return fmt.Errorf("failed to load file manifest (run 'drive-to-gong list-files' first): %w", err)
	}

	pending, err := pendingItems(cfg, universe)
	if err != nil {
		return err
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	logger.Info("manifest holds %d recordings, %d pending", len(universe), len(pending))

	if dryRun {
		renderPending(cmd, pending)
		return nil
	}
	if len(pending) == 0 {
		cmd.Println("Nothing to migrate; all manifest entries are already recorded in the ledgers.")
		return nil
	}

	if err := os.MkdirAll(cfg.Pipeline.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Pipeline.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	completed, err := ledger.NewCompletedLedger(cfg.Pipeline.CompletedFile)
	if err != nil {
		return err
	}
	short, err := ledger.NewShortLedger(cfg.Pipeline.ShortFile)
	if err != nil {
		return err
	}
	errLedger, err := ledger.NewErrorLedger(cfg.Pipeline.ErrorFile)
	if err != nil {
		return err
	}

	identities, err := identity.NewManager(identity.Config{
		FilePath:        cfg.Identity.File,
		WatchFile:       cfg.Identity.WatchFile,
		DefaultUserID:   cfg.Gong.DefaultUserID,
		DefaultUserName: cfg.Gong.DefaultUserName,
	})
	if err != nil {
		return fmt.Errorf("failed to load identity map (run 'drive-to-gong list-users' first): %w", err)
	}
	defer identities.Close()

	creds, err := drive.LoadServiceAccountCredentials(cfg.Drive.CredentialsFile)
	if err != nil {
		return err
	}
	store := drive.NewClient(cfg.Drive.BaseURL, drive.NewServiceAccountAuth(creds))
	platform := gong.NewClient(cfg.Gong.BaseURL, cfg.Gong.AccessKey, cfg.Gong.AccessSecret)

	processor := workflow.NewProcessor(store, platform, media.NewProber(), identities,
		workflow.Ledgers{Completed: completed, Short: short, Errors: errLedger},
		logger,
		workflow.Options{
			WorkDir:            cfg.Pipeline.WorkDir,
			MinDurationSeconds: cfg.Pipeline.MinDurationSeconds,
		})

	q := queue.NewTransferQueue()
	for _, item := range pending {
		q.Enqueue(item)
	}

	workers := pool.NewPool(q, processor, errLedger, logger, pool.Options{
		Workers:     cfg.Pipeline.Workers,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())

	summary, runErr := workers.Run(ctx)
	renderSummary(cmd, summary)

	if runErr != nil {
		return fmt.Errorf("migration interrupted: %w", runErr)
	}
	return nil
}

// pendingItems subtracts all three ledgers from the universe
func pendingItems(cfg *config.Config, universe []manifest.Item) ([]manifest.Item, error) {
	completedIDs, err := ledger.LoadIDs(cfg.Pipeline.CompletedFile)
	if err != nil {
		return nil, err
	}
	shortIDs, err := ledger.LoadIDs(cfg.Pipeline.ShortFile)
	if err != nil {
		return nil, err
	}
	errorIDs, err := ledger.LoadIDs(cfg.Pipeline.ErrorFile)
	if err != nil {
		return nil, err
	}
	return manifest.ComputePending(universe, completedIDs, shortIDs, errorIDs), nil
}

func renderPending(cmd *cobra.Command, pending []manifest.Item) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "File ID", "Title"})
	for i, item := range pending {
		t.AppendRow(table.Row{i + 1, item.ID, item.Title})
	}
	t.Render()
	cmd.Printf("%d recordings would be migrated.\n", len(pending))
}

func renderSummary(cmd *cobra.Command, summary pool.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRows([]table.Row{
		{"Completed", summary.Completed},
		{"Skipped", summary.Skipped},
		{"Failed", summary.Failed},
		{"Requeued", summary.Requeued},
	})
	t.Render()
}
