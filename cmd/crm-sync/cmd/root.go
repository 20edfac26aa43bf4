package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"freeturn/internal/config"
	"freeturn/internal/crm"
	"freeturn/internal/cv"
	"freeturn/internal/database"
	"freeturn/internal/email"
	"freeturn/internal/workers"
)

var (
	configFile string
	once       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crm-sync",
	Short: "Mailbox synchronization service for the freeturn CRM",
	Long: `crm-sync monitors labeled Gmail conversations and turns them into
CRM records: senders become people, their domains become organizations,
and conversations become projects with their full message history.

CONFIGURATION:
    Configuration is read from freeturn.{yaml,toml,json} or environment
    variables with the FREETURN_ prefix:

        FREETURN_DB_PATH              - SQLite database path (default: ./freeturn.db)
        FREETURN_MAILBOX_LABEL        - Gmail label to monitor (default: CRM)
        FREETURN_SYNC_INTERVAL        - Interval between sync runs (default: 5m)
        FREETURN_GMAIL_CLIENT_ID      - OAuth2 client ID
        FREETURN_GMAIL_CLIENT_SECRET  - OAuth2 client secret
        FREETURN_GMAIL_REFRESH_TOKEN  - OAuth2 refresh token

EXAMPLES:
    # Run the sync loop with environment configuration
    export FREETURN_GMAIL_CLIENT_ID="your-client-id"
    export FREETURN_GMAIL_CLIENT_SECRET="your-client-secret"
    export FREETURN_GMAIL_REFRESH_TOKEN="your-refresh-token"
    crm-sync

    # Single pass, then exit
    crm-sync --once

    # With a specific configuration file
    crm-sync --config=freeturn.production.yaml`,
	Version: "1.0.0",
	RunE:    runSync,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is freeturn.{yaml,toml,json})")
	rootCmd.PersistentFlags().BoolVar(&once, "once", false, "run a single sync pass and exit")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Starting CRM sync service",
		"label", cfg.Mailbox.Label,
		"interval", cfg.Sync.Interval,
		"accounts", len(cfg.Mailbox.Accounts))

	db, err := database.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Info("Database initialized", "path", cfg.DB.Path)

	generator, err := buildGenerator(cfg, db, logger)
	if err != nil {
		return err
	}

	syncer := workers.NewSyncer(
		cfg.SyncerConfig(),
		workers.GmailSourceFactory(email.NewOAuthCredentialProvider(), logger),
		email.NewParser(logger),
		crm.NewResolver(db.People, db.Organizations, logger),
		crm.NewMatcher(db.Projects, db.Messages, db.Organizations, logger),
		db.Messages,
		db.CVs,
		generator,
		logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := syncer.Sync(ctx); err != nil {
		if once {
			return fmt.Errorf("sync failed: %w", err)
		}
		logger.Error("Sync failed", "error", err)
	}
	if once {
		return nil
	}

	ticker := time.NewTicker(cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := syncer.Sync(ctx); err != nil {
				logger.Error("Sync failed", "error", err)
			}
		case <-ctx.Done():
			logger.Info("CRM sync service stopped")
			return nil
		}
	}
}

// buildGenerator returns the CV auto-generation collaborator, or nil when
// disabled.
func buildGenerator(cfg *config.Config, db *database.DB, logger *slog.Logger) (workers.CVGenerator, error) {
	if !cfg.Sync.GenerateCVs {
		return nil, nil
	}

	var renderer cv.Renderer
	if cfg.Sync.RenderPDFs {
		pdfRenderer, err := cv.NewPDFRenderer(cv.DefaultPDFOptions(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create PDF renderer: %w", err)
		}
		renderer = pdfRenderer
	}
	return cv.NewGenerator(db.CVs, cfg.CV, renderer, logger), nil
}

// loadConfiguration loads configuration from file and environment variables
func loadConfiguration() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.Load()
}
