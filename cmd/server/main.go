package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"freeturn/internal/compose"
	"freeturn/internal/config"
	"freeturn/internal/crm"
	"freeturn/internal/cv"
	"freeturn/internal/database"
	"freeturn/internal/email"
	"freeturn/internal/lifecycle"
	"freeturn/internal/server"
	"freeturn/internal/workers"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Info("Database initialized", "path", cfg.DB.Path)

	composer := compose.NewComposer(db.CVs, logger)
	sender, from := buildSender(cfg, logger)
	engine := lifecycle.NewEngine(db, composer, sender, from, logger)

	generator, err := buildGenerator(cfg, db, logger)
	if err != nil {
		return err
	}

	provider := email.NewOAuthCredentialProvider()
	syncer := workers.NewSyncer(
		cfg.SyncerConfig(),
		workers.GmailSourceFactory(provider, logger),
		email.NewParser(logger),
		crm.NewResolver(db.People, db.Organizations, logger),
		crm.NewMatcher(db.Projects, db.Messages, db.Organizations, logger),
		db.Messages,
		db.CVs,
		generator,
		logger,
	)

	// Periodic mailbox sync runs inside the server process.
	scheduler := cron.New()
	spec := fmt.Sprintf("@every %s", cfg.Sync.Interval)
	if _, err := scheduler.AddFunc(spec, func() {
		if _, err := syncer.Sync(context.Background()); err != nil {
			logger.Error("Scheduled sync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Sync.RunOnStart {
		go func() {
			if _, err := syncer.Sync(context.Background()); err != nil {
				logger.Error("Initial sync failed", "error", err)
			}
		}()
	}

	router := server.NewRouter(db, engine, syncer, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.HandleSignals(srv, 30*time.Second, logger)
}

// buildGenerator returns the CV auto-generation collaborator, or nil when
// disabled. PDF rendering is optional on top of that.
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

// buildSender returns the outbound mail sender for the first configured
// account, or nil when none is configured. Transitions still commit without
// one; replies are just reported as undeliverable.
func buildSender(cfg *config.Config, logger *slog.Logger) (email.MailSender, string) {
	for _, account := range cfg.Mailbox.Accounts {
		for _, cred := range account.Credentials {
			provider := email.NewOAuthCredentialProvider()
			httpClient, err := provider.Client(context.Background(), account.Name, cred)
			if err != nil {
				logger.Warn("Mail sender unavailable", "account", account.Name, "error", err)
				continue
			}
			client, err := email.NewGmailClient(context.Background(), httpClient, logger)
			if err != nil {
				logger.Warn("Mail sender unavailable", "account", account.Name, "error", err)
				continue
			}
			from := cfg.Mailbox.From
			if from == "" {
				from = account.Email
			}
			return client, from
		}
	}
	return nil, cfg.Mailbox.From
}
