package cmd

import (
	"context"
	"fmt"
	"time"

	"warden/application"
	"warden/bot"
	"warden/config"
	"warden/repository"
	"warden/worker"

	log "github.com/sirupsen/logrus"
)

// RunControl starts the control process and blocks until ctx is cancelled
func RunControl(ctx context.Context) error {
	log.Info("Starting warden control process...")
	cfg := config.Get()

	token, err := cfg.RequireControlToken()
	if err != nil {
		return err
	}

	deps, err := setupInfra(ctx, cfg, "warden-control")
	if err != nil {
		return err
	}
	defer deps.Close()

	uowFactory := repository.NewUnitOfWorkFactory(deps.db, deps.publisher)

	log.Info("Initializing Discord bot...")
	controlBot, err := bot.New(bot.Config{
		Token:         token,
		CommandPrefix: cfg.CommandPrefix,
		Prefixes:      cfg.Prefixes(),
	}, uowFactory)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	application.RegisterApplicationSubscriptions(deps.bus, controlBot.Narrator())

	expiry := application.NewPendingExpiryWorker(controlBot.RegistrationService(), cfg.PendingRegistrationTTL, cfg.MaintenanceInterval)
	stopExpiry, err := expiry.Start(ctx)
	if err != nil {
		return err
	}
	defer stopExpiry()

	if err := controlBot.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	log.WithField("workers", cfg.WorkerPrefixes).Infof("Control process is running in %s mode...", cfg.Environment)

	<-ctx.Done()
	log.Info("Shutting down control process...")

	if err := controlBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}
	waitForShutdown()
	return nil
}

// RunWorker starts the worker at index and blocks until ctx is cancelled
func RunWorker(ctx context.Context, index int) error {
	cfg := config.Get()
	token, prefix, err := cfg.Worker(index)
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"prefix": prefix, "index": index})
	logger.Info("Starting warden worker process...")

	deps, err := setupInfra(ctx, cfg, "warden-"+prefix.String())
	if err != nil {
		return err
	}
	defer deps.Close()

	uowFactory := repository.NewUnitOfWorkFactory(deps.db, deps.publisher)

	w, err := worker.New(worker.Config{
		Token:      token,
		Prefix:     prefix,
		Index:      index,
		YtDlpPath:  cfg.YtDlpPath,
		FFmpegPath: cfg.FFmpegPath,
	}, uowFactory)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}

	application.RegisterApplicationSubscriptions(deps.bus, w.Narrator())

	if err := w.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	logger.Info("Worker is running")

	<-ctx.Done()
	logger.Info("Shutting down worker process...")

	if err := w.Close(); err != nil {
		logger.WithError(err).Error("Error closing worker")
	}
	waitForShutdown()
	return nil
}

// waitForShutdown gives in-flight handlers a moment before the pool closes
func waitForShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}
}
