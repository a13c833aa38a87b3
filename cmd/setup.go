package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"warden/config"
	"warden/database"
	"warden/domain/interfaces"
	"warden/events"
	"warden/infrastructure"
	"warden/observability"

	log "github.com/sirupsen/logrus"
)

// SetupLogging applies LOG_LEVEL and, when LOG_FILE is set, mirrors output to
// that file. The returned function closes the file.
func SetupLogging(cfg *config.Config) (func(), error) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.LogFile == "" {
		log.SetOutput(os.Stdout)
		return func() {}, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))

	return func() {
		log.SetOutput(os.Stdout)
		_ = file.Close()
	}, nil
}

// infra is the shared process plumbing: database pool, local bus and the
// publisher units of work hand committed events to
type infra struct {
	db        *database.DB
	bus       *events.Bus
	publisher interfaces.EventPublisher
	nats      *infrastructure.NATSClient
	metrics   *observability.MetricsProvider
}

func setupInfra(ctx context.Context, cfg *config.Config, source string) (*infra, error) {
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	metrics := observability.NewMetricsProvider(cfg, source)
	if err := metrics.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	bus := events.NewBus()
	i := &infra{
		db:        db,
		bus:       bus,
		publisher: bus,
		metrics:   metrics,
	}

	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, event feed disabled")
		return i, nil
	}

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(cfg.NATSServers, source)
	if err := client.Connect(ctx); err != nil {
		// The feed is optional; keep running on the local bus alone
		log.WithError(err).Warn("Failed to connect to NATS, event feed disabled")
		return i, nil
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.EventStreamName, mapper.GetAllSubjects()); err != nil {
		_ = client.Close()
		log.WithError(err).Warn("Failed to ensure event stream, event feed disabled")
		return i, nil
	}

	i.nats = client
	i.publisher = infrastructure.NewNATSEventPublisher(client, mapper, i.bus, source)
	log.Info("Event feed connected")
	return i, nil
}

func (i *infra) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := i.metrics.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Error shutting down metrics provider")
	}

	if i.nats != nil {
		log.Info("Closing NATS connection...")
		if err := i.nats.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	log.Info("Closing database connection...")
	i.db.Close()
}
