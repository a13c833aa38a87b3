package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"warden/config"
	"warden/database"
	"warden/domain/entities"
	"warden/domain/services"
	"warden/infrastructure"
	"warden/repository"

	log "github.com/sirupsen/logrus"
)

// RunMigrate applies a migration command: up, down [n] or status
func RunMigrate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: warden migrate [up|down|status] [args...]")
	}

	databaseURL := config.Get().GetDatabaseURL()
	switch args[0] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid steps value %q: %w", args[1], err)
			}
			steps = n
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

// ReleaseTarget picks the worker a release acts on. Exactly one of index
// (a position in WORKER_PREFIXES) or prefix must be given. A prefix need not
// be configured any more, so retired workers can still be released.
func ReleaseTarget(cfg *config.Config, index int, prefix string) (entities.WorkerPrefix, error) {
	prefix = strings.TrimSpace(prefix)
	switch {
	case index >= 0 && prefix != "":
		return "", errors.New("release takes --index or --prefix, not both")
	case prefix != "":
		if strings.ContainsAny(prefix, " \t\n") {
			return "", fmt.Errorf("worker prefix %q must not contain whitespace", prefix)
		}
		return entities.WorkerPrefix(prefix), nil
	case index >= 0:
		if index >= len(cfg.WorkerPrefixes) {
			return "", fmt.Errorf("worker index %d out of range: %d workers configured", index, len(cfg.WorkerPrefixes))
		}
		return cfg.Prefixes()[index], nil
	default:
		return "", errors.New("release requires --index or --prefix")
	}
}

// RunRelease clears every binding held by prefix. Use it when a worker is
// retired without being restarted.
func RunRelease(ctx context.Context, prefix entities.WorkerPrefix) error {
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), "warden-admin")
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Events are not narrated from the command line
	uowFactory := repository.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())
	released, err := services.NewAssignmentService(uowFactory).ReleaseAllForWorker(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to release worker %s: %w", prefix, err)
	}

	log.WithFields(log.Fields{
		"prefix":   prefix,
		"released": released,
	}).Info("Released worker bindings")
	return nil
}
