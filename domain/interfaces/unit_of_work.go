package interfaces

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and publishes the events raised inside it
	Commit() error

	// Rollback rolls back the transaction and drops pending events.
	// Safe to call after Commit.
	Rollback() error

	// Repository getters
	GuildRepository() GuildRepository
	SettingsRepository() SettingsRepository
	WorkerRepository() WorkerRepository
	LeaseRepository() LeaseRepository
	PendingRegistrationRepository() PendingRegistrationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateForGuild creates a new UnitOfWork instance scoped to a specific guild
	CreateForGuild(guildID snowflake.ID) UnitOfWork

	// Create creates a UnitOfWork for queries that span guilds
	Create() UnitOfWork
}
