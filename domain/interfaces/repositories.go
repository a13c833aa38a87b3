package interfaces

import (
	"context"
	"errors"
	"time"

	"warden/domain/entities"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
)

// ErrConflict is returned by repositories when a write loses a uniqueness race
var ErrConflict = errors.New("conflicting write")

// GuildRepository defines the interface for guild data access.
// Implementations are scoped to the guild of their unit of work.
type GuildRepository interface {
	// Get returns the guild row, or nil if the guild is not registered
	Get(ctx context.Context) (*entities.Guild, error)

	// Create inserts the guild row referencing an existing settings row
	Create(ctx context.Context, settingsID int64) (*entities.Guild, error)

	// ListIDs returns the ids of every registered guild
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
}

// SettingsRepository defines the interface for guild settings data access
type SettingsRepository interface {
	// Create inserts an empty settings row and returns it
	Create(ctx context.Context) (*entities.Settings, error)

	// Get returns the guild's settings, or nil if the guild is not registered
	Get(ctx context.Context) (*entities.Settings, error)

	// Update persists every field of settings
	Update(ctx context.Context, settings *entities.Settings) error

	// Delete removes the guild's settings row. The guild row and everything
	// that references it are removed by cascade. Reports whether a row existed.
	Delete(ctx context.Context) (bool, error)
}

// WorkerRepository defines the interface for worker pool membership and bindings
type WorkerRepository interface {
	// SyncPool makes the guild's pool match prefixes: missing workers are
	// inserted unbound, positions follow prefixes order, and workers whose
	// prefix is no longer listed are deleted along with their lease.
	// Existing bindings of listed workers are kept.
	SyncPool(ctx context.Context, prefixes []entities.WorkerPrefix) (added int, removed int, err error)

	// List returns the guild's workers ordered by position
	List(ctx context.Context) ([]*entities.Worker, error)

	// GetByChannel returns the worker bound to channelID, or nil
	GetByChannel(ctx context.Context, channelID snowflake.ID) (*entities.Worker, error)

	// GetByPrefix returns the guild's worker with the given prefix, or nil
	GetByPrefix(ctx context.Context, prefix entities.WorkerPrefix) (*entities.Worker, error)

	// LockFirstUnbound locks and returns the lowest-positioned unbound worker,
	// skipping rows locked by concurrent transactions. Returns nil if none.
	LockFirstUnbound(ctx context.Context) (*entities.Worker, error)

	// Bind points the worker at channelID. Returns ErrConflict when another
	// worker of the guild already holds that channel.
	Bind(ctx context.Context, prefix entities.WorkerPrefix, channelID snowflake.ID) error

	// Unbind clears the worker's destination
	Unbind(ctx context.Context, prefix entities.WorkerPrefix) error

	// ListBoundByPrefix returns every bound worker with the prefix, across all guilds
	ListBoundByPrefix(ctx context.Context, prefix entities.WorkerPrefix) ([]*entities.Worker, error)
}

// LeaseRepository defines the interface for destination leases
type LeaseRepository interface {
	// TryCreate inserts a lease unless one already exists for channelID.
	// Reports whether the lease was created.
	TryCreate(ctx context.Context, channelID snowflake.ID, prefix entities.WorkerPrefix) (bool, error)

	// Get returns the lease for channelID, or nil
	Get(ctx context.Context, channelID snowflake.ID) (*entities.Lease, error)

	// Delete removes the lease for channelID. Reports whether one existed.
	Delete(ctx context.Context, channelID snowflake.ID) (bool, error)
}

// PendingRegistrationRepository defines the interface for members awaiting a display name
type PendingRegistrationRepository interface {
	// Create records userID as pending in the scoped guild. Reports whether a
	// new record was created.
	Create(ctx context.Context, userID snowflake.ID) (bool, error)

	// Delete removes userID's record in the scoped guild. Reports whether one existed.
	Delete(ctx context.Context, userID snowflake.ID) (bool, error)

	// ListByUser returns userID's pending records across all guilds
	ListByUser(ctx context.Context, userID snowflake.ID) ([]*entities.PendingRegistration, error)

	// DeleteCreatedBefore removes every record older than cutoff, across all guilds
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the owning transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
