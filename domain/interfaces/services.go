package interfaces

import (
	"context"
	"time"

	"warden/domain/entities"
	"warden/domain/relay"

	"github.com/disgoorg/snowflake/v2"
)

// RegistrationService owns the guild and member registration lifecycle
type RegistrationService interface {
	// RegisterGuild creates the guild's settings, guild row and worker pool.
	// Returns false when the guild is already registered, after syncing its
	// pool with prefixes.
	RegisterGuild(ctx context.Context, guildID snowflake.ID, prefixes []entities.WorkerPrefix) (bool, error)

	// UnregisterGuild removes the guild and everything that belongs to it
	UnregisterGuild(ctx context.Context, guildID snowflake.ID) error

	// PruneGuilds unregisters stored guilds that are not in present and
	// returns how many were removed
	PruneGuilds(ctx context.Context, present []snowflake.ID) (int, error)

	// WelcomeMember greets a newly joined member
	WelcomeMember(ctx context.Context, guildID snowflake.ID, member *entities.Member) (entities.WelcomeOutcome, error)

	// CompleteRegistration consumes every pending registration of userID,
	// applying the member role and a nickname built from displayName
	CompleteRegistration(ctx context.Context, userID snowflake.ID, displayName string) (int, error)

	// ExpirePendingRegistrations drops pending registrations created before cutoff
	ExpirePendingRegistrations(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssignmentService binds workers to voice destinations
type AssignmentService interface {
	// Acquire binds a free worker to destination. Returns nil when the
	// destination is zero, already leased, or every worker is busy.
	Acquire(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error)

	// Release unbinds the worker serving destination. Returns nil when none is.
	Release(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error)

	// Lookup returns the worker serving destination without changing anything
	Lookup(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error)

	// ReleaseWorker clears one worker's binding in a guild
	ReleaseWorker(ctx context.Context, guildID snowflake.ID, prefix entities.WorkerPrefix) (bool, error)

	// ReleaseAllForWorker clears every binding the worker holds in any guild
	ReleaseAllForWorker(ctx context.Context, prefix entities.WorkerPrefix) (int, error)
}

// AdmissionService decides which channels may carry which protocol
type AdmissionService interface {
	// AdmitOrder returns an error wrapping ErrWrongChannel unless channelID is
	// the guild's music order channel
	AdmitOrder(ctx context.Context, guildID, channelID snowflake.ID) error

	// AdmitRelay returns the parsed instruction when channelID is the guild's
	// relay channel and text is addressed to prefix. ok is false otherwise.
	AdmitRelay(ctx context.Context, guildID, channelID snowflake.ID, prefix entities.WorkerPrefix, text string) (relay.Instruction, bool, error)
}

// GuildSettingsService manages per-guild configuration
type GuildSettingsService interface {
	// GetSettings returns the guild's settings
	GetSettings(ctx context.Context, guildID snowflake.ID) (*entities.Settings, error)

	// SetSetting validates id against the guild and stores it in field
	SetSetting(ctx context.Context, guildID snowflake.ID, field entities.SettingField, id snowflake.ID) error

	// ListWorkers returns the guild's worker pool in pick order
	ListWorkers(ctx context.Context, guildID snowflake.ID) ([]*entities.Worker, error)
}
