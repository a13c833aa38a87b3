package repository

import (
	"context"
	"errors"
	"fmt"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
)

// SettingsRepository implements the SettingsRepository interface
type SettingsRepository struct {
	q       Queryable
	guildID snowflake.ID
}

// NewSettingsRepositoryScoped creates a settings repository bound to a transaction and guild
func NewSettingsRepositoryScoped(tx Queryable, guildID snowflake.ID) *SettingsRepository {
	return &SettingsRepository{
		q:       tx,
		guildID: guildID,
	}
}

// Create inserts a settings row with every field unset
func (r *SettingsRepository) Create(ctx context.Context) (*entities.Settings, error) {
	var settings entities.Settings
	err := r.q.QueryRow(ctx, `INSERT INTO settings DEFAULT VALUES RETURNING id`).Scan(&settings.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings for guild %s: %w", r.guildID, err)
	}

	settings.GuildID = r.guildID
	return &settings, nil
}

// Get returns the guild's settings, or nil if the guild is not registered
func (r *SettingsRepository) Get(ctx context.Context) (*entities.Settings, error) {
	query := `
		SELECT s.id, s.log_channel_id, s.moderation_channel_id,
		       s.music_order_channel_id, s.music_log_channel_id, s.member_role_id
		FROM settings s
		JOIN guilds g ON g.settings_id = s.id
		WHERE g.discord_id = $1`

	var (
		settings                                    entities.Settings
		logChannel, moderationChannel, orderChannel *int64
		relayChannel, memberRole                    *int64
	)
	err := r.q.QueryRow(ctx, query, toDB(r.guildID)).Scan(
		&settings.ID,
		&logChannel,
		&moderationChannel,
		&orderChannel,
		&relayChannel,
		&memberRole,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for guild %s: %w", r.guildID, err)
	}

	settings.GuildID = r.guildID
	settings.LogChannelID = fromDBNullable(logChannel)
	settings.ModerationChannelID = fromDBNullable(moderationChannel)
	settings.MusicOrderChannelID = fromDBNullable(orderChannel)
	settings.MusicLogChannelID = fromDBNullable(relayChannel)
	settings.MemberRoleID = fromDBNullable(memberRole)

	return &settings, nil
}

// Update persists every field of settings
func (r *SettingsRepository) Update(ctx context.Context, settings *entities.Settings) error {
	query := `
		UPDATE settings
		SET log_channel_id = $2,
		    moderation_channel_id = $3,
		    music_order_channel_id = $4,
		    music_log_channel_id = $5,
		    member_role_id = $6
		WHERE id = $1`

	result, err := r.q.Exec(ctx, query,
		settings.ID,
		toDBNullable(settings.LogChannelID),
		toDBNullable(settings.ModerationChannelID),
		toDBNullable(settings.MusicOrderChannelID),
		toDBNullable(settings.MusicLogChannelID),
		toDBNullable(settings.MemberRoleID),
	)
	if err != nil {
		return fmt.Errorf("failed to update settings for guild %s: %w", r.guildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("settings %d for guild %s not found", settings.ID, r.guildID)
	}

	return nil
}

// Delete removes the guild's settings row; the schema cascades to the guild
// row, its workers, leases and pending registrations
func (r *SettingsRepository) Delete(ctx context.Context) (bool, error) {
	query := `
		DELETE FROM settings
		WHERE id = (SELECT settings_id FROM guilds WHERE discord_id = $1)`

	result, err := r.q.Exec(ctx, query, toDB(r.guildID))
	if err != nil {
		return false, fmt.Errorf("failed to delete settings for guild %s: %w", r.guildID, err)
	}

	return result.RowsAffected() > 0, nil
}
