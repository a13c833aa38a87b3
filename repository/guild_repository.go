package repository

import (
	"context"
	"errors"
	"fmt"

	"warden/domain/entities"
	"warden/domain/interfaces"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
)

// GuildRepository implements the GuildRepository interface
type GuildRepository struct {
	q       Queryable
	guildID snowflake.ID
}

// NewGuildRepositoryScoped creates a guild repository bound to a transaction and guild
func NewGuildRepositoryScoped(tx Queryable, guildID snowflake.ID) *GuildRepository {
	return &GuildRepository{
		q:       tx,
		guildID: guildID,
	}
}

// Get returns the guild row, or nil if the guild is not registered
func (r *GuildRepository) Get(ctx context.Context) (*entities.Guild, error) {
	query := `
		SELECT discord_id, settings_id, registered_at
		FROM guilds
		WHERE discord_id = $1`

	var (
		guild     entities.Guild
		discordID int64
	)
	err := r.q.QueryRow(ctx, query, toDB(r.guildID)).Scan(&discordID, &guild.SettingsID, &guild.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild %s: %w", r.guildID, err)
	}

	guild.DiscordID = fromDB(discordID)
	return &guild, nil
}

// Create inserts the guild row. A concurrent registration surfaces as ErrConflict.
func (r *GuildRepository) Create(ctx context.Context, settingsID int64) (*entities.Guild, error) {
	query := `
		INSERT INTO guilds (discord_id, settings_id)
		VALUES ($1, $2)
		RETURNING registered_at`

	guild := entities.Guild{DiscordID: r.guildID, SettingsID: settingsID}
	err := r.q.QueryRow(ctx, query, toDB(r.guildID), settingsID).Scan(&guild.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, interfaces.ErrConflict
		}
		return nil, fmt.Errorf("failed to create guild %s: %w", r.guildID, err)
	}

	return &guild, nil
}

// ListIDs returns the ids of every registered guild
func (r *GuildRepository) ListIDs(ctx context.Context) ([]snowflake.ID, error) {
	rows, err := r.q.Query(ctx, `SELECT discord_id FROM guilds ORDER BY discord_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	defer rows.Close()

	var ids []snowflake.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan guild id: %w", err)
		}
		ids = append(ids, fromDB(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over guild rows: %w", err)
	}

	return ids, nil
}
