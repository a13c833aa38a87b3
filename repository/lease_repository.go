package repository

import (
	"context"
	"errors"
	"fmt"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
)

// LeaseRepository implements the LeaseRepository interface
type LeaseRepository struct {
	q       Queryable
	guildID snowflake.ID
}

// NewLeaseRepositoryScoped creates a lease repository bound to a transaction and guild
func NewLeaseRepositoryScoped(tx Queryable, guildID snowflake.ID) *LeaseRepository {
	return &LeaseRepository{
		q:       tx,
		guildID: guildID,
	}
}

// TryCreate inserts the lease unless channelID is already leased
func (r *LeaseRepository) TryCreate(ctx context.Context, channelID snowflake.ID, prefix entities.WorkerPrefix) (bool, error) {
	query := `
		INSERT INTO leases (channel_id, guild_id, worker_prefix)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO NOTHING`

	result, err := r.q.Exec(ctx, query, toDB(channelID), toDB(r.guildID), prefix.String())
	if err != nil {
		return false, fmt.Errorf("failed to create lease for channel %s: %w", channelID, err)
	}

	return result.RowsAffected() == 1, nil
}

// Get returns the lease on channelID, or nil
func (r *LeaseRepository) Get(ctx context.Context, channelID snowflake.ID) (*entities.Lease, error) {
	query := `
		SELECT channel_id, guild_id, worker_prefix, leased_at
		FROM leases
		WHERE channel_id = $1 AND guild_id = $2`

	var (
		lease          entities.Lease
		channel, guild int64
		prefix         string
	)
	err := r.q.QueryRow(ctx, query, toDB(channelID), toDB(r.guildID)).Scan(&channel, &guild, &prefix, &lease.LeasedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lease for channel %s: %w", channelID, err)
	}

	lease.ChannelID = fromDB(channel)
	lease.GuildID = fromDB(guild)
	lease.WorkerPrefix = entities.WorkerPrefix(prefix)
	return &lease, nil
}

// Delete removes the lease on channelID
func (r *LeaseRepository) Delete(ctx context.Context, channelID snowflake.ID) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM leases WHERE channel_id = $1 AND guild_id = $2`,
		toDB(channelID), toDB(r.guildID))
	if err != nil {
		return false, fmt.Errorf("failed to delete lease for channel %s: %w", channelID, err)
	}

	return result.RowsAffected() > 0, nil
}
