package repository

import (
	"context"
	"fmt"
	"time"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
)

// PendingRegistrationRepository implements the PendingRegistrationRepository interface
type PendingRegistrationRepository struct {
	q       Queryable
	guildID snowflake.ID
}

// NewPendingRegistrationRepositoryScoped creates a pending registration repository bound to a transaction and guild
func NewPendingRegistrationRepositoryScoped(tx Queryable, guildID snowflake.ID) *PendingRegistrationRepository {
	return &PendingRegistrationRepository{
		q:       tx,
		guildID: guildID,
	}
}

// Create records userID as pending; an existing record is left untouched
func (r *PendingRegistrationRepository) Create(ctx context.Context, userID snowflake.ID) (bool, error) {
	query := `
		INSERT INTO pending_registrations (user_id, guild_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, guild_id) DO NOTHING`

	result, err := r.q.Exec(ctx, query, toDB(userID), toDB(r.guildID))
	if err != nil {
		return false, fmt.Errorf("failed to create pending registration for user %s: %w", userID, err)
	}

	return result.RowsAffected() == 1, nil
}

// Delete removes userID's record in the scoped guild
func (r *PendingRegistrationRepository) Delete(ctx context.Context, userID snowflake.ID) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM pending_registrations WHERE user_id = $1 AND guild_id = $2`,
		toDB(userID), toDB(r.guildID))
	if err != nil {
		return false, fmt.Errorf("failed to delete pending registration for user %s: %w", userID, err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByUser returns userID's pending records in every guild
func (r *PendingRegistrationRepository) ListByUser(ctx context.Context, userID snowflake.ID) ([]*entities.PendingRegistration, error) {
	query := `
		SELECT user_id, guild_id, created_at
		FROM pending_registrations
		WHERE user_id = $1
		ORDER BY guild_id`

	rows, err := r.q.Query(ctx, query, toDB(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending registrations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var pending []*entities.PendingRegistration
	for rows.Next() {
		var (
			p           entities.PendingRegistration
			user, guild int64
		)
		if err := rows.Scan(&user, &guild, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending registration: %w", err)
		}
		p.UserID = fromDB(user)
		p.GuildID = fromDB(guild)
		pending = append(pending, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over pending registration rows: %w", err)
	}

	return pending, nil
}

// DeleteCreatedBefore removes every record older than cutoff in every guild
func (r *PendingRegistrationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM pending_registrations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending registrations: %w", err)
	}

	return result.RowsAffected(), nil
}
