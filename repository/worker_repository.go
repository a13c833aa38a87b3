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

// WorkerRepository implements the WorkerRepository interface
type WorkerRepository struct {
	q       Queryable
	guildID snowflake.ID
}

// NewWorkerRepositoryScoped creates a worker repository bound to a transaction and guild
func NewWorkerRepositoryScoped(tx Queryable, guildID snowflake.ID) *WorkerRepository {
	return &WorkerRepository{
		q:       tx,
		guildID: guildID,
	}
}

const workerColumns = `guild_id, prefix, position, channel_id`

func scanWorker(row pgx.Row) (*entities.Worker, error) {
	var (
		worker    entities.Worker
		guildID   int64
		prefix    string
		channelID *int64
	)
	if err := row.Scan(&guildID, &prefix, &worker.Position, &channelID); err != nil {
		return nil, err
	}
	worker.GuildID = fromDB(guildID)
	worker.Prefix = entities.WorkerPrefix(prefix)
	worker.ChannelID = fromDBNullable(channelID)
	return &worker, nil
}

func (r *WorkerRepository) queryOne(ctx context.Context, query string, args ...any) (*entities.Worker, error) {
	worker, err := scanWorker(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return worker, err
}

func (r *WorkerRepository) queryMany(ctx context.Context, query string, args ...any) ([]*entities.Worker, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []*entities.Worker
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, worker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over worker rows: %w", err)
	}

	return workers, nil
}

// SyncPool inserts missing workers, reorders existing ones and deletes
// workers whose prefix is no longer configured. Leases of deleted workers
// go with them by cascade.
func (r *WorkerRepository) SyncPool(ctx context.Context, prefixes []entities.WorkerPrefix) (int, int, error) {
	names := make([]string, len(prefixes))
	batch := &pgx.Batch{}
	for i, prefix := range prefixes {
		names[i] = prefix.String()
		batch.Queue(`INSERT INTO workers (guild_id, prefix, position) VALUES ($1, $2, $3)
			ON CONFLICT (guild_id, prefix) DO NOTHING`,
			toDB(r.guildID), prefix.String(), i)
		batch.Queue(`UPDATE workers SET position = $3 WHERE guild_id = $1 AND prefix = $2 AND position <> $3`,
			toDB(r.guildID), prefix.String(), i)
	}
	batch.Queue(`DELETE FROM workers WHERE guild_id = $1 AND NOT (prefix = ANY($2))`,
		toDB(r.guildID), names)

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	added := 0
	for _, prefix := range prefixes {
		tag, err := results.Exec()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to create worker %s for guild %s: %w", prefix, r.guildID, err)
		}
		added += int(tag.RowsAffected())

		if _, err := results.Exec(); err != nil {
			return 0, 0, fmt.Errorf("failed to position worker %s for guild %s: %w", prefix, r.guildID, err)
		}
	}

	tag, err := results.Exec()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete retired workers for guild %s: %w", r.guildID, err)
	}

	return added, int(tag.RowsAffected()), nil
}

// List returns the guild's workers ordered by position
func (r *WorkerRepository) List(ctx context.Context) ([]*entities.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE guild_id = $1 ORDER BY position`

	workers, err := r.queryMany(ctx, query, toDB(r.guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to list workers for guild %s: %w", r.guildID, err)
	}
	return workers, nil
}

// GetByChannel returns the worker bound to channelID, or nil
func (r *WorkerRepository) GetByChannel(ctx context.Context, channelID snowflake.ID) (*entities.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE guild_id = $1 AND channel_id = $2`

	worker, err := r.queryOne(ctx, query, toDB(r.guildID), toDB(channelID))
	if err != nil {
		return nil, fmt.Errorf("failed to get worker for channel %s: %w", channelID, err)
	}
	return worker, nil
}

// GetByPrefix returns the guild's worker with the given prefix, or nil
func (r *WorkerRepository) GetByPrefix(ctx context.Context, prefix entities.WorkerPrefix) (*entities.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE guild_id = $1 AND prefix = $2`

	worker, err := r.queryOne(ctx, query, toDB(r.guildID), prefix.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get worker %s: %w", prefix, err)
	}
	return worker, nil
}

// LockFirstUnbound locks the lowest-positioned free worker. Rows locked by a
// concurrent Acquire are skipped rather than waited on.
func (r *WorkerRepository) LockFirstUnbound(ctx context.Context) (*entities.Worker, error) {
	query := `
		SELECT ` + workerColumns + `
		FROM workers
		WHERE guild_id = $1 AND channel_id IS NULL
		ORDER BY position
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	worker, err := r.queryOne(ctx, query, toDB(r.guildID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock free worker for guild %s: %w", r.guildID, err)
	}
	return worker, nil
}

// Bind points the worker at channelID
func (r *WorkerRepository) Bind(ctx context.Context, prefix entities.WorkerPrefix, channelID snowflake.ID) error {
	query := `UPDATE workers SET channel_id = $3 WHERE guild_id = $1 AND prefix = $2`

	result, err := r.q.Exec(ctx, query, toDB(r.guildID), prefix.String(), toDB(channelID))
	if err != nil {
		if isUniqueViolation(err) {
			return interfaces.ErrConflict
		}
		return fmt.Errorf("failed to bind worker %s to channel %s: %w", prefix, channelID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("worker %s not found in guild %s", prefix, r.guildID)
	}

	return nil
}

// Unbind clears the worker's destination
func (r *WorkerRepository) Unbind(ctx context.Context, prefix entities.WorkerPrefix) error {
	query := `UPDATE workers SET channel_id = NULL WHERE guild_id = $1 AND prefix = $2`

	if _, err := r.q.Exec(ctx, query, toDB(r.guildID), prefix.String()); err != nil {
		return fmt.Errorf("failed to unbind worker %s: %w", prefix, err)
	}
	return nil
}

// ListBoundByPrefix returns every bound worker with the prefix across all guilds
func (r *WorkerRepository) ListBoundByPrefix(ctx context.Context, prefix entities.WorkerPrefix) ([]*entities.Worker, error) {
	query := `
		SELECT ` + workerColumns + `
		FROM workers
		WHERE prefix = $1 AND channel_id IS NOT NULL
		ORDER BY guild_id`

	workers, err := r.queryMany(ctx, query, prefix.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings of worker %s: %w", prefix, err)
	}
	return workers, nil
}
