package repository

import (
	"context"
	"testing"
	"time"

	"warden/repository/testutil"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGuild inserts the settings and guild rows pending registrations hang off
func seedGuild(t *testing.T, q Queryable, guildID snowflake.ID) {
	t.Helper()
	ctx := context.Background()

	settings, err := NewSettingsRepositoryScoped(q, guildID).Create(ctx)
	require.NoError(t, err)
	_, err = NewGuildRepositoryScoped(q, guildID).Create(ctx, settings.ID)
	require.NoError(t, err)
}

func TestPendingRegistrationRepository_CreateDelete(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	guildID := snowflake.ID(1234567890123456789)
	userID := snowflake.ID(18446744073709551000) // above MaxInt64
	seedGuild(t, testDB.DB, guildID)
	repo := NewPendingRegistrationRepositoryScoped(testDB.DB, guildID)

	t.Run("create is insert-if-absent", func(t *testing.T) {
		created, err := repo.Create(ctx, userID)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Create(ctx, userID)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("list by user keeps unsigned ids", func(t *testing.T) {
		pending, err := repo.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, userID, pending[0].UserID)
		assert.Equal(t, guildID, pending[0].GuildID)
		assert.WithinDuration(t, time.Now(), pending[0].CreatedAt, time.Minute)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, userID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, userID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestPendingRegistrationRepository_DeleteCreatedBefore(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	guildA := snowflake.ID(111)
	guildB := snowflake.ID(222)
	seedGuild(t, testDB.DB, guildA)
	seedGuild(t, testDB.DB, guildB)

	require.NoError(t, createPending(ctx, testDB.DB, guildA, 1))
	require.NoError(t, createPending(ctx, testDB.DB, guildB, 2))

	_, err := testDB.DB.Exec(ctx,
		`UPDATE pending_registrations SET created_at = NOW() - INTERVAL '10 days' WHERE user_id = $1`, toDB(1))
	require.NoError(t, err)

	removed, err := NewPendingRegistrationRepositoryScoped(testDB.DB, guildA).
		DeleteCreatedBefore(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := NewPendingRegistrationRepositoryScoped(testDB.DB, guildB).ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func createPending(ctx context.Context, q Queryable, guildID, userID snowflake.ID) error {
	_, err := NewPendingRegistrationRepositoryScoped(q, guildID).Create(ctx, userID)
	return err
}
