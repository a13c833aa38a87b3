package repository

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/services"
	"warden/events"
	"warden/repository/testutil"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrefixes = []entities.WorkerPrefix{"music1", "music2", "music3"}

// recordingPublisher collects events flushed after commit
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func registerGuild(t *testing.T, factory interfaces.UnitOfWorkFactory, guildID snowflake.ID) {
	t.Helper()
	ok, err := services.NewRegistrationService(factory, nil).RegisterGuild(context.Background(), guildID, testPrefixes)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUnitOfWork_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	publisher := &recordingPublisher{}
	factory := NewUnitOfWorkFactory(testDB.DB, publisher)
	ctx := context.Background()

	// Identifiers above MaxInt64 exercise the signed column narrowing
	guildID := snowflake.ID(math.MaxUint64 - 7)
	registerGuild(t, factory, guildID)

	t.Run("registration seeds settings and unbound workers", func(t *testing.T) {
		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		guild, err := uow.GuildRepository().Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, guild)
		assert.Equal(t, guildID, guild.DiscordID)
		assert.False(t, guild.RegisteredAt.IsZero())

		settings, err := uow.SettingsRepository().Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.Nil(t, settings.MusicOrderChannelID)
		assert.Nil(t, settings.MemberRoleID)

		workers, err := uow.WorkerRepository().List(ctx)
		require.NoError(t, err)
		require.Len(t, workers, 3)
		for i, w := range workers {
			assert.Equal(t, testPrefixes[i], w.Prefix)
			assert.Equal(t, i, w.Position)
			assert.Nil(t, w.ChannelID)
		}

		ids, err := uow.GuildRepository().ListIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, guildID)
	})

	t.Run("settings round trip", func(t *testing.T) {
		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		settings, err := uow.SettingsRepository().Get(ctx)
		require.NoError(t, err)

		order := snowflake.ID(math.MaxUint64)
		settings.Set(entities.SettingMusicOrderChannel, &order)
		require.NoError(t, uow.SettingsRepository().Update(ctx, settings))

		reloaded, err := uow.SettingsRepository().Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, reloaded.MusicOrderChannelID)
		assert.Equal(t, order, *reloaded.MusicOrderChannelID)
	})

	t.Run("duplicate lease insert is refused", func(t *testing.T) {
		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		dest := snowflake.ID(4242)
		created, err := uow.LeaseRepository().TryCreate(ctx, dest, "music1")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = uow.LeaseRepository().TryCreate(ctx, dest, "music2")
		require.NoError(t, err)
		assert.False(t, created)

		lease, err := uow.LeaseRepository().Get(ctx, dest)
		require.NoError(t, err)
		require.NotNil(t, lease)
		assert.Equal(t, entities.WorkerPrefix("music1"), lease.WorkerPrefix)
	})

	t.Run("binding one destination twice conflicts", func(t *testing.T) {
		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		dest := snowflake.ID(4343)
		require.NoError(t, uow.WorkerRepository().Bind(ctx, "music1", dest))
		err := uow.WorkerRepository().Bind(ctx, "music2", dest)
		assert.ErrorIs(t, err, interfaces.ErrConflict)
	})

	t.Run("rollback discards events", func(t *testing.T) {
		before := len(publisher.Events())

		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.EventBus().Publish(events.GuildUnregisteredEvent{GuildID: guildID}))
		require.NoError(t, uow.Rollback())

		assert.Len(t, publisher.Events(), before)
	})
}

func TestAssignment_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, &recordingPublisher{})
	assignment := services.NewAssignmentService(factory)
	ctx := context.Background()

	guildID := snowflake.ID(175928847299117063)
	registerGuild(t, factory, guildID)

	t.Run("join leave rejoin", func(t *testing.T) {
		dest := snowflake.ID(900)

		got, err := assignment.Acquire(ctx, guildID, dest)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entities.WorkerPrefix("music1"), *got)

		again, err := assignment.Acquire(ctx, guildID, dest)
		require.NoError(t, err)
		assert.Nil(t, again)

		released, err := assignment.Release(ctx, guildID, dest)
		require.NoError(t, err)
		require.NotNil(t, released)
		assert.Equal(t, *got, *released)

		got, err = assignment.Acquire(ctx, guildID, dest)
		require.NoError(t, err)
		assert.NotNil(t, got)

		_, err = assignment.Release(ctx, guildID, dest)
		require.NoError(t, err)
	})

	t.Run("concurrent acquires never double lease", func(t *testing.T) {
		destinations := []snowflake.ID{1001, 1002, 1003, 1004, 1005, 1001, 1002, 1003}

		var wg sync.WaitGroup
		results := make(chan *entities.WorkerPrefix, len(destinations))
		for _, dest := range destinations {
			wg.Add(1)
			go func(dest snowflake.ID) {
				defer wg.Done()
				got, err := assignment.Acquire(ctx, guildID, dest)
				assert.NoError(t, err)
				results <- got
			}(dest)
		}
		wg.Wait()
		close(results)

		seen := map[entities.WorkerPrefix]bool{}
		for got := range results {
			if got == nil {
				continue
			}
			assert.False(t, seen[*got], "worker %s acquired twice", *got)
			seen[*got] = true
		}
		assert.LessOrEqual(t, len(seen), len(testPrefixes))

		uow := factory.CreateForGuild(guildID)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		workers, err := uow.WorkerRepository().List(ctx)
		require.NoError(t, err)
		bound := map[snowflake.ID]bool{}
		for _, w := range workers {
			if w.ChannelID == nil {
				continue
			}
			assert.False(t, bound[*w.ChannelID], "destination %s bound twice", *w.ChannelID)
			bound[*w.ChannelID] = true

			lease, err := uow.LeaseRepository().Get(ctx, *w.ChannelID)
			require.NoError(t, err)
			require.NotNil(t, lease)
			assert.Equal(t, w.Prefix, lease.WorkerPrefix)
		}
		assert.Len(t, seen, len(bound))
	})

	t.Run("release all for worker after restart", func(t *testing.T) {
		released, err := assignment.ReleaseAllForWorker(ctx, "music1")
		require.NoError(t, err)
		assert.LessOrEqual(t, released, 1)

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		bound, err := uow.WorkerRepository().ListBoundByPrefix(ctx, "music1")
		require.NoError(t, err)
		assert.Empty(t, bound)
	})
}

func TestRegistration_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, nil)
	registration := services.NewRegistrationService(factory, nil)
	assignment := services.NewAssignmentService(factory)
	ctx := context.Background()

	guildID := snowflake.ID(31337)
	registerGuild(t, factory, guildID)

	ok, err := registration.RegisterGuild(ctx, guildID, testPrefixes)
	require.NoError(t, err)
	assert.False(t, ok, "rejoin is a no-op")

	_, err = assignment.Acquire(ctx, guildID, 77)
	require.NoError(t, err)

	uow := factory.CreateForGuild(guildID)
	require.NoError(t, uow.Begin(ctx))
	created, err := uow.PendingRegistrationRepository().Create(ctx, 5)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = uow.PendingRegistrationRepository().Create(ctx, 5)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, uow.Commit())

	t.Run("expiry", func(t *testing.T) {
		removed, err := registration.ExpirePendingRegistrations(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("leave cascades", func(t *testing.T) {
		require.NoError(t, registration.UnregisterGuild(ctx, guildID))
		require.NoError(t, registration.UnregisterGuild(ctx, guildID), "repeat is safe")

		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		pending, err := uow.PendingRegistrationRepository().ListByUser(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)

		var leases int
		require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM leases`).Scan(&leases))
		assert.Zero(t, leases)

		var workers int
		require.NoError(t, testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM workers`).Scan(&workers))
		assert.Zero(t, workers)
	})

	ok, err = registration.RegisterGuild(ctx, guildID, testPrefixes)
	require.NoError(t, err)
	assert.True(t, ok, "guild registers cleanly after leaving")
}
