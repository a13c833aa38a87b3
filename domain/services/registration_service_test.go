package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"warden/domain/entities"
	"warden/domain/testhelpers"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistrationService_RegisterGuild(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewMemoryStore()
	svc := NewRegistrationService(store, &testhelpers.MockChatTransport{})

	ok, err := svc.RegisterGuild(ctx, TestGuildID, testPrefixes)
	require.NoError(t, err)
	assert.True(t, ok)

	settings := store.Settings(TestGuildID)
	require.NotNil(t, settings)
	assert.Nil(t, settings.LogChannelID)
	assert.Nil(t, settings.ModerationChannelID)
	assert.Nil(t, settings.MusicOrderChannelID)
	assert.Nil(t, settings.MusicLogChannelID)
	assert.Nil(t, settings.MemberRoleID)

	workers := store.Workers(TestGuildID)
	require.Len(t, workers, 3)
	for i, w := range workers {
		assert.Equal(t, testPrefixes[i], w.Prefix)
		assert.Equal(t, i, w.Position)
		assert.False(t, w.IsBound())
	}

	// Re-join is idempotent
	ok, err = svc.RegisterGuild(ctx, TestGuildID, testPrefixes)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, store.Workers(TestGuildID), 3)
	assert.Len(t, store.Published(), 1)
}

func TestRegistrationService_RegisterGuildSyncsPool(t *testing.T) {
	ctx := context.Background()
	store := newRegisteredStore(t, TestGuildID)
	svc := NewRegistrationService(store, &testhelpers.MockChatTransport{})
	assign := NewAssignmentService(store)

	got, err := assign.Acquire(ctx, TestGuildID, TestVoiceV)
	require.NoError(t, err)
	require.Equal(t, prefixPtr("w1"), got)
	_, err = assign.Acquire(ctx, TestGuildID, TestVoiceU)
	require.NoError(t, err)

	// w2 is retired and w4 added to the configuration
	ok, err := svc.RegisterGuild(ctx, TestGuildID, []entities.WorkerPrefix{"w1", "w3", "w4"})
	require.NoError(t, err)
	assert.False(t, ok)

	workers := store.Workers(TestGuildID)
	require.Len(t, workers, 3)
	for i, want := range []entities.WorkerPrefix{"w1", "w3", "w4"} {
		assert.Equal(t, want, workers[i].Prefix)
		assert.Equal(t, i, workers[i].Position)
	}
	assert.True(t, workers[0].IsBound(), "listed workers keep their binding")
	assert.False(t, workers[2].IsBound())

	leases := store.Leases(TestGuildID)
	require.Len(t, leases, 1)
	assert.Equal(t, entities.WorkerPrefix("w1"), leases[TestVoiceV].WorkerPrefix)

	got, err = assign.Acquire(ctx, TestGuildID, TestVoiceU)
	require.NoError(t, err)
	assert.Equal(t, prefixPtr("w3"), got)

	assert.Equal(t, 1, countEvents(store, events.EventTypeGuildRegistered))
}

func TestRegistrationService_PruneGuilds(t *testing.T) {
	ctx := context.Background()
	store := newRegisteredStore(t, TestGuildID, TestOtherGuildID)
	svc := NewRegistrationService(store, &testhelpers.MockChatTransport{})

	pruned, err := svc.PruneGuilds(ctx, []snowflake.ID{TestGuildID, snowflake.ID(777)})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.NotNil(t, store.Settings(TestGuildID))
	assert.Nil(t, store.Settings(TestOtherGuildID))
	assert.Empty(t, store.Workers(TestOtherGuildID))
	assert.Equal(t, 1, countEvents(store, events.EventTypeGuildUnregistered))

	pruned, err = svc.PruneGuilds(ctx, []snowflake.ID{TestGuildID})
	require.NoError(t, err)
	assert.Zero(t, pruned)
}

func countEvents(store *testhelpers.MemoryStore, eventType events.EventType) int {
	n := 0
	for _, e := range store.Published() {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

func TestRegistrationService_UnregisterGuildCascades(t *testing.T) {
	ctx := context.Background()
	store := newRegisteredStore(t, TestGuildID, TestOtherGuildID)
	svc := NewRegistrationService(store, &testhelpers.MockChatTransport{})
	assign := NewAssignmentService(store)

	_, err := assign.Acquire(ctx, TestGuildID, TestVoiceV)
	require.NoError(t, err)
	_, err = assign.Acquire(ctx, TestOtherGuildID, TestVoiceU)
	require.NoError(t, err)

	require.NoError(t, svc.UnregisterGuild(ctx, TestGuildID))
	assert.Nil(t, store.Settings(TestGuildID))
	assert.Empty(t, store.Workers(TestGuildID))
	assert.Empty(t, store.Leases(TestGuildID))
	assert.Len(t, store.Leases(TestOtherGuildID), 1)

	// Safe to repeat after the rows are gone
	before := len(store.Published())
	require.NoError(t, svc.UnregisterGuild(ctx, TestGuildID))
	assert.Len(t, store.Published(), before, "no event when nothing was deleted")

	// Rejoin registers cleanly
	ok, err := svc.RegisterGuild(ctx, TestGuildID, testPrefixes)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistrationService_WelcomeMember(t *testing.T) {
	ctx := context.Background()
	member := &entities.Member{GuildID: TestGuildID, UserID: TestUserID, Username: "vanya", Roles: []snowflake.ID{7}}
	dmFailed := errors.New("cannot send messages to this user")

	t.Run("direct message delivered", func(t *testing.T) {
		store := newRegisteredStore(t, TestGuildID)
		transport := &testhelpers.MockChatTransport{}
		transport.On("GuildName", TestGuildID).Return("Lair", nil)
		transport.On("SendDirectMessage", TestUserID, "Welcome to 'Lair' server!").Return(nil)

		outcome, err := NewRegistrationService(store, transport).WelcomeMember(ctx, TestGuildID, member)
		require.NoError(t, err)
		assert.Equal(t, entities.WelcomeDirectMessage, outcome)
		assert.Zero(t, store.PendingCount())
		transport.AssertNotCalled(t, "EditMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		transport.AssertExpectations(t)
	})

	t.Run("delivery failed with member role grants role", func(t *testing.T) {
		store := newRegisteredStore(t, TestGuildID)
		settingsSvc := NewGuildSettingsService(store, roleAndChannelTransport())
		require.NoError(t, settingsSvc.SetSetting(ctx, TestGuildID, entities.SettingMemberRole, TestMemberRoleID))

		transport := &testhelpers.MockChatTransport{}
		transport.On("GuildName", TestGuildID).Return("Lair", nil)
		transport.On("SendDirectMessage", TestUserID, mock.Anything).Return(dmFailed)
		transport.On("EditMember", TestGuildID, TestUserID, []snowflake.ID{7, TestMemberRoleID}, "<vanya>").Return(nil)

		outcome, err := NewRegistrationService(store, transport).WelcomeMember(ctx, TestGuildID, member)
		require.NoError(t, err)
		assert.Equal(t, entities.WelcomeRoleGranted, outcome)
		assert.Zero(t, store.PendingCount())
		transport.AssertExpectations(t)
	})

	t.Run("role edit failure is swallowed", func(t *testing.T) {
		store := newRegisteredStore(t, TestGuildID)
		settingsSvc := NewGuildSettingsService(store, roleAndChannelTransport())
		require.NoError(t, settingsSvc.SetSetting(ctx, TestGuildID, entities.SettingMemberRole, TestMemberRoleID))

		transport := &testhelpers.MockChatTransport{}
		transport.On("GuildName", TestGuildID).Return("", errors.New("unknown guild"))
		transport.On("SendDirectMessage", TestUserID, mock.Anything).Return(dmFailed)
		transport.On("EditMember", TestGuildID, TestUserID, mock.Anything, "<vanya>").Return(errors.New("missing permissions"))

		outcome, err := NewRegistrationService(store, transport).WelcomeMember(ctx, TestGuildID, member)
		require.NoError(t, err)
		assert.Equal(t, entities.WelcomeRoleGranted, outcome)
	})

	t.Run("delivery failed without member role leaves pending record", func(t *testing.T) {
		store := newRegisteredStore(t, TestGuildID)
		transport := &testhelpers.MockChatTransport{}
		transport.On("GuildName", TestGuildID).Return("Lair", nil)
		transport.On("SendDirectMessage", TestUserID, mock.Anything).Return(dmFailed)

		svc := NewRegistrationService(store, transport)
		outcome, err := svc.WelcomeMember(ctx, TestGuildID, member)
		require.NoError(t, err)
		assert.Equal(t, entities.WelcomePending, outcome)
		assert.Equal(t, 1, store.PendingCount())

		// A second join does not duplicate the record
		_, err = svc.WelcomeMember(ctx, TestGuildID, member)
		require.NoError(t, err)
		assert.Equal(t, 1, store.PendingCount())
		transport.AssertNotCalled(t, "EditMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unregistered guild", func(t *testing.T) {
		store := testhelpers.NewMemoryStore()
		transport := &testhelpers.MockChatTransport{}
		transport.On("GuildName", TestGuildID).Return("Lair", nil)
		transport.On("SendDirectMessage", TestUserID, mock.Anything).Return(dmFailed)

		_, err := NewRegistrationService(store, transport).WelcomeMember(ctx, TestGuildID, member)
		assert.ErrorIs(t, err, ErrGuildNotRegistered)
	})
}

func TestRegistrationService_CompleteRegistration(t *testing.T) {
	ctx := context.Background()
	store := newRegisteredStore(t, TestGuildID, TestOtherGuildID)

	transport := &testhelpers.MockChatTransport{}
	transport.On("GuildName", mock.Anything).Return("Lair", nil)
	transport.On("SendDirectMessage", TestUserID, mock.Anything).Return(errors.New("cannot send messages to this user"))

	svc := NewRegistrationService(store, transport)

	// Neither guild has a member role yet, so both keep a pending record
	for _, g := range []snowflake.ID{TestGuildID, TestOtherGuildID} {
		outcome, err := svc.WelcomeMember(ctx, g, &entities.Member{GuildID: g, UserID: TestUserID, Username: "vanya"})
		require.NoError(t, err)
		require.Equal(t, entities.WelcomePending, outcome)
	}
	require.Equal(t, 2, store.PendingCount())

	require.NoError(t, NewGuildSettingsService(store, roleAndChannelTransport()).
		SetSetting(ctx, TestGuildID, entities.SettingMemberRole, TestMemberRoleID))

	transport.On("Member", TestGuildID, TestUserID).
		Return(&entities.Member{GuildID: TestGuildID, UserID: TestUserID, Username: "vanya", Roles: []snowflake.ID{}}, nil)
	transport.On("Member", TestOtherGuildID, TestUserID).
		Return(&entities.Member{GuildID: TestOtherGuildID, UserID: TestUserID, Username: "vanya", Roles: []snowflake.ID{5}}, nil)
	transport.On("EditMember", TestGuildID, TestUserID, []snowflake.ID{TestMemberRoleID}, "Ваня <vanya>").Return(nil)
	transport.On("EditMember", TestOtherGuildID, TestUserID, []snowflake.ID{5}, "Ваня <vanya>").Return(errors.New("missing permissions"))

	completed, err := svc.CompleteRegistration(ctx, TestUserID, "  Ваня ")
	require.NoError(t, err)
	assert.Equal(t, 2, completed)
	assert.Zero(t, store.PendingCount(), "records are consumed even when the edit fails")
	transport.AssertExpectations(t)

	// Consumed exactly once
	completed, err = svc.CompleteRegistration(ctx, TestUserID, "Ваня")
	require.NoError(t, err)
	assert.Zero(t, completed)

	var registered []events.MemberRegisteredEvent
	for _, e := range store.Published() {
		if ev, ok := e.(events.MemberRegisteredEvent); ok {
			registered = append(registered, ev)
		}
	}
	assert.Len(t, registered, 2)

	_, err = svc.CompleteRegistration(ctx, TestUserID, "   ")
	assert.ErrorIs(t, err, ErrEmptyDisplayName)
}

func TestRegistrationService_ExpirePendingRegistrations(t *testing.T) {
	ctx := context.Background()
	store := newRegisteredStore(t, TestGuildID)

	transport := &testhelpers.MockChatTransport{}
	transport.On("GuildName", TestGuildID).Return("Lair", nil)
	transport.On("SendDirectMessage", mock.Anything, mock.Anything).Return(errors.New("dm closed"))

	svc := NewRegistrationService(store, transport)
	for _, user := range []snowflake.ID{1, 2} {
		_, err := svc.WelcomeMember(ctx, TestGuildID, &entities.Member{UserID: user, Username: "u"})
		require.NoError(t, err)
	}
	store.AgePending(200 * time.Hour)
	_, err := svc.WelcomeMember(ctx, TestGuildID, &entities.Member{UserID: 3, Username: "u"})
	require.NoError(t, err)

	removed, err := svc.ExpirePendingRegistrations(ctx, time.Now().Add(-168*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Equal(t, 1, store.PendingCount())
}

// roleAndChannelTransport accepts every channel and role as belonging to the guild
func roleAndChannelTransport() *testhelpers.MockChatTransport {
	transport := &testhelpers.MockChatTransport{}
	transport.On("ChannelInGuild", mock.Anything, mock.Anything).Return(true, nil)
	transport.On("RoleInGuild", mock.Anything, mock.Anything).Return(true, nil)
	return transport
}
