package application

import (
	"context"
	"testing"

	"warden/domain/entities"
	"warden/domain/services"
	"warden/domain/testhelpers"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID      = snowflake.ID(777)
	testLogChannelID = snowflake.ID(3003)
)

type sentMessage struct {
	channelID snowflake.ID
	text      string
}

// recordingTransport captures SendMessage calls on a channel so async handlers can be awaited
type recordingTransport struct {
	testhelpers.MockChatTransport
	sent chan sentMessage
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{sent: make(chan sentMessage, 16)}
}

func (r *recordingTransport) SendMessage(channelID snowflake.ID, text string) error {
	r.sent <- sentMessage{channelID: channelID, text: text}
	return nil
}

// newStoreWithLogChannel registers testGuildID and optionally sets its log channel
func newStoreWithLogChannel(t *testing.T, withLogChannel bool) *testhelpers.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := testhelpers.NewMemoryStore()

	reg := services.NewRegistrationService(store, &testhelpers.MockChatTransport{})
	ok, err := reg.RegisterGuild(ctx, testGuildID, []entities.WorkerPrefix{"w1", "w2"})
	require.NoError(t, err)
	require.True(t, ok)

	if withLogChannel {
		uow := store.CreateForGuild(testGuildID)
		require.NoError(t, uow.Begin(ctx))
		settings, err := uow.SettingsRepository().Get(ctx)
		require.NoError(t, err)
		id := testLogChannelID
		settings.LogChannelID = &id
		require.NoError(t, uow.SettingsRepository().Update(ctx, settings))
		require.NoError(t, uow.Commit())
	}
	return store
}
