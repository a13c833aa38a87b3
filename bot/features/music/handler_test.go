package music

import (
	"context"
	"sync"
	"testing"

	"warden/bot/common"
	"warden/domain/entities"
	"warden/domain/services"
	"warden/domain/testhelpers"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildG    = snowflake.ID(500)
	orderC1   = snowflake.ID(601)
	relayC2   = snowflake.ID(602)
	otherC3   = snowflake.ID(603)
	memberM   = snowflake.ID(700)
	voiceV    = snowflake.ID(800)
	voiceW    = snowflake.ID(801)
	strangerS = snowflake.ID(701)
)

type recordingNarrator struct {
	mu    sync.Mutex
	lines []string
}

func (n *recordingNarrator) Narrate(ctx context.Context, guildID snowflake.ID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, text)
}

type fixture struct {
	store     *testhelpers.MemoryStore
	transport *testhelpers.FakeChatTransport
	voice     *testhelpers.MockVoiceResolver
	narrator  *recordingNarrator
	feature   *Feature
}

// newFixture registers guildG with workers w1..w3 and configures C1 as the
// order channel and C2 as the relay channel
func newFixture(t *testing.T, configure bool) *fixture {
	t.Helper()
	ctx := context.Background()

	store := testhelpers.NewMemoryStore()
	transport := testhelpers.NewFakeChatTransport()
	transport.AddChannel(guildG, orderC1, "orders")
	transport.AddChannel(guildG, relayC2, "music-log")
	transport.AddChannel(guildG, otherC3, "general")
	transport.AddChannel(guildG, voiceV, "Lounge")
	transport.AddChannel(guildG, voiceW, "Stage")

	reg := services.NewRegistrationService(store, transport)
	ok, err := reg.RegisterGuild(ctx, guildG, []entities.WorkerPrefix{"w1", "w2", "w3"})
	require.NoError(t, err)
	require.True(t, ok)

	settings := services.NewGuildSettingsService(store, transport)
	if configure {
		require.NoError(t, settings.SetSetting(ctx, guildG, entities.SettingMusicOrderChannel, orderC1))
		require.NoError(t, settings.SetSetting(ctx, guildG, entities.SettingMusicLogChannel, relayC2))
	}

	voice := &testhelpers.MockVoiceResolver{}
	voice.On("VoiceDestination", guildG, memberM).Return(voiceV, true).Maybe()
	voice.On("VoiceDestination", guildG, strangerS).Return(snowflake.ID(0), false).Maybe()

	narrator := &recordingNarrator{}
	feature := NewFeature(
		services.NewAdmissionService(store),
		services.NewAssignmentService(store),
		settings,
		voice,
		transport,
		narrator,
	)

	return &fixture{store: store, transport: transport, voice: voice, narrator: narrator, feature: feature}
}

func (f *fixture) send(channelID, author snowflake.ID, name, args string) {
	f.feature.HandleCommand(context.Background(), common.Command{
		GuildID:   guildG,
		ChannelID: channelID,
		AuthorID:  author,
		Name:      name,
		Args:      args,
	})
}

func boundCount(store *testhelpers.MemoryStore) int {
	n := 0
	for _, w := range store.Workers(guildG) {
		if w.IsBound() {
			n++
		}
	}
	return n
}

func TestMusic_JoinLeaveRejoinScenario(t *testing.T) {
	f := newFixture(t, true)

	// Settings start empty apart from the two channels set above
	settings := f.store.Settings(guildG)
	require.NotNil(t, settings)
	assert.Nil(t, settings.LogChannelID)
	assert.Nil(t, settings.MemberRoleID)

	f.send(orderC1, memberM, "join", "")
	assert.Equal(t, []string{"w1 join 800"}, f.transport.SentTo(relayC2))
	assert.Equal(t, []string{"➡️ 👍 Joined 'Lounge' voice channel!!! ⬅️"}, f.transport.SentTo(orderC1))
	assert.Equal(t, 1, boundCount(f.store))

	// Second join is a silent no-op
	f.send(orderC1, memberM, "join", "")
	assert.Len(t, f.transport.SentTo(relayC2), 1)
	assert.Len(t, f.transport.SentTo(orderC1), 1)
	assert.Equal(t, 1, boundCount(f.store))

	f.send(orderC1, memberM, "leave", "")
	assert.Equal(t, []string{"w1 join 800", "w1 leave 800"}, f.transport.SentTo(relayC2))
	assert.Equal(t, "➡️ 😔 Left 'Lounge' voice channel :( ⬅️", f.transport.SentTo(orderC1)[1])
	assert.Zero(t, boundCount(f.store))
	assert.Empty(t, f.store.Leases(guildG))

	f.send(orderC1, memberM, "join", "")
	relayed := f.transport.SentTo(relayC2)
	require.Len(t, relayed, 3)
	assert.Regexp(t, `^w[123] join 800$`, relayed[2])
	assert.Equal(t, 1, boundCount(f.store))

	assert.Equal(t, []string{"Called join on w1", "Called leave on w1", "Called join on w1"}, f.narrator.lines)
}

func TestMusic_PlayRelayTexts(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// Occupy w1 elsewhere so the member's destination is served by w2
	assignment := services.NewAssignmentService(f.store)
	prefix, err := assignment.Acquire(ctx, guildG, voiceW)
	require.NoError(t, err)
	require.Equal(t, entities.WorkerPrefix("w1"), *prefix)

	f.send(orderC1, memberM, "join", "")
	require.Equal(t, []string{"w2 join 800"}, f.transport.SentTo(relayC2))

	f.send(orderC1, memberM, "play", "https://example.test/track")
	f.send(orderC1, memberM, "play", "lofi beats")

	assert.Equal(t, []string{
		"w2 join 800",
		"w2 play https://example.test/track",
		"w2 play lofi beats",
	}, f.transport.SentTo(relayC2))

	replies := f.transport.SentTo(orderC1)
	require.Len(t, replies, 3)
	assert.Equal(t, "➡️ 🎵 Playing 🎶https://example.test/track🎶 song on 'Lounge' voice channel!!! ⬅️", replies[1])
	assert.Equal(t, "➡️ 🔎 Searching 🎶lofi beats🎶 on 'Lounge' voice channel!!! ⬅️", replies[2])
}

func TestMusic_QueueControls(t *testing.T) {
	f := newFixture(t, true)

	f.send(orderC1, memberM, "join", "")
	for _, name := range []string{"pause", "resume", "skip", "stop"} {
		f.send(orderC1, memberM, name, "")
	}

	assert.Equal(t, []string{"w1 join 800", "w1 pause", "w1 resume", "w1 skip", "w1 stop"}, f.transport.SentTo(relayC2))
	replies := f.transport.SentTo(orderC1)
	require.Len(t, replies, 5)
	assert.Equal(t, "➡️ Called pause on current queue!!! ⬅️", replies[1])
	assert.Equal(t, "➡️ Called stop on current queue!!! ⬅️", replies[4])
}

func TestMusic_Rejections(t *testing.T) {
	t.Run("wrong channel touches nothing", func(t *testing.T) {
		f := newFixture(t, true)

		f.send(otherC3, memberM, "join", "")

		assert.Equal(t, []string{WrongChannelMessage}, f.transport.SentTo(otherC3))
		assert.Empty(t, f.transport.SentTo(relayC2))
		assert.Zero(t, boundCount(f.store))
		assert.Empty(t, f.store.Leases(guildG))
	})

	t.Run("unset order channel never matches", func(t *testing.T) {
		f := newFixture(t, false)

		f.send(orderC1, memberM, "join", "")

		assert.Equal(t, []string{WrongChannelMessage}, f.transport.SentTo(orderC1))
		assert.Zero(t, boundCount(f.store))
	})

	t.Run("no voice destination", func(t *testing.T) {
		f := newFixture(t, true)

		f.send(orderC1, strangerS, "join", "")

		assert.Equal(t, []string{"❌ You need to be in a voice channel"}, f.transport.SentTo(orderC1))
		assert.Zero(t, boundCount(f.store))
	})

	t.Run("play needs an order", func(t *testing.T) {
		f := newFixture(t, true)

		f.send(orderC1, memberM, "play", "")

		assert.Equal(t, []string{"❌ Usage: -play <link or search text>"}, f.transport.SentTo(orderC1))
	})

	t.Run("join takes no arguments", func(t *testing.T) {
		f := newFixture(t, true)

		f.send(orderC1, memberM, "join", "now")

		assert.Equal(t, []string{"❌ -join takes no arguments"}, f.transport.SentTo(orderC1))
		assert.Zero(t, boundCount(f.store))
	})

	t.Run("play without a worker is silent", func(t *testing.T) {
		f := newFixture(t, true)

		f.send(orderC1, memberM, "play", "lofi")
		f.send(orderC1, memberM, "leave", "")

		assert.Empty(t, f.transport.SentTo(orderC1))
		assert.Empty(t, f.transport.SentTo(relayC2))
	})
}

func TestMusic_JoinRelayFailureReleases(t *testing.T) {
	f := newFixture(t, true)
	f.transport.FailChannels[relayC2] = true

	f.send(orderC1, memberM, "join", "")

	assert.Zero(t, boundCount(f.store))
	assert.Empty(t, f.store.Leases(guildG))
	assert.Empty(t, f.transport.SentTo(orderC1))
}

func TestMusic_Handles(t *testing.T) {
	f := newFixture(t, false)
	for _, name := range []string{"play", "join", "leave", "pause", "resume", "skip", "stop"} {
		assert.True(t, f.feature.Handles(name), name)
	}
	assert.False(t, f.feature.Handles("set-log-channel"))
	assert.False(t, f.feature.Handles("name"))
}
