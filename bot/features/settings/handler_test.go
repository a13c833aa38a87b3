package settings

import (
	"context"
	"strings"
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
	guildID      = snowflake.ID(10)
	otherGuildID = snowflake.ID(11)
	adminID      = snowflake.ID(1)
	memberID     = snowflake.ID(2)
	cmdChannel   = snowflake.ID(100)
	logChannel   = snowflake.ID(101)
	foreignChan  = snowflake.ID(200)
	memberRole   = snowflake.ID(300)
)

type staticAdmins map[snowflake.ID]bool

func (a staticAdmins) IsAdmin(guildID, userID snowflake.ID) bool {
	return a[userID]
}

type nopNarrator struct{ lines []string }

func (n *nopNarrator) Narrate(ctx context.Context, guildID snowflake.ID, text string) {
	n.lines = append(n.lines, text)
}

func newFeature(t *testing.T) (*Feature, *testhelpers.MemoryStore, *testhelpers.FakeChatTransport, *nopNarrator) {
	t.Helper()
	store := testhelpers.NewMemoryStore()
	transport := testhelpers.NewFakeChatTransport()
	transport.AddChannel(guildID, cmdChannel, "setup")
	transport.AddChannel(guildID, logChannel, "log")
	transport.AddChannel(otherGuildID, foreignChan, "elsewhere")
	transport.Roles[memberRole] = guildID

	reg := services.NewRegistrationService(store, transport)
	_, err := reg.RegisterGuild(context.Background(), guildID, []entities.WorkerPrefix{"w1"})
	require.NoError(t, err)

	narrator := &nopNarrator{}
	feature := NewFeature(services.NewGuildSettingsService(store, transport), transport, staticAdmins{adminID: true}, narrator)
	return feature, store, transport, narrator
}

func run(f *Feature, author snowflake.ID, name, args string) {
	f.HandleCommand(context.Background(), common.Command{
		GuildID:   guildID,
		ChannelID: cmdChannel,
		AuthorID:  author,
		Name:      name,
		Args:      args,
	})
}

func TestSettings_SetCommands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    string
		field   entities.SettingField
		want    snowflake.ID
		reply   string
	}{
		{"raw channel id", "set-log-channel", "101", entities.SettingLogChannel, logChannel, "✅ Log channel updated to <#101>"},
		{"channel mention", "set-music-order-channel", "<#100>", entities.SettingMusicOrderChannel, cmdChannel, "✅ Music order channel updated to <#100>"},
		{"relay channel", "set-music-log-channel", "101", entities.SettingMusicLogChannel, logChannel, "✅ Music log channel updated to <#101>"},
		{"moderation channel", "set-moderation-channel", "100", entities.SettingModerationChannel, cmdChannel, "✅ Moderation channel updated to <#100>"},
		{"role mention", "set-member-role", "<@&300>", entities.SettingMemberRole, memberRole, "✅ Member role updated to <@&300>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, store, transport, narrator := newFeature(t)
			require.True(t, f.Handles(tt.command))

			run(f, adminID, tt.command, tt.args)

			got := store.Settings(guildID).Get(tt.field)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Equal(t, []string{tt.reply}, transport.SentTo(cmdChannel))
			assert.Equal(t, []string{tt.command + " was called"}, narrator.lines)
		})
	}
}

func TestSettings_Replace(t *testing.T) {
	f, store, _, _ := newFeature(t)

	run(f, adminID, "set-log-channel", "100")
	run(f, adminID, "set-log-channel", "101")

	assert.Equal(t, logChannel, *store.Settings(guildID).LogChannelID)
}

func TestSettings_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		author  snowflake.ID
		command string
		args    string
		reply   string
	}{
		{"non admin", memberID, "set-log-channel", "101", adminRequiredMessage},
		{"missing argument", adminID, "set-log-channel", "", "❌ Usage: -set-log-channel <id>"},
		{"two arguments", adminID, "set-log-channel", "101 102", "❌ Usage: -set-log-channel <id>"},
		{"not an id", adminID, "set-log-channel", "log", "❌ Invalid channel or role id"},
		{"channel of another guild", adminID, "set-log-channel", "200", "❌ That channel does not exist in this server"},
		{"unknown role", adminID, "set-member-role", "999", "❌ That role does not exist in this server"},
		{"channel given as role", adminID, "set-member-role", "101", "❌ That role does not exist in this server"},
		{"non admin list", memberID, "settings", "", adminRequiredMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, store, transport, _ := newFeature(t)

			run(f, tt.author, tt.command, tt.args)

			assert.Equal(t, []string{tt.reply}, transport.SentTo(cmdChannel))
			assert.Equal(t, entities.Settings{ID: store.Settings(guildID).ID, GuildID: store.Settings(guildID).GuildID}, *store.Settings(guildID))
		})
	}
}

func TestSettings_List(t *testing.T) {
	f, _, transport, _ := newFeature(t)

	run(f, adminID, "set-member-role", "300")
	transport.Reset()
	run(f, adminID, "settings", "")

	expected := "⚙️ Server settings" +
		"\n• Log channel: not set" +
		"\n• Moderation channel: not set" +
		"\n• Music order channel: not set" +
		"\n• Music log channel: not set" +
		"\n• Member role: <@&300>" +
		"\n🎵 Music workers" +
		"\n• w1: free"
	assert.Equal(t, []string{expected}, transport.SentTo(cmdChannel))
}

func TestSettings_ListShowsBindings(t *testing.T) {
	f, store, transport, _ := newFeature(t)

	_, err := services.NewAssignmentService(store).Acquire(context.Background(), guildID, snowflake.ID(800))
	require.NoError(t, err)
	run(f, adminID, "settings", "")

	sent := transport.SentTo(cmdChannel)
	require.Len(t, sent, 1)
	assert.True(t, strings.HasSuffix(sent[0], "\n🎵 Music workers\n• w1: <#800>"), sent[0])
}
