package entities

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func TestSettings_ChannelGatesAreFailClosed(t *testing.T) {
	t.Parallel()

	order := snowflake.ID(111)
	relay := snowflake.ID(222)
	zero := snowflake.ID(0)

	tests := []struct {
		name      string
		settings  Settings
		channel   snowflake.ID
		wantOrder bool
		wantRelay bool
	}{
		{name: "unset settings never match", settings: Settings{}, channel: 111},
		{name: "unset settings never match zero", settings: Settings{}, channel: 0},
		{name: "zero value configured never matches", settings: Settings{MusicOrderChannelID: &zero, MusicLogChannelID: &zero}, channel: 0},
		{name: "order channel matches", settings: Settings{MusicOrderChannelID: &order, MusicLogChannelID: &relay}, channel: 111, wantOrder: true},
		{name: "relay channel matches", settings: Settings{MusicOrderChannelID: &order, MusicLogChannelID: &relay}, channel: 222, wantRelay: true},
		{name: "other channel matches nothing", settings: Settings{MusicOrderChannelID: &order, MusicLogChannelID: &relay}, channel: 333},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantOrder, tt.settings.IsMusicOrderChannel(tt.channel))
			assert.Equal(t, tt.wantRelay, tt.settings.IsMusicLogChannel(tt.channel))
		})
	}
}

func TestSettings_GetSet(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	fields := []SettingField{
		SettingLogChannel,
		SettingModerationChannel,
		SettingMusicOrderChannel,
		SettingMusicLogChannel,
		SettingMemberRole,
	}
	for i, f := range fields {
		id := snowflake.ID(1000 + i)
		assert.Nil(t, s.Get(f))
		s.Set(f, &id)
		if assert.NotNil(t, s.Get(f)) {
			assert.Equal(t, id, *s.Get(f))
		}
	}
	assert.True(t, s.HasLogChannel())
	assert.True(t, s.HasMemberRole())
	assert.True(t, SettingMemberRole.IsRole())
	assert.False(t, SettingMusicLogChannel.IsRole())
}

func TestMember_WithRole(t *testing.T) {
	t.Parallel()

	m := &Member{Roles: []snowflake.ID{1, 2}}
	assert.Equal(t, []snowflake.ID{1, 2, 3}, m.WithRole(3))
	assert.Equal(t, []snowflake.ID{1, 2}, m.WithRole(2))
	assert.Equal(t, []snowflake.ID{1, 2}, m.Roles, "original roles must not change")
}

func TestNicknames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<vanya>", ProvisionalNickname("vanya"))
	assert.Equal(t, "Ваня <vanya>", RegisteredNickname("Ваня", "vanya"))
}
