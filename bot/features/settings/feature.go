package settings

import (
	"context"

	"warden/bot/common"
	"warden/domain/entities"
	"warden/domain/interfaces"

	"github.com/disgoorg/snowflake/v2"
)

// Narrator posts operational messages to a guild's log channel
type Narrator interface {
	Narrate(ctx context.Context, guildID snowflake.ID, text string)
}

// commandFields maps each setup command to the settings field it writes
var commandFields = map[string]entities.SettingField{
	"set-log-channel":         entities.SettingLogChannel,
	"set-moderation-channel":  entities.SettingModerationChannel,
	"set-music-order-channel": entities.SettingMusicOrderChannel,
	"set-music-log-channel":   entities.SettingMusicLogChannel,
	"set-member-role":         entities.SettingMemberRole,
}

const listCommand = "settings"

// Feature handles guild settings management
type Feature struct {
	settings  interfaces.GuildSettingsService
	transport interfaces.ChatTransport
	admins    common.AdminChecker
	narrator  Narrator
}

// NewFeature creates a new settings feature instance
func NewFeature(settings interfaces.GuildSettingsService, transport interfaces.ChatTransport, admins common.AdminChecker, narrator Narrator) *Feature {
	return &Feature{
		settings:  settings,
		transport: transport,
		admins:    admins,
		narrator:  narrator,
	}
}

// Handles reports whether name is a settings command
func (f *Feature) Handles(name string) bool {
	if name == listCommand {
		return true
	}
	_, ok := commandFields[name]
	return ok
}

// HandleCommand routes settings commands to appropriate handlers
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) {
	var err error
	if cmd.Name == listCommand {
		err = f.handleList(ctx, cmd)
	} else {
		err = f.handleSet(ctx, cmd, commandFields[cmd.Name])
	}
	if err != nil {
		common.HandleError(f.transport, cmd, err)
	}
}
