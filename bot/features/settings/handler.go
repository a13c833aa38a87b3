package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warden/bot/common"
	"warden/domain/entities"
	"warden/domain/services"

	"github.com/disgoorg/snowflake/v2"
)

const adminRequiredMessage = "❌ You need administrator permissions to use this command"

// handleSet handles the -set-* commands
func (f *Feature) handleSet(ctx context.Context, cmd common.Command, field entities.SettingField) error {
	if !f.admins.IsAdmin(cmd.GuildID, cmd.AuthorID) {
		return common.NewUserError(adminRequiredMessage, "setup command from non-admin")
	}

	if cmd.Args == "" || len(strings.Fields(cmd.Args)) != 1 {
		return common.NewUserError(fmt.Sprintf("❌ Usage: -%s <id>", cmd.Name), "setup command needs exactly one argument")
	}

	id, err := common.ParseID(cmd.Args)
	if err != nil {
		return common.NewUserError("❌ Invalid channel or role id", "setup command argument is not an id")
	}

	if err := f.settings.SetSetting(ctx, cmd.GuildID, field, id); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownChannel):
			return common.NewUserError("❌ That channel does not exist in this server", "unknown channel")
		case errors.Is(err, services.ErrUnknownRole):
			return common.NewUserError("❌ That role does not exist in this server", "unknown role")
		case errors.Is(err, services.ErrInvalidReference):
			return common.NewUserError("❌ Invalid channel or role id", "zero id")
		default:
			return common.NewSystemError(err, "failed to update settings")
		}
	}

	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf("✅ %s updated to %s", fieldLabel(field), mention(field, id)))
	f.narrator.Narrate(ctx, cmd.GuildID, fmt.Sprintf("%s was called", cmd.Name))
	return nil
}

// handleList handles the -settings command
func (f *Feature) handleList(ctx context.Context, cmd common.Command) error {
	if !f.admins.IsAdmin(cmd.GuildID, cmd.AuthorID) {
		return common.NewUserError(adminRequiredMessage, "settings list from non-admin")
	}

	settings, err := f.settings.GetSettings(ctx, cmd.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to get settings")
	}

	workers, err := f.settings.ListWorkers(ctx, cmd.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to list workers")
	}

	common.Reply(f.transport, cmd.ChannelID, FormatSettings(settings, workers))
	return nil
}

// FormatSettings renders every field, one per line, in command order,
// followed by the worker pool
func FormatSettings(settings *entities.Settings, workers []*entities.Worker) string {
	fields := []entities.SettingField{
		entities.SettingLogChannel,
		entities.SettingModerationChannel,
		entities.SettingMusicOrderChannel,
		entities.SettingMusicLogChannel,
		entities.SettingMemberRole,
	}

	var b strings.Builder
	b.WriteString("⚙️ Server settings")
	for _, field := range fields {
		value := "not set"
		if id := settings.Get(field); id != nil {
			value = mention(field, *id)
		}
		fmt.Fprintf(&b, "\n• %s: %s", fieldLabel(field), value)
	}

	if len(workers) > 0 {
		b.WriteString("\n🎵 Music workers")
		for _, w := range workers {
			value := "free"
			if w.IsBound() {
				value = common.ChannelMention(*w.ChannelID)
			}
			fmt.Fprintf(&b, "\n• %s: %s", w.Prefix, value)
		}
	}
	return b.String()
}

func fieldLabel(field entities.SettingField) string {
	switch field {
	case entities.SettingLogChannel:
		return "Log channel"
	case entities.SettingModerationChannel:
		return "Moderation channel"
	case entities.SettingMusicOrderChannel:
		return "Music order channel"
	case entities.SettingMusicLogChannel:
		return "Music log channel"
	case entities.SettingMemberRole:
		return "Member role"
	}
	return string(field)
}

func mention(field entities.SettingField, id snowflake.ID) string {
	if field.IsRole() {
		return common.RoleMention(id)
	}
	return common.ChannelMention(id)
}
