package interfaces

import (
	"context"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
)

// ChatTransport is the subset of the chat platform the domain talks to
type ChatTransport interface {
	SendMessage(channelID snowflake.ID, text string) error
	SendDirectMessage(userID snowflake.ID, text string) error

	// EditMember replaces the member's roles and nickname in one call
	EditMember(guildID, userID snowflake.ID, roles []snowflake.ID, nickname string) error

	Member(guildID, userID snowflake.ID) (*entities.Member, error)
	GuildName(guildID snowflake.ID) (string, error)
	ChannelName(channelID snowflake.ID) (string, error)

	// ChannelInGuild reports whether channelID exists and belongs to guildID
	ChannelInGuild(guildID, channelID snowflake.ID) (bool, error)

	// RoleInGuild reports whether roleID exists in guildID
	RoleInGuild(guildID, roleID snowflake.ID) (bool, error)
}

// VoiceResolver finds the voice channel a member is currently connected to
type VoiceResolver interface {
	VoiceDestination(guildID, userID snowflake.ID) (snowflake.ID, bool)
}

// MediaEngine drives one worker's voice output
type MediaEngine interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) error
	Leave(guildID snowflake.ID) error
	Enqueue(ctx context.Context, guildID snowflake.ID, order string) error
	Pause(guildID snowflake.ID) error
	Resume(guildID snowflake.ID) error
	Skip(guildID snowflake.ID) error
	Stop(guildID snowflake.ID) error
}
