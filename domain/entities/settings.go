package entities

import "github.com/disgoorg/snowflake/v2"

// SettingField names one independently configurable field of a guild's settings
type SettingField string

const (
	SettingLogChannel        SettingField = "log_channel"
	SettingModerationChannel SettingField = "moderation_channel"
	SettingMusicOrderChannel SettingField = "music_order_channel"
	SettingMusicLogChannel   SettingField = "music_log_channel"
	SettingMemberRole        SettingField = "member_role"
)

// IsRole reports whether the field references a role rather than a channel
func (f SettingField) IsRole() bool {
	return f == SettingMemberRole
}

// Settings represents per-guild configuration. Every field starts unset.
type Settings struct {
	ID                  int64         `db:"id"`
	GuildID             snowflake.ID  `db:"-"`
	LogChannelID        *snowflake.ID `db:"log_channel_id"`         // Nullable - operations narration
	ModerationChannelID *snowflake.ID `db:"moderation_channel_id"`  // Nullable
	MusicOrderChannelID *snowflake.ID `db:"music_order_channel_id"` // Nullable - where music commands are accepted
	MusicLogChannelID   *snowflake.ID `db:"music_log_channel_id"`   // Nullable - relay channel read by workers
	MemberRoleID        *snowflake.ID `db:"member_role_id"`         // Nullable - granted on registration
}

// HasLogChannel checks if a log channel is configured
func (s *Settings) HasLogChannel() bool {
	return isSet(s.LogChannelID)
}

// HasMemberRole checks if a member role is configured
func (s *Settings) HasMemberRole() bool {
	return isSet(s.MemberRoleID)
}

// IsMusicOrderChannel reports whether channelID is the configured order channel.
// An unset order channel never matches.
func (s *Settings) IsMusicOrderChannel(channelID snowflake.ID) bool {
	return matches(s.MusicOrderChannelID, channelID)
}

// IsMusicLogChannel reports whether channelID is the configured relay channel.
// An unset relay channel never matches.
func (s *Settings) IsMusicLogChannel(channelID snowflake.ID) bool {
	return matches(s.MusicLogChannelID, channelID)
}

// Get returns the value of a field, nil when unset
func (s *Settings) Get(field SettingField) *snowflake.ID {
	switch field {
	case SettingLogChannel:
		return s.LogChannelID
	case SettingModerationChannel:
		return s.ModerationChannelID
	case SettingMusicOrderChannel:
		return s.MusicOrderChannelID
	case SettingMusicLogChannel:
		return s.MusicLogChannelID
	case SettingMemberRole:
		return s.MemberRoleID
	}
	return nil
}

// Set replaces the value of a field. Unknown fields are ignored.
func (s *Settings) Set(field SettingField, id *snowflake.ID) {
	switch field {
	case SettingLogChannel:
		s.LogChannelID = id
	case SettingModerationChannel:
		s.ModerationChannelID = id
	case SettingMusicOrderChannel:
		s.MusicOrderChannelID = id
	case SettingMusicLogChannel:
		s.MusicLogChannelID = id
	case SettingMemberRole:
		s.MemberRoleID = id
	}
}

func isSet(id *snowflake.ID) bool {
	return id != nil && *id != 0
}

func matches(configured *snowflake.ID, candidate snowflake.ID) bool {
	return isSet(configured) && candidate != 0 && *configured == candidate
}
