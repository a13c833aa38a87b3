package common

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// AdminChecker decides whether a member may run setup commands
type AdminChecker interface {
	IsAdmin(guildID, userID snowflake.ID) bool
}

// IsUserAdmin checks if a user has administrator permissions in a guild
func IsUserAdmin(s *discordgo.Session, guildID, userID string) bool {
	if guild, err := s.State.Guild(guildID); err == nil && guild.OwnerID == userID {
		return true
	}

	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		log.Errorf("Failed to get guild member: %v", err)
		return false
	}

	// Check each role for admin permissions
	for _, roleID := range member.Roles {
		role, err := s.State.Role(guildID, roleID)
		if err != nil {
			continue
		}
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}

	return false
}

// SessionAdminChecker checks administrator permissions through a live session
type SessionAdminChecker struct {
	Session *discordgo.Session
}

func (c SessionAdminChecker) IsAdmin(guildID, userID snowflake.ID) bool {
	return IsUserAdmin(c.Session, guildID.String(), userID.String())
}

// ChannelMention formats a channel id as a mention
func ChannelMention(id snowflake.ID) string {
	return "<#" + id.String() + ">"
}

// RoleMention formats a role id as a mention
func RoleMention(id snowflake.ID) string {
	return "<@&" + id.String() + ">"
}
