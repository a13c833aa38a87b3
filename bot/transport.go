package bot

import (
	"errors"
	"fmt"

	"warden/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// SessionTransport implements interfaces.ChatTransport over a discordgo session
type SessionTransport struct {
	session *discordgo.Session
}

// NewSessionTransport creates a transport bound to session
func NewSessionTransport(session *discordgo.Session) *SessionTransport {
	return &SessionTransport{session: session}
}

func (t *SessionTransport) SendMessage(channelID snowflake.ID, text string) error {
	if _, err := t.session.ChannelMessageSend(channelID.String(), text); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

func (t *SessionTransport) SendDirectMessage(userID snowflake.ID, text string) error {
	channel, err := t.session.UserChannelCreate(userID.String())
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %s: %w", userID, err)
	}
	if _, err := t.session.ChannelMessageSend(channel.ID, text); err != nil {
		return fmt.Errorf("failed to send DM to %s: %w", userID, err)
	}
	return nil
}

func (t *SessionTransport) EditMember(guildID, userID snowflake.ID, roles []snowflake.ID, nickname string) error {
	roleIDs := make([]string, len(roles))
	for i, r := range roles {
		roleIDs[i] = r.String()
	}

	_, err := t.session.GuildMemberEdit(guildID.String(), userID.String(), &discordgo.GuildMemberParams{
		Nick:  nickname,
		Roles: &roleIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to edit member %s: %w", userID, err)
	}
	return nil
}

func (t *SessionTransport) Member(guildID, userID snowflake.ID) (*entities.Member, error) {
	member, err := t.session.State.Member(guildID.String(), userID.String())
	if err != nil {
		member, err = t.session.GuildMember(guildID.String(), userID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to get member %s: %w", userID, err)
		}
	}
	if member.GuildID == "" {
		member.GuildID = guildID.String()
	}
	return toMember(member)
}

func (t *SessionTransport) GuildName(guildID snowflake.ID) (string, error) {
	guild, err := t.session.State.Guild(guildID.String())
	if err != nil {
		guild, err = t.session.Guild(guildID.String())
		if err != nil {
			return "", fmt.Errorf("failed to get guild %s: %w", guildID, err)
		}
	}
	return guild.Name, nil
}

func (t *SessionTransport) ChannelName(channelID snowflake.ID) (string, error) {
	channel, err := t.channel(channelID)
	if err != nil {
		return "", err
	}
	return channel.Name, nil
}

func (t *SessionTransport) ChannelInGuild(guildID, channelID snowflake.ID) (bool, error) {
	channel, err := t.channel(channelID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return channel.GuildID == guildID.String(), nil
}

func (t *SessionTransport) RoleInGuild(guildID, roleID snowflake.ID) (bool, error) {
	if _, err := t.session.State.Role(guildID.String(), roleID.String()); err == nil {
		return true, nil
	}

	roles, err := t.session.GuildRoles(guildID.String())
	if err != nil {
		return false, fmt.Errorf("failed to list roles of guild %s: %w", guildID, err)
	}
	for _, role := range roles {
		if role.ID == roleID.String() {
			return true, nil
		}
	}
	return false, nil
}

func (t *SessionTransport) channel(channelID snowflake.ID) (*discordgo.Channel, error) {
	if channel, err := t.session.State.Channel(channelID.String()); err == nil {
		return channel, nil
	}
	channel, err := t.session.Channel(channelID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return channel, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == 404
	}
	return false
}

func toMember(m *discordgo.Member) (*entities.Member, error) {
	if m.User == nil {
		return nil, errors.New("member has no user")
	}

	guildID, err := snowflake.Parse(m.GuildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild id %q: %w", m.GuildID, err)
	}
	userID, err := snowflake.Parse(m.User.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", m.User.ID, err)
	}

	roles := make([]snowflake.ID, 0, len(m.Roles))
	for _, r := range m.Roles {
		id, err := snowflake.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid role id %q: %w", r, err)
		}
		roles = append(roles, id)
	}

	return &entities.Member{
		GuildID:  guildID,
		UserID:   userID,
		Username: m.User.Username,
		Roles:    roles,
	}, nil
}

// StateVoiceResolver implements interfaces.VoiceResolver over the session state cache
type StateVoiceResolver struct {
	state *discordgo.State
}

// NewStateVoiceResolver creates a resolver reading voice states from state
func NewStateVoiceResolver(state *discordgo.State) *StateVoiceResolver {
	return &StateVoiceResolver{state: state}
}

func (r *StateVoiceResolver) VoiceDestination(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	vs, err := r.state.VoiceState(guildID.String(), userID.String())
	if err != nil || vs == nil || vs.ChannelID == "" {
		return 0, false
	}
	id, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return 0, false
	}
	return id, true
}
