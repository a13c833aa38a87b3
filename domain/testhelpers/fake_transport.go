package testhelpers

import (
	"errors"
	"sync"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
)

// SentMessage is one message recorded by FakeChatTransport
type SentMessage struct {
	ChannelID snowflake.ID
	Text      string
}

// MemberEdit is one EditMember call recorded by FakeChatTransport
type MemberEdit struct {
	GuildID  snowflake.ID
	UserID   snowflake.ID
	Roles    []snowflake.ID
	Nickname string
}

// FakeChatTransport is an in-memory ChatTransport that records what was sent.
// Channels and roles must be registered to pass the guild membership checks.
type FakeChatTransport struct {
	mu sync.Mutex

	Messages []SentMessage
	DMs      []SentMessage
	Edits    []MemberEdit

	ChannelNames map[snowflake.ID]string
	Channels     map[snowflake.ID]snowflake.ID // channel -> guild
	Roles        map[snowflake.ID]snowflake.ID // role -> guild
	Members      map[snowflake.ID]*entities.Member
	GuildNames   map[snowflake.ID]string

	// FailChannels makes SendMessage to these channels fail
	FailChannels map[snowflake.ID]bool
	FailDMs      bool
}

var ErrFakeSend = errors.New("fake transport: send failed")

// NewFakeChatTransport creates an empty fake transport
func NewFakeChatTransport() *FakeChatTransport {
	return &FakeChatTransport{
		ChannelNames: make(map[snowflake.ID]string),
		Channels:     make(map[snowflake.ID]snowflake.ID),
		Roles:        make(map[snowflake.ID]snowflake.ID),
		Members:      make(map[snowflake.ID]*entities.Member),
		GuildNames:   make(map[snowflake.ID]string),
		FailChannels: make(map[snowflake.ID]bool),
	}
}

// AddChannel registers a named channel in guildID
func (f *FakeChatTransport) AddChannel(guildID, channelID snowflake.ID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Channels[channelID] = guildID
	f.ChannelNames[channelID] = name
}

func (f *FakeChatTransport) SendMessage(channelID snowflake.ID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailChannels[channelID] {
		return ErrFakeSend
	}
	f.Messages = append(f.Messages, SentMessage{ChannelID: channelID, Text: text})
	return nil
}

func (f *FakeChatTransport) SendDirectMessage(userID snowflake.ID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDMs {
		return ErrFakeSend
	}
	f.DMs = append(f.DMs, SentMessage{ChannelID: userID, Text: text})
	return nil
}

func (f *FakeChatTransport) EditMember(guildID, userID snowflake.ID, roles []snowflake.ID, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, MemberEdit{GuildID: guildID, UserID: userID, Roles: roles, Nickname: nickname})
	return nil
}

func (f *FakeChatTransport) Member(guildID, userID snowflake.ID) (*entities.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Members[userID]
	if !ok {
		return nil, errors.New("fake transport: unknown member")
	}
	copied := *m
	copied.GuildID = guildID
	return &copied, nil
}

func (f *FakeChatTransport) GuildName(guildID snowflake.ID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GuildNames[guildID], nil
}

func (f *FakeChatTransport) ChannelName(channelID snowflake.ID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.ChannelNames[channelID]
	if !ok {
		return "", errors.New("fake transport: unknown channel")
	}
	return name, nil
}

func (f *FakeChatTransport) ChannelInGuild(guildID, channelID snowflake.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.Channels[channelID]
	return ok && g == guildID, nil
}

func (f *FakeChatTransport) RoleInGuild(guildID, roleID snowflake.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.Roles[roleID]
	return ok && g == guildID, nil
}

// SentTo returns the texts sent to channelID, in order
func (f *FakeChatTransport) SentTo(channelID snowflake.ID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, m := range f.Messages {
		if m.ChannelID == channelID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// Reset forgets every recorded message, DM and edit
func (f *FakeChatTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.DMs = nil
	f.Edits = nil
}
