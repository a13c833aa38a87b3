package testhelpers

import (
	"context"

	"warden/domain/entities"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/mock"
)

// MockChatTransport is a mock implementation of ChatTransport
type MockChatTransport struct {
	mock.Mock
}

func (m *MockChatTransport) SendMessage(channelID snowflake.ID, text string) error {
	args := m.Called(channelID, text)
	return args.Error(0)
}

func (m *MockChatTransport) SendDirectMessage(userID snowflake.ID, text string) error {
	args := m.Called(userID, text)
	return args.Error(0)
}

func (m *MockChatTransport) EditMember(guildID, userID snowflake.ID, roles []snowflake.ID, nickname string) error {
	args := m.Called(guildID, userID, roles, nickname)
	return args.Error(0)
}

func (m *MockChatTransport) Member(guildID, userID snowflake.ID) (*entities.Member, error) {
	args := m.Called(guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Member), args.Error(1)
}

func (m *MockChatTransport) GuildName(guildID snowflake.ID) (string, error) {
	args := m.Called(guildID)
	return args.String(0), args.Error(1)
}

func (m *MockChatTransport) ChannelName(channelID snowflake.ID) (string, error) {
	args := m.Called(channelID)
	return args.String(0), args.Error(1)
}

func (m *MockChatTransport) ChannelInGuild(guildID, channelID snowflake.ID) (bool, error) {
	args := m.Called(guildID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatTransport) RoleInGuild(guildID, roleID snowflake.ID) (bool, error) {
	args := m.Called(guildID, roleID)
	return args.Bool(0), args.Error(1)
}

// MockVoiceResolver is a mock implementation of VoiceResolver
type MockVoiceResolver struct {
	mock.Mock
}

func (m *MockVoiceResolver) VoiceDestination(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	args := m.Called(guildID, userID)
	return args.Get(0).(snowflake.ID), args.Bool(1)
}

// MockMediaEngine is a mock implementation of MediaEngine
type MockMediaEngine struct {
	mock.Mock
}

func (m *MockMediaEngine) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *MockMediaEngine) Leave(guildID snowflake.ID) error {
	args := m.Called(guildID)
	return args.Error(0)
}

func (m *MockMediaEngine) Enqueue(ctx context.Context, guildID snowflake.ID, order string) error {
	args := m.Called(ctx, guildID, order)
	return args.Error(0)
}

func (m *MockMediaEngine) Pause(guildID snowflake.ID) error {
	args := m.Called(guildID)
	return args.Error(0)
}

func (m *MockMediaEngine) Resume(guildID snowflake.ID) error {
	args := m.Called(guildID)
	return args.Error(0)
}

func (m *MockMediaEngine) Skip(guildID snowflake.ID) error {
	args := m.Called(guildID)
	return args.Error(0)
}

func (m *MockMediaEngine) Stop(guildID snowflake.ID) error {
	args := m.Called(guildID)
	return args.Error(0)
}
