package services

import (
	"context"
	"testing"

	"warden/domain/entities"
	"warden/domain/testhelpers"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

// Test constants for consistent test data
const (
	TestGuildID        = snowflake.ID(555555555)
	TestOtherGuildID   = snowflake.ID(666666666)
	TestOrderChannelID = snowflake.ID(1001)
	TestRelayChannelID = snowflake.ID(1002)
	TestLogChannelID   = snowflake.ID(1003)
	TestMemberRoleID   = snowflake.ID(2001)
	TestUserID         = snowflake.ID(100)
	TestVoiceV         = snowflake.ID(9001)
	TestVoiceU         = snowflake.ID(9002)
	TestVoiceX         = snowflake.ID(9003)
	TestVoiceY         = snowflake.ID(9004)
)

var testPrefixes = []entities.WorkerPrefix{"w1", "w2", "w3"}

// newRegisteredStore returns a memory store with every guild registered
// against the three test workers
func newRegisteredStore(t *testing.T, guildIDs ...snowflake.ID) *testhelpers.MemoryStore {
	t.Helper()
	store := testhelpers.NewMemoryStore()
	reg := NewRegistrationService(store, &testhelpers.MockChatTransport{})
	for _, id := range guildIDs {
		ok, err := reg.RegisterGuild(context.Background(), id, testPrefixes)
		require.NoError(t, err)
		require.True(t, ok)
	}
	return store
}

func idPtr(id snowflake.ID) *snowflake.ID {
	return &id
}

func prefixPtr(p entities.WorkerPrefix) *entities.WorkerPrefix {
	return &p
}
