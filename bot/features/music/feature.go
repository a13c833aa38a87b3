package music

import (
	"context"

	"warden/bot/common"
	"warden/domain/interfaces"
	"warden/domain/relay"

	"github.com/disgoorg/snowflake/v2"
)

// Narrator posts operational messages to a guild's log channel
type Narrator interface {
	Narrate(ctx context.Context, guildID snowflake.ID, text string)
}

// Feature handles the music order commands and relays them to workers
type Feature struct {
	admission  interfaces.AdmissionService
	assignment interfaces.AssignmentService
	settings   interfaces.GuildSettingsService
	voice      interfaces.VoiceResolver
	transport  interfaces.ChatTransport
	narrator   Narrator
}

// NewFeature creates a new music feature instance
func NewFeature(
	admission interfaces.AdmissionService,
	assignment interfaces.AssignmentService,
	settings interfaces.GuildSettingsService,
	voice interfaces.VoiceResolver,
	transport interfaces.ChatTransport,
	narrator Narrator,
) *Feature {
	return &Feature{
		admission:  admission,
		assignment: assignment,
		settings:   settings,
		voice:      voice,
		transport:  transport,
		narrator:   narrator,
	}
}

// Handles reports whether name is a music order command
func (f *Feature) Handles(name string) bool {
	return relay.Command(name).IsKnown()
}

// HandleCommand runs one music order command
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) {
	if err := f.handle(ctx, cmd); err != nil {
		common.HandleError(f.transport, cmd, err)
	}
}
