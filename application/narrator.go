package application

import (
	"context"
	"fmt"

	"warden/domain/interfaces"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// Narrator posts operational messages to a guild's log channel
type Narrator struct {
	uowFactory interfaces.UnitOfWorkFactory
	transport  interfaces.ChatTransport
}

// NewNarrator creates a new narrator
func NewNarrator(uowFactory interfaces.UnitOfWorkFactory, transport interfaces.ChatTransport) *Narrator {
	return &Narrator{
		uowFactory: uowFactory,
		transport:  transport,
	}
}

// Narrate sends text to the guild's log channel. Guilds without one are skipped.
// Failures are logged and never returned.
func (n *Narrator) Narrate(ctx context.Context, guildID snowflake.ID, text string) {
	channelID, err := n.logChannel(ctx, guildID)
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"error":    err,
		}).Error("Failed to look up log channel")
		return
	}
	if channelID == 0 {
		log.WithField("guild_id", guildID).Debug("No log channel configured, narration skipped")
		return
	}

	if err := n.transport.SendMessage(channelID, text); err != nil {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"channel_id": channelID,
			"error":      err,
		}).Warn("Failed to narrate to log channel")
	}
}

// Narratef formats according to a format specifier and narrates the result
func (n *Narrator) Narratef(ctx context.Context, guildID snowflake.ID, format string, args ...any) {
	n.Narrate(ctx, guildID, fmt.Sprintf(format, args...))
}

func (n *Narrator) logChannel(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	uow := n.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil || !settings.HasLogChannel() {
		return 0, nil
	}
	return *settings.LogChannelID, nil
}
