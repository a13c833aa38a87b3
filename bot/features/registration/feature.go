package registration

import (
	"context"
	"errors"
	"fmt"

	"warden/bot/common"
	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/services"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// NameCommand is the DM command members use to choose their display name
const NameCommand = "name"

// Narrator posts operational messages to a guild's log channel
type Narrator interface {
	Narrate(ctx context.Context, guildID snowflake.ID, text string)
}

// Feature handles guild lifecycle events, member welcomes and the naming command
type Feature struct {
	registration interfaces.RegistrationService
	transport    interfaces.ChatTransport
	narrator     Narrator
	prefixes     []entities.WorkerPrefix
}

// NewFeature creates a new registration feature instance
func NewFeature(registration interfaces.RegistrationService, transport interfaces.ChatTransport, narrator Narrator, prefixes []entities.WorkerPrefix) *Feature {
	return &Feature{
		registration: registration,
		transport:    transport,
		narrator:     narrator,
		prefixes:     prefixes,
	}
}

// HandleGuildJoin registers a guild the first time it is seen
func (f *Feature) HandleGuildJoin(ctx context.Context, guildID snowflake.ID, name string) {
	created, err := f.registration.RegisterGuild(ctx, guildID, f.prefixes)
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"guild":    name,
			"error":    err,
		}).Error("Failed to register guild")
		return
	}

	if created {
		log.Infof("Registered %s guild (ID: %s, workers: %d)", name, guildID, len(f.prefixes))
	} else {
		log.Infof("On %s guild ready", name)
	}
}

// HandleReady drops registrations of guilds missing from the gateway's
// ready payload
func (f *Feature) HandleReady(ctx context.Context, guildIDs []snowflake.ID) {
	pruned, err := f.registration.PruneGuilds(ctx, guildIDs)
	if err != nil {
		log.WithError(err).Error("Failed to prune departed guilds")
		return
	}
	if pruned > 0 {
		log.Infof("Unregistered %d guilds left while offline", pruned)
	}
}

// HandleGuildLeave unregisters a guild the bot was removed from
func (f *Feature) HandleGuildLeave(ctx context.Context, guildID snowflake.ID) {
	if err := f.registration.UnregisterGuild(ctx, guildID); err != nil {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"error":    err,
		}).Error("Failed to unregister guild")
	}
}

// HandleMemberJoin welcomes a new member and narrates which path was taken
func (f *Feature) HandleMemberJoin(ctx context.Context, member *entities.Member) {
	outcome, err := f.registration.WelcomeMember(ctx, member.GuildID, member)
	if err != nil {
		if errors.Is(err, services.ErrGuildNotRegistered) {
			log.WithField("guild_id", member.GuildID).Warn("Member joined an unregistered guild")
			return
		}
		log.WithFields(log.Fields{
			"guild_id": member.GuildID,
			"user_id":  member.UserID,
			"error":    err,
		}).Error("Failed to welcome member")
		return
	}

	var text string
	switch outcome {
	case entities.WelcomeRoleGranted:
		text = fmt.Sprintf("Registered new member('%s') after the welcome message could not be delivered", member.Username)
	case entities.WelcomePending:
		text = fmt.Sprintf("New member('%s') is waiting for registration", member.Username)
	default:
		text = fmt.Sprintf("Sent welcome message to new member('%s')", member.Username)
	}
	f.narrator.Narrate(ctx, member.GuildID, text)
}

// HandleNameCommand completes every pending registration of the sender
func (f *Feature) HandleNameCommand(ctx context.Context, cmd common.Command) {
	if cmd.Args == "" {
		common.Reply(f.transport, cmd.ChannelID, "❌ Usage: -name <your name>")
		return
	}

	count, err := f.registration.CompleteRegistration(ctx, cmd.AuthorID, cmd.Args)
	if err != nil {
		if errors.Is(err, services.ErrEmptyDisplayName) {
			common.Reply(f.transport, cmd.ChannelID, "❌ Usage: -name <your name>")
			return
		}
		common.HandleError(f.transport, cmd, common.NewSystemError(err, "failed to complete registration"))
		return
	}

	if count == 0 {
		common.Reply(f.transport, cmd.ChannelID, "There is nothing to register you for")
		return
	}
	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf("✅ Registered as '%s'", cmd.Args))
}
