package music

import (
	"context"
	"errors"
	"fmt"

	"warden/bot/common"
	"warden/domain/entities"
	"warden/domain/relay"
	"warden/domain/services"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// Confirmation texts posted in the order channel
const (
	joinedFormat  = "➡️ 👍 Joined '%s' voice channel!!! ⬅️"
	leftFormat    = "➡️ 😔 Left '%s' voice channel :( ⬅️"
	playingFormat = "➡️ 🎵 Playing 🎶%s🎶 song on '%s' voice channel!!! ⬅️"
	searchFormat  = "➡️ 🔎 Searching 🎶%s🎶 on '%s' voice channel!!! ⬅️"
	calledFormat  = "➡️ Called %s on current queue!!! ⬅️"

	WrongChannelMessage = "Wrong channel was used"
)

// handle runs the gates in order: order channel, arguments, voice destination,
// relay channel. Nothing is mutated until all of them pass.
func (f *Feature) handle(ctx context.Context, cmd common.Command) error {
	command := relay.Command(cmd.Name)

	if err := f.admission.AdmitOrder(ctx, cmd.GuildID, cmd.ChannelID); err != nil {
		if errors.Is(err, services.ErrWrongChannel) {
			return common.NewUserError(WrongChannelMessage, "music command outside the order channel")
		}
		return common.NewSystemError(err, "failed to check order channel")
	}

	if command == relay.CommandPlay && cmd.Args == "" {
		return common.NewUserError("❌ Usage: -play <link or search text>", "play without an order")
	}
	if command != relay.CommandPlay && cmd.Args != "" {
		return common.NewUserError(fmt.Sprintf("❌ -%s takes no arguments", command), "unexpected arguments")
	}

	destination, ok := f.voice.VoiceDestination(cmd.GuildID, cmd.AuthorID)
	if !ok {
		return common.NewUserError("❌ You need to be in a voice channel", "member has no voice destination")
	}

	settings, err := f.settings.GetSettings(ctx, cmd.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to get guild settings")
	}
	if settings.MusicLogChannelID == nil {
		return common.NewUserError("❌ The music log channel is not configured", "relay channel unset")
	}
	relayChannel := *settings.MusicLogChannelID

	switch command {
	case relay.CommandJoin:
		return f.join(ctx, cmd, destination, relayChannel)
	case relay.CommandLeave:
		return f.leave(ctx, cmd, destination, relayChannel)
	case relay.CommandPlay:
		return f.play(ctx, cmd, destination, relayChannel)
	default:
		return f.control(ctx, cmd, command, destination, relayChannel)
	}
}

func (f *Feature) join(ctx context.Context, cmd common.Command, destination, relayChannel snowflake.ID) error {
	prefix, err := f.assignment.Acquire(ctx, cmd.GuildID, destination)
	if err != nil {
		return common.NewSystemError(err, "failed to acquire worker")
	}
	if prefix == nil {
		log.WithFields(log.Fields{
			"guild_id":    cmd.GuildID,
			"destination": destination,
		}).Debug("Join ignored: destination already served or no worker free")
		return nil
	}

	instruction := relay.Instruction{Prefix: prefix.String(), Command: relay.CommandJoin, Argument: destination.String()}
	if !f.relay(cmd, relayChannel, instruction) {
		// The worker never saw the instruction, so give the binding back
		if _, err := f.assignment.Release(ctx, cmd.GuildID, destination); err != nil {
			log.WithError(err).Error("Failed to release worker after relay failure")
		}
		return nil
	}

	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf(joinedFormat, f.channelName(destination)))
	f.narrator.Narrate(ctx, cmd.GuildID, fmt.Sprintf("Called join on %s", *prefix))
	return nil
}

func (f *Feature) leave(ctx context.Context, cmd common.Command, destination, relayChannel snowflake.ID) error {
	prefix, err := f.assignment.Release(ctx, cmd.GuildID, destination)
	if err != nil {
		return common.NewSystemError(err, "failed to release worker")
	}
	if prefix == nil {
		return nil
	}

	instruction := relay.Instruction{Prefix: prefix.String(), Command: relay.CommandLeave, Argument: destination.String()}
	if !f.relay(cmd, relayChannel, instruction) {
		return nil
	}

	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf(leftFormat, f.channelName(destination)))
	f.narrator.Narrate(ctx, cmd.GuildID, fmt.Sprintf("Called leave on %s", *prefix))
	return nil
}

func (f *Feature) play(ctx context.Context, cmd common.Command, destination, relayChannel snowflake.ID) error {
	prefix, err := f.lookup(ctx, cmd, destination)
	if err != nil || prefix == nil {
		return err
	}

	instruction := relay.Instruction{Prefix: prefix.String(), Command: relay.CommandPlay, Argument: cmd.Args}
	if !f.relay(cmd, relayChannel, instruction) {
		return nil
	}

	format := playingFormat
	if relay.ClassifyOrder(cmd.Args) == relay.OrderQuery {
		format = searchFormat
	}
	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf(format, cmd.Args, f.channelName(destination)))
	f.narrator.Narrate(ctx, cmd.GuildID, fmt.Sprintf("Called play on %s", *prefix))
	return nil
}

// control relays pause, resume, skip and stop
func (f *Feature) control(ctx context.Context, cmd common.Command, command relay.Command, destination, relayChannel snowflake.ID) error {
	prefix, err := f.lookup(ctx, cmd, destination)
	if err != nil || prefix == nil {
		return err
	}

	if !f.relay(cmd, relayChannel, relay.Instruction{Prefix: prefix.String(), Command: command}) {
		return nil
	}

	common.Reply(f.transport, cmd.ChannelID, fmt.Sprintf(calledFormat, command))
	f.narrator.Narrate(ctx, cmd.GuildID, fmt.Sprintf("Called %s on %s", command, *prefix))
	return nil
}

func (f *Feature) lookup(ctx context.Context, cmd common.Command, destination snowflake.ID) (*entities.WorkerPrefix, error) {
	prefix, err := f.assignment.Lookup(ctx, cmd.GuildID, destination)
	if err != nil {
		return nil, common.NewSystemError(err, "failed to look up worker")
	}
	if prefix == nil {
		log.WithFields(log.Fields{
			"guild_id":    cmd.GuildID,
			"destination": destination,
			"command":     cmd.Name,
		}).Debug("No worker serves this destination")
	}
	return prefix, nil
}

// relay posts the instruction in the relay channel. A failed send is logged
// and reported as false.
func (f *Feature) relay(cmd common.Command, relayChannel snowflake.ID, instruction relay.Instruction) bool {
	if err := f.transport.SendMessage(relayChannel, instruction.String()); err != nil {
		log.WithFields(log.Fields{
			"guild_id":    cmd.GuildID,
			"instruction": instruction.String(),
			"error":       err,
		}).Error("Failed to relay instruction")
		return false
	}
	return true
}

func (f *Feature) channelName(channelID snowflake.ID) string {
	name, err := f.transport.ChannelName(channelID)
	if err != nil || name == "" {
		return channelID.String()
	}
	return name
}
