// Package media plays queued audio into voice channels for one worker.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// ErrNotConnected is returned for queue operations in a guild without a voice connection
var ErrNotConnected = errors.New("not connected to a voice channel in this guild")

// Voice is one live voice connection
type Voice interface {
	Speaking(speaking bool) error
	Send(ctx context.Context, frame []byte) error
	Disconnect() error
}

// Connector opens voice connections
type Connector interface {
	Connect(ctx context.Context, guildID, channelID snowflake.ID) (Voice, error)
}

// Streamer decodes a source into opus frames and hands each to sink
type Streamer interface {
	Stream(ctx context.Context, source string, sink func(frame []byte) error) error
}

// Player implements interfaces.MediaEngine with one queue per guild
type Player struct {
	connector Connector
	streamer  Streamer

	mu     sync.Mutex
	guilds map[snowflake.ID]*guildPlayer
}

type guildPlayer struct {
	mu        sync.Mutex
	voice     Voice
	channelID snowflake.ID
	queue     []string
	playing   bool
	closed    bool
	paused    bool
	resumed   chan struct{} // closed on resume
	cancel    context.CancelFunc
}

// NewPlayer creates a new player
func NewPlayer(connector Connector, streamer Streamer) *Player {
	return &Player{
		connector: connector,
		streamer:  streamer,
		guilds:    make(map[snowflake.ID]*guildPlayer),
	}
}

// Join connects to channelID, leaving any previous channel of the guild first
func (p *Player) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	p.mu.Lock()
	previous := p.guilds[guildID]
	delete(p.guilds, guildID)
	p.mu.Unlock()

	if previous != nil {
		previous.shutdown()
	}

	voice, err := p.connector.Connect(ctx, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to join voice channel %s: %w", channelID, err)
	}

	p.mu.Lock()
	p.guilds[guildID] = &guildPlayer{voice: voice, channelID: channelID}
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Info("Joined voice channel")
	return nil
}

// Leave drops the queue and disconnects. Leaving a guild without a connection is a no-op.
func (p *Player) Leave(guildID snowflake.ID) error {
	p.mu.Lock()
	gp := p.guilds[guildID]
	delete(p.guilds, guildID)
	p.mu.Unlock()

	if gp == nil {
		return nil
	}
	if err := gp.shutdown(); err != nil {
		return fmt.Errorf("failed to disconnect from voice: %w", err)
	}

	log.WithField("guild_id", guildID).Info("Left voice channel")
	return nil
}

// Enqueue appends order to the guild's queue and starts playback if idle
func (p *Player) Enqueue(ctx context.Context, guildID snowflake.ID, order string) error {
	gp, err := p.guild(guildID)
	if err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()

	gp.queue = append(gp.queue, order)
	if !gp.playing {
		gp.playing = true
		go p.run(guildID, gp)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"queued":   len(gp.queue),
	}).Debug("Enqueued order")
	return nil
}

// Pause holds playback at the next frame
func (p *Player) Pause(guildID snowflake.ID) error {
	gp, err := p.guild(guildID)
	if err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()
	if !gp.paused {
		gp.paused = true
		gp.resumed = make(chan struct{})
	}
	return nil
}

// Resume continues paused playback
func (p *Player) Resume(guildID snowflake.ID) error {
	gp, err := p.guild(guildID)
	if err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.unpause()
	return nil
}

// Skip ends the current track; the next queued one starts
func (p *Player) Skip(guildID snowflake.ID) error {
	gp, err := p.guild(guildID)
	if err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.unpause()
	if gp.cancel != nil {
		gp.cancel()
	}
	return nil
}

// Stop ends the current track and clears the queue
func (p *Player) Stop(guildID snowflake.ID) error {
	gp, err := p.guild(guildID)
	if err != nil {
		return err
	}

	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.queue = nil
	gp.unpause()
	if gp.cancel != nil {
		gp.cancel()
	}
	return nil
}

// connected reports the voice channel of a guild, if any
func (p *Player) connected(guildID snowflake.ID) (snowflake.ID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	gp, ok := p.guilds[guildID]
	if !ok {
		return 0, false
	}
	return gp.channelID, true
}

// queued returns a copy of the orders waiting behind the current track
func (p *Player) queued(guildID snowflake.ID) []string {
	gp, err := p.guild(guildID)
	if err != nil {
		return nil
	}
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return append([]string(nil), gp.queue...)
}

// Close disconnects from every guild
func (p *Player) Close() {
	p.mu.Lock()
	guilds := p.guilds
	p.guilds = make(map[snowflake.ID]*guildPlayer)
	p.mu.Unlock()

	for guildID, gp := range guilds {
		if err := gp.shutdown(); err != nil {
			log.WithField("guild_id", guildID).WithError(err).Warn("Failed to disconnect from voice")
		}
	}
}

func (p *Player) guild(guildID snowflake.ID) (*guildPlayer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	gp, ok := p.guilds[guildID]
	if !ok {
		return nil, ErrNotConnected
	}
	return gp, nil
}

// run plays queued orders until the queue is empty or the guild is left
func (p *Player) run(guildID snowflake.ID, gp *guildPlayer) {
	for {
		gp.mu.Lock()
		if gp.closed || len(gp.queue) == 0 {
			gp.playing = false
			gp.cancel = nil
			gp.mu.Unlock()
			return
		}
		source := gp.queue[0]
		gp.queue = gp.queue[1:]
		ctx, cancel := context.WithCancel(context.Background())
		gp.cancel = cancel
		gp.mu.Unlock()

		fields := log.Fields{
			"guild_id": guildID,
			"source":   source,
		}
		log.WithFields(fields).Info("Playing track")

		if err := gp.voice.Speaking(true); err != nil {
			log.WithFields(fields).WithError(err).Warn("Failed to set speaking state")
		}

		err := p.streamer.Stream(ctx, source, func(frame []byte) error {
			return gp.send(ctx, frame)
		})
		if err != nil && ctx.Err() == nil {
			log.WithFields(fields).WithError(err).Error("Playback failed")
		}

		if err := gp.voice.Speaking(false); err != nil {
			log.WithFields(fields).WithError(err).Debug("Failed to clear speaking state")
		}
		cancel()
	}
}

// send waits out a pause, then hands the frame to the voice connection
func (gp *guildPlayer) send(ctx context.Context, frame []byte) error {
	for {
		gp.mu.Lock()
		paused, resumed := gp.paused, gp.resumed
		gp.mu.Unlock()
		if !paused {
			break
		}
		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return gp.voice.Send(ctx, frame)
}

// unpause must be called with gp.mu held
func (gp *guildPlayer) unpause() {
	if gp.paused {
		gp.paused = false
		close(gp.resumed)
	}
}

func (gp *guildPlayer) shutdown() error {
	gp.mu.Lock()
	gp.closed = true
	gp.queue = nil
	gp.unpause()
	if gp.cancel != nil {
		gp.cancel()
	}
	gp.mu.Unlock()

	return gp.voice.Disconnect()
}

// SessionConnector opens voice connections through a discordgo session
type SessionConnector struct {
	Session *discordgo.Session
}

func (c SessionConnector) Connect(ctx context.Context, guildID, channelID snowflake.ID) (Voice, error) {
	vc, err := c.Session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return nil, err
	}
	return &sessionVoice{vc: vc}, nil
}

type sessionVoice struct {
	vc *discordgo.VoiceConnection
}

func (v *sessionVoice) Speaking(speaking bool) error {
	return v.vc.Speaking(speaking)
}

func (v *sessionVoice) Send(ctx context.Context, frame []byte) error {
	select {
	case v.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *sessionVoice) Disconnect() error {
	return v.vc.Disconnect()
}
