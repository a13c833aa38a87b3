package worker

import (
	"context"
	"fmt"

	"warden/application"
	"warden/bot"
	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/services"
	"warden/media"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// Intents a worker needs
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

// Config holds worker configuration
type Config struct {
	Token      string
	Prefix     entities.WorkerPrefix
	Index      int
	YtDlpPath  string
	FFmpegPath string
}

// Worker is one pooled music bot process
type Worker struct {
	config   Config
	session  *discordgo.Session
	player   *media.Player
	handler  *Handler
	narrator *application.Narrator

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a worker session and its handler. The session is not opened.
func New(config Config, uowFactory interfaces.UnitOfWorkFactory) (*Worker, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.StateEnabled = true

	player := media.NewPlayer(
		media.SessionConnector{Session: dg},
		media.NewProcessStreamer(config.YtDlpPath, config.FFmpegPath),
	)

	handler := NewHandler(
		config.Prefix,
		config.Index,
		services.NewAdmissionService(uowFactory),
		services.NewAssignmentService(uowFactory),
		player,
	)

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		config:   config,
		session:  dg,
		player:   player,
		handler:  handler,
		narrator: application.NewNarrator(uowFactory, bot.NewSessionTransport(dg)),
		ctx:      ctx,
		cancel:   cancel,
	}

	dg.AddHandler(w.handleReady)
	dg.AddHandler(w.handleMessageCreate)
	dg.AddHandler(w.handleVoiceStateUpdate)

	return w, nil
}

// Open connects to the gateway
func (w *Worker) Open() error {
	if err := w.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	return nil
}

// Close stops playback, leaves voice and disconnects
func (w *Worker) Close() error {
	w.cancel()
	w.player.Close()
	return w.session.Close()
}

// Narrator returns the log channel narrator backed by this worker's session
func (w *Worker) Narrator() *application.Narrator {
	return w.narrator
}

func (w *Worker) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.WithField("prefix", w.config.Prefix).Infof("%s is connected!", r.User.Username)

	if id, err := snowflake.Parse(r.User.ID); err == nil {
		w.handler.SetSelf(id)
	}

	if err := w.handler.Reconcile(w.ctx); err != nil {
		log.WithError(err).Error("Failed to reconcile worker bindings")
	}
}

func (w *Worker) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}

	msg, err := newMessage(m)
	if err != nil {
		log.WithError(err).Debug("Failed to read relay message")
		return
	}
	w.handler.HandleMessage(w.ctx, msg)
}

// handleVoiceStateUpdate watches the worker's own voice state for disconnects
func (w *Worker) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID != "" {
		return
	}

	guildID, err := snowflake.Parse(v.GuildID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", v.GuildID, err)
		return
	}
	w.handler.HandleVoiceDisconnect(w.ctx, guildID)
}

func newMessage(m *discordgo.MessageCreate) (Message, error) {
	msg := Message{Content: m.Content}

	var err error
	if msg.GuildID, err = snowflake.Parse(m.GuildID); err != nil {
		return msg, fmt.Errorf("invalid guild id %q: %w", m.GuildID, err)
	}
	if msg.ChannelID, err = snowflake.Parse(m.ChannelID); err != nil {
		return msg, fmt.Errorf("invalid channel id %q: %w", m.ChannelID, err)
	}
	if msg.AuthorID, err = snowflake.Parse(m.Author.ID); err != nil {
		return msg, fmt.Errorf("invalid author id %q: %w", m.Author.ID, err)
	}
	return msg, nil
}
