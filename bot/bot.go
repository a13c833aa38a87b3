package bot

import (
	"context"
	"fmt"

	"warden/application"
	"warden/bot/common"
	"warden/bot/features/music"
	"warden/bot/features/registration"
	"warden/bot/features/settings"
	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/services"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// Intents the control process needs
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Config holds bot configuration
type Config struct {
	Token         string
	CommandPrefix string
	Prefixes      []entities.WorkerPrefix
}

// Bot is the control process: it registers guilds, welcomes members and
// turns music orders into relay instructions
type Bot struct {
	// Core components
	config    Config
	session   *discordgo.Session
	transport *SessionTransport
	narrator  *application.Narrator

	// Services
	registrationService interfaces.RegistrationService

	// Feature modules
	registration *registration.Feature
	music        *music.Feature
	settings     *settings.Feature

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new bot instance with all features. The session is not opened.
func New(config Config, uowFactory interfaces.UnitOfWorkFactory) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.StateEnabled = true

	transport := NewSessionTransport(dg)
	narrator := application.NewNarrator(uowFactory, transport)

	registrationService := services.NewRegistrationService(uowFactory, transport)
	settingsService := services.NewGuildSettingsService(uowFactory, transport)

	ctx, cancel := context.WithCancel(context.Background())
	bot := &Bot{
		config:              config,
		session:             dg,
		transport:           transport,
		narrator:            narrator,
		registrationService: registrationService,
		ctx:                 ctx,
		cancel:              cancel,
	}

	bot.registration = registration.NewFeature(registrationService, transport, narrator, config.Prefixes)
	bot.settings = settings.NewFeature(settingsService, transport, common.SessionAdminChecker{Session: dg}, narrator)
	bot.music = music.NewFeature(
		services.NewAdmissionService(uowFactory),
		services.NewAssignmentService(uowFactory),
		settingsService,
		NewStateVoiceResolver(dg.State),
		transport,
		narrator,
	)

	// Register handlers
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleGuildDelete)
	dg.AddHandler(bot.handleGuildMemberAdd)
	dg.AddHandler(bot.handleMessageCreate)

	return bot, nil
}

// Open connects to the gateway
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	return nil
}

// Close gracefully shuts down the bot
func (b *Bot) Close() error {
	b.cancel()
	return b.session.Close()
}

// Narrator returns the log channel narrator
func (b *Bot) Narrator() *application.Narrator {
	return b.narrator
}

// RegistrationService returns the service backing guild and member registration
func (b *Bot) RegistrationService() interfaces.RegistrationService {
	return b.registrationService
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Infof("%s is connected!", r.User.Username)

	guildIDs := make([]snowflake.ID, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		id, err := snowflake.Parse(g.ID)
		if err != nil {
			log.Errorf("Failed to parse guild ID %s: %v", g.ID, err)
			// A partial list would prune guilds the bot still belongs to
			return
		}
		guildIDs = append(guildIDs, id)
	}
	b.registration.HandleReady(b.ctx, guildIDs)
}

// handleGuildCreate registers the guild. Fired on join and for every guild at startup.
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	guildID, err := snowflake.Parse(g.ID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", g.ID, err)
		return
	}
	b.registration.HandleGuildJoin(b.ctx, guildID, g.Name)
}

// handleGuildDelete unregisters the guild unless the event only reports an outage
func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		log.WithField("guild_id", g.ID).Warn("Guild became unavailable, keeping its registration")
		return
	}

	guildID, err := snowflake.Parse(g.ID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", g.ID, err)
		return
	}
	b.registration.HandleGuildLeave(b.ctx, guildID)
}

func (b *Bot) handleGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}

	member, err := toMember(m.Member)
	if err != nil {
		log.WithError(err).Error("Failed to read joined member")
		return
	}
	b.registration.HandleMemberJoin(b.ctx, member)
}

// handleMessageCreate routes prefixed text commands
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	name, args, ok := common.ParseCommand(b.config.CommandPrefix, m.Content)
	if !ok {
		return
	}

	cmd, err := newCommand(m, name, args)
	if err != nil {
		log.WithError(err).Warn("Failed to read command message")
		return
	}

	b.route(b.ctx, cmd)
}

// route dispatches a parsed command to the feature that owns it
func (b *Bot) route(ctx context.Context, cmd common.Command) {
	if cmd.IsDirect() {
		if cmd.Name == registration.NameCommand {
			b.registration.HandleNameCommand(ctx, cmd)
		}
		return
	}

	switch {
	case b.music.Handles(cmd.Name):
		b.music.HandleCommand(ctx, cmd)
	case b.settings.Handles(cmd.Name):
		b.settings.HandleCommand(ctx, cmd)
	default:
		log.WithFields(log.Fields{
			"guild_id": cmd.GuildID,
			"command":  cmd.Name,
		}).Debug("Ignoring unknown command")
	}
}

func newCommand(m *discordgo.MessageCreate, name, args string) (common.Command, error) {
	cmd := common.Command{Name: name, Args: args}

	var err error
	if m.GuildID != "" {
		if cmd.GuildID, err = snowflake.Parse(m.GuildID); err != nil {
			return cmd, fmt.Errorf("invalid guild id %q: %w", m.GuildID, err)
		}
	}
	if cmd.ChannelID, err = snowflake.Parse(m.ChannelID); err != nil {
		return cmd, fmt.Errorf("invalid channel id %q: %w", m.ChannelID, err)
	}
	if cmd.AuthorID, err = snowflake.Parse(m.Author.ID); err != nil {
		return cmd, fmt.Errorf("invalid author id %q: %w", m.Author.ID, err)
	}
	return cmd, nil
}
