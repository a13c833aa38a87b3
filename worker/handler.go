// Package worker runs one pooled music bot. It only ever acts on relay
// instructions addressed to its own prefix.
package worker

import (
	"context"
	"sync"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/relay"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// searchScheme turns a free-text order into a single-result search
const searchScheme = "ytsearch1:"

// Message is a chat message as seen by a worker
type Message struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	AuthorID  snowflake.ID
	Content   string
}

// IsDirect reports whether the message was sent outside a guild
func (m Message) IsDirect() bool {
	return m.GuildID == 0
}

// Handler executes relay instructions for a single worker
type Handler struct {
	prefix     entities.WorkerPrefix
	index      int
	admission  interfaces.AdmissionService
	assignment interfaces.AssignmentService
	media      interfaces.MediaEngine

	mu     sync.Mutex
	selfID snowflake.ID
	// joined maps guild to the voice channel the worker was told to join
	joined map[snowflake.ID]snowflake.ID
	// expected counts voice disconnects the worker caused itself
	expected map[snowflake.ID]int
	// reconciled is set once the startup release has succeeded
	reconciled bool
}

// NewHandler creates a handler for the worker at index with prefix
func NewHandler(prefix entities.WorkerPrefix, index int, admission interfaces.AdmissionService, assignment interfaces.AssignmentService, media interfaces.MediaEngine) *Handler {
	return &Handler{
		prefix:     prefix,
		index:      index,
		admission:  admission,
		assignment: assignment,
		media:      media,
		joined:     make(map[snowflake.ID]snowflake.ID),
		expected:   make(map[snowflake.ID]int),
	}
}

// Prefix returns the worker's relay prefix
func (h *Handler) Prefix() entities.WorkerPrefix {
	return h.prefix
}

// SetSelf records the worker's own user id once the gateway reports it
func (h *Handler) SetSelf(id snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selfID = id
}

func (h *Handler) self() snowflake.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selfID
}

func (h *Handler) fields(guildID snowflake.ID) log.Fields {
	return log.Fields{
		"prefix":   h.prefix,
		"index":    h.index,
		"guild_id": guildID,
	}
}

// Reconcile drops every binding this worker held before it started. A fresh
// process holds no voice connections. Only the first successful call
// releases anything: a gateway reconnect fires Ready again while bindings
// made since startup are still live.
func (h *Handler) Reconcile(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reconciled {
		return nil
	}

	released, err := h.assignment.ReleaseAllForWorker(ctx, h.prefix)
	if err != nil {
		return err
	}
	h.reconciled = true

	log.WithFields(log.Fields{
		"prefix":   h.prefix,
		"released": released,
	}).Info("Reconciled worker bindings")
	return nil
}

// HandleMessage gates and executes one relay message
func (h *Handler) HandleMessage(ctx context.Context, msg Message) {
	if msg.IsDirect() {
		return
	}
	if self := h.self(); self != 0 && msg.AuthorID == self {
		return
	}

	instruction, ok, err := h.admission.AdmitRelay(ctx, msg.GuildID, msg.ChannelID, h.prefix, msg.Content)
	if err != nil {
		log.WithFields(h.fields(msg.GuildID)).WithError(err).Warn("Ignoring relay message")
		return
	}
	if !ok {
		return
	}

	h.execute(ctx, msg.GuildID, instruction)
}

func (h *Handler) execute(ctx context.Context, guildID snowflake.ID, instruction relay.Instruction) {
	fields := h.fields(guildID)
	fields["command"] = instruction.Command

	var err error
	switch instruction.Command {
	case relay.CommandJoin:
		h.join(ctx, guildID, instruction.Argument)
		return
	case relay.CommandLeave:
		err = h.leave(guildID)
	case relay.CommandPlay:
		err = h.media.Enqueue(ctx, guildID, Source(instruction.Argument))
	case relay.CommandPause:
		err = h.media.Pause(guildID)
	case relay.CommandResume:
		err = h.media.Resume(guildID)
	case relay.CommandSkip:
		err = h.media.Skip(guildID)
	case relay.CommandStop:
		err = h.media.Stop(guildID)
	default:
		log.WithFields(fields).Warn("Unknown relay command")
		return
	}

	if err != nil {
		log.WithFields(fields).WithError(err).Error("Media engine failed")
		return
	}
	log.WithFields(fields).Info("Executed relay instruction")
}

func (h *Handler) join(ctx context.Context, guildID snowflake.ID, argument string) {
	fields := h.fields(guildID)

	channelID, err := snowflake.Parse(argument)
	if err != nil || channelID == 0 {
		log.WithFields(fields).WithField("argument", argument).Warn("Malformed join destination")
		return
	}

	h.mu.Lock()
	if _, ok := h.joined[guildID]; ok {
		// Moving channels disconnects from the old one first
		h.expected[guildID]++
	}
	h.joined[guildID] = channelID
	h.mu.Unlock()

	if err := h.media.Join(ctx, guildID, channelID); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to join voice channel")
		h.mu.Lock()
		delete(h.joined, guildID)
		h.mu.Unlock()
		if _, err := h.assignment.ReleaseWorker(ctx, guildID, h.prefix); err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to release worker after join failure")
		}
		return
	}

	log.WithFields(fields).WithField("channel_id", channelID).Info("Joined voice channel")
}

func (h *Handler) leave(guildID snowflake.ID) error {
	h.mu.Lock()
	if _, ok := h.joined[guildID]; ok {
		delete(h.joined, guildID)
		h.expected[guildID]++
	}
	h.mu.Unlock()

	return h.media.Leave(guildID)
}

// HandleVoiceDisconnect reacts to the worker leaving voice in guildID. A
// disconnect the worker did not ask for frees its binding.
func (h *Handler) HandleVoiceDisconnect(ctx context.Context, guildID snowflake.ID) {
	h.mu.Lock()
	if h.expected[guildID] > 0 {
		h.expected[guildID]--
		if h.expected[guildID] == 0 {
			delete(h.expected, guildID)
		}
		h.mu.Unlock()
		return
	}
	_, joined := h.joined[guildID]
	delete(h.joined, guildID)
	h.mu.Unlock()

	if !joined {
		return
	}

	fields := h.fields(guildID)
	log.WithFields(fields).Warn("Disconnected from voice")

	if err := h.media.Leave(guildID); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to clean up player after disconnect")
	}
	if _, err := h.assignment.ReleaseWorker(ctx, guildID, h.prefix); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to release worker after disconnect")
	}
}

// Source converts an order into what the streamer resolves: locators pass
// through, queries become a search
func Source(order string) string {
	if relay.ClassifyOrder(order) == relay.OrderLocator {
		return order
	}
	return searchScheme + order
}
