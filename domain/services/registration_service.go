package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// registrationService implements the RegistrationService interface
type registrationService struct {
	uowFactory interfaces.UnitOfWorkFactory
	transport  interfaces.ChatTransport
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(uowFactory interfaces.UnitOfWorkFactory, transport interfaces.ChatTransport) interfaces.RegistrationService {
	return &registrationService{
		uowFactory: uowFactory,
		transport:  transport,
	}
}

// WelcomeMessage is the direct message sent to members joining a guild
func WelcomeMessage(guildName string) string {
	return fmt.Sprintf("Welcome to '%s' server!", guildName)
}

// RegisterGuild creates settings, the guild row and the worker pool in one
// transaction. A guild registered earlier only has its pool brought in line
// with prefixes and reports false.
func (s *registrationService) RegisterGuild(ctx context.Context, guildID snowflake.ID, prefixes []entities.WorkerPrefix) (bool, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.GuildRepository().Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get guild: %w", err)
	}
	created := existing == nil

	if created {
		settings, err := uow.SettingsRepository().Create(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to create settings: %w", err)
		}

		if _, err := uow.GuildRepository().Create(ctx, settings.ID); err != nil {
			if errors.Is(err, interfaces.ErrConflict) {
				// A concurrent join registered the guild first
				return false, nil
			}
			return false, fmt.Errorf("failed to create guild: %w", err)
		}
	}

	added, removed, err := uow.WorkerRepository().SyncPool(ctx, prefixes)
	if err != nil {
		return false, fmt.Errorf("failed to sync worker pool: %w", err)
	}

	if created {
		if err := uow.EventBus().Publish(events.GuildRegisteredEvent{
			GuildID:     guildID,
			WorkerCount: len(prefixes),
		}); err != nil {
			return false, fmt.Errorf("failed to publish guild registered event: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	fields := log.Fields{
		"guild_id": guildID,
		"workers":  len(prefixes),
	}
	switch {
	case created:
		log.WithFields(fields).Info("Guild registered")
	case added > 0 || removed > 0:
		log.WithFields(fields).WithFields(log.Fields{
			"added":   added,
			"removed": removed,
		}).Info("Worker pool synced")
	}

	return created, nil
}

// UnregisterGuild deletes the guild's settings, cascading to everything it owns
func (s *registrationService) UnregisterGuild(ctx context.Context, guildID snowflake.ID) error {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.SettingsRepository().Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}

	if deleted {
		if err := uow.EventBus().Publish(events.GuildUnregisteredEvent{GuildID: guildID}); err != nil {
			return fmt.Errorf("failed to publish guild unregistered event: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"deleted":  deleted,
	}).Info("Guild unregistered")

	return nil
}

// PruneGuilds unregisters every stored guild missing from present, the
// guilds the bot still belongs to. Guilds left while the bot was offline
// never deliver a leave event.
func (s *registrationService) PruneGuilds(ctx context.Context, present []snowflake.ID) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stored, err := uow.GuildRepository().ListIDs(ctx)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list guilds: %w", err)
	}

	keep := make(map[snowflake.ID]struct{}, len(present))
	for _, id := range present {
		keep[id] = struct{}{}
	}

	pruned := 0
	for _, id := range stored {
		if _, ok := keep[id]; ok {
			continue
		}
		if err := s.UnregisterGuild(ctx, id); err != nil {
			return pruned, err
		}
		pruned++
	}

	if pruned > 0 {
		log.WithField("pruned", pruned).Info("Pruned guilds the bot no longer belongs to")
	}
	return pruned, nil
}

// WelcomeMember greets the member by DM and falls back to direct registration
func (s *registrationService) WelcomeMember(ctx context.Context, guildID snowflake.ID, member *entities.Member) (entities.WelcomeOutcome, error) {
	fields := log.Fields{
		"guild_id": guildID,
		"user_id":  member.UserID,
	}

	guildName, err := s.transport.GuildName(guildID)
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to resolve guild name")
		guildName = guildID.String()
	}

	dmErr := s.transport.SendDirectMessage(member.UserID, WelcomeMessage(guildName))
	if dmErr == nil {
		return entities.WelcomeDirectMessage, nil
	}
	log.WithFields(fields).WithError(dmErr).Info("Welcome message could not be delivered")

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return entities.WelcomeDirectMessage, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return entities.WelcomeDirectMessage, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		return entities.WelcomeDirectMessage, ErrGuildNotRegistered
	}

	if settings.HasMemberRole() {
		// Nothing to persist on this path
		uow.Rollback()

		roles := member.WithRole(*settings.MemberRoleID)
		if err := s.transport.EditMember(guildID, member.UserID, roles, entities.ProvisionalNickname(member.Username)); err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to grant member role")
		}
		return entities.WelcomeRoleGranted, nil
	}

	created, err := uow.PendingRegistrationRepository().Create(ctx, member.UserID)
	if err != nil {
		return entities.WelcomeDirectMessage, fmt.Errorf("failed to create pending registration: %w", err)
	}

	if created {
		if err := uow.EventBus().Publish(events.RegistrationPendingEvent{
			GuildID: guildID,
			UserID:  member.UserID,
		}); err != nil {
			return entities.WelcomeDirectMessage, fmt.Errorf("failed to publish registration pending event: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return entities.WelcomeDirectMessage, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entities.WelcomePending, nil
}

// CompleteRegistration consumes every pending registration of userID
func (s *registrationService) CompleteRegistration(ctx context.Context, userID snowflake.ID, displayName string) (int, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return 0, ErrEmptyDisplayName
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pending, err := uow.PendingRegistrationRepository().ListByUser(ctx, userID)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list pending registrations: %w", err)
	}

	completed := 0
	for _, p := range pending {
		ok, err := s.completeInGuild(ctx, p.GuildID, userID, displayName)
		if err != nil {
			return completed, err
		}
		if ok {
			completed++
		}
	}

	return completed, nil
}

func (s *registrationService) completeInGuild(ctx context.Context, guildID, userID snowflake.ID, displayName string) (bool, error) {
	fields := log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
	}

	// Resolve the member before consuming the record so the nickname can be built
	member, err := s.transport.Member(guildID, userID)
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to fetch member for registration")
		member = nil
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		return false, nil
	}

	deleted, err := uow.PendingRegistrationRepository().Delete(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending registration: %w", err)
	}
	if !deleted {
		// Consumed concurrently
		return false, nil
	}

	nickname := displayName
	if member != nil {
		nickname = entities.RegisteredNickname(displayName, member.Username)
	}

	if err := uow.EventBus().Publish(events.MemberRegisteredEvent{
		GuildID:  guildID,
		UserID:   userID,
		Nickname: nickname,
	}); err != nil {
		return false, fmt.Errorf("failed to publish member registered event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if member == nil {
		return true, nil
	}

	roles := member.Roles
	if settings.HasMemberRole() {
		roles = member.WithRole(*settings.MemberRoleID)
	}
	if err := s.transport.EditMember(guildID, userID, roles, nickname); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to apply member role and nickname")
	}

	return true, nil
}

// ExpirePendingRegistrations removes records created before cutoff
func (s *registrationService) ExpirePendingRegistrations(ctx context.Context, cutoff time.Time) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	removed, err := uow.PendingRegistrationRepository().DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending registrations: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return removed, nil
}
