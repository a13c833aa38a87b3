package services

import (
	"context"
	"fmt"

	"warden/domain/entities"
	"warden/domain/interfaces"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// guildSettingsService implements the GuildSettingsService interface
type guildSettingsService struct {
	uowFactory interfaces.UnitOfWorkFactory
	transport  interfaces.ChatTransport
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(uowFactory interfaces.UnitOfWorkFactory, transport interfaces.ChatTransport) interfaces.GuildSettingsService {
	return &guildSettingsService{
		uowFactory: uowFactory,
		transport:  transport,
	}
}

// GetSettings returns the guild's settings
func (s *guildSettingsService) GetSettings(ctx context.Context, guildID snowflake.ID) (*entities.Settings, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil {
		return nil, ErrGuildNotRegistered
	}

	return settings, nil
}

// ListWorkers returns the guild's worker pool with current bindings
func (s *guildSettingsService) ListWorkers(ctx context.Context, guildID snowflake.ID) ([]*entities.Worker, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	workers, err := uow.WorkerRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

// SetSetting replaces one settings field after checking the referenced channel or role
func (s *guildSettingsService) SetSetting(ctx context.Context, guildID snowflake.ID, field entities.SettingField, id snowflake.ID) error {
	if id == 0 {
		return ErrInvalidReference
	}

	if field.IsRole() {
		ok, err := s.transport.RoleInGuild(guildID, id)
		if err != nil {
			return fmt.Errorf("failed to resolve role %s: %w", id, err)
		}
		if !ok {
			return ErrUnknownRole
		}
	} else {
		ok, err := s.transport.ChannelInGuild(guildID, id)
		if err != nil {
			return fmt.Errorf("failed to resolve channel %s: %w", id, err)
		}
		if !ok {
			return ErrUnknownChannel
		}
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	if settings == nil {
		return ErrGuildNotRegistered
	}

	settings.Set(field, &id)

	if err := uow.SettingsRepository().Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"field":    field,
		"value":    id,
	}).Info("Guild setting updated")

	return nil
}
