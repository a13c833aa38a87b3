package services

import (
	"context"
	"fmt"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/domain/relay"

	"github.com/disgoorg/snowflake/v2"
)

// admissionService implements the AdmissionService interface
type admissionService struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(uowFactory interfaces.UnitOfWorkFactory) interfaces.AdmissionService {
	return &admissionService{
		uowFactory: uowFactory,
	}
}

// AdmitOrder accepts a music command only from the guild's order channel
func (s *admissionService) AdmitOrder(ctx context.Context, guildID, channelID snowflake.ID) error {
	settings, err := s.settings(ctx, guildID)
	if err != nil {
		return err
	}

	if settings == nil || !settings.IsMusicOrderChannel(channelID) {
		return ErrWrongChannel
	}

	return nil
}

// AdmitRelay accepts an instruction only from the guild's relay channel and
// only when it is addressed to prefix
func (s *admissionService) AdmitRelay(ctx context.Context, guildID, channelID snowflake.ID, prefix entities.WorkerPrefix, text string) (relay.Instruction, bool, error) {
	// Exact token match, so "music1" never accepts "music10"
	if relay.FirstToken(text) != prefix.String() {
		return relay.Instruction{}, false, nil
	}

	settings, err := s.settings(ctx, guildID)
	if err != nil {
		return relay.Instruction{}, false, err
	}
	if settings == nil || !settings.IsMusicLogChannel(channelID) {
		return relay.Instruction{}, false, nil
	}

	instruction, err := relay.Parse(text)
	if err != nil {
		return relay.Instruction{}, false, fmt.Errorf("failed to parse relay instruction: %w", err)
	}

	return instruction, true, nil
}

func (s *admissionService) settings(ctx context.Context, guildID snowflake.ID) (*entities.Settings, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.SettingsRepository().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}
