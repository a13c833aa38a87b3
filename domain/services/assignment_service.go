package services

import (
	"context"
	"errors"
	"fmt"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/events"
	"warden/observability"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// assignmentService implements the AssignmentService interface
type assignmentService struct {
	uowFactory interfaces.UnitOfWorkFactory
	metrics    *observability.AssignmentMetrics
}

// NewAssignmentService creates a new worker assignment service
func NewAssignmentService(uowFactory interfaces.UnitOfWorkFactory) interfaces.AssignmentService {
	return &assignmentService{
		uowFactory: uowFactory,
		metrics:    observability.NewAssignmentMetrics(),
	}
}

// Acquire binds the first free worker of the guild to destination
func (s *assignmentService) Acquire(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error) {
	if destination == 0 {
		return nil, nil
	}

	prefix, outcome, err := s.acquire(ctx, guildID, destination)
	if err != nil {
		outcome = observability.OutcomeError
	}
	s.metrics.RecordOperation(ctx, observability.OperationAcquire, outcome)
	return prefix, err
}

func (s *assignmentService) acquire(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, string, error) {

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fields := log.Fields{
		"guild_id":    guildID,
		"destination": destination,
	}

	existing, err := uow.LeaseRepository().Get(ctx, destination)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get lease: %w", err)
	}
	if existing != nil {
		log.WithFields(fields).WithField("prefix", existing.WorkerPrefix).Debug("Destination already leased")
		return nil, observability.OutcomeLeased, nil
	}

	worker, err := uow.WorkerRepository().LockFirstUnbound(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to select free worker: %w", err)
	}
	if worker == nil {
		log.WithFields(fields).Info("No free worker for destination")
		return nil, observability.OutcomeBusy, nil
	}

	created, err := uow.LeaseRepository().TryCreate(ctx, destination, worker.Prefix)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create lease: %w", err)
	}
	if !created {
		// Another transaction leased the destination after our read
		log.WithFields(fields).Debug("Lost lease race")
		return nil, observability.OutcomeLostRace, nil
	}

	if err := uow.WorkerRepository().Bind(ctx, worker.Prefix, destination); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			log.WithFields(fields).Debug("Lost binding race")
			return nil, observability.OutcomeLostRace, nil
		}
		return nil, "", fmt.Errorf("failed to bind worker %s: %w", worker.Prefix, err)
	}

	if err := uow.EventBus().Publish(events.WorkerAcquiredEvent{
		GuildID:   guildID,
		ChannelID: destination,
		Prefix:    worker.Prefix.String(),
	}); err != nil {
		return nil, "", fmt.Errorf("failed to publish worker acquired event: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(fields).WithField("prefix", worker.Prefix).Info("Worker acquired")

	prefix := worker.Prefix
	return &prefix, observability.OutcomeAcquired, nil
}

// Release unbinds whichever worker serves destination
func (s *assignmentService) Release(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error) {
	if destination == 0 {
		return nil, nil
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	worker, err := uow.WorkerRepository().GetByChannel(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker for destination: %w", err)
	}
	if worker == nil {
		s.metrics.RecordOperation(ctx, observability.OperationRelease, observability.OutcomeUnbound)
		return nil, nil
	}

	if err := s.unbind(ctx, uow, guildID, worker, events.ReleaseReasonCommand); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.metrics.RecordOperation(ctx, observability.OperationRelease, observability.OutcomeReleased)
	s.metrics.RecordRelease(ctx, string(events.ReleaseReasonCommand))

	log.WithFields(log.Fields{
		"guild_id":    guildID,
		"destination": destination,
		"prefix":      worker.Prefix,
	}).Info("Worker released")

	prefix := worker.Prefix
	return &prefix, nil
}

// Lookup returns the worker serving destination
func (s *assignmentService) Lookup(ctx context.Context, guildID, destination snowflake.ID) (*entities.WorkerPrefix, error) {
	if destination == 0 {
		return nil, nil
	}

	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	worker, err := uow.WorkerRepository().GetByChannel(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker for destination: %w", err)
	}
	if worker == nil {
		return nil, nil
	}

	prefix := worker.Prefix
	return &prefix, nil
}

// ReleaseWorker clears the binding of one worker in a guild
func (s *assignmentService) ReleaseWorker(ctx context.Context, guildID snowflake.ID, prefix entities.WorkerPrefix) (bool, error) {
	return s.releaseWorker(ctx, guildID, prefix, events.ReleaseReasonDisconnect)
}

// ReleaseAllForWorker clears every binding held by prefix
func (s *assignmentService) ReleaseAllForWorker(ctx context.Context, prefix entities.WorkerPrefix) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	bound, err := uow.WorkerRepository().ListBoundByPrefix(ctx, prefix)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list bindings for worker %s: %w", prefix, err)
	}

	released := 0
	for _, worker := range bound {
		ok, err := s.releaseWorker(ctx, worker.GuildID, prefix, events.ReleaseReasonRestart)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}

	if released > 0 {
		log.WithFields(log.Fields{
			"prefix":   prefix,
			"released": released,
		}).Info("Released stale worker bindings")
	}

	return released, nil
}

func (s *assignmentService) releaseWorker(ctx context.Context, guildID snowflake.ID, prefix entities.WorkerPrefix, reason events.ReleaseReason) (bool, error) {
	uow := s.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	worker, err := uow.WorkerRepository().GetByPrefix(ctx, prefix)
	if err != nil {
		return false, fmt.Errorf("failed to get worker %s: %w", prefix, err)
	}
	if worker == nil || !worker.IsBound() {
		s.metrics.RecordOperation(ctx, observability.OperationReleaseWorker, observability.OutcomeUnbound)
		return false, nil
	}

	if err := s.unbind(ctx, uow, guildID, worker, reason); err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.metrics.RecordOperation(ctx, observability.OperationReleaseWorker, observability.OutcomeReleased)
	s.metrics.RecordRelease(ctx, string(reason))

	return true, nil
}

// unbind deletes the lease and clears the binding inside the caller's transaction
func (s *assignmentService) unbind(ctx context.Context, uow interfaces.UnitOfWork, guildID snowflake.ID, worker *entities.Worker, reason events.ReleaseReason) error {
	destination := *worker.ChannelID

	if _, err := uow.LeaseRepository().Delete(ctx, destination); err != nil {
		return fmt.Errorf("failed to delete lease: %w", err)
	}

	if err := uow.WorkerRepository().Unbind(ctx, worker.Prefix); err != nil {
		return fmt.Errorf("failed to unbind worker %s: %w", worker.Prefix, err)
	}

	if err := uow.EventBus().Publish(events.WorkerReleasedEvent{
		GuildID:   guildID,
		ChannelID: destination,
		Prefix:    worker.Prefix.String(),
		Reason:    reason,
	}); err != nil {
		return fmt.Errorf("failed to publish worker released event: %w", err)
	}

	return nil
}
