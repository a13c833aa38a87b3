package repository

import (
	"context"
	"errors"
	"fmt"

	"warden/database"
	"warden/domain/interfaces"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	guildID                snowflake.ID
	transactionalPublisher interfaces.TransactionalEventPublisher
	guildRepo              interfaces.GuildRepository
	settingsRepo           interfaces.SettingsRepository
	workerRepo             interfaces.WorkerRepository
	leaseRepo              interfaces.LeaseRepository
	pendingRepo            interfaces.PendingRegistrationRepository
}

type unitOfWorkFactory struct {
	db        *database.DB
	publisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Events raised inside
// a unit of work reach publisher only after the transaction commits.
func NewUnitOfWorkFactory(db *database.DB, publisher interfaces.EventPublisher) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:        db,
		publisher: publisher,
	}
}

// CreateForGuild creates a new UnitOfWork scoped to guildID
func (f *unitOfWorkFactory) CreateForGuild(guildID snowflake.ID) interfaces.UnitOfWork {
	return f.CreateForGuildWithPublisher(guildID, events.NewTransactionalBus(f.publisher))
}

// Create creates a UnitOfWork for cross-guild queries
func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return f.CreateForGuild(0)
}

// CreateForGuildWithPublisher creates a new UnitOfWork with a specific transactional publisher
func (f *unitOfWorkFactory) CreateForGuildWithPublisher(guildID snowflake.ID, transactionalPublisher interfaces.TransactionalEventPublisher) interfaces.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		guildID:                guildID,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create guild-scoped repositories with the transaction
	u.guildRepo = NewGuildRepositoryScoped(tx, u.guildID)
	u.settingsRepo = NewSettingsRepositoryScoped(tx, u.guildID)
	u.workerRepo = NewWorkerRepositoryScoped(tx, u.guildID)
	u.leaseRepo = NewLeaseRepositoryScoped(tx, u.guildID)
	u.pendingRepo = NewPendingRegistrationRepositoryScoped(tx, u.guildID)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// GuildRepository returns the guild repository for this unit of work
func (u *unitOfWork) GuildRepository() interfaces.GuildRepository {
	if u.guildRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.guildRepo
}

// SettingsRepository returns the settings repository for this unit of work
func (u *unitOfWork) SettingsRepository() interfaces.SettingsRepository {
	if u.settingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingsRepo
}

// WorkerRepository returns the worker repository for this unit of work
func (u *unitOfWork) WorkerRepository() interfaces.WorkerRepository {
	if u.workerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.workerRepo
}

// LeaseRepository returns the lease repository for this unit of work
func (u *unitOfWork) LeaseRepository() interfaces.LeaseRepository {
	if u.leaseRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.leaseRepo
}

// PendingRegistrationRepository returns the pending registration repository for this unit of work
func (u *unitOfWork) PendingRegistrationRepository() interfaces.PendingRegistrationRepository {
	if u.pendingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pendingRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
