package testhelpers

import (
	"context"
	"time"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/mock"
)

// MockGuildRepository is a mock implementation of GuildRepository
type MockGuildRepository struct {
	mock.Mock
}

func (m *MockGuildRepository) Get(ctx context.Context) (*entities.Guild, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Guild), args.Error(1)
}

func (m *MockGuildRepository) Create(ctx context.Context, settingsID int64) (*entities.Guild, error) {
	args := m.Called(ctx, settingsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Guild), args.Error(1)
}

func (m *MockGuildRepository) ListIDs(ctx context.Context) ([]snowflake.ID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]snowflake.ID), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Create(ctx context.Context) (*entities.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*entities.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settings), args.Error(1)
}

func (m *MockSettingsRepository) Update(ctx context.Context, settings *entities.Settings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsRepository) Delete(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockWorkerRepository is a mock implementation of WorkerRepository
type MockWorkerRepository struct {
	mock.Mock
}

func (m *MockWorkerRepository) SyncPool(ctx context.Context, prefixes []entities.WorkerPrefix) (int, int, error) {
	args := m.Called(ctx, prefixes)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockWorkerRepository) List(ctx context.Context) ([]*entities.Worker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Worker), args.Error(1)
}

func (m *MockWorkerRepository) GetByChannel(ctx context.Context, channelID snowflake.ID) (*entities.Worker, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Worker), args.Error(1)
}

func (m *MockWorkerRepository) GetByPrefix(ctx context.Context, prefix entities.WorkerPrefix) (*entities.Worker, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Worker), args.Error(1)
}

func (m *MockWorkerRepository) LockFirstUnbound(ctx context.Context) (*entities.Worker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Worker), args.Error(1)
}

func (m *MockWorkerRepository) Bind(ctx context.Context, prefix entities.WorkerPrefix, channelID snowflake.ID) error {
	args := m.Called(ctx, prefix, channelID)
	return args.Error(0)
}

func (m *MockWorkerRepository) Unbind(ctx context.Context, prefix entities.WorkerPrefix) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *MockWorkerRepository) ListBoundByPrefix(ctx context.Context, prefix entities.WorkerPrefix) ([]*entities.Worker, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Worker), args.Error(1)
}

// MockLeaseRepository is a mock implementation of LeaseRepository
type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) TryCreate(ctx context.Context, channelID snowflake.ID, prefix entities.WorkerPrefix) (bool, error) {
	args := m.Called(ctx, channelID, prefix)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeaseRepository) Get(ctx context.Context, channelID snowflake.ID) (*entities.Lease, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Lease), args.Error(1)
}

func (m *MockLeaseRepository) Delete(ctx context.Context, channelID snowflake.ID) (bool, error) {
	args := m.Called(ctx, channelID)
	return args.Bool(0), args.Error(1)
}

// MockPendingRegistrationRepository is a mock implementation of PendingRegistrationRepository
type MockPendingRegistrationRepository struct {
	mock.Mock
}

func (m *MockPendingRegistrationRepository) Create(ctx context.Context, userID snowflake.ID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingRegistrationRepository) Delete(ctx context.Context, userID snowflake.ID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingRegistrationRepository) ListByUser(ctx context.Context, userID snowflake.ID) ([]*entities.PendingRegistration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PendingRegistration), args.Error(1)
}

func (m *MockPendingRegistrationRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork whose repository
// getters return the embedded mocks
type MockUnitOfWork struct {
	mock.Mock
	GuildRepo    *MockGuildRepository
	SettingsRepo *MockSettingsRepository
	WorkerRepo   *MockWorkerRepository
	LeaseRepo    *MockLeaseRepository
	PendingRepo  *MockPendingRegistrationRepository
	Publisher    *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work mock with fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		GuildRepo:    &MockGuildRepository{},
		SettingsRepo: &MockSettingsRepository{},
		WorkerRepo:   &MockWorkerRepository{},
		LeaseRepo:    &MockLeaseRepository{},
		PendingRepo:  &MockPendingRegistrationRepository{},
		Publisher:    &MockEventPublisher{},
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GuildRepository() interfaces.GuildRepository {
	return m.GuildRepo
}

func (m *MockUnitOfWork) SettingsRepository() interfaces.SettingsRepository {
	return m.SettingsRepo
}

func (m *MockUnitOfWork) WorkerRepository() interfaces.WorkerRepository {
	return m.WorkerRepo
}

func (m *MockUnitOfWork) LeaseRepository() interfaces.LeaseRepository {
	return m.LeaseRepo
}

func (m *MockUnitOfWork) PendingRegistrationRepository() interfaces.PendingRegistrationRepository {
	return m.PendingRepo
}

func (m *MockUnitOfWork) EventBus() interfaces.EventPublisher {
	return m.Publisher
}

// AssertAllExpectations verifies the unit of work and every repository mock
func (m *MockUnitOfWork) AssertAllExpectations(t mock.TestingT) {
	m.AssertExpectations(t)
	m.GuildRepo.AssertExpectations(t)
	m.SettingsRepo.AssertExpectations(t)
	m.WorkerRepo.AssertExpectations(t)
	m.LeaseRepo.AssertExpectations(t)
	m.PendingRepo.AssertExpectations(t)
	m.Publisher.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) CreateForGuild(guildID snowflake.ID) interfaces.UnitOfWork {
	args := m.Called(guildID)
	return args.Get(0).(interfaces.UnitOfWork)
}

func (m *MockUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	args := m.Called()
	return args.Get(0).(interfaces.UnitOfWork)
}
