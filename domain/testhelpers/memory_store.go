package testhelpers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"warden/domain/entities"
	"warden/domain/interfaces"
	"warden/events"

	"github.com/disgoorg/snowflake/v2"
)

// MemoryStore is an in-memory UnitOfWorkFactory with the same
// insert-if-absent and uniqueness rules as the PostgreSQL schema.
// Transactions are serialized: Begin takes the store lock and Commit or
// Rollback releases it.
type MemoryStore struct {
	txMu sync.Mutex
	data *memoryData

	publishedMu sync.Mutex
	published   []events.Event

	nextSettingsID int64
	Now            func() time.Time
}

type pendingKey struct {
	userID  snowflake.ID
	guildID snowflake.ID
}

type memoryData struct {
	guilds   map[snowflake.ID]entities.Guild
	settings map[int64]entities.Settings
	workers  map[snowflake.ID][]entities.Worker
	leases   map[snowflake.ID]entities.Lease
	pending  map[pendingKey]entities.PendingRegistration
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			guilds:   map[snowflake.ID]entities.Guild{},
			settings: map[int64]entities.Settings{},
			workers:  map[snowflake.ID][]entities.Worker{},
			leases:   map[snowflake.ID]entities.Lease{},
			pending:  map[pendingKey]entities.PendingRegistration{},
		},
		Now: time.Now,
	}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		guilds:   make(map[snowflake.ID]entities.Guild, len(d.guilds)),
		settings: make(map[int64]entities.Settings, len(d.settings)),
		workers:  make(map[snowflake.ID][]entities.Worker, len(d.workers)),
		leases:   make(map[snowflake.ID]entities.Lease, len(d.leases)),
		pending:  make(map[pendingKey]entities.PendingRegistration, len(d.pending)),
	}
	for k, v := range d.guilds {
		c.guilds[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = copySettings(v)
	}
	for k, ws := range d.workers {
		out := make([]entities.Worker, len(ws))
		for i, w := range ws {
			out[i] = copyWorker(w)
		}
		c.workers[k] = out
	}
	for k, v := range d.leases {
		c.leases[k] = v
	}
	for k, v := range d.pending {
		c.pending[k] = v
	}
	return c
}

func copyID(id *snowflake.ID) *snowflake.ID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copySettings(s entities.Settings) entities.Settings {
	s.LogChannelID = copyID(s.LogChannelID)
	s.ModerationChannelID = copyID(s.ModerationChannelID)
	s.MusicOrderChannelID = copyID(s.MusicOrderChannelID)
	s.MusicLogChannelID = copyID(s.MusicLogChannelID)
	s.MemberRoleID = copyID(s.MemberRoleID)
	return s
}

func copyWorker(w entities.Worker) entities.Worker {
	w.ChannelID = copyID(w.ChannelID)
	return w
}

// Publish records events flushed by committed units of work
func (s *MemoryStore) Publish(event events.Event) error {
	s.publishedMu.Lock()
	defer s.publishedMu.Unlock()
	s.published = append(s.published, event)
	return nil
}

// Published returns every event flushed so far
func (s *MemoryStore) Published() []events.Event {
	s.publishedMu.Lock()
	defer s.publishedMu.Unlock()
	out := make([]events.Event, len(s.published))
	copy(out, s.published)
	return out
}

// CreateForGuild creates a unit of work scoped to guildID
func (s *MemoryStore) CreateForGuild(guildID snowflake.ID) interfaces.UnitOfWork {
	return &memoryUnitOfWork{store: s, guildID: guildID}
}

// Create creates an unscoped unit of work
func (s *MemoryStore) Create() interfaces.UnitOfWork {
	return &memoryUnitOfWork{store: s}
}

// Workers returns a copy of the guild's worker rows ordered by position
func (s *MemoryStore) Workers(guildID snowflake.ID) []entities.Worker {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.data.clone().workers[guildID]
}

// Leases returns the guild's leases keyed by destination
func (s *MemoryStore) Leases(guildID snowflake.ID) map[snowflake.ID]entities.Lease {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	out := map[snowflake.ID]entities.Lease{}
	for k, v := range s.data.leases {
		if v.GuildID == guildID {
			out[k] = v
		}
	}
	return out
}

// Settings returns a copy of the guild's settings, or nil
func (s *MemoryStore) Settings(guildID snowflake.ID) *entities.Settings {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	g, ok := s.data.guilds[guildID]
	if !ok {
		return nil
	}
	settings := copySettings(s.data.settings[g.SettingsID])
	settings.GuildID = guildID
	return &settings
}

// PendingCount returns the number of pending registrations across all guilds
func (s *MemoryStore) PendingCount() int {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return len(s.data.pending)
}

// AgePending moves every pending registration's creation time back by d
func (s *MemoryStore) AgePending(d time.Duration) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	for k, p := range s.data.pending {
		p.CreatedAt = p.CreatedAt.Add(-d)
		s.data.pending[k] = p
	}
}

type memoryUnitOfWork struct {
	store   *MemoryStore
	guildID snowflake.ID
	tx      *memoryData
	bus     *events.TransactionalBus
	ctx     context.Context
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already started")
	}
	u.store.txMu.Lock()
	u.tx = u.store.data.clone()
	u.bus = events.NewTransactionalBus(u.store)
	u.ctx = ctx
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if u.tx == nil {
		return errors.New("no transaction to commit")
	}
	u.store.data = u.tx
	u.tx = nil
	u.store.txMu.Unlock()
	return u.bus.Flush(u.ctx)
}

func (u *memoryUnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	u.tx = nil
	u.store.txMu.Unlock()
	u.bus.Discard()
	return nil
}

func (u *memoryUnitOfWork) mustTx() *memoryData {
	if u.tx == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tx
}

func (u *memoryUnitOfWork) GuildRepository() interfaces.GuildRepository {
	return memoryGuildRepository{u}
}

func (u *memoryUnitOfWork) SettingsRepository() interfaces.SettingsRepository {
	return memorySettingsRepository{u}
}

func (u *memoryUnitOfWork) WorkerRepository() interfaces.WorkerRepository {
	return memoryWorkerRepository{u}
}

func (u *memoryUnitOfWork) LeaseRepository() interfaces.LeaseRepository {
	return memoryLeaseRepository{u}
}

func (u *memoryUnitOfWork) PendingRegistrationRepository() interfaces.PendingRegistrationRepository {
	return memoryPendingRepository{u}
}

func (u *memoryUnitOfWork) EventBus() interfaces.EventPublisher {
	u.mustTx()
	return u.bus
}

type memoryGuildRepository struct{ u *memoryUnitOfWork }

func (r memoryGuildRepository) Get(ctx context.Context) (*entities.Guild, error) {
	g, ok := r.u.mustTx().guilds[r.u.guildID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r memoryGuildRepository) Create(ctx context.Context, settingsID int64) (*entities.Guild, error) {
	tx := r.u.mustTx()
	if _, ok := tx.guilds[r.u.guildID]; ok {
		return nil, interfaces.ErrConflict
	}
	if _, ok := tx.settings[settingsID]; !ok {
		return nil, errors.New("settings row does not exist")
	}
	for _, g := range tx.guilds {
		if g.SettingsID == settingsID {
			return nil, interfaces.ErrConflict
		}
	}
	g := entities.Guild{DiscordID: r.u.guildID, SettingsID: settingsID, RegisteredAt: r.u.store.Now()}
	tx.guilds[r.u.guildID] = g
	return &g, nil
}

func (r memoryGuildRepository) ListIDs(ctx context.Context) ([]snowflake.ID, error) {
	tx := r.u.mustTx()
	ids := make([]snowflake.ID, 0, len(tx.guilds))
	for id := range tx.guilds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memorySettingsRepository struct{ u *memoryUnitOfWork }

func (r memorySettingsRepository) Create(ctx context.Context) (*entities.Settings, error) {
	tx := r.u.mustTx()
	r.u.store.nextSettingsID++
	s := entities.Settings{ID: r.u.store.nextSettingsID}
	tx.settings[s.ID] = s
	return &s, nil
}

func (r memorySettingsRepository) Get(ctx context.Context) (*entities.Settings, error) {
	tx := r.u.mustTx()
	g, ok := tx.guilds[r.u.guildID]
	if !ok {
		return nil, nil
	}
	s := copySettings(tx.settings[g.SettingsID])
	s.GuildID = r.u.guildID
	return &s, nil
}

func (r memorySettingsRepository) Update(ctx context.Context, settings *entities.Settings) error {
	tx := r.u.mustTx()
	if _, ok := tx.settings[settings.ID]; !ok {
		return errors.New("settings not found")
	}
	tx.settings[settings.ID] = copySettings(*settings)
	return nil
}

func (r memorySettingsRepository) Delete(ctx context.Context) (bool, error) {
	tx := r.u.mustTx()
	g, ok := tx.guilds[r.u.guildID]
	if !ok {
		return false, nil
	}
	delete(tx.settings, g.SettingsID)
	delete(tx.guilds, r.u.guildID)
	delete(tx.workers, r.u.guildID)
	for k, l := range tx.leases {
		if l.GuildID == r.u.guildID {
			delete(tx.leases, k)
		}
	}
	for k := range tx.pending {
		if k.guildID == r.u.guildID {
			delete(tx.pending, k)
		}
	}
	return true, nil
}

type memoryWorkerRepository struct{ u *memoryUnitOfWork }

func (r memoryWorkerRepository) SyncPool(ctx context.Context, prefixes []entities.WorkerPrefix) (int, int, error) {
	tx := r.u.mustTx()
	if _, ok := tx.guilds[r.u.guildID]; !ok {
		return 0, 0, errors.New("guild not found")
	}

	existing := make(map[entities.WorkerPrefix]entities.Worker)
	for _, w := range tx.workers[r.u.guildID] {
		existing[w.Prefix] = w
	}

	added := 0
	ws := make([]entities.Worker, 0, len(prefixes))
	for i, p := range prefixes {
		w, ok := existing[p]
		if !ok {
			w = entities.Worker{GuildID: r.u.guildID, Prefix: p}
			added++
		}
		delete(existing, p)
		w.Position = i
		ws = append(ws, w)
	}
	tx.workers[r.u.guildID] = ws

	for k, l := range tx.leases {
		if _, retired := existing[l.WorkerPrefix]; retired && l.GuildID == r.u.guildID {
			delete(tx.leases, k)
		}
	}

	return added, len(existing), nil
}

func (r memoryWorkerRepository) List(ctx context.Context) ([]*entities.Worker, error) {
	var out []*entities.Worker
	for _, w := range r.u.mustTx().workers[r.u.guildID] {
		w := copyWorker(w)
		out = append(out, &w)
	}
	return out, nil
}

func (r memoryWorkerRepository) GetByChannel(ctx context.Context, channelID snowflake.ID) (*entities.Worker, error) {
	for _, w := range r.u.mustTx().workers[r.u.guildID] {
		if w.ChannelID != nil && *w.ChannelID == channelID {
			w := copyWorker(w)
			return &w, nil
		}
	}
	return nil, nil
}

func (r memoryWorkerRepository) GetByPrefix(ctx context.Context, prefix entities.WorkerPrefix) (*entities.Worker, error) {
	for _, w := range r.u.mustTx().workers[r.u.guildID] {
		if w.Prefix == prefix {
			w := copyWorker(w)
			return &w, nil
		}
	}
	return nil, nil
}

func (r memoryWorkerRepository) LockFirstUnbound(ctx context.Context) (*entities.Worker, error) {
	for _, w := range r.u.mustTx().workers[r.u.guildID] {
		if w.ChannelID == nil {
			w := copyWorker(w)
			return &w, nil
		}
	}
	return nil, nil
}

func (r memoryWorkerRepository) Bind(ctx context.Context, prefix entities.WorkerPrefix, channelID snowflake.ID) error {
	ws := r.u.mustTx().workers[r.u.guildID]
	for _, w := range ws {
		if w.ChannelID != nil && *w.ChannelID == channelID && w.Prefix != prefix {
			return interfaces.ErrConflict
		}
	}
	for i := range ws {
		if ws[i].Prefix == prefix {
			id := channelID
			ws[i].ChannelID = &id
			return nil
		}
	}
	return errors.New("worker not found")
}

func (r memoryWorkerRepository) Unbind(ctx context.Context, prefix entities.WorkerPrefix) error {
	ws := r.u.mustTx().workers[r.u.guildID]
	for i := range ws {
		if ws[i].Prefix == prefix {
			ws[i].ChannelID = nil
		}
	}
	return nil
}

func (r memoryWorkerRepository) ListBoundByPrefix(ctx context.Context, prefix entities.WorkerPrefix) ([]*entities.Worker, error) {
	var out []*entities.Worker
	for _, ws := range r.u.mustTx().workers {
		for _, w := range ws {
			if w.Prefix == prefix && w.ChannelID != nil {
				w := copyWorker(w)
				out = append(out, &w)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

type memoryLeaseRepository struct{ u *memoryUnitOfWork }

func (r memoryLeaseRepository) TryCreate(ctx context.Context, channelID snowflake.ID, prefix entities.WorkerPrefix) (bool, error) {
	tx := r.u.mustTx()
	if _, ok := tx.leases[channelID]; ok {
		return false, nil
	}
	tx.leases[channelID] = entities.Lease{
		ChannelID:    channelID,
		GuildID:      r.u.guildID,
		WorkerPrefix: prefix,
		LeasedAt:     r.u.store.Now(),
	}
	return true, nil
}

func (r memoryLeaseRepository) Get(ctx context.Context, channelID snowflake.ID) (*entities.Lease, error) {
	l, ok := r.u.mustTx().leases[channelID]
	if !ok || l.GuildID != r.u.guildID {
		return nil, nil
	}
	return &l, nil
}

func (r memoryLeaseRepository) Delete(ctx context.Context, channelID snowflake.ID) (bool, error) {
	tx := r.u.mustTx()
	l, ok := tx.leases[channelID]
	if !ok || l.GuildID != r.u.guildID {
		return false, nil
	}
	delete(tx.leases, channelID)
	return true, nil
}

type memoryPendingRepository struct{ u *memoryUnitOfWork }

func (r memoryPendingRepository) Create(ctx context.Context, userID snowflake.ID) (bool, error) {
	tx := r.u.mustTx()
	if _, ok := tx.guilds[r.u.guildID]; !ok {
		return false, errors.New("guild not found")
	}
	key := pendingKey{userID: userID, guildID: r.u.guildID}
	if _, ok := tx.pending[key]; ok {
		return false, nil
	}
	tx.pending[key] = entities.PendingRegistration{UserID: userID, GuildID: r.u.guildID, CreatedAt: r.u.store.Now()}
	return true, nil
}

func (r memoryPendingRepository) Delete(ctx context.Context, userID snowflake.ID) (bool, error) {
	tx := r.u.mustTx()
	key := pendingKey{userID: userID, guildID: r.u.guildID}
	if _, ok := tx.pending[key]; !ok {
		return false, nil
	}
	delete(tx.pending, key)
	return true, nil
}

func (r memoryPendingRepository) ListByUser(ctx context.Context, userID snowflake.ID) ([]*entities.PendingRegistration, error) {
	var out []*entities.PendingRegistration
	for k, p := range r.u.mustTx().pending {
		if k.userID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

func (r memoryPendingRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.u.mustTx()
	var n int64
	for k, p := range tx.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(tx.pending, k)
			n++
		}
	}
	return n, nil
}
