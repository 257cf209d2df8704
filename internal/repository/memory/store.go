// Package memory is a process-local storage backend. It honours the same
// transaction contract as the SQL backends: per-slot claims are keyed locks
// held until the transaction ends, and writes become visible only on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

type Option func(*Store)

// WithClock overrides the clock used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCommitHook runs hook right before a transaction's writes are applied.
// A non-nil error aborts the commit and nothing is written.
func WithCommitHook(hook func() error) Option {
	return func(s *Store) { s.commitHook = hook }
}

type Store struct {
	mu                sync.RWMutex
	slots             map[int64]*model.Slot
	appointments      map[int64]*model.Appointment
	appointmentBySlot map[int64]int64
	providers         map[int64]*model.Provider
	providerByParty   map[int64]int64
	users             map[int64]*model.User
	userByTelegram    map[int64]int64

	slotSeq        int64
	appointmentSeq int64
	providerSeq    int64
	userSeq        int64

	slotClaims    keyedMutex
	providerLocks keyedMutex

	now        func() time.Time
	commitHook func() error
}

func New(opts ...Option) *Store {
	s := &Store{
		slots:             make(map[int64]*model.Slot),
		appointments:      make(map[int64]*model.Appointment),
		appointmentBySlot: make(map[int64]int64),
		providers:         make(map[int64]*model.Provider),
		providerByParty:   make(map[int64]int64),
		users:             make(map[int64]*model.User),
		userByTelegram:    make(map[int64]int64),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Slots() repository.SlotStore               { return slotView{s} }
func (s *Store) Appointments() repository.AppointmentStore { return appointmentView{s} }
func (s *Store) Providers() repository.ProviderStore       { return providerView{s} }
func (s *Store) Users() repository.UserStore               { return userView{s} }

func (s *Store) Close() error { return nil }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := &tx{
		s:       s,
		claimed: make(map[int64]*model.Slot),
		locked:  make(map[int64]bool),
	}
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.commit()
}

type tx struct {
	s        *Store
	releases []func()

	claimed map[int64]*model.Slot
	locked  map[int64]bool

	newSlots        []*model.Slot
	booked          []int64
	newAppointments []*model.Appointment
}

func (t *tx) LockProvider(ctx context.Context, providerID int64) (*model.Provider, error) {
	if !t.locked[providerID] {
		unlock, err := t.s.providerLocks.lock(ctx, providerID)
		if err != nil {
			return nil, fmt.Errorf("lock provider: %w", err)
		}
		t.releases = append(t.releases, unlock)
		t.locked[providerID] = true
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.providers[providerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (t *tx) FindOverlapping(_ context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	t.s.mu.RLock()
	candidates := make([]*model.Slot, 0, len(t.newSlots))
	for _, slot := range t.s.slots {
		if slot.ProviderID == providerID && slot.Overlaps(start, end) {
			candidates = append(candidates, slot)
		}
	}
	t.s.mu.RUnlock()

	for _, slot := range t.newSlots {
		if slot.ProviderID == providerID && slot.Overlaps(start, end) {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sortSlots(candidates)
	cp := *candidates[0]
	return &cp, nil
}

func (t *tx) CreateSlot(_ context.Context, slot *model.Slot) error {
	t.s.mu.Lock()
	t.s.slotSeq++
	slot.ID = t.s.slotSeq
	t.s.mu.Unlock()

	slot.CreatedAt = t.s.now()
	cp := *slot
	t.newSlots = append(t.newSlots, &cp)
	return nil
}

func (t *tx) ClaimSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	if slot, ok := t.claimed[slotID]; ok {
		cp := *slot
		return &cp, nil
	}

	unlock, err := t.s.slotClaims.lock(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	t.releases = append(t.releases, unlock)

	t.s.mu.RLock()
	slot, ok := t.s.slots[slotID]
	var snapshot model.Slot
	if ok {
		snapshot = *slot
	}
	t.s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	t.claimed[slotID] = &snapshot
	cp := snapshot
	return &cp, nil
}

func (t *tx) MarkSlotBooked(_ context.Context, slotID int64) error {
	slot, ok := t.claimed[slotID]
	if !ok {
		return repository.ErrClaimRequired
	}
	if slot.Booked {
		return repository.ErrSlotTaken
	}
	slot.Booked = true
	t.booked = append(t.booked, slotID)
	return nil
}

func (t *tx) CreateAppointment(_ context.Context, appointment *model.Appointment) error {
	for _, pending := range t.newAppointments {
		if pending.SlotID == appointment.SlotID {
			return repository.ErrDuplicateAppointment
		}
	}

	t.s.mu.Lock()
	if _, exists := t.s.appointmentBySlot[appointment.SlotID]; exists {
		t.s.mu.Unlock()
		return repository.ErrDuplicateAppointment
	}
	t.s.appointmentSeq++
	appointment.ID = t.s.appointmentSeq
	t.s.mu.Unlock()

	appointment.CreatedAt = t.s.now()
	cp := *appointment
	t.newAppointments = append(t.newAppointments, &cp)
	return nil
}

func (t *tx) commit() error {
	if t.s.commitHook != nil {
		if err := t.s.commitHook(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	// validate everything before touching state so a failed commit writes nothing
	for _, id := range t.booked {
		slot, ok := t.s.slots[id]
		if !ok {
			return fmt.Errorf("commit transaction: slot %d vanished", id)
		}
		if slot.Booked {
			return repository.ErrSlotTaken
		}
	}
	for _, a := range t.newAppointments {
		if _, exists := t.s.appointmentBySlot[a.SlotID]; exists {
			return repository.ErrDuplicateAppointment
		}
	}

	for _, slot := range t.newSlots {
		t.s.slots[slot.ID] = slot
	}
	for _, id := range t.booked {
		t.s.slots[id].Booked = true
	}
	for _, a := range t.newAppointments {
		t.s.appointments[a.ID] = a
		t.s.appointmentBySlot[a.SlotID] = a.ID
	}
	return nil
}

// release drops every claim and provider lock, newest first.
func (t *tx) release() {
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
	t.releases = nil
}

type slotView struct{ s *Store }

func (v slotView) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	slot, ok := v.s.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (v slotView) List(_ context.Context, providerID *int64, from, to time.Time) ([]*model.Slot, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var out []*model.Slot
	for _, slot := range v.s.slots {
		if providerID != nil && slot.ProviderID != *providerID {
			continue
		}
		if !from.IsZero() && slot.Start.Before(from) {
			continue
		}
		if !to.IsZero() && slot.Start.After(to) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sortSlots(out)
	return out, nil
}

func (v slotView) ListFree(_ context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	serviceType := strings.ToLower(filter.ServiceType)

	var out []*model.Slot
	for _, slot := range v.s.slots {
		if slot.Booked || slot.Start.Before(filter.From) || slot.Start.After(filter.To) {
			continue
		}
		provider, ok := v.s.providers[slot.ProviderID]
		if !ok {
			continue
		}
		switch {
		case filter.ProviderID != nil:
			if slot.ProviderID != *filter.ProviderID {
				continue
			}
		case serviceType != "":
			if !strings.Contains(strings.ToLower(provider.ServiceType), serviceType) {
				continue
			}
		}
		cp := *slot
		out = append(out, &cp)
	}
	sortSlots(out)
	return out, nil
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].ID < slots[j].ID
	})
}

type appointmentView struct{ s *Store }

func (v appointmentView) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	a, ok := v.s.appointments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (v appointmentView) GetBySlotID(_ context.Context, slotID int64) (*model.Appointment, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	id, ok := v.s.appointmentBySlot[slotID]
	if !ok {
		return nil, nil
	}
	cp := *v.s.appointments[id]
	return &cp, nil
}

func (v appointmentView) ListByRequester(_ context.Context, requesterID int64) ([]*model.Appointment, error) {
	return v.filter(func(a *model.Appointment) bool { return a.RequesterID == requesterID }), nil
}

func (v appointmentView) ListByProvider(_ context.Context, providerID int64) ([]*model.Appointment, error) {
	return v.filter(func(a *model.Appointment) bool { return a.ProviderID == providerID }), nil
}

func (v appointmentView) filter(keep func(*model.Appointment) bool) []*model.Appointment {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var out []*model.Appointment
	for _, a := range v.s.appointments {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type providerView struct{ s *Store }

func (v providerView) Create(_ context.Context, provider *model.Provider) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, exists := v.s.providerByParty[provider.PartyID]; exists {
		return repository.ErrDuplicateProvider
	}
	v.s.providerSeq++
	provider.ID = v.s.providerSeq
	provider.CreatedAt = v.s.now()

	cp := *provider
	v.s.providers[cp.ID] = &cp
	v.s.providerByParty[cp.PartyID] = cp.ID
	return nil
}

func (v providerView) GetByID(_ context.Context, id int64) (*model.Provider, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	p, ok := v.s.providers[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (v providerView) GetByPartyID(_ context.Context, partyID int64) (*model.Provider, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	id, ok := v.s.providerByParty[partyID]
	if !ok {
		return nil, nil
	}
	cp := *v.s.providers[id]
	return &cp, nil
}

func (v providerView) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.Provider, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	out := make(map[int64]*model.Provider, len(ids))
	for _, id := range ids {
		if p, ok := v.s.providers[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type userView struct{ s *Store }

func (v userView) Create(_ context.Context, user *model.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if user.TelegramID != 0 {
		if _, exists := v.s.userByTelegram[user.TelegramID]; exists {
			return fmt.Errorf("create user: telegram id %d already registered", user.TelegramID)
		}
	}
	v.s.userSeq++
	user.ID = v.s.userSeq
	user.CreatedAt = v.s.now()

	cp := *user
	v.s.users[cp.ID] = &cp
	if cp.TelegramID != 0 {
		v.s.userByTelegram[cp.TelegramID] = cp.ID
	}
	return nil
}

func (v userView) Update(_ context.Context, user *model.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	existing, ok := v.s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	existing.Username = user.Username
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.LanguageCode = user.LanguageCode
	return nil
}

func (v userView) GetByID(_ context.Context, id int64) (*model.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	u, ok := v.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (v userView) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	id, ok := v.s.userByTelegram[telegramID]
	if !ok {
		return nil, nil
	}
	cp := *v.s.users[id]
	return &cp, nil
}
