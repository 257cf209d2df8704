package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

var (
	// ErrSlotTaken is returned when a slot is flipped to booked twice.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrDuplicateAppointment is the one-appointment-per-slot constraint firing.
	ErrDuplicateAppointment = errors.New("appointment for slot already exists")
	// ErrDuplicateProvider is the one-provider-per-party constraint firing.
	ErrDuplicateProvider = errors.New("provider for party already exists")
	// ErrClaimRequired means a slot was mutated without being claimed in the same transaction.
	ErrClaimRequired = errors.New("slot not claimed in this transaction")
)

// SlotStore is the read side of the slot table.
type SlotStore interface {
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	// List returns slots ordered by start; nil providerID means all providers,
	// zero from/to leave that side unbounded.
	List(ctx context.Context, providerID *int64, from, to time.Time) ([]*model.Slot, error)
	// ListFree returns unbooked slots matching the filter ordered by start, then id.
	ListFree(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error)
}

type AppointmentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetBySlotID(ctx context.Context, slotID int64) (*model.Appointment, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]*model.Appointment, error)
	ListByProvider(ctx context.Context, providerID int64) ([]*model.Appointment, error)
}

type ProviderStore interface {
	Create(ctx context.Context, provider *model.Provider) error
	GetByID(ctx context.Context, id int64) (*model.Provider, error)
	GetByPartyID(ctx context.Context, partyID int64) (*model.Provider, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Provider, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// Tx is the write side. Everything done through one Tx commits or rolls back together.
type Tx interface {
	// LockProvider serializes slot publishing for one provider until the
	// transaction ends. Returns nil when the provider does not exist.
	LockProvider(ctx context.Context, providerID int64) (*model.Provider, error)
	FindOverlapping(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error)
	CreateSlot(ctx context.Context, slot *model.Slot) error

	// ClaimSlot takes the exclusive per-slot claim and returns the slot as seen
	// under that claim. Returns nil when the slot does not exist.
	ClaimSlot(ctx context.Context, slotID int64) (*model.Slot, error)
	MarkSlotBooked(ctx context.Context, slotID int64) error
	CreateAppointment(ctx context.Context, appointment *model.Appointment) error
}

type Transactor interface {
	// WithinTx runs fn in a transaction. fn returning an error rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store bundles one storage backend.
type Store interface {
	Transactor
	Slots() SlotStore
	Appointments() AppointmentStore
	Providers() ProviderStore
	Users() UserStore
	Close() error
}
