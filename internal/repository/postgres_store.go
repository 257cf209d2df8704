package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore wires the pgx repositories to one pool.
type PostgresStore struct {
	pool         *pgxpool.Pool
	slots        *SlotRepository
	appointments *AppointmentRepository
	providers    *ProviderRepository
	users        *UserRepository
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		slots:        NewSlotRepository(pool),
		appointments: NewAppointmentRepository(pool),
		providers:    NewProviderRepository(pool),
		users:        NewUserRepository(pool),
	}
}

func (s *PostgresStore) Slots() SlotStore               { return s.slots }
func (s *PostgresStore) Appointments() AppointmentStore { return s.appointments }
func (s *PostgresStore) Providers() ProviderStore       { return s.providers }
func (s *PostgresStore) Users() UserStore               { return s.users }

// Close закрывает пул
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken through the
// Tx (FOR UPDATE) are what make concurrent bookings of one slot serialize:
// the second locker waits, then re-reads the committed is_booked = TRUE.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// после Commit это no-op
	defer tx.Rollback(ctx)

	if err := fn(ctx, newPgTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type pgTx struct {
	slots        *SlotRepository
	appointments *AppointmentRepository
	providers    *ProviderRepository
	claimed      map[int64]bool
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		slots:        NewSlotRepository(tx),
		appointments: NewAppointmentRepository(tx),
		providers:    NewProviderRepository(tx),
		claimed:      make(map[int64]bool),
	}
}

func (t *pgTx) LockProvider(ctx context.Context, providerID int64) (*model.Provider, error) {
	return t.providers.GetByIDForUpdate(ctx, providerID)
}

func (t *pgTx) FindOverlapping(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	return t.slots.FindOverlapping(ctx, providerID, start, end)
}

func (t *pgTx) CreateSlot(ctx context.Context, slot *model.Slot) error {
	return t.slots.Create(ctx, slot)
}

func (t *pgTx) ClaimSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	slot, err := t.slots.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		t.claimed[slotID] = true
	}
	return slot, nil
}

func (t *pgTx) MarkSlotBooked(ctx context.Context, slotID int64) error {
	if !t.claimed[slotID] {
		return ErrClaimRequired
	}
	return t.slots.MarkBooked(ctx, slotID)
}

func (t *pgTx) CreateAppointment(ctx context.Context, appointment *model.Appointment) error {
	return t.appointments.Create(ctx, appointment)
}
