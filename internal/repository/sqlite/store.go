// Package sqlite is the single-file storage backend.
//
// The pool is pinned to one connection, so transactions run strictly one
// after another. That single writer is what serializes slot claims and
// provider publishes here; there are no row locks to take. A consequence is
// that code inside WithinTx must only touch storage through the Tx it was
// given, since a read through the Store would wait for the connection the
// transaction already holds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. Schema migrations are
// applied separately through the migrations package using DB().
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Slots() repository.SlotStore { return &slotRepo{q: s.db, now: s.now} }
func (s *Store) Appointments() repository.AppointmentStore {
	return &appointmentRepo{q: s.db, now: s.now}
}
func (s *Store) Providers() repository.ProviderStore { return &providerRepo{q: s.db, now: s.now} }
func (s *Store) Users() repository.UserStore         { return &userRepo{q: s.db, now: s.now} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	t := &tx{
		slots:        &slotRepo{q: sqlTx, now: s.now},
		appointments: &appointmentRepo{q: sqlTx, now: s.now},
		providers:    &providerRepo{q: sqlTx, now: s.now},
		claimed:      make(map[int64]bool),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type tx struct {
	slots        *slotRepo
	appointments *appointmentRepo
	providers    *providerRepo
	claimed      map[int64]bool
}

func (t *tx) LockProvider(ctx context.Context, providerID int64) (*model.Provider, error) {
	return t.providers.GetByID(ctx, providerID)
}

func (t *tx) FindOverlapping(ctx context.Context, providerID int64, start, end time.Time) (*model.Slot, error) {
	return t.slots.findOverlapping(ctx, providerID, start, end)
}

func (t *tx) CreateSlot(ctx context.Context, slot *model.Slot) error {
	return t.slots.create(ctx, slot)
}

func (t *tx) ClaimSlot(ctx context.Context, slotID int64) (*model.Slot, error) {
	slot, err := t.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		t.claimed[slotID] = true
	}
	return slot, nil
}

func (t *tx) MarkSlotBooked(ctx context.Context, slotID int64) error {
	if !t.claimed[slotID] {
		return repository.ErrClaimRequired
	}
	return t.slots.markBooked(ctx, slotID)
}

func (t *tx) CreateAppointment(ctx context.Context, appointment *model.Appointment) error {
	return t.appointments.create(ctx, appointment)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// isUniqueViolation matches a UNIQUE constraint failure on table.column.
func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return column == "" || strings.Contains(sqliteErr.Error(), column)
}
