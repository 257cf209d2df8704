package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/migrations"
)

var monday = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = migrations.Up(context.Background(), s.DB(), goose.DialectSQLite3)
	require.NoError(t, err)
	return s
}

func createProvider(t *testing.T, s *Store, partyID int64, serviceType string) *model.Provider {
	t.Helper()
	p := &model.Provider{PartyID: partyID, ServiceType: serviceType}
	require.NoError(t, s.Providers().Create(context.Background(), p))
	return p
}

func createSlot(t *testing.T, s *Store, providerID int64, start time.Time) *model.Slot {
	t.Helper()
	slot := &model.Slot{ProviderID: providerID, Start: start, End: start.Add(time.Hour)}
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateSlot(ctx, slot)
	})
	require.NoError(t, err)
	return slot
}

func TestStore_SlotRoundTrip(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	slot := createSlot(t, s, p.ID, monday)

	got, err := s.Slots().GetByID(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, monday.Equal(got.Start))
	assert.True(t, monday.Add(time.Hour).Equal(got.End))
	assert.False(t, got.Booked)
}

func TestStore_FindOverlappingIsHalfOpen(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	existing := createSlot(t, s, p.ID, monday)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		adjacent, err := tx.FindOverlapping(ctx, p.ID, monday.Add(time.Hour), monday.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, adjacent, "touching intervals do not overlap")

		conflict, err := tx.FindOverlapping(ctx, p.ID, monday.Add(-30*time.Minute), monday.Add(30*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, conflict)
		assert.Equal(t, existing.ID, conflict.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_BookingCommitsAtomically(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	slot := createSlot(t, s, p.ID, monday)
	ctx := context.Background()

	var appt *model.Appointment
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		claimed, err := tx.ClaimSlot(ctx, slot.ID)
		if err != nil {
			return err
		}
		if err := tx.MarkSlotBooked(ctx, slot.ID); err != nil {
			return err
		}
		appt = model.NewAppointment(42, claimed, model.UrgencyHigh)
		return tx.CreateAppointment(ctx, appt)
	})
	require.NoError(t, err)

	got, err := s.Appointments().GetBySlotID(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, model.UrgencyHigh, got.Urgency)
	assert.True(t, slot.Start.Equal(got.Start))

	booked, err := s.Slots().GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, booked.Booked)
}

func TestStore_RollbackLeavesSlotFree(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	slot := createSlot(t, s, p.ID, monday)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.ClaimSlot(ctx, slot.ID); err != nil {
			return err
		}
		if err := tx.MarkSlotBooked(ctx, slot.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Slots().GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, got.Booked)
}

func TestStore_DuplicateAppointmentMapped(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	slot := createSlot(t, s, p.ID, monday)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateAppointment(ctx, model.NewAppointment(1, slot, "")); err != nil {
			return err
		}
		return tx.CreateAppointment(ctx, model.NewAppointment(2, slot, ""))
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateAppointment)
}

func TestStore_DuplicateProviderMapped(t *testing.T) {
	s := createTestStore(t)
	createProvider(t, s, 10, "dentist")

	err := s.Providers().Create(context.Background(), &model.Provider{PartyID: 10, ServiceType: "vet"})
	assert.ErrorIs(t, err, repository.ErrDuplicateProvider)
}

func TestStore_ConcurrentClaimsSerialize(t *testing.T) {
	s := createTestStore(t)
	p := createProvider(t, s, 10, "dentist")
	slot := createSlot(t, s, p.ID, monday)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(requester int64) {
			defer wg.Done()
			err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				claimed, err := tx.ClaimSlot(ctx, slot.ID)
				if err != nil {
					return err
				}
				if claimed.Booked {
					return repository.ErrSlotTaken
				}
				if err := tx.MarkSlotBooked(ctx, slot.ID); err != nil {
					return err
				}
				return tx.CreateAppointment(ctx, model.NewAppointment(requester, claimed, ""))
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrSlotTaken)
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, success)
}

func TestStore_ListFreeByServiceType(t *testing.T) {
	s := createTestStore(t)
	dentist := createProvider(t, s, 10, "Pediatric Dentist")
	vet := createProvider(t, s, 11, "vet")
	a := createSlot(t, s, dentist.ID, monday.Add(time.Hour))
	createSlot(t, s, vet.ID, monday)

	// % must be taken literally
	none, err := s.Slots().ListFree(context.Background(), model.SlotFilter{
		ServiceType: "%", From: monday, To: monday.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := s.Slots().ListFree(context.Background(), model.SlotFilter{
		ServiceType: "dentist", From: monday, To: monday.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestStore_GetByIDs(t *testing.T) {
	s := createTestStore(t)
	a := createProvider(t, s, 10, "dentist")
	b := createProvider(t, s, 11, "vet")

	got, err := s.Providers().GetByIDs(context.Background(), []int64{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "vet", got[b.ID].ServiceType)
}

func TestStore_Users(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	u := &model.User{TelegramID: 555, Username: "ann", FirstName: "Ann"}
	require.NoError(t, s.Users().Create(ctx, u))

	u.FirstName = "Anna"
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().GetByTelegramID(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Anna", got.FirstName)

	missing, err := s.Users().GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
