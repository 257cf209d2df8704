package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/memory"
)

// 2024-08-01 is the reference day; the clock sits just before it.
var (
	day   = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	clock = func() time.Time { return day.Add(-time.Hour) }
)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type notification struct {
	partyID int64
	subject string
	body    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, partyID int64, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{partyID: partyID, subject: subject, body: body})
	return n.err
}

type fixture struct {
	store        *memory.Store
	notifier     *fakeNotifier
	slots        *SlotService
	availability *AvailabilityService
	bookings     *BookingService
	providers    *ProviderService
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.New(opts...)
	notifier := &fakeNotifier{}
	logger := zap.NewNop()
	return &fixture{
		store:        store,
		notifier:     notifier,
		slots:        NewSlotService(store, SlotPolicy{RejectPastStart: true, Now: clock}, logger),
		availability: NewAvailabilityService(store.Slots(), store.Providers(), time.UTC, logger),
		bookings:     NewBookingService(store, notifier, time.UTC, logger),
		providers:    NewProviderService(store.Providers(), logger),
	}
}

func (f *fixture) provider(t *testing.T, partyID int64, serviceType string) *model.Provider {
	t.Helper()
	p, err := f.providers.Register(context.Background(), partyID, serviceType, "")
	require.NoError(t, err)
	return p
}

func (f *fixture) publish(t *testing.T, providerID int64, start, end time.Time) *model.Slot {
	t.Helper()
	slot, err := f.slots.PublishSlot(context.Background(), providerID, start, end)
	require.NoError(t, err)
	return slot
}

func TestPublishSlot_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	ctx := context.Background()

	tests := []struct {
		name       string
		providerID int64
		start, end time.Time
		wantErr    error
	}{
		{"start equals end", p.ID, at(9, 0), at(9, 0), ErrInvalidInterval},
		{"start after end", p.ID, at(10, 0), at(9, 0), ErrInvalidInterval},
		{"start in the past", p.ID, day.Add(-2 * time.Hour), at(9, 0), ErrPastStartTime},
		{"unknown provider", 999, at(9, 0), at(10, 0), ErrProviderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.slots.PublishSlot(ctx, tt.providerID, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	slots, err := f.slots.ListSlots(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestPublishSlot_StartAtNowAllowed(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")

	_, err := f.slots.PublishSlot(context.Background(), p.ID, clock(), clock().Add(time.Hour))
	assert.NoError(t, err)
}

func TestPublishSlot_PastAllowedWhenPolicyOff(t *testing.T) {
	store := memory.New()
	providers := NewProviderService(store.Providers(), zap.NewNop())
	p, err := providers.Register(context.Background(), 1, "dentist", "")
	require.NoError(t, err)

	slots := NewSlotService(store, SlotPolicy{RejectPastStart: false, Now: clock}, zap.NewNop())
	_, err = slots.PublishSlot(context.Background(), p.ID, day.Add(-48*time.Hour), day.Add(-47*time.Hour))
	assert.NoError(t, err)
}

func TestPublishSlot_OverlapReportsConflict(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	other := f.provider(t, 2, "dentist")
	ctx := context.Background()

	existing := f.publish(t, p.ID, at(9, 0), at(10, 0))

	overlapping := []struct {
		name       string
		start, end time.Time
	}{
		{"same interval", at(9, 0), at(10, 0)},
		{"tail overlap", at(9, 30), at(10, 30)},
		{"head overlap", at(8, 30), at(9, 30)},
		{"contained", at(9, 15), at(9, 45)},
		{"containing", at(8, 0), at(11, 0)},
	}
	for _, tt := range overlapping {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.slots.PublishSlot(ctx, p.ID, tt.start, tt.end)
			require.ErrorIs(t, err, ErrOverlappingSlot)

			var overlap *OverlapError
			require.ErrorAs(t, err, &overlap)
			assert.Equal(t, existing.ID, overlap.Conflict.ID)
		})
	}

	// touching intervals and other providers are fine
	f.publish(t, p.ID, at(10, 0), at(11, 0))
	f.publish(t, p.ID, at(8, 0), at(9, 0))
	f.publish(t, other.ID, at(9, 30), at(10, 30))

	slots, err := f.slots.ListSlots(ctx, &p.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestPublishSlot_OverlapsBookedSlotsToo(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))

	_, err := f.bookings.BookSlot(context.Background(), 42, slot.ID, model.UrgencyNormal)
	require.NoError(t, err)

	_, err = f.slots.PublishSlot(context.Background(), p.ID, at(9, 30), at(10, 30))
	assert.ErrorIs(t, err, ErrOverlappingSlot)
}

func TestPublishSlot_ConcurrentOverlappingPublishes(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	ctx := context.Background()

	const workers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			start := at(9, offset)
			_, err := f.slots.PublishSlot(ctx, p.ID, start, start.Add(time.Hour))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrOverlappingSlot)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)

	slots, err := f.slots.ListSlots(ctx, &p.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestListProviderSlots_Range(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	ctx := context.Background()

	late := f.publish(t, p.ID, at(15, 0), at(16, 0))
	early := f.publish(t, p.ID, at(9, 0), at(10, 0))
	f.publish(t, p.ID, at(33, 0), at(34, 0))

	slots, err := f.slots.ListProviderSlots(ctx, &p.ID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, early.ID, slots[0].ID)
	assert.Equal(t, late.ID, slots[1].ID)

	_, err = f.slots.ListProviderSlots(ctx, &p.ID, day.Add(time.Hour), day)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestQuerySlots_RangeRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.QuerySlots(ctx, model.SlotFilter{From: day}, model.PreferenceNone)
	assert.ErrorIs(t, err, ErrMissingRange)

	_, err = f.availability.QuerySlots(ctx, model.SlotFilter{From: at(10, 0), To: at(9, 0)}, model.PreferenceNone)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = f.availability.QuerySlots(ctx, model.SlotFilter{From: day, To: at(23, 0)}, model.Preference("night"))
	assert.ErrorIs(t, err, ErrInvalidPreference)

	got, err := f.availability.QuerySlots(ctx, model.SlotFilter{From: day, To: at(23, 0)}, model.PreferenceNone)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuerySlots_PreferencePartition(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")

	for _, hour := range []int{18, 7, 14, 9} {
		f.publish(t, p.ID, at(hour, 0), at(hour, 45))
	}
	filter := model.SlotFilter{ProviderID: &p.ID, From: day, To: at(23, 59)}

	got, err := f.availability.QuerySlots(context.Background(), filter, model.PreferenceMorning)
	require.NoError(t, err)
	require.Len(t, got, 4)

	hours := make([]int, len(got))
	for i, a := range got {
		hours[i] = a.Slot.Start.Hour()
	}
	assert.Equal(t, []int{9, 7, 14, 18}, hours)
	assert.True(t, got[0].MatchedPreference)
	for _, a := range got[1:] {
		assert.False(t, a.MatchedPreference)
	}

	plain, err := f.availability.QuerySlots(context.Background(), filter, model.PreferenceNone)
	require.NoError(t, err)
	for i, a := range plain {
		hours[i] = a.Slot.Start.Hour()
		assert.False(t, a.MatchedPreference)
	}
	assert.Equal(t, []int{7, 9, 14, 18}, hours)
}

func TestQuerySlots_BandsUseDisplayLocation(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	f.publish(t, p.ID, at(6, 0), at(7, 0))  // 09:00 at UTC+3
	f.publish(t, p.ID, at(12, 0), at(13, 0)) // 15:00 at UTC+3

	plus3 := time.FixedZone("UTC+3", 3*60*60)
	planner := NewAvailabilityService(f.store.Slots(), f.store.Providers(), plus3, zap.NewNop())

	got, err := planner.QuerySlots(context.Background(), model.SlotFilter{From: day, To: at(23, 0)}, model.PreferenceMorning)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].MatchedPreference)
	assert.Equal(t, 6, got[0].Slot.Start.Hour())
}

func TestQuerySlots_Filters(t *testing.T) {
	f := newFixture(t)
	dentist := f.provider(t, 1, "Family Dentist")
	vet := f.provider(t, 2, "vet")
	ctx := context.Background()

	d := f.publish(t, dentist.ID, at(10, 0), at(11, 0))
	v := f.publish(t, vet.ID, at(9, 0), at(10, 0))
	booked := f.publish(t, dentist.ID, at(12, 0), at(13, 0))
	f.publish(t, dentist.ID, at(30, 0), at(31, 0))

	_, err := f.bookings.BookSlot(ctx, 42, booked.ID, "")
	require.NoError(t, err)

	rng := model.SlotFilter{From: day, To: at(23, 59)}

	all, err := f.availability.QuerySlots(ctx, rng, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, v.ID, all[0].Slot.ID)
	assert.Equal(t, d.ID, all[1].Slot.ID)
	assert.Equal(t, "vet", all[0].Provider.ServiceType)

	byType := rng
	byType.ServiceType = "dentist"
	got, err := f.availability.QuerySlots(ctx, byType, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].Slot.ID)

	// provider id takes precedence over the type
	byType.ProviderID = &vet.ID
	got, err = f.availability.QuerySlots(ctx, byType, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, v.ID, got[0].Slot.ID)

	// both range ends are inclusive
	edge := model.SlotFilter{From: at(9, 0), To: at(10, 0)}
	got, err = f.availability.QuerySlots(ctx, edge, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQuerySlots_Idempotent(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	for _, hour := range []int{13, 9, 17, 10} {
		f.publish(t, p.ID, at(hour, 0), at(hour, 30))
	}
	filter := model.SlotFilter{From: day, To: at(23, 0)}

	first, err := f.availability.QuerySlots(context.Background(), filter, model.PreferenceAfternoon)
	require.NoError(t, err)
	second, err := f.availability.QuerySlots(context.Background(), filter, model.PreferenceAfternoon)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBookSlot_EndToEnd(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	ctx := context.Background()

	s1, err := f.slots.PublishSlot(ctx, p.ID, at(9, 0), at(10, 0))
	require.NoError(t, err)

	_, err = f.slots.PublishSlot(ctx, p.ID, at(9, 30), at(10, 30))
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, s1.ID, overlap.Conflict.ID)

	appt, err := f.bookings.BookSlot(ctx, 42, s1.ID, "")
	require.NoError(t, err)
	assert.True(t, at(9, 0).Equal(appt.Start))
	assert.True(t, at(10, 0).Equal(appt.End))
	assert.Equal(t, model.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, model.UrgencyNormal, appt.Urgency)
	assert.Equal(t, p.ID, appt.ProviderID)

	_, err = f.bookings.BookSlot(ctx, 99, s1.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestBookSlot_Consistency(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(14, 0), at(14, 50))
	ctx := context.Background()

	appt, err := f.bookings.BookSlot(ctx, 42, slot.ID, model.UrgencyHigh)
	require.NoError(t, err)

	stored, err := f.slots.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, stored.Booked)
	assert.True(t, stored.Start.Equal(appt.Start))
	assert.True(t, stored.End.Equal(appt.End))
	assert.Equal(t, model.UrgencyHigh, appt.Urgency)

	got, err := f.bookings.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.SlotID, got.SlotID)

	mine, err := f.bookings.ListForRequester(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.bookings.ListForProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestBookSlot_Errors(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))
	ctx := context.Background()

	_, err := f.bookings.BookSlot(ctx, 42, 12345, "")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = f.bookings.BookSlot(ctx, 42, slot.ID, model.Urgency("asap"))
	assert.ErrorIs(t, err, ErrInvalidUrgency)

	_, err = f.bookings.GetAppointment(ctx, 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookSlot_ConcurrentCallersExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))
	ctx := context.Background()

	const callers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int64
		losers  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(requester int64) {
			defer wg.Done()
			appt, err := f.bookings.BookSlot(ctx, requester, slot.ID, "")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, appt.RequesterID)
			case errors.Is(err, ErrAlreadyBooked):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, losers)

	appts, err := f.bookings.ListForProvider(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, winners[0], appts[0].RequesterID)
}

func TestBookSlot_DifferentSlotsInParallel(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 1, "dentist")
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 10; i++ {
		slot := f.publish(t, p.ID, at(8+i, 0), at(8+i, 30))
		ids = append(ids, slot.ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(requester, slotID int64) {
			defer wg.Done()
			_, err := f.bookings.BookSlot(ctx, requester, slotID, "")
			assert.NoError(t, err)
		}(int64(i+1), id)
	}
	wg.Wait()

	free, err := f.availability.QuerySlots(ctx, model.SlotFilter{From: day, To: at(23, 0)}, "")
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestBookSlot_StorageFailureRollsBack(t *testing.T) {
	var fail bool
	f := newFixture(t, memory.WithCommitHook(func() error {
		if fail {
			return errors.New("connection reset")
		}
		return nil
	}))
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))
	ctx := context.Background()

	fail = true
	_, err := f.bookings.BookSlot(ctx, 42, slot.ID, "")
	require.ErrorIs(t, err, ErrBookingFailed)
	assert.Equal(t, KindTransient, KindOf(err))

	stored, err := f.slots.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, stored.Booked)

	appts, err := f.bookings.ListForRequester(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, appts)
	assert.Empty(t, f.notifier.sent, "no notification for a failed booking")

	// retry is safe once storage recovers
	fail = false
	appt, err := f.bookings.BookSlot(ctx, 42, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, slot.ID, appt.SlotID)
}

func TestBookSlot_NotifiesBothSides(t *testing.T) {
	f := newFixture(t)
	p := f.provider(t, 7, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))

	appt, err := f.bookings.BookSlot(context.Background(), 42, slot.ID, model.UrgencyHigh)
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, int64(42), f.notifier.sent[0].partyID)
	assert.Equal(t, "Your Appointment Confirmation", f.notifier.sent[0].subject)
	assert.Contains(t, f.notifier.sent[0].body, fmt.Sprintf("#%d", appt.ID))
	assert.Contains(t, f.notifier.sent[0].body, "dentist")

	assert.Equal(t, int64(7), f.notifier.sent[1].partyID)
	assert.Equal(t, "New Appointment Booking", f.notifier.sent[1].subject)
	assert.Contains(t, f.notifier.sent[1].body, "high")
}

func TestBookSlot_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	p := f.provider(t, 1, "dentist")
	slot := f.publish(t, p.ID, at(9, 0), at(10, 0))

	appt, err := f.bookings.BookSlot(context.Background(), 42, slot.ID, "")
	require.NoError(t, err)
	assert.NotZero(t, appt.ID)

	stored, err := f.slots.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.True(t, stored.Booked)
}

func TestRegisterProvider_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.provider(t, 1, "dentist")

	_, err := f.providers.Register(context.Background(), 1, "vet", "")
	assert.ErrorIs(t, err, ErrProviderExists)

	_, err = f.providers.GetByPartyID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidInterval, KindValidation},
		{fmt.Errorf("wrap: %w", ErrMissingRange), KindValidation},
		{&OverlapError{Conflict: &model.Slot{ID: 1}}, KindConflict},
		{ErrAlreadyBooked, KindConflict},
		{ErrSlotNotFound, KindNotFound},
		{fmt.Errorf("%w: %w", ErrBookingFailed, errors.New("io")), KindTransient},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
