package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/service"
)

func TestCommandArgs(t *testing.T) {
	tests := map[string]string{
		"/book":                "",
		"/book 12":             "12",
		"/book@slot_bot 12 hi": "12 hi",
		"  /find  dentist  ":   "dentist",
		"plain text":           "plain text",
	}
	for in, want := range tests {
		assert.Equal(t, want, commandArgs(in), in)
	}
}

func TestParsePublishArgs(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)

	tests := []struct {
		name       string
		in         string
		start, end time.Time
		wantErr    bool
	}{
		{"date and two times", "2024-08-01 09:00 10:30",
			time.Date(2024, 8, 1, 9, 0, 0, 0, loc), time.Date(2024, 8, 1, 10, 30, 0, 0, loc), false},
		{"two full datetimes", "2024-08-01 22:00 2024-08-02 01:00",
			time.Date(2024, 8, 1, 22, 0, 0, 0, loc), time.Date(2024, 8, 2, 1, 0, 0, 0, loc), false},
		{"iso pair", "2024-08-01T09:00 2024-08-01T10:00",
			time.Date(2024, 8, 1, 9, 0, 0, 0, loc), time.Date(2024, 8, 1, 10, 0, 0, 0, loc), false},
		{"rfc3339 keeps its zone", "2024-08-01T09:00:00Z 2024-08-01T10:00:00Z",
			time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC), false},
		{"russian date", "01.08.2024 09:00 10:00",
			time.Date(2024, 8, 1, 9, 0, 0, 0, loc), time.Date(2024, 8, 1, 10, 0, 0, 0, loc), false},
		{"bare dates", "2024-08-01 2024-08-02", time.Time{}, time.Time{}, true},
		{"too few", "09:00", time.Time{}, time.Time{}, true},
		{"garbage", "tomorrow at nine", time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parsePublishArgs(tt.in, loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(start), "start %s", start)
			assert.True(t, tt.end.Equal(end), "end %s", end)
		})
	}
}

func TestParseFindArgs(t *testing.T) {
	now := time.Date(2024, 7, 31, 15, 0, 0, 0, time.UTC)

	t.Run("type only means rest of today", func(t *testing.T) {
		fa, err := parseFindArgs("Dentist", now, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, "dentist", fa.serviceType)
		assert.True(t, now.Equal(fa.from))
		assert.Equal(t, 31, fa.to.Day())
		assert.Equal(t, model.PreferenceNone, fa.preference)
	})

	t.Run("any type tomorrow evening", func(t *testing.T) {
		fa, err := parseFindArgs("- tomorrow evening", now, time.UTC)
		require.NoError(t, err)
		assert.Empty(t, fa.serviceType)
		assert.True(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC).Equal(fa.from))
		assert.Equal(t, 1, fa.to.Day())
		assert.Equal(t, model.PreferenceEvening, fa.preference)
	})

	t.Run("explicit date", func(t *testing.T) {
		fa, err := parseFindArgs("any 2024-08-05", now, time.UTC)
		require.NoError(t, err)
		assert.True(t, time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC).Equal(fa.from))
		assert.Equal(t, 5, fa.to.Day())
	})

	for _, in := range []string{"", "dentist someday", "dentist today night", "a b c d", "dentist 2024-08-05T10:00"} {
		_, err := parseFindArgs(in, now, time.UTC)
		assert.ErrorIs(t, err, errUsage, in)
	}
}

func TestParseBookArgs(t *testing.T) {
	id, urgency, err := parseBookArgs("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, model.UrgencyNormal, urgency)

	id, urgency, err = parseBookArgs("#7 urgent")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, model.UrgencyHigh, urgency)

	for _, in := range []string{"", "abc", "0", "-3", "5 whenever", "1 2 3"} {
		_, _, err := parseBookArgs(in)
		assert.ErrorIs(t, err, errUsage, in)
	}
}

func TestParseIDFromCallback(t *testing.T) {
	id, err := parseIDFromCallback("book:123", "book:")
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)

	_, err = parseIDFromCallback("cancel:123", "book:")
	assert.Error(t, err)
	_, err = parseIDFromCallback("book:x", "book:")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	conflict := &model.Slot{
		ID:    4,
		Start: time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		err  error
		want string
	}{
		{&service.OverlapError{Conflict: conflict}, "Overlaps your slot #4 (Thu 01.08.2024 09:00-10:00)"},
		{service.ErrAlreadyBooked, "just been booked"},
		{service.ErrInvalidPreference, service.ErrInvalidPreference.Error()},
		{service.ErrNotFound, "Not found"},
		{errors.Join(service.ErrBookingFailed, errors.New("disk full")), "try again"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tt := range tests {
		assert.Contains(t, errorMessage(tt.err), tt.want)
	}
}
