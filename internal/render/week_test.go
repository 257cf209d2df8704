package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

func TestWeekStart(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", time.Date(2024, 7, 29, 15, 0, 0, 0, loc), time.Date(2024, 7, 29, 0, 0, 0, 0, loc)},
		{"thursday", time.Date(2024, 8, 1, 9, 30, 0, 0, loc), time.Date(2024, 7, 29, 0, 0, 0, 0, loc)},
		{"sunday", time.Date(2024, 8, 4, 23, 59, 0, 0, loc), time.Date(2024, 7, 29, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(WeekStart(tt.in)), "got %s", WeekStart(tt.in))
		})
	}
}

func TestWeek_EncodesPNG(t *testing.T) {
	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	slots := []*model.Slot{
		{ID: 1, ProviderID: 1, Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		{ID: 2, ProviderID: 1, Start: day.Add(14 * time.Hour), End: day.Add(15*time.Hour + 30*time.Minute), Booked: true},
		// следующая неделя, не рисуется
		{ID: 3, ProviderID: 1, Start: day.AddDate(0, 0, 7), End: day.AddDate(0, 0, 7).Add(time.Hour)},
	}

	data, err := Week(day, slots, day.Add(12*time.Hour), time.UTC)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestWeek_EmptyWeek(t *testing.T) {
	data, err := Week(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), nil, time.Now(), nil)
	require.NoError(t, err)

	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestVisibleHours(t *testing.T) {
	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, hourRange{start: defaultMinHour, end: defaultMaxHour}, visibleHours(nil, time.UTC))
	})

	t.Run("padded to slots", func(t *testing.T) {
		slots := []*model.Slot{
			{Start: day.Add(7 * time.Hour), End: day.Add(8 * time.Hour)},
			{Start: day.Add(18 * time.Hour), End: day.Add(18*time.Hour + 15*time.Minute)},
		}
		assert.Equal(t, hourRange{start: 6, end: 20}, visibleHours(slots, time.UTC))
	})

	t.Run("clamped to the day", func(t *testing.T) {
		slots := []*model.Slot{
			{Start: day, End: day.Add(23*time.Hour + 30*time.Minute)},
		}
		assert.Equal(t, hourRange{start: 0, end: 24}, visibleHours(slots, time.UTC))
	})

	t.Run("uses display location", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		slots := []*model.Slot{
			{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		}
		assert.Equal(t, hourRange{start: 11, end: 14}, visibleHours(slots, loc))
	})
}
