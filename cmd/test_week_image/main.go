package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/render"
)

func main() {
	out := flag.String("out", "week.png", "output file")
	tz := flag.String("tz", "Local", "display time zone")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Printf("Неизвестная зона %q: %v\n", *tz, err)
		os.Exit(1)
	}

	now := time.Now().In(loc)
	monday := render.WeekStart(now)

	// Тестовые слоты: день, час начала, длительность в минутах, занят
	samples := []struct {
		day, hour, minutes int
		booked             bool
	}{
		{0, 9, 60, false},
		{0, 14, 60, true},
		{1, 10, 45, false},
		{1, 16, 90, false},
		{2, 9, 60, true},
		{2, 15, 30, false},
		{4, 11, 60, false},
		{4, 13, 60, true},
	}

	slots := make([]*model.Slot, 0, len(samples))
	for i, s := range samples {
		start := monday.AddDate(0, 0, s.day).Add(time.Duration(s.hour) * time.Hour)
		slots = append(slots, &model.Slot{
			ID:         int64(i + 1),
			ProviderID: 1,
			Start:      start,
			End:        start.Add(time.Duration(s.minutes) * time.Minute),
			Booked:     s.booked,
		})
	}

	imageData, err := render.Week(monday, slots, now, loc)
	if err != nil {
		fmt.Printf("Ошибка генерации изображения: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, imageData, 0o644); err != nil {
		fmt.Printf("Ошибка сохранения файла: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Изображение сохранено в %s\n", *out)
	fmt.Printf("Неделя с %s, слотов: %d\n", monday.Format("02.01.2006"), len(slots))
}
