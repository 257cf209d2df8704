// Package render draws a provider's week of slots as a PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

// Константы размеров и отступов
const (
	imageWidth      = 1120
	imageHeight     = 720
	headerHeight    = 70
	leftLabelsWidth = 60
	legendHeight    = 36
	dayPaddingX     = 6
	minSlotHeight   = 8.0
	slotRadius      = 5.0
	daysInWeek      = 7
	hourPadding     = 1
	defaultMinHour  = 8
	defaultMaxHour  = 20
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{60, 64, 70, 255}
	hourLabelColor   = color.RGBA{110, 115, 120, 255}
	hourLineColor    = color.RGBA{190, 190, 190, 255}
	todayBgColor     = color.RGBA{255, 228, 220, 255}
	evenDayColor     = color.RGBA{240, 240, 240, 255}
	oddDayColor      = color.RGBA{228, 228, 228, 255}
	currentTimeColor = color.RGBA{255, 80, 80, 220}

	slotFreeColor   = color.RGBA{133, 193, 85, 230}
	slotBookedColor = color.RGBA{255, 182, 193, 255}
	slotTextColor   = color.RGBA{20, 24, 28, 255}
)

type hourRange struct {
	start int
	end   int // exclusive
}

func (h hourRange) total() int { return h.end - h.start }

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Week renders the Monday-to-Sunday week containing day. Slots are drawn in
// loc; those outside the week are ignored. now places the current-time line.
func Week(day time.Time, slots []*model.Slot, now time.Time, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := WeekStart(day.In(loc))
	end := start.AddDate(0, 0, daysInWeek)

	byDay := make([][]*model.Slot, daysInWeek)
	var inWeek []*model.Slot
	for _, slot := range slots {
		s := slot.Start.In(loc)
		if s.Before(start) || !s.Before(end) {
			continue
		}
		idx := int(s.Sub(start).Hours()) / 24
		byDay[idx] = append(byDay[idx], slot)
		inWeek = append(inWeek, slot)
	}

	hours := visibleHours(inWeek, loc)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dayWidth := float64(imageWidth-leftLabelsWidth) / daysInWeek
	gridTop := float64(headerHeight)
	gridHeight := float64(imageHeight - headerHeight - legendHeight)
	cellHeight := gridHeight / float64(hours.total())

	drawTitle(dc, start, end.AddDate(0, 0, -1))

	today := now.In(loc)
	for i := 0; i < daysInWeek; i++ {
		date := start.AddDate(0, 0, i)
		x := float64(leftLabelsWidth) + float64(i)*dayWidth
		isToday := sameDay(date, today)

		switch {
		case isToday:
			dc.SetColor(todayBgColor)
		case i%2 == 0:
			dc.SetColor(evenDayColor)
		default:
			dc.SetColor(oddDayColor)
		}
		dc.DrawRectangle(x, gridTop, dayWidth, gridHeight)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(date.Format("Mon 02.01"), x+dayWidth/2, gridTop-12, 0.5, 0)

		for _, slot := range byDay[i] {
			drawSlot(dc, slot, loc, x, gridTop, dayWidth, hours, cellHeight)
		}
	}

	drawHourGrid(dc, hours, gridTop, cellHeight)
	if !today.Before(start) && today.Before(end) {
		drawNowLine(dc, today, hours, gridTop, cellHeight)
	}
	drawLegend(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// visibleHours fits the grid to the slots with a little padding.
func visibleHours(slots []*model.Slot, loc *time.Location) hourRange {
	if len(slots) == 0 {
		return hourRange{start: defaultMinHour, end: defaultMaxHour}
	}

	minHour, maxHour := 24, 0
	for _, slot := range slots {
		s, e := slot.Start.In(loc), slot.End.In(loc)
		if s.Hour() < minHour {
			minHour = s.Hour()
		}
		endHour := e.Hour()
		if e.Minute() > 0 || !sameDay(s, e) {
			endHour++
		}
		if !sameDay(s, e) {
			endHour = 24
		}
		if endHour > maxHour {
			maxHour = endHour
		}
	}

	r := hourRange{start: max(minHour-hourPadding, 0), end: min(maxHour+hourPadding, 24)}
	if r.end <= r.start {
		r.end = r.start + 1
	}
	return r
}

func drawTitle(dc *gg.Context, from, to time.Time) {
	title := fmt.Sprintf("Week %s - %s", from.Format("02 Jan"), to.Format("02 Jan 2006"))
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(imageWidth)/2, 22, 0.5, 0.5)
}

func drawHourGrid(dc *gg.Context, hours hourRange, top, cellHeight float64) {
	dc.SetLineWidth(0.5)
	for i := 0; i <= hours.total(); i++ {
		y := top + float64(i)*cellHeight
		dc.SetColor(hourLineColor)
		dc.DrawLine(float64(leftLabelsWidth), y, float64(imageWidth), y)
		dc.Stroke()

		if i < hours.total() {
			dc.SetColor(hourLabelColor)
			dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-8, y, 1, 0.5)
		}
	}
}

func drawSlot(dc *gg.Context, slot *model.Slot, loc *time.Location, x, top, dayWidth float64, hours hourRange, cellHeight float64) {
	s, e := slot.Start.In(loc), slot.End.In(loc)
	startHour := float64(s.Hour()) + float64(s.Minute())/60
	endHour := float64(e.Hour()) + float64(e.Minute())/60
	if !sameDay(s, e) {
		endHour = 24
	}

	y := top + (startHour-float64(hours.start))*cellHeight
	height := (endHour - startHour) * cellHeight
	if height < minSlotHeight {
		height = minSlotHeight
	}
	width := dayWidth - 2*dayPaddingX

	fill := slotFreeColor
	if slot.Booked {
		fill = slotBookedColor
	}
	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, y+1, width, height-2, slotRadius)
	dc.Fill()

	if height >= 16 {
		label := fmt.Sprintf("#%d %s", slot.ID, s.Format("15:04"))
		dc.SetColor(slotTextColor)
		dc.DrawStringAnchored(label, x+dayPaddingX+6, y+12, 0, 0)
	}
}

func drawNowLine(dc *gg.Context, now time.Time, hours hourRange, top, cellHeight float64) {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	if hour < float64(hours.start) || hour > float64(hours.end) {
		return
	}
	y := top + (hour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(imageWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Free", slotFreeColor},
		{"Booked", slotBookedColor},
	}

	x := float64(leftLabelsWidth)
	y := float64(imageHeight - legendHeight + 10)
	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, 20, 14, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+28, y+7, 0, 0.35)
		x += 110
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
