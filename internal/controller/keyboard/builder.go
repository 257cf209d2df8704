// Package keyboard builds inline keyboards for bot replies.
package keyboard

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

// BookPrefix is the callback data prefix of "book this slot" buttons.
const BookPrefix = "book:"

// сколько кнопок бронирования показываем под одним сообщением
const maxSlotButtons = 8

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Len returns the number of rows.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: b.rows}
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// BookSlots returns one "Book" button per slot, two per row. Nil when there
// is nothing to book.
func BookSlots(slots []model.AnnotatedSlot, label func(*model.Slot) string) *models.InlineKeyboardMarkup {
	if len(slots) == 0 {
		return nil
	}

	b := NewBuilder()
	var row []models.InlineKeyboardButton
	for i, a := range slots {
		if i == maxSlotButtons {
			break
		}
		row = append(row, Button("Book "+label(a.Slot), fmt.Sprintf("%s%d", BookPrefix, a.Slot.ID)))
		if len(row) == 2 {
			b.Row(row...)
			row = nil
		}
	}
	b.Row(row...)
	return b.Build()
}
