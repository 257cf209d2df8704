package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/service"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

// requireUser проверяет что пользователь зарегистрирован через /start
func (h *Handlers) requireUser(ctx context.Context, s Sender, chatID int64, from *models.User) (*model.User, bool) {
	if from == nil {
		return nil, false
	}

	user, err := h.userService.GetByTelegramID(ctx, from.ID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Something went wrong. Please try again later.")
		return nil, false
	}
	if user == nil {
		h.sendError(ctx, s, chatID, "❌ You are not registered yet. Send /start first.")
		return nil, false
	}
	return user, true
}

// requireProvider проверяет что пользователь зарегистрирован как провайдер
func (h *Handlers) requireProvider(ctx context.Context, s Sender, chatID int64, from *models.User) (*model.User, *model.Provider, bool) {
	user, ok := h.requireUser(ctx, s, chatID, from)
	if !ok {
		return nil, nil, false
	}

	provider, err := h.providerService.GetByPartyID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			h.sendError(ctx, s, chatID, "❌ This command is for providers.\n\nBecome one: /becomeprovider <service type>")
		} else {
			h.logger.Error("Failed to get provider", zap.Int64("party_id", user.ID), zap.Error(err))
			h.sendError(ctx, s, chatID, errorMessage(err))
		}
		return nil, nil, false
	}
	return user, provider, true
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, s Sender, chatID int64, text string) {
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, s Sender, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := s.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// errorMessage возвращает пользовательское сообщение для ошибки сервиса
func errorMessage(err error) string {
	var overlap *service.OverlapError
	switch {
	case errors.As(err, &overlap):
		return fmt.Sprintf("❌ Overlaps your slot #%d (%s).",
			overlap.Conflict.ID, timefmt.FormatTimeRange(overlap.Conflict.Start, overlap.Conflict.End))
	case errors.Is(err, service.ErrInvalidInterval):
		return "❌ The start must be before the end."
	case errors.Is(err, service.ErrPastStartTime):
		return "❌ That start time is already in the past."
	case errors.Is(err, service.ErrAlreadyBooked):
		return "❌ Sorry, that slot has just been booked."
	case errors.Is(err, service.ErrSlotNotFound):
		return "❌ Slot not found."
	case errors.Is(err, service.ErrProviderExists):
		return "ℹ️ You are already registered as a provider."
	case errors.Is(err, service.ErrInvalidRange):
		return "❌ The range end is before its start."
	}

	switch service.KindOf(err) {
	case service.KindValidation:
		return "❌ " + err.Error()
	case service.KindNotFound:
		return "❌ Not found."
	case service.KindTransient:
		return "⚠️ Could not complete that right now, please try again."
	}
	return "❌ Something went wrong."
}

// commandArgs strips "/cmd" or "/cmd@bot" from text.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}

func formatSlot(slot *model.Slot, loc *time.Location) string {
	status := "free"
	if slot.Booked {
		status = "booked"
	}
	return fmt.Sprintf("#%d %s (%s, %s)",
		slot.ID,
		timefmt.FormatTimeRange(slot.Start.In(loc), slot.End.In(loc)),
		timefmt.FormatDuration(slot.Duration()),
		status,
	)
}

func formatAppointment(a *model.Appointment, loc *time.Location) string {
	line := fmt.Sprintf("#%d %s, slot #%d", a.ID, timefmt.FormatTimeRange(a.Start.In(loc), a.End.In(loc)), a.SlotID)
	if a.Urgency == model.UrgencyHigh {
		line += " ⚡"
	}
	return line
}

func chatIDOf(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
