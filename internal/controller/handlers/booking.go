package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_booking/internal/controller/state"
	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/responder"
	"github.com/Freeeeeet/slot_booking/internal/service"
)

const findUsage = "Send: <service type or -> [today|tomorrow|YYYY-MM-DD] [morning|afternoon|evening]\n" +
	"For example: dentist tomorrow morning\n\n/cancel to stop."

// HandleFind ищет свободные слоты
func (h *Handlers) HandleFind(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if args == "" {
		h.stateManager.SetState(update.Message.From.ID, state.StateAwaitingSearch)
		h.sendMessage(ctx, s, update.Message.Chat.ID, findUsage, nil)
		return
	}
	h.find(ctx, s, update.Message.Chat.ID, args)
}

// find reports whether the dialog is finished; false asks for new input.
func (h *Handlers) find(ctx context.Context, s Sender, chatID int64, args string) bool {
	fa, err := parseFindArgs(args, h.now(), h.loc)
	if err != nil {
		h.sendError(ctx, s, chatID, "❌ Could not read that.\n\n"+findUsage)
		return false
	}

	filter := model.SlotFilter{ServiceType: fa.serviceType, From: fa.from, To: fa.to}
	slots, err := h.availabilityService.QuerySlots(ctx, filter, fa.preference)
	if err != nil {
		h.logger.Error("Find failed", zap.Error(err))
		h.sendError(ctx, s, chatID, errorMessage(err))
		return true
	}

	q := responder.Query{
		Filter:     filter,
		Preference: fa.preference,
		Label:      "on " + fa.from.In(h.loc).Format("Mon 02.01"),
	}
	h.sendSlots(ctx, s, chatID, responder.RenderAvailability(q, slots, h.loc), slots)
	return true
}

// HandleBook бронирует слот по номеру
func (h *Handlers) HandleBook(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, s, chatID, update.Message.From)
	if !ok {
		return
	}

	slotID, urgency, err := parseBookArgs(commandArgs(update.Message.Text))
	if err != nil {
		h.sendError(ctx, s, chatID, "❌ Use /book <slot_id> [urgent]")
		return
	}

	text, _ := h.book(ctx, user, slotID, urgency)
	h.sendMessage(ctx, s, chatID, text, nil)
}

// book returns the message for the user and whether the booking happened.
func (h *Handlers) book(ctx context.Context, user *model.User, slotID int64, urgency model.Urgency) (string, bool) {
	appointment, err := h.bookingService.BookSlot(ctx, user.ID, slotID, urgency)
	if err != nil {
		if service.KindOf(err) == service.KindInternal {
			h.logger.Error("Booking failed", zap.Int64("slot_id", slotID), zap.Error(err))
		}
		return errorMessage(err), false
	}
	return "✅ Booked! Appointment " + formatAppointment(appointment, h.loc), true
}

// HandleMyBookings показывает записи пользователя
func (h *Handlers) HandleMyBookings(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := h.requireUser(ctx, s, chatID, update.Message.From)
	if !ok {
		return
	}

	mine, err := h.bookingService.ListForRequester(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.Int64("party_id", user.ID), zap.Error(err))
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}

	var b strings.Builder
	if len(mine) == 0 {
		b.WriteString("You have no appointments yet. Try /find.")
	} else {
		fmt.Fprintf(&b, "📅 Your appointments (%d):", len(mine))
		for _, a := range mine {
			b.WriteString("\n" + formatAppointment(a, h.loc))
		}
	}

	// у провайдера дополнительно записи к нему
	provider, err := h.providerService.GetByPartyID(ctx, user.ID)
	switch {
	case errors.Is(err, service.ErrProviderNotFound):
	case err != nil:
		h.logger.Error("Failed to get provider", zap.Int64("party_id", user.ID), zap.Error(err))
	default:
		theirs, err := h.bookingService.ListForProvider(ctx, provider.ID)
		if err != nil {
			h.logger.Error("Failed to list provider appointments", zap.Int64("provider_id", provider.ID), zap.Error(err))
			break
		}
		fmt.Fprintf(&b, "\n\n🧑‍💼 Booked with you (%d):", len(theirs))
		for _, a := range theirs {
			b.WriteString("\n" + formatAppointment(a, h.loc))
		}
	}

	h.sendMessage(ctx, s, chatID, b.String(), nil)
}

// HandleCallbackQuery обрабатывает нажатия на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, s Sender, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}
	chatID := chatIDOf(update)

	if !strings.HasPrefix(callback.Data, keyboard.BookPrefix) {
		h.logger.Warn("Unknown callback", zap.String("data", callback.Data))
		h.answerCallback(ctx, s, callback.ID, "Unknown action", false)
		return
	}

	slotID, err := parseIDFromCallback(callback.Data, keyboard.BookPrefix)
	if err != nil {
		h.answerCallback(ctx, s, callback.ID, "❌ Invalid button", true)
		return
	}

	from := callback.From
	user, ok := h.requireUser(ctx, s, chatID, &from)
	if !ok {
		h.answerCallback(ctx, s, callback.ID, "", false)
		return
	}

	text, booked := h.book(ctx, user, slotID, model.UrgencyNormal)
	if booked {
		h.answerCallback(ctx, s, callback.ID, "✅ Booked", false)
		h.sendMessage(ctx, s, chatID, text, nil)
		return
	}
	h.answerCallback(ctx, s, callback.ID, text, true)
}

// answerCallback отвечает на callback query, alert показывается всплывающим окном
func (h *Handlers) answerCallback(ctx context.Context, s Sender, callbackID, text string, alert bool) {
	if _, err := s.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	}); err != nil {
		h.logger.Error("Failed to answer callback", zap.Error(err))
	}
}
