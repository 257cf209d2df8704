package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/controller/keyboard"
	"github.com/Freeeeeet/slot_booking/internal/controller/state"
	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/responder"
)

const helpText = "📚 Commands:\n\n" +
	"/find <type|-> [today|tomorrow|YYYY-MM-DD] [morning|afternoon|evening] - free slots\n" +
	"/book <slot_id> [urgent] - book a slot\n" +
	"/mybookings - your appointments\n" +
	"/cancel - cancel the current dialog\n\n" +
	"For providers:\n" +
	"/becomeprovider <service type> - register as a provider\n" +
	"/publish YYYY-MM-DD HH:MM HH:MM - publish a slot\n" +
	"/myslots - your upcoming slots\n" +
	"/week [YYYY-MM-DD] - your week as a picture\n\n" +
	"You can also just ask, e.g. \"free slots tomorrow morning\"."

// HandleStart регистрирует пользователя
func (h *Handlers) HandleStart(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	from := update.Message.From

	user, err := h.userService.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName, from.LanguageCode)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Int64("telegram_id", from.ID), zap.Error(err))
		h.sendError(ctx, s, update.Message.Chat.ID, "❌ Registration failed. Please try again later.")
		return
	}

	h.sendMessage(ctx, s, update.Message.Chat.ID,
		fmt.Sprintf("👋 Hi, %s!\n\nI help you find and book appointment slots.\n\n%s", user.DisplayName(), helpText), nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, s, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, s, update.Message.Chat.ID, "Nothing to cancel.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, s, update.Message.Chat.ID, "✅ Cancelled.", nil)
}

// HandleTextMessage continues an open dialog or hands the text to the responder.
func (h *Handlers) HandleTextMessage(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}
	// Игнорируем команды (они обрабатываются другими handlers)
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	currentState := h.stateManager.GetState(telegramID)
	h.logger.Debug("Text message",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)),
	)

	switch currentState {
	case state.StateAwaitingServiceType:
		h.stateManager.ClearState(telegramID)
		h.registerProvider(ctx, s, chatID, update.Message.From, text)
	case state.StateAwaitingSlotTimes:
		if h.publishSlot(ctx, s, chatID, update.Message.From, text) {
			h.stateManager.ClearState(telegramID)
		}
	case state.StateAwaitingSearch:
		if h.find(ctx, s, chatID, text) {
			h.stateManager.ClearState(telegramID)
		}
	default:
		h.respond(ctx, s, chatID, text)
	}
}

// respond answers free text. Availability questions get live results and
// booking buttons; the responder itself never books.
func (h *Handlers) respond(ctx context.Context, s Sender, chatID int64, text string) {
	reply := responder.Respond(text, responder.Context{Now: h.now(), Location: h.loc})
	if reply.Query == nil {
		h.sendMessage(ctx, s, chatID, reply.Text, nil)
		return
	}

	slots, err := h.availabilityService.QuerySlots(ctx, reply.Query.Filter, reply.Query.Preference)
	if err != nil {
		h.logger.Error("Responder query failed", zap.Error(err))
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}
	h.sendSlots(ctx, s, chatID, responder.RenderAvailability(*reply.Query, slots, h.loc), slots)
}

// sendSlots sends text with booking buttons for slots, if any.
func (h *Handlers) sendSlots(ctx context.Context, s Sender, chatID int64, text string, slots []model.AnnotatedSlot) {
	var markup models.ReplyMarkup
	if kb := keyboard.BookSlots(slots, h.slotLabel); kb != nil {
		markup = kb
	}
	h.sendMessage(ctx, s, chatID, text, markup)
}

func (h *Handlers) slotLabel(slot *model.Slot) string {
	return fmt.Sprintf("#%d %s", slot.ID, slot.Start.In(h.loc).Format("Mon 15:04"))
}
