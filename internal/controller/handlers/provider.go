package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/controller/state"
	"github.com/Freeeeeet/slot_booking/internal/render"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

const publishUsage = "Send the slot as\n2024-08-01 09:00 10:00\nor\n2024-08-01 22:00 2024-08-02 01:00\n\n/cancel to stop."

// сколько слотов показывать в /myslots
const mySlotsLimit = 20

// HandleBecomeProvider регистрирует пользователя как провайдера услуги
func (h *Handlers) HandleBecomeProvider(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if args == "" {
		if _, ok := h.requireUser(ctx, s, update.Message.Chat.ID, update.Message.From); !ok {
			return
		}
		h.stateManager.SetState(update.Message.From.ID, state.StateAwaitingServiceType)
		h.sendMessage(ctx, s, update.Message.Chat.ID,
			"What service do you provide? For example: dentist, haircut, tutoring.\n\n/cancel to stop.", nil)
		return
	}

	h.registerProvider(ctx, s, update.Message.Chat.ID, update.Message.From, args)
}

func (h *Handlers) registerProvider(ctx context.Context, s Sender, chatID int64, from *models.User, serviceType string) {
	user, ok := h.requireUser(ctx, s, chatID, from)
	if !ok {
		return
	}

	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" || len(serviceType) > 64 {
		h.sendError(ctx, s, chatID, "❌ The service type must be 1 to 64 characters.")
		return
	}

	provider, err := h.providerService.Register(ctx, user.ID, serviceType, "")
	if err != nil {
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}

	h.sendMessage(ctx, s, chatID, fmt.Sprintf(
		"✅ You are now a %s provider (#%d).\n\nPublish slots with /publish.", provider.ServiceType, provider.ID), nil)
}

// HandlePublish публикует слот
func (h *Handlers) HandlePublish(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if args == "" {
		if _, _, ok := h.requireProvider(ctx, s, update.Message.Chat.ID, update.Message.From); !ok {
			return
		}
		h.stateManager.SetState(update.Message.From.ID, state.StateAwaitingSlotTimes)
		h.sendMessage(ctx, s, update.Message.Chat.ID, publishUsage, nil)
		return
	}

	h.publishSlot(ctx, s, update.Message.Chat.ID, update.Message.From, args)
}

// publishSlot reports whether the dialog is finished: true on success and on
// errors retrying cannot fix, false when the input should be re-entered.
func (h *Handlers) publishSlot(ctx context.Context, s Sender, chatID int64, from *models.User, args string) bool {
	_, provider, ok := h.requireProvider(ctx, s, chatID, from)
	if !ok {
		return true
	}

	start, end, err := parsePublishArgs(args, h.loc)
	if err != nil {
		h.sendError(ctx, s, chatID, "❌ Could not read the times.\n\n"+publishUsage)
		return false
	}

	slot, err := h.slotService.PublishSlot(ctx, provider.ID, start, end)
	if err != nil {
		h.sendError(ctx, s, chatID, errorMessage(err))
		return false
	}

	h.sendMessage(ctx, s, chatID, "✅ Published "+formatSlot(slot, h.loc), nil)
	return true
}

// HandleMySlots показывает предстоящие слоты провайдера
func (h *Handlers) HandleMySlots(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	_, provider, ok := h.requireProvider(ctx, s, chatID, update.Message.From)
	if !ok {
		return
	}

	slots, err := h.slotService.ListProviderSlots(ctx, &provider.ID, h.now(), time.Time{})
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("provider_id", provider.ID), zap.Error(err))
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}
	if len(slots) == 0 {
		h.sendMessage(ctx, s, chatID, "You have no upcoming slots. Publish one with /publish.", nil)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Upcoming slots (%d):", len(slots))
	for i, slot := range slots {
		if i == mySlotsLimit {
			fmt.Fprintf(&b, "\n...and %d more", len(slots)-mySlotsLimit)
			break
		}
		b.WriteString("\n" + formatSlot(slot, h.loc))
	}
	h.sendMessage(ctx, s, chatID, b.String(), nil)
}

// HandleWeek отправляет картинку недели провайдера
func (h *Handlers) HandleWeek(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	_, provider, ok := h.requireProvider(ctx, s, chatID, update.Message.From)
	if !ok {
		return
	}

	now := h.now().In(h.loc)
	day := now
	if args := commandArgs(update.Message.Text); args != "" {
		t, _, err := timefmt.ParseInstant(args, h.loc)
		if err != nil {
			h.sendError(ctx, s, chatID, "❌ Use /week or /week YYYY-MM-DD")
			return
		}
		day = t
	}

	weekStart := render.WeekStart(day.In(h.loc))
	weekEnd := weekStart.AddDate(0, 0, 7)
	slots, err := h.slotService.ListProviderSlots(ctx, &provider.ID, weekStart, weekEnd.Add(-1))
	if err != nil {
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}

	imageData, err := render.Week(weekStart, slots, now, h.loc)
	if err != nil {
		h.logger.Error("Failed to render week", zap.Int64("provider_id", provider.ID), zap.Error(err))
		h.sendError(ctx, s, chatID, errorMessage(err))
		return
	}

	booked := 0
	for _, slot := range slots {
		if slot.Booked {
			booked++
		}
	}

	_, err = s.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo:  &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(imageData)},
		Caption: fmt.Sprintf("%s - %s: %d slots, %d booked",
			weekStart.Format("02.01"), weekEnd.AddDate(0, 0, -1).Format("02.01.2006"), len(slots), booked),
	})
	if err != nil {
		h.logger.Error("Failed to send week image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
