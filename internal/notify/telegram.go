package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/repository"
)

// MessageSender is the part of *bot.Bot the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier resolves a party to its Telegram chat and sends the message there.
type TelegramNotifier struct {
	sender MessageSender
	users  repository.UserStore
	logger *zap.Logger
}

func NewTelegramNotifier(sender MessageSender, users repository.UserStore, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, partyID int64, subject, body string) error {
	user, err := n.users.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramID == 0 {
		// party has no chat, nothing to deliver to
		n.logger.Debug("No telegram chat for party", zap.Int64("party_id", partyID))
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    user.TelegramID,
		Text:      fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(subject), html.EscapeString(body)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
