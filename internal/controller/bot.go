package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/controller/handlers"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, deps handlers.Deps) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: handlers.NewHandlers(deps),
		logger:   deps.Logger,
	}
}

// wrap adapts a Sender-based handler to the library signature.
func wrap(h handlers.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h(ctx, b, update)
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	h := c.handlers

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, wrap(h.HandleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, wrap(h.HandleHelp))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, wrap(h.HandleCancel))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/mybookings", bot.MatchTypeExact, wrap(h.HandleMyBookings))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/find", bot.MatchTypePrefix, wrap(h.HandleFind))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypePrefix, wrap(h.HandleBook))

	// Команды для провайдеров
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/becomeprovider", bot.MatchTypePrefix, wrap(h.HandleBecomeProvider))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/publish", bot.MatchTypePrefix, wrap(h.HandlePublish))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/myslots", bot.MatchTypeExact, wrap(h.HandleMySlots))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypePrefix, wrap(h.HandleWeek))

	// Обработчик текстовых сообщений (диалоги и свободный текст)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, wrap(h.HandleTextMessage))

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, wrap(h.HandleCallbackQuery))

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Start"},
		{Command: "help", Description: "❓ Commands"},
		{Command: "find", Description: "🔎 Find free slots"},
		{Command: "book", Description: "📌 Book a slot by number"},
		{Command: "mybookings", Description: "📅 My appointments"},
		{Command: "becomeprovider", Description: "🎓 Become a provider"},
		{Command: "publish", Description: "➕ Publish a slot (provider)"},
		{Command: "myslots", Description: "🗓 My slots (provider)"},
		{Command: "week", Description: "🖼 My week (provider)"},
		{Command: "cancel", Description: "✖️ Cancel the current dialog"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
