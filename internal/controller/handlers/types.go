package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/controller/state"
	"github.com/Freeeeeet/slot_booking/internal/service"
)

// Sender is the part of *bot.Bot the handlers talk through.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// HandlerFunc is a bot handler over Sender instead of *bot.Bot.
type HandlerFunc func(ctx context.Context, s Sender, update *models.Update)

// Deps собирает зависимости обработчиков
type Deps struct {
	Users        *service.UserService
	Providers    *service.ProviderService
	Slots        *service.SlotService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	State        *state.Manager
	Location     *time.Location
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService         *service.UserService
	providerService     *service.ProviderService
	slotService         *service.SlotService
	availabilityService *service.AvailabilityService
	bookingService      *service.BookingService
	stateManager        *state.Manager
	loc                 *time.Location
	now                 func() time.Time
	logger              *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		userService:         d.Users,
		providerService:     d.Providers,
		slotService:         d.Slots,
		availabilityService: d.Availability,
		bookingService:      d.Bookings,
		stateManager:        d.State,
		loc:                 d.Location,
		now:                 d.Now,
		logger:              d.Logger,
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}
