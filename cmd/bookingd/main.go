package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/slot_booking/internal/app"
	"github.com/Freeeeeet/slot_booking/internal/config"
	"github.com/Freeeeeet/slot_booking/internal/controller"
	"github.com/Freeeeeet/slot_booking/internal/controller/handlers"
	"github.com/Freeeeeet/slot_booking/internal/controller/state"
	"github.com/Freeeeeet/slot_booking/internal/httpapi"
	"github.com/Freeeeeet/slot_booking/internal/notify"
	"github.com/Freeeeeet/slot_booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting slot booking service",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.Bool("http", cfg.HTTPEnabled()),
		zap.Bool("bot", cfg.BotEnabled()),
		zap.String("display_tz", cfg.DisplayLocation.String()),
	)

	store, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var tgBot *bot.Bot
	if cfg.BotEnabled() {
		if tgBot, err = bot.New(cfg.TelegramToken); err != nil {
			return err
		}
	}

	// Уведомления уходят в Telegram, если бот включён, иначе в лог
	var sink notify.Notifier = notify.NewLogNotifier(logger)
	if tgBot != nil {
		sink = notify.NewTelegramNotifier(tgBot, store.Users(), logger)
	}
	dispatcher := notify.NewDispatcher(sink, cfg.NotifyWorkers, cfg.NotifyQueue, logger)
	// очередь дочищается при остановке, поэтому без отмены по сигналу
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	providers := service.NewProviderService(store.Providers(), logger)
	slots := service.NewSlotService(store, service.SlotPolicy{RejectPastStart: cfg.RejectPastSlots}, logger)
	availability := service.NewAvailabilityService(store.Slots(), store.Providers(), cfg.DisplayLocation, logger)
	bookings := service.NewBookingService(store, dispatcher, cfg.DisplayLocation, logger)
	users := service.NewUserService(store.Users(), logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTPEnabled() {
		if cfg.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := httpapi.NewRouter(httpapi.Config{
			Providers:       providers,
			Slots:           slots,
			Availability:    availability,
			Bookings:        bookings,
			ServiceToken:    cfg.ServiceToken,
			RateLimitPerMin: cfg.RateLimitPerMin,
			CORSOrigins:     cfg.CORSOrigins,
			Location:        cfg.DisplayLocation,
			Logger:          logger,
		})
		g.Go(func() error {
			return httpapi.Serve(gctx, cfg.HTTPAddr, router, logger)
		})
	}

	if tgBot != nil {
		sessions := state.NewManager(cfg.SessionTTL)
		scheduler := app.NewScheduler(sessions, sweepInterval(cfg.SessionTTL), logger)
		scheduler.Start(gctx)
		defer scheduler.Stop()

		botController := controller.NewBotController(tgBot, handlers.Deps{
			Users:        users,
			Providers:    providers,
			Slots:        slots,
			Availability: availability,
			Bookings:     bookings,
			State:        sessions,
			Location:     cfg.DisplayLocation,
			Logger:       logger,
		})
		if err := botController.RegisterHandlers(gctx); err != nil {
			// меню команд не критично
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
		g.Go(func() error {
			return botController.Start(gctx)
		})
	}

	return g.Wait()
}

// sweepInterval evicts expired sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return max(ttl/4, 10*time.Second)
}
