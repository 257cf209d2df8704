// Package httpapi is the JSON transport over the booking services.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/service"
)

// Config собирает зависимости HTTP слоя
type Config struct {
	Providers    *service.ProviderService
	Slots        *service.SlotService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService

	ServiceToken    string
	RateLimitPerMin int
	// CORSOrigins enables CORS for browser clients; empty disables it.
	CORSOrigins []string
	Location        *time.Location
	// Now is used for the responder and the week image; nil means time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(cfg Config) *gin.Engine {
	registerValidators()

	h := &Handler{
		providers:    cfg.Providers,
		slots:        cfg.Slots,
		availability: cfg.Availability,
		bookings:     cfg.Bookings,
		loc:          cfg.Location,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}

	router := gin.New()
	router.Use(RequestID(), RequestLogger(cfg.Logger), gin.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(Auth(cfg.ServiceToken), RateLimit(cfg.RateLimitPerMin, cfg.Logger))
	{
		api.POST("/providers", h.RegisterProvider)
		api.POST("/providers/slots", h.PublishSlot)
		api.GET("/providers/slots", h.ListMySlots)
		api.GET("/providers/:id/week.png", h.WeekImage)

		api.GET("/availability", h.Availability)

		api.POST("/appointments/book", h.BookSlot)
		api.GET("/appointments", h.ListAppointments)
		api.GET("/appointments/:id", h.GetAppointment)

		api.POST("/responder", h.Respond)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", headerPartyID, headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
