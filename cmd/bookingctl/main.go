package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/slot_booking/internal/app"
	"github.com/Freeeeeet/slot_booking/internal/cli"
	"github.com/Freeeeeet/slot_booking/internal/config"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (repository.Store, error) {
		return app.OpenStorage(ctx, cfg, logger)
	}
	if err := cli.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
