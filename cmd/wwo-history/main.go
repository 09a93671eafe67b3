package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/weatherhist/wwo-history/internal/api/http"
	"github.com/weatherhist/wwo-history/internal/config"
	"github.com/weatherhist/wwo-history/internal/logger"
	"github.com/weatherhist/wwo-history/internal/scheduler"
	"github.com/weatherhist/wwo-history/internal/store"
	"github.com/weatherhist/wwo-history/internal/weather"
	"github.com/weatherhist/wwo-history/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel)
	defer zlog.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewWWOProvider(httpClient, cfg.WWOAPIKey, cfg.WWOBaseURL)
	memStore := store.NewMemoryStore(cfg.StoreMaxTables)

	// Core service orchestrating partitioning, fetching and flattening.
	service := weather.NewService(provider, memStore, zlog)

	// Scheduler that periodically re-extracts and exports each city.
	sched := scheduler.New(service, zlog, scheduler.Options{
		Cities:       cfg.Cities,
		Frequency:    cfg.Frequency,
		HistoryDays:  cfg.HistoryDays,
		CSVDir:       cfg.CSVDir,
		Interval:     cfg.RefreshInterval,
		FetchTimeout: cfg.HTTPTimeout,
	})
	if err := sched.Start(); err != nil {
		zlog.Fatalw("failed to start scheduler", "err", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "wwo-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "wwo-history",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, provider, cfg.HTTPTimeout)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Errorw("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Errorw("error during shutdown", "err", err)
	}
}
