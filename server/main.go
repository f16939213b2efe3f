package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketly/api/routes"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release) before the logger picks its handler
	gin.SetMode(cfg.GinMode)
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	appLogger.Info("Server exited gracefully")
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	// Build storage, engine, gateway and notification fan-out
	a, err := buildApp(ctx, cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			appLogger.Error("failed to close notification publisher", slog.Any("error", err))
		}
	}()

	// Setup router with rate limiter
	router := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		DB:          db,
		Auth:        a.auth,
		Events:      a.events,
		Engine:      a.engine,
		RateLimiter: a.rateLimiter,
		Logger:      appLogger,
	})

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router.Engine(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Start server
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("storage", cfg.Reservation.StorageBackend),
			slog.String("waitlist", cfg.Reservation.WaitlistBackend),
			slog.String("locks", cfg.Reservation.LockBackend),
			slog.String("broker", cfg.Notifications.Broker),
			slog.Bool("rate_limiting", a.rateLimiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Graceful shutdown
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})

	// Line-protocol gateway
	if cfg.Gateway.Enabled {
		g.Go(func() error {
			appLogger.Info("Gateway listening", slog.String("address", cfg.GetGatewayAddress()))
			if err := a.gateway.ListenAndServe(gctx); err != nil {
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		})
	}

	// Broker consumers deliver promotions to local sessions
	for _, consume := range a.consumers {
		g.Go(func() error {
			return consume(gctx)
		})
	}

	err = g.Wait()
	// Let in-flight promotion notices finish
	a.engine.Drain()
	return err
}
