package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/amqp"
	"kakeibo/internal/auth"
	"kakeibo/internal/config"
	apphttp "kakeibo/internal/http"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
	"kakeibo/internal/storage/memory"
)

// store is everything the API needs from a backend.
type store interface {
	services.TransactionStore
	services.DashboardStore
	auth.Store
	apphttp.UserStore
	Close() error
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var backend store
	switch cfg.DataBackend {
	case "memory":
		backend = memory.NewStore()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		backend = repo
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
	}
	defer backend.Close()

	// AMQP is optional: without it transactions still persist, they just
	// wait for the worker's pending-sync poller.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	authSvc := auth.NewService(backend, cfg.SessionTTL)
	txSvc := services.NewTransactionService(backend, publisher)
	dashSvc := services.NewDashboardService(backend)

	srv := apphttp.NewServer(":"+cfg.Port, txSvc, dashSvc, authSvc, backend)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting kakeibo server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
