package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/PassportSoftware/paylink/internal/backend"
	"github.com/PassportSoftware/paylink/internal/config"
	"github.com/PassportSoftware/paylink/internal/invoicesvc"
	"github.com/PassportSoftware/paylink/internal/server"
	"github.com/PassportSoftware/paylink/internal/session"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := newLogger(cfg.App.Dev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	mux := http.NewServeMux()

	// Pick the invoice backend: a deployed one over HTTP, or the in-process
	// stand-in store serving both the portal and the REST contract.
	var svc invoicesvc.Service
	if cfg.App.BackendURL != "" {
		svc = invoicesvc.NewHTTPClient(cfg.App.BackendURL, &http.Client{Timeout: 15 * time.Second})
		logger.Info("using remote invoice backend", zap.String("url", cfg.App.BackendURL))
	} else {
		db, err := backend.Open(cfg.Database.DSN, cfg.Database.Debug)
		if err != nil {
			logger.Fatal("failed to open store", zap.Error(err))
		}
		if cfg.App.Migrations {
			if err := backend.Migrate(db); err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}
			logger.Info("migrations completed")
		}
		if cfg.App.SeedDemo {
			if err := backend.Seed(db); err != nil {
				logger.Fatal("seeding failed", zap.Error(err))
			}
		}
		svc = backend.NewLocalService(db)
		backend.NewHandler(db, logger).Register(mux)
		logger.Info("using in-process invoice store", zap.String("dsn", cfg.Database.DSN))
	}

	sessions := session.NewStore(cfg.App.SessionSecret, time.Duration(cfg.App.SessionTTL)*time.Minute)
	mux.Handle("/", server.New(svc, sessions, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
