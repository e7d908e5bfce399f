package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/liamcoop/payrollrisk/internal/config"
	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/internal/telemetry"
	"github.com/liamcoop/payrollrisk/review"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tenancy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.Setup(cfg.LogFormat)
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()
	shutdownLogs := logger.Shutdown
	if cfg.OTelEnabled {
		var err error
		shutdownLogs, err = logger.SetupOTel(ctx, logger.OTelConfig{
			ServiceName: cfg.OTelServiceName,
			Endpoint:    cfg.OTelEndpoint,
			Insecure:    cfg.OTelInsecure,
		})
		if err != nil {
			logger.Warn("OTEL logging unavailable, falling back to JSON", "error", err)
		}
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownLogs(flushCtx); err != nil {
			fmt.Fprintf(os.Stderr, "log export shutdown error: %v\n", err)
		}
	}()
	recorder, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		logger.Fatal("failed to set up telemetry", "error", err)
	}

	engine, err := rules.NewDefaultEngine()
	if err != nil {
		logger.Fatal("failed to build rule engine", "error", err)
	}

	var (
		db          *sqlx.DB
		reviewStore store.ReviewStore
		directory   tenancy.Directory
	)
	if cfg.DatabaseURL != "" {
		db, err = sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
		reviewStore = store.NewPostgresStore(db, cfg.PersistBatchSize)
		directory = tenancy.NewPostgresDirectory(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		reviewStore = store.NewInMemoryStore()
		directory = tenancy.NewInMemoryDirectory()
	}

	tenants := tenancy.NewManager(directory, nil)
	if _, err := tenants.LoadAll(ctx); err != nil {
		logger.Fatal("failed to load tenants", "error", err)
	}

	reviews := review.NewService(engine, reviewStore,
		review.WithRecorder(recorder),
		review.WithConcurrency(cfg.ProcessConcurrency),
	)
	server := NewServer(db, reviews, tenants, cfg.DefaultTier)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "rules", len(engine.Library()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := recorder.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
