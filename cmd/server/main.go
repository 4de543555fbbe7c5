package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmakar/linkshort/internal/config"
	"github.com/tmakar/linkshort/internal/generator"
	"github.com/tmakar/linkshort/internal/handler"
	"github.com/tmakar/linkshort/internal/logger"
	"github.com/tmakar/linkshort/internal/middleware"
	"github.com/tmakar/linkshort/internal/repository"
	"github.com/tmakar/linkshort/internal/service"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Storage: %s\n", cfg.Storage.Driver)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	// ============================================================
	// INITIALIZE LOGGER
	// ============================================================
	fmt.Println("📝 Initializing logger...")
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.App.Environment,
	})

	log.Info("starting linkshort",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	// ============================================================
	// INITIALIZE STORAGE
	// ============================================================
	fmt.Println("🗄️  Connecting to storage...")
	store, err := openStore(cfg)
	if err != nil {
		log.Error("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close store", "error", err.Error())
		}
	}()
	log.Info("storage connected", "driver", cfg.Storage.Driver)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	fmt.Println("⚙️  Initializing service...")
	gen := generator.New(log)
	svc := service.NewLinkService(store, gen, log, cfg.Storage.Timeout)

	fmt.Println("🌐 Setting up HTTP handlers...")
	h := handler.NewLinkHandler(svc, log)
	router := h.Routes()

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel to track server errors
	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST   /links        - Create short link")
			fmt.Println("  GET    /links        - List all links")
			fmt.Println("  GET    /links/{code} - Link details")
			fmt.Println("  DELETE /links/{code} - Delete link")
			fmt.Println("  GET    /{code}       - Redirect to target")
			fmt.Println("  GET    /healthz      - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced close failed", "error", err.Error())
			}
			os.Exit(1)
		}

		log.Info("server stopped")
	}
}

// openStore picks the link store backend configured in STORAGE_DRIVER.
func openStore(cfg *config.Config) (repository.LinkStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return repository.NewSQLiteStore(cfg.Storage.SQLitePath, nil)
	case config.DriverPostgres:
		return repository.NewPostgresStore(cfg.Storage.PostgresDSN, nil)
	case config.DriverRedis:
		return repository.NewRedisStore(repository.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		}, nil)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
