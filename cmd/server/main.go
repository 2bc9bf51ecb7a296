/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger analytics engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (when present) and environment configuration
  2. Initialize store (memory or SQLite)
  3. Wire the analytics pipeline
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  PORT                 HTTP server port            (default: 8080)
  STORAGE_BACKEND      "memory" or "sqlite"        (default: memory)
  SQLITE_DB_PATH       SQLite database path        (default: ./data/ledger.db)
  ADVICE_HIGH_BALANCE  High-balance advisory line  (default: 300)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # In-memory store, default port
  ./server

  # SQLite store on port 3000
  STORAGE_BACKEND=sqlite SQLITE_DB_PATH=./data/ledger.db PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - pipeline/pipeline.go: Analytics orchestration
  - config/config.go: Environment configuration
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/ledger-engine/advice"
	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/config"
	"github.com/warp/ledger-engine/ledger"
	memstore "github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/logger"
	"github.com/warp/ledger-engine/pipeline"
	"github.com/warp/ledger-engine/store/sqlite"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize store
	var (
		store  ledger.Store
		closer func() error
	)
	switch cfg.StorageBackend {
	case "sqlite":
		s, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize database")
		}
		store, closer = s, s.Close
		log.Info().Str("path", cfg.SQLiteDBPath).Msg("using sqlite store")
	default:
		store, closer = memstore.NewMemory(), func() error { return nil }
		log.Info().Msg("using in-memory store")
	}
	defer closer()

	// Wire the pipeline and router
	adviceCfg := advice.Config{HighBalanceThreshold: ledger.NewMoney(cfg.AdviceHighBalance)}
	p := pipeline.New(store, adviceCfg)
	router := api.NewRouter(api.NewHandler(p))

	// Keep derived analytics fresh for quiet sessions.
	sweeper := api.NewAnalyticsSweeper(store, p)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
