/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed built-in tax tables on first start
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: payroll.db)
           Use ":memory:" for an in-memory database
  -tz      Default pay guide timezone (default: Australia/Sydney)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/taxdata"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "payroll.db", "SQLite database path")
	tz := flag.String("tz", "Australia/Sydney", "default pay guide timezone")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if _, err := time.LoadLocation(*tz); err != nil {
		log.Fatal().Err(err).Str("tz", *tz).Msg("unknown default timezone")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	ctx := context.Background()

	// Seed the built-in withholding tables on first start so a fresh
	// install can withhold before any official tables are uploaded.
	seeded, err := store.HasTaxTables(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to inspect tax tables")
	}
	if !seeded {
		if err := store.ReplaceTaxTables(ctx, taxdata.DefaultTables()); err != nil {
			log.Fatal().Err(err).Msg("failed to seed tax tables")
		}
		log.Info().Msg("seeded built-in tax tables")
	}

	// Initialize handler and prime the table cache
	handler := api.NewHandler(store)
	if err := handler.LoadTaxTables(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load tax tables")
	}

	// Create router
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
