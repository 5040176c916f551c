/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the chit fund book server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then the YAML config with CHITFUND_* overrides
  2. Apply command-line flags
  3. Open the configured store (sqlite, json or memory)
  4. Open the book (loads and validates every stored fund)
  5. Configure optional Google Sheets export and scheduled backups
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: chitfund.yaml, optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the backup scheduler
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/chitfund.db"

  # Run with a JSON file store
  CHITFUND_STORE_BACKEND=json ./server

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration keys and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/chitfund/api"
	"github.com/warp/chitfund/auth"
	"github.com/warp/chitfund/book"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/chit/store"
	"github.com/warp/chitfund/config"
	"github.com/warp/chitfund/export"
	"github.com/warp/chitfund/logging"
	"github.com/warp/chitfund/store/jsonfile"
	"github.com/warp/chitfund/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chitfund: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	// Flags
	configPath := flag.String("config", "chitfund.yaml", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Component: logging.ComponentApp,
		Output:    os.Stdout,
	})
	logging.SetDefault(logger)

	ctx := context.Background()

	// Initialize store
	storage, closeStore, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("initialize %s store: %w", cfg.Store.Backend, err)
	}
	defer closeStore()

	b, err := book.Open(ctx, storage, auth.NewPasswordGate(cfg.Auth.AdminPassword, logger), logger)
	if err != nil {
		return fmt.Errorf("open book: %w", err)
	}

	var sheets api.FundExporter
	if cfg.SheetsEnabled() {
		exporter, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
		}, logger)
		if err != nil {
			logger.Warn("google sheets export disabled", logging.FieldError, err.Error())
		} else {
			sheets = exporter
		}
	}

	handler := api.NewHandler(b, sheets)
	router := api.NewRouter(handler, logger.WithComponent(logging.ComponentHTTP), cfg.HTTP.AllowedOrigins)

	backups := api.NewBackupScheduler(b, cfg.Backup.Dir, logger)
	if err := backups.Start(cfg.Backup.Cron); err != nil {
		return err
	}
	defer backups.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			logging.FieldOperation, logging.OpStartup,
			"addr", server.Addr,
			"store", cfg.Store.Backend,
			logging.FieldCount, len(b.List()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server", logging.FieldOperation, logging.OpShutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStorage(cfg *config.Config) (chit.Storage, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.BackendJSON:
		return jsonfile.New(cfg.Store.JSONPath), func() {}, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
