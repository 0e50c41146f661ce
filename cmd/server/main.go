/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration
  2. Build the zap logger
  3. Open and migrate the SQLite store
  4. Create the request service, API handler and alert scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)
  -port    HTTP server port, overrides server.addr
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

ENVIRONMENT:
  LEAVE_* variables override the file; see config/config.go.

SIGNALS:
  SIGHUP           Reload the leave policy from -config
  SIGINT/SIGTERM   Stop the scheduler, drain requests (30s), close the store

EXAMPLES:
  ./server -config=./config.yaml
  ./server -db=":memory:" -port=3000
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

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/timeoff"
	"go.uber.org/zap"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, configPath string, logger *zap.Logger) error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	policies := config.NewPolicySource(cfg.Policy())
	service := timeoff.NewRequestService(store, policies, generic.SystemClock, logger)

	handler := api.NewHandler(service, logger)

	scheduler := api.NewExpiryAlertScheduler(service, logger)
	scheduler.CheckInterval = cfg.Alerts.ScanInterval
	scheduler.Enabled = cfg.Alerts.Enabled
	handler.Scheduler = scheduler
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("db", cfg.Database.Path),
			zap.String("policy", cfg.Leave.Policy),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serverErr:
			return err
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				reloadPolicy(policies, configPath, logger)
				continue
			}
			logger.Info("shutting down server", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("server stopped")
			return nil
		}
	}
}

func reloadPolicy(policies *config.PolicySource, configPath string, logger *zap.Logger) {
	if configPath == "" {
		logger.Warn("policy reload skipped: no -config file")
		return
	}
	cfg, err := policies.Reload(configPath)
	if err != nil {
		logger.Error("policy reload failed", zap.Error(err))
		return
	}
	logger.Info("policy reloaded",
		zap.String("policy", cfg.Leave.Policy),
		zap.Int("alert_window_days", cfg.Leave.AlertWindowDays),
	)
}
