package appbootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aegis-log/api"
	"aegis-log/config"
	"aegis-log/core/bootstrap"
	"aegis-log/core/store"
	"aegis-log/core/utils"
)

// Run wires the whole application together and serves until SIGINT/SIGTERM.
func Run(configPath string) error {
	logger := utils.NewLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	runtime, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return fmt.Errorf("compose runtime: %w", err)
	}

	if err := bootstrap.EnsureDefaultAdmin(ctx, runtime.users, cfg, logger); err != nil {
		return fmt.Errorf("ensure default admin: %w", err)
	}
	if cfg.Bootstrap.SeedSampleData {
		if err := bootstrap.SeedSampleIncidents(ctx, runtime.incidents, runtime.users, cfg, logger); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}

	if cfg.Sweeper.Enabled {
		runtime.sweeper.StartWithContext(ctx)
	}

	server := api.NewServer(cfg, runtime.serverDeps, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("SERVE listening on %s (driver=%s)", cfg.ListenAddr, cfg.DBDriver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Printf("SERVE shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if cfg.Sweeper.Enabled {
		if err := runtime.sweeper.StopWithContext(shutdownCtx); err != nil {
			logger.Errorf("stop session sweeper: %v", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Printf("SERVE stopped")
	return nil
}
