package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/usergate/internal/platform/postgres"
	"github.com/phrazzld/usergate/internal/redact"
)

// runServer loads the configuration, wires the application and serves until
// ctx is canceled.
func runServer(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("environment", cfg.Server.Environment),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_configured", cfg.Database.URL != ""))

	var app *application
	if cfg.Database.URL != "" {
		db, err := openDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db, postgres.MigrateUp, log); err != nil {
				_ = db.Close()
				return fmt.Errorf("automatic migration failed: %w", err)
			}
		}
		app, err = newApplication(ctx, cfg, log, db)
		if err != nil {
			_ = db.Close()
			return err
		}
	} else {
		app, err = newApplication(ctx, cfg, log, nil)
		if err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		_ = app.close(context.Background())
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	return app.serve(ctx, listener)
}

// serve runs the HTTP server on listener until ctx is canceled or the server
// fails, then shuts down within the configured timeout and drains the audit
// queue.
func (app *application) serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           app.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.String("addr", listener.Addr().String()))
		serveErr <- server.Serve(listener)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", slog.String("error", redact.Error(err)))
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := app.close(shutdownCtx); err != nil {
		app.logger.Error("cleanup failed", slog.String("error", redact.Error(err)))
		runErr = errors.Join(runErr, err)
	}

	app.logger.Info("server shutdown completed")
	return runErr
}
