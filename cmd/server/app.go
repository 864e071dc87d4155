package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/usergate/internal/api/middleware"
	"github.com/phrazzld/usergate/internal/audit"
	"github.com/phrazzld/usergate/internal/config"
	"github.com/phrazzld/usergate/internal/platform/clock"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/platform/memory"
	"github.com/phrazzld/usergate/internal/platform/metrics"
	"github.com/phrazzld/usergate/internal/platform/postgres"
	"github.com/phrazzld/usergate/internal/platform/tracing"
	"github.com/phrazzld/usergate/internal/service"
	"github.com/phrazzld/usergate/internal/service/auth"
	"github.com/phrazzld/usergate/internal/store"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	clock  clock.Clock

	// db is nil when the in-memory user store is used.
	db *sql.DB

	userStore   store.UserStore
	jwtService  auth.JWTService
	userService service.UserService

	metrics    *metrics.Metrics
	auditQueue *audit.QueueSink
	auditSink  audit.Sink
	tracing    *tracing.Provider

	closers []io.Closer
}

// loadConfig reads the configuration and sets up the process logger.
func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

// newApplication wires every dependency. db may be nil outside production,
// in which case users are kept in memory.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
		clock:  clock.System(),
		db:     db,
	}

	if cfg.Auth.UsingDevSecret {
		log.Warn("using the built-in development JWT secret; set USERGATE_AUTH_JWT_SECRET before deploying")
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth, app.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	log.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	if db != nil {
		app.userStore = postgres.NewPostgresUserStore(db, log)
	} else {
		log.Warn("no database configured, using the in-memory user store")
		app.userStore = memory.NewUserStore()
	}

	app.userService = service.NewUserService(
		app.userStore,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		service.LockoutPolicy{
			MaxFailedLogins: cfg.Auth.MaxFailedLogins,
			Duration:        cfg.Auth.LockoutDuration(),
		},
		app.clock,
		log,
	)

	app.metrics = metrics.New(nil)

	if err := app.setupAudit(); err != nil {
		return nil, err
	}

	app.tracing, err = tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return app, nil
}

// setupAudit builds the audit sink chain: the primary sink (log, rotating
// file or Postgres) behind a FIFO queue, teed with the metrics observer.
func (app *application) setupAudit() error {
	cfg := app.config.Audit

	var primary audit.Sink
	switch {
	case cfg.Sink == "postgres":
		if app.db == nil {
			return errors.New("audit.sink=postgres requires a database connection")
		}
		primary = postgres.NewAuditSink(app.db)
	case cfg.FilePath != "":
		fileLogger, closer := audit.NewFileLogger(audit.FileConfig{
			Path:       cfg.FilePath,
			MaxSizeMB:  cfg.FileMaxSizeMB,
			MaxBackups: cfg.FileMaxBackups,
			MaxAgeDays: cfg.FileMaxAgeDays,
		})
		app.closers = append(app.closers, closer)
		primary = audit.NewLogSink(fileLogger)
	default:
		primary = audit.NewLogSink(app.logger)
	}

	app.auditQueue = audit.NewQueueSink(primary, cfg.QueueSize, cfg.EnqueueTimeout(), app.logger)
	app.metrics.WatchQueue(app.auditQueue)
	app.auditSink = audit.Tee(app.auditQueue, app.metrics)

	app.logger.Info("audit logging configured",
		slog.String("sink", cfg.Sink),
		slog.String("file", cfg.FilePath),
		slog.Int("queue_size", cfg.QueueSize))
	return nil
}

// stages returns the pipeline stages in their fixed order.
func (app *application) stages() []middleware.Interceptor {
	cfg := app.config
	boundary := middleware.NewBoundary(middleware.WithFailureClock(app.clock))

	stages := []middleware.Interceptor{
		boundary,
		middleware.NewAuditRecorder(app.auditSink,
			middleware.WithMaxBody(cfg.Audit.MaxBodyBytes),
			middleware.WithClock(app.clock),
			middleware.WithFailureWriter(boundary.FailureWriter()),
		),
	}
	if cfg.Tracing.OTLPEndpoint != "" {
		stages = append(stages, middleware.NewTracing(app.tracing.Tracer(), nil))
	}
	stages = append(stages,
		middleware.SecurityHeaders{},
		middleware.NewCORS(cfg.Server.CORSAllowedOrigins),
	)
	if rl := cfg.Server.RateLimit; rl.Enabled {
		var opts []middleware.RateLimitOption
		if rl.TrustProxyHeaders {
			opts = append(opts, middleware.WithTrustedProxy())
		}
		stages = append(stages, middleware.NewRateLimit(rl.RequestsPerSecond, rl.Burst, app.clock, opts...))
	}
	return append(stages, middleware.NewAuthenticator(
		app.jwtService,
		middleware.NewPathExclusionPolicy(cfg.Auth.ExcludedPaths...),
	))
}

// handler returns the router wrapped in the middleware pipeline.
func (app *application) handler() *middleware.Pipeline {
	return middleware.NewPipeline(app.setupRouter(), app.logger, app.stages()...)
}

// close drains the audit queue and releases resources. It keeps going after
// a failure and returns every error it met.
func (app *application) close(ctx context.Context) error {
	var errs []error

	if app.auditQueue != nil {
		if err := app.auditQueue.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.tracing != nil {
		if err := app.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}
