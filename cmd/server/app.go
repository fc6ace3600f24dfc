package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/phrazzld/verbdrill/internal/api"
	"github.com/phrazzld/verbdrill/internal/catalog"
	"github.com/phrazzld/verbdrill/internal/config"
	"github.com/phrazzld/verbdrill/internal/domain/srs"
	"github.com/phrazzld/verbdrill/internal/events"
	"github.com/phrazzld/verbdrill/internal/identity"
	"github.com/phrazzld/verbdrill/internal/reminder"
	"github.com/phrazzld/verbdrill/internal/service/queue"
	"github.com/phrazzld/verbdrill/internal/service/review"
	"github.com/phrazzld/verbdrill/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	records     store.RecordStore
	storeCloser io.Closer
	catalog     catalog.Catalog

	srsService    srs.Service
	reviewService review.Service
	aggregator    *queue.Aggregator
	resolver      identity.Resolver

	eventEmitter *events.InMemoryEventEmitter
	reminder     *reminder.Scheduler
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.records, app.storeCloser, err = openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	app.catalog, err = catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	app.srsService, err = srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		MasteryMinCorrect:      cfg.SRS.MasteryMinCorrect,
		MasteryMinIntervalDays: cfg.SRS.MasteryMinIntervalDays,
		KnownIntervalDays:      cfg.SRS.KnownIntervalDays,
		MaxIntervalDays:        cfg.SRS.MaxIntervalDays,
		FuzzEnabled:            cfg.SRS.FuzzEnabled,
	}))
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	app.resolver, err = newResolver(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewLogHandler(logger))

	app.reviewService = review.NewService(app.records, app.srsService, logger,
		review.WithCatalog(app.catalog),
		review.WithEmitter(app.eventEmitter))
	app.aggregator = queue.NewAggregator(app.records, app.catalog, logger,
		queue.WithSessionSizes(cfg.Session.DefaultSize, cfg.Session.MaxSize))

	if cfg.Reminder.Enabled {
		app.reminder = reminder.New(app.aggregator, app.eventEmitter,
			cfg.Reminder.Interval, cfg.Reminder.Namespaces, logger)
		// Namespaces seen in review events join the reminder rotation.
		app.eventEmitter.RegisterHandler(app.reminder,
			events.TypeReviewSubmitted, events.TypeItemMastered,
			events.TypeProgressReset, events.TypeRecordsImported)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// newResolver returns a JWT resolver when a secret is configured and the
// anonymous resolver otherwise.
func newResolver(cfg config.AuthConfig) (identity.Resolver, error) {
	if cfg.JWTSecret == "" {
		return identity.AnonymousResolver{}, nil
	}
	resolver, err := identity.NewJWTResolver(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT resolver: %w", err)
	}
	return resolver, nil
}

// router assembles the HTTP handler tree.
func (app *application) router() http.Handler {
	var pinger store.Pinger
	if p, ok := app.records.(store.Pinger); ok {
		pinger = p
	}
	handler := api.NewHandler(app.reviewService, app.aggregator, pinger, app.logger)
	return api.NewRouter(api.RouterConfig{
		Handler:        handler,
		Resolver:       app.resolver,
		Logger:         app.logger,
		RequestTimeout: app.config.Server.RequestTimeout,
	})
}

// Run starts the background jobs and the HTTP server, and blocks until ctx
// is canceled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.reminder != nil {
		if err := app.reminder.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reminder: %w", err)
		}
	}

	if err := app.startHTTPServer(ctx, app.router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.reminder != nil {
		app.reminder.Stop()
	}
	if app.storeCloser != nil {
		if err := app.storeCloser.Close(); err != nil {
			app.logger.Error("error closing record store", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
