package bootstrap

import (
	"context"
	"fmt"

	"github.com/ZertGraf/gerrit-automerge/internal/api"
	"github.com/ZertGraf/gerrit-automerge/internal/api/handler"
	"github.com/ZertGraf/gerrit-automerge/internal/gerrit"
	"github.com/ZertGraf/gerrit-automerge/internal/message"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/config"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/postgres"
	"github.com/ZertGraf/gerrit-automerge/internal/repository"
	"github.com/ZertGraf/gerrit-automerge/internal/service"
	"github.com/ZertGraf/gerrit-automerge/migrations"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection // nil when the decision journal is disabled
	Migrator *postgres.Migrator

	Gerrit    *gerrit.Client
	Templates *message.Templates
	Decisions repository.DecisionRepository

	AutoMerger *service.AutoMerger
	Dispatcher *service.Dispatcher
	Stream     *gerrit.StreamListener // nil unless ssh stream-events is enabled

	WebhookHandler  *handler.WebhookHandler
	DecisionHandler *handler.DecisionHandler

	HTTPServer *api.HTTPServer
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		AddSource:   cfg.LogAddSource,
		Service:     cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: log,
	}

	if cfg.DatabaseEnabled {
		app.Postgres, err = postgres.New(log, &postgres.Config{
			Host:              cfg.DatabaseHost,
			Port:              cfg.DatabasePort,
			Username:          cfg.DatabaseUser,
			Password:          cfg.DatabasePassword,
			Database:          cfg.DatabaseName,
			Schema:            cfg.DatabaseSchema,
			SSLMode:           cfg.DatabaseSSLMode,
			ApplicationName:   cfg.ServiceName,
			MaxConns:          cfg.DatabaseMaxConns,
			MinConns:          cfg.DatabaseMinConns,
			MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
			MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
			HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
			ConnectTimeout:    cfg.DatabaseConnectTimeout,
			AcquireTimeout:    cfg.DatabaseAcquireTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
	}

	app.Gerrit, err = gerrit.NewClient(&gerrit.Config{
		URL:      cfg.GerritURL,
		Username: cfg.GerritUsername,
		Password: cfg.GerritHTTPPassword,
		Timeout:  cfg.GerritRequestTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create gerrit client: %w", err)
	}

	app.Templates, err = message.Load(map[message.Ref]string{
		message.AtomicReviewDetected:  cfg.TemplateAtomicReviewDetected,
		message.AtomicReviewsSameRepo: cfg.TemplateAtomicReviewsSameRepo,
		message.CantMerge:             cfg.TemplateCantMerge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load message templates: %w", err)
	}

	return app, nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.initDecisions(ctx); err != nil {
		return err
	}

	app.AutoMerger = service.NewAutoMerger(
		app.Gerrit,
		service.NewFeedbackFilter(app.Config.BotEmail),
		app.Templates,
		app.Decisions,
		app.Logger,
	)

	dispatcher, err := service.NewDispatcher(app.AutoMerger, &service.DispatcherConfig{
		QueueSize:      app.Config.EventQueueSize,
		EnqueueTimeout: app.Config.EventEnqueueTimeout,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event dispatcher: %w", err)
	}
	app.Dispatcher = dispatcher

	if err := app.Dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}

	app.WebhookHandler = handler.NewWebhookHandler(app.Dispatcher, app.Logger)
	app.DecisionHandler = handler.NewDecisionHandler(app.Decisions, app.Logger)

	app.HTTPServer, err = api.NewHTTPServer(&api.ServerConfig{
		Host:           app.Config.ServerHost,
		Port:           app.Config.ServerPort,
		ReadTimeout:    app.Config.ServerReadTimeout,
		WriteTimeout:   app.Config.ServerWriteTimeout,
		IdleTimeout:    app.Config.ServerIdleTimeout,
		RequestTimeout: app.Config.ServerRequestTimeout,
	}, app.WebhookHandler, app.DecisionHandler, app.Health, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	if app.Config.GerritSSHEnabled {
		app.Stream, err = gerrit.NewStreamListener(&gerrit.StreamConfig{
			Addr:           app.Config.GerritSSHAddr,
			User:           app.Config.GerritSSHUser,
			KeyFile:        app.Config.GerritSSHKeyFile,
			KnownHosts:     app.Config.GerritSSHKnownHosts,
			ReconnectDelay: app.Config.GerritSSHReconnectDelay,
		}, app.Dispatcher, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to create event stream listener: %w", err)
		}

		if err := app.Stream.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event stream listener: %w", err)
		}
	}

	app.Logger.Info("application initialized successfully",
		"journal", app.Postgres != nil,
		"ssh_stream", app.Stream != nil,
	)
	return nil
}

func (app *Application) initDecisions(ctx context.Context) error {
	if app.Postgres == nil {
		app.Logger.Warn("decision journal disabled, decisions will only be logged")
		app.Decisions = repository.NewDisabledDecisions(app.Logger)
		return nil
	}

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Source:    migrations.MigrationFiles,
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	app.Decisions = repository.NewDecisionRepo(app.Postgres.Pool(), app.Logger)
	return nil
}

// Shutdown stops intake first so that no event is accepted after the
// dispatcher has drained.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.Stream != nil {
		if err := app.Stream.Stop(ctx); err != nil {
			app.Logger.Error("error stopping event stream listener", "error", err)
		}
	}

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	if app.Dispatcher != nil {
		if err := app.Dispatcher.Stop(ctx); err != nil {
			app.Logger.Error("error stopping event dispatcher", "error", err)
		}
	}

	if app.Postgres != nil {
		app.Postgres.Close()
	}

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if app.Postgres != nil {
		if err := app.Postgres.Health(ctx); err != nil {
			return fmt.Errorf("postgres health check failed: %w", err)
		}
		if err := app.Migrator.Health(ctx); err != nil {
			return fmt.Errorf("migrator health check failed: %w", err)
		}
	}

	if _, err := app.Gerrit.ServerVersion(ctx); err != nil {
		return fmt.Errorf("gerrit health check failed: %w", err)
	}
	return nil
}
