package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/go-ozzo/ozzo-validation"

	"github.com/ZertGraf/gerrit-automerge/internal/api/handler"
	"github.com/ZertGraf/gerrit-automerge/internal/api/middleware"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

func (c *ServerConfig) Validate() error {
	return ValidateStruct(c,
		Field(&c.Port, Required, Min(1), Max(65535)),
		Field(&c.ReadTimeout, Required),
		Field(&c.WriteTimeout, Required),
		Field(&c.RequestTimeout, Required, Min(time.Second)),
	)
}

// HealthFunc reports whether the service and its dependencies are usable.
type HealthFunc func(ctx context.Context) error

type HTTPServer struct {
	server *http.Server
	config *ServerConfig
	logger *logger.Logger
}

func NewHTTPServer(config *ServerConfig,
	webhookHandler *handler.WebhookHandler,
	decisionHandler *handler.DecisionHandler,
	health HealthFunc,
	logger *logger.Logger) (*HTTPServer, error) {

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	router := setupRouter(config, webhookHandler, decisionHandler, health, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		config: config,
		logger: logger.Component("http"),
	}, nil
}

func (s *HTTPServer) Start(_ context.Context) error {
	go func() {
		s.logger.Info("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown failed", "error", err)
		return err
	}

	s.logger.Info("http server stopped")
	return nil
}

func setupRouter(
	config *ServerConfig,
	webhookHandler *handler.WebhookHandler,
	decisionHandler *handler.DecisionHandler,
	health HealthFunc,
	logger *logger.Logger,
) http.Handler {
	log := logger.Component("http")
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Security())
	r.Use(middleware.Timeout(config.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := health(r.Context()); err != nil {
			log.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte(`{"status":"unhealthy"}`)); err != nil {
				log.Warn("failed to write health response", "error", err)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
			log.Warn("failed to write health response", "error", err)
		}
	})

	r.Mount("/events", webhookHandler.Routes())
	r.Mount("/decisions", decisionHandler.Routes())

	return r
}
