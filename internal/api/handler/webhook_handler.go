package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/gerrit"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

const maxEventBody = 4 << 20

// EventDispatcher hands an event to the merger and waits for the outcome.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e *domain.Event) error
}

type StatusResponse struct {
	Status string `json:"status"`
}

// WebhookHandler accepts events posted by the Gerrit webhooks plugin.
type WebhookHandler struct {
	dispatcher EventDispatcher
	logger     *logger.Logger
}

func NewWebhookHandler(dispatcher EventDispatcher, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		logger:     logger.Component("api/webhook"),
	}
}

func (h *WebhookHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.ReceiveEvent)
	return r
}

func (h *WebhookHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		WriteError(w, fmt.Errorf("%w: read body: %v", domain.ErrInvalidEvent, err), h.logger)
		return
	}

	event, err := gerrit.ParseEvent(body)
	if errors.Is(err, domain.ErrUnsupportedEvent) {
		h.logger.Debug("ignoring event", "reason", err.Error())
		writeJSON(w, http.StatusAccepted, StatusResponse{Status: "ignored"}, h.logger)
		return
	}
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		log := h.logger.Change(event.Change.Project, event.Change.Number, event.Change.Topic)
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			// the timeout middleware answers 504 itself
			log.Warn("request deadline reached, event still processing", "type", string(event.Type))
			return
		}
		WriteError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "processed"}, h.logger)
}
