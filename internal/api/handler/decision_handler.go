package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
	"github.com/ZertGraf/gerrit-automerge/internal/repository"
)

const (
	defaultDecisionLimit = 50
	maxDecisionLimit     = 500
)

type DecisionHandler struct {
	decisions repository.DecisionRepository
	logger    *logger.Logger
}

func NewDecisionHandler(decisions repository.DecisionRepository, logger *logger.Logger) *DecisionHandler {
	return &DecisionHandler{
		decisions: decisions,
		logger:    logger.Component("api/decisions"),
	}
}

func (h *DecisionHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.ListDecisions)
	return r
}

type DecisionListResponse struct {
	Decisions []DecisionResponse `json:"decisions"`
}

type DecisionResponse struct {
	ID        int64            `json:"decision_id"`
	Kind      string           `json:"kind"`
	Topic     string           `json:"topic,omitempty"`
	Project   string           `json:"project"`
	Change    int              `json:"change"`
	Event     string           `json:"event"`
	Members   []MemberResponse `json:"members"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
}

type MemberResponse struct {
	Project     string `json:"project"`
	Change      int    `json:"change"`
	Submittable bool   `json:"submittable"`
	Mergeable   bool   `json:"mergeable"`
	Merged      bool   `json:"merged"`
	Error       string `json:"error,omitempty"`
}

// ListDecisions serves GET /decisions?topic=K&limit=N.
func (h *DecisionHandler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var decisions []*domain.Decision
	if topic := r.URL.Query().Get("topic"); topic != "" {
		decisions, err = h.decisions.ListByTopic(r.Context(), topic, limit)
	} else {
		decisions, err = h.decisions.ListRecent(r.Context(), limit)
	}
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp := DecisionListResponse{Decisions: make([]DecisionResponse, 0, len(decisions))}
	for _, d := range decisions {
		resp.Decisions = append(resp.Decisions, toDecisionResponse(d))
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultDecisionLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxDecisionLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParameter, maxDecisionLimit)
	}
	return limit, nil
}

func toDecisionResponse(d *domain.Decision) DecisionResponse {
	members := make([]MemberResponse, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, MemberResponse{
			Project:     m.Project,
			Change:      m.Number,
			Submittable: m.Submittable,
			Mergeable:   m.Mergeable,
			Merged:      m.Merged,
			Error:       m.Error,
		})
	}

	return DecisionResponse{
		ID:        d.ID,
		Kind:      string(d.Kind),
		Topic:     d.Topic,
		Project:   d.Trigger.Project,
		Change:    d.Trigger.Number,
		Event:     string(d.Event),
		Members:   members,
		CreatedAt: d.CreatedAt,
	}
}
