package repository

import (
	"context"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

// DisabledDecisions is used when no database is configured: decisions are
// only logged.
type DisabledDecisions struct {
	logger *logger.Logger
}

func NewDisabledDecisions(logger *logger.Logger) *DisabledDecisions {
	return &DisabledDecisions{logger: logger.Component("repository/decision")}
}

func (r *DisabledDecisions) Create(_ context.Context, d *domain.Decision) error {
	r.logger.Debug("decision journal disabled, dropping entry",
		"kind", d.Kind,
		"topic", d.Topic,
		"change", d.Trigger.String(),
		"members", len(d.Members),
	)
	return nil
}

func (r *DisabledDecisions) ListByTopic(context.Context, string, int) ([]*domain.Decision, error) {
	return []*domain.Decision{}, nil
}

func (r *DisabledDecisions) ListRecent(context.Context, int) ([]*domain.Decision, error) {
	return []*domain.Decision{}, nil
}
