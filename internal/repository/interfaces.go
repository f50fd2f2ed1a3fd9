package repository

import (
	"context"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// DecisionRepository - append-only journal of merger decisions.
// Nothing in the merge path reads it back.
type DecisionRepository interface {
	Create(ctx context.Context, decision *domain.Decision) error
	ListByTopic(ctx context.Context, topic string, limit int) ([]*domain.Decision, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Decision, error)
}
