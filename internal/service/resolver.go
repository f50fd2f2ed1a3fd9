package service

import (
	"context"
	"fmt"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

// GroupResolver enumerates the members of a change's atomic group.
type GroupResolver struct {
	client ReviewClient
	logger *logger.Logger
}

func NewGroupResolver(client ReviewClient, logger *logger.Logger) *GroupResolver {
	return &GroupResolver{
		client: client,
		logger: logger.Component("service/resolver"),
	}
}

// Resolve returns the singleton group of a change without topic, or every
// open change sharing its topic. Lookup failures are returned as is: a
// partial group is never produced.
func (r *GroupResolver) Resolve(ctx context.Context, change *domain.Change) ([]*domain.Change, error) {
	if !change.IsAtomic() {
		fresh, err := r.client.GetChange(ctx, change.Ref())
		if err != nil {
			return nil, fmt.Errorf("get change %s: %w", change.Ref(), err)
		}
		return []*domain.Change{fresh}, nil
	}

	group, err := r.client.QueryOpenByTopic(ctx, change.Topic)
	if err != nil {
		return nil, fmt.Errorf("query topic %q: %w", change.Topic, err)
	}

	r.logger.Debug("resolved atomic group",
		"topic", change.Topic,
		"members", len(group),
	)

	return group, nil
}
