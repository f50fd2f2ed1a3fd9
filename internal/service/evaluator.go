package service

import (
	"context"
	"fmt"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// ReadinessEvaluator reduces live per-member flags to a group verdict.
type ReadinessEvaluator struct {
	client ReviewClient
}

func NewReadinessEvaluator(client ReviewClient) *ReadinessEvaluator {
	return &ReadinessEvaluator{client: client}
}

// Evaluate queries submittability and mergeability of every member. It never
// stops early so PerMember stays complete for the diagnostics.
func (e *ReadinessEvaluator) Evaluate(ctx context.Context, group []*domain.Change) (*domain.GroupVerdict, error) {
	verdict := &domain.GroupVerdict{
		Submittable: true,
		Mergeable:   true,
		PerMember:   make(map[domain.ChangeRef]domain.Readiness, len(group)),
	}

	for _, member := range group {
		ref := member.Ref()

		submittable, err := e.client.IsSubmittable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("check submittable %s: %w", ref, err)
		}

		mergeable, err := e.client.IsMergeable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("check mergeable %s: %w", ref, err)
		}

		verdict.PerMember[ref] = domain.Readiness{
			Submittable: submittable,
			Mergeable:   mergeable,
		}
		verdict.Submittable = verdict.Submittable && submittable
		verdict.Mergeable = verdict.Mergeable && mergeable
	}

	return verdict, nil
}
