package service

import (
	"context"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// ReviewClient is the review-system surface the merger depends on. Every call
// reads live state; implementations must not cache between calls.
type ReviewClient interface {
	// GetChange returns domain.ErrChangeNotFound when the change is gone.
	GetChange(ctx context.Context, ref domain.ChangeRef) (*domain.Change, error)
	// QueryOpenByTopic lists every open change carrying topic, with its
	// current revision.
	QueryOpenByTopic(ctx context.Context, topic string) ([]*domain.Change, error)
	IsSubmittable(ctx context.Context, ref domain.ChangeRef) (bool, error)
	IsMergeable(ctx context.Context, ref domain.ChangeRef) (bool, error)
	// HasDependentReview reports whether ref depends on another open change
	// in the same project.
	HasDependentReview(ctx context.Context, ref domain.ChangeRef) (bool, error)
	// Merge submits the change. Merging an already merged change is a no-op.
	Merge(ctx context.Context, change *domain.Change) error
	PostComment(ctx context.Context, ref domain.ChangeRef, message string) error
	// SetBlockingLabel posts message together with the reserved hold vote.
	SetBlockingLabel(ctx context.Context, ref domain.ChangeRef, message string) error
}
