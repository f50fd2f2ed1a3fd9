package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

func numbers(group []*domain.Change) []int {
	out := make([]int, len(group))
	for i, c := range group {
		out[i] = c.Number
	}
	sort.Ints(out)
	return out
}

func TestResolveWithoutTopicIsSingleton(t *testing.T) {
	review := newFakeReview(
		change("a", 1, "", true, false),
		change("a", 2, "", true, true),
	)
	resolver := NewGroupResolver(review, logger.NewDiscard())

	// stale event snapshot; flags must come from the live lookup
	stale := &domain.Change{Project: "a", Number: 1, Mergeable: true}
	group, err := resolver.Resolve(context.Background(), stale)
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, 1, group[0].Number)
	assert.False(t, group[0].Mergeable)
	assert.True(t, group[0].Submittable)
}

func TestResolveTopicIsIndependentOfTrigger(t *testing.T) {
	merged := change("b", 4, "T", true, true)
	merged.change.Status = domain.ChangeStatusMerged
	review := newFakeReview(
		change("a", 1, "T", true, true),
		change("b", 2, "T", false, true),
		change("c", 3, "T", true, false),
		merged,
		change("a", 5, "other", true, true),
	)
	resolver := NewGroupResolver(review, logger.NewDiscard())

	for _, trigger := range []domain.ChangeRef{{Project: "a", Number: 1}, {Project: "b", Number: 2}, {Project: "c", Number: 3}} {
		group, err := resolver.Resolve(context.Background(), &domain.Change{
			Project: trigger.Project, Number: trigger.Number, Topic: "T",
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, numbers(group), "trigger %s", trigger)
	}
}

func TestResolveFailuresAreHardErrors(t *testing.T) {
	review := newFakeReview(change("a", 1, "T", true, true))
	review.queryErr = domain.ErrReviewUnavailable
	resolver := NewGroupResolver(review, logger.NewDiscard())

	group, err := resolver.Resolve(context.Background(), &domain.Change{Project: "a", Number: 1, Topic: "T"})
	assert.Nil(t, group)
	assert.True(t, errors.Is(err, domain.ErrReviewUnavailable))

	group, err = resolver.Resolve(context.Background(), &domain.Change{Project: "a", Number: 99})
	assert.Nil(t, group)
	assert.True(t, errors.Is(err, domain.ErrChangeNotFound))
}
