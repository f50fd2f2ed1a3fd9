package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

func TestDisabledDecisions(t *testing.T) {
	var repo DecisionRepository = NewDisabledDecisions(logger.NewDiscard())

	err := repo.Create(t.Context(), &domain.Decision{
		Kind:    domain.DecisionMerged,
		Topic:   "feature-x",
		Trigger: domain.ChangeRef{Project: "p", Number: 1},
	})
	require.NoError(t, err)

	byTopic, err := repo.ListByTopic(t.Context(), "feature-x", 10)
	require.NoError(t, err)
	assert.NotNil(t, byTopic)
	assert.Empty(t, byTopic)

	recent, err := repo.ListRecent(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
