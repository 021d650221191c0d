package services

import (
	"context"
	"testing"
	"time"

	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/versioning"
	"pantry-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func checkerOver(t *testing.T, nodes ...*entities.Ingredient) *ConsistencyChecker {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repo := memory.NewIngredientRepository(store)
	for _, node := range nodes {
		require.NoError(t, repo.Save(ctx, node))
	}
	return NewConsistencyChecker(repo, versioning.NewVersioningService(10, true), config.DefaultDomainConfig(), zap.NewNop())
}

func storedIngredient(t *testing.T, display, slug string, parentID *valueobjects.IngredientID, level int) *entities.Ingredient {
	t.Helper()
	name, err := valueobjects.NewIngredientName(display, slug)
	require.NoError(t, err)
	node, err := entities.ReconstructIngredient(
		valueobjects.NewIngredientID(), name, parentID, valueobjects.Level(level), "",
		time.Now(), time.Now(), 1,
	)
	require.NoError(t, err)
	return node
}

func TestConsistencyChecker_CleanCatalog(t *testing.T) {
	root := storedIngredient(t, "Chocolate", "chocolate", nil, 0)
	rootID := root.ID()
	mid := storedIngredient(t, "Dark Chocolate", "dark-chocolate", &rootID, 1)
	midID := mid.ID()
	leaf := storedIngredient(t, "Semi-Sweet Chips", "semi-sweet-chips", &midID, 2)
	orphan := storedIngredient(t, "Vanilla Extract", "vanilla-extract", nil, 2)

	checker := checkerOver(t, root, mid, leaf, orphan)
	report, err := checker.Check(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 4, report.Stats.NodeCount)
	assert.Equal(t, 1, report.Stats.RootCount)
	// The parentless legacy leaf is counted, not flagged.
	assert.Equal(t, 1, report.Stats.OrphanCount)
	assert.NotEmpty(t, report.Checksum)
}

func TestConsistencyChecker_FlagsLevelMismatch(t *testing.T) {
	root := storedIngredient(t, "Chocolate", "chocolate", nil, 0)
	rootID := root.ID()
	// Stored level skips a tier below its parent.
	broken := storedIngredient(t, "Dark Chocolate", "dark-chocolate", &rootID, 2)

	checker := checkerOver(t, root, broken)
	report, err := checker.Check(context.Background())

	require.NoError(t, err)
	require.False(t, report.Clean())
	assert.Equal(t, IssueLevelMismatch, report.Issues[0].Kind)
	assert.Equal(t, broken.ID().String(), report.Issues[0].IngredientID)
}

func TestConsistencyChecker_FlagsMissingParent(t *testing.T) {
	ghost := valueobjects.NewIngredientID()
	dangling := storedIngredient(t, "Dark Chocolate", "dark-chocolate", &ghost, 1)

	checker := checkerOver(t, dangling)
	report, err := checker.Check(context.Background())

	require.NoError(t, err)
	require.False(t, report.Clean())

	kinds := map[string]bool{}
	for _, issue := range report.Issues {
		kinds[issue.Kind] = true
	}
	assert.True(t, kinds[IssueMissingParent])
}

func TestConsistencyChecker_FlagsBadRootLevel(t *testing.T) {
	// Parentless at level 1: neither a root nor a legacy leaf.
	odd := storedIngredient(t, "Dark Chocolate", "dark-chocolate", nil, 1)

	checker := checkerOver(t, odd)
	report, err := checker.Check(context.Background())

	require.NoError(t, err)
	require.False(t, report.Clean())
	assert.Equal(t, IssueBadRootLevel, report.Issues[0].Kind)
}
