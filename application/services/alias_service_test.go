package services

import (
	"context"
	"testing"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/infrastructure/persistence/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type resolveFixture struct {
	service *AliasService
	byName  map[string]*entities.Ingredient
}

func newResolveFixture(t *testing.T) *resolveFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	ingredients := memory.NewIngredientRepository(store)
	aliases := memory.NewAliasRepository(store)

	f := &resolveFixture{
		service: NewAliasService(ingredients, aliases, zap.NewNop()),
		byName:  map[string]*entities.Ingredient{},
	}

	add := func(display, slug string) *entities.Ingredient {
		name, err := valueobjects.NewIngredientName(display, slug)
		require.NoError(t, err)
		node, err := entities.NewRootIngredient(name, "")
		require.NoError(t, err)
		node.MarkEventsAsCommitted()
		require.NoError(t, ingredients.Save(ctx, node))
		f.byName[display] = node
		return node
	}

	add("Semi-Sweet Chips", "semi-sweet-chips")
	add("Dark Chocolate", "dark-chocolate")
	add("Milk Chocolate", "milk-chocolate")

	chips := f.byName["Semi-Sweet Chips"]
	alias, err := entities.NewAlias(chips.ID(), "Choc Chips", "usda", "19081")
	require.NoError(t, err)
	require.NoError(t, aliases.Save(ctx, alias))

	return f
}

func TestAliasService_ResolveLabel_ExactSlug(t *testing.T) {
	f := newResolveFixture(t)

	// Slugification makes the raw label hit the canonical key.
	matches, err := f.service.ResolveLabel(context.Background(), "Semi-Sweet Chips", 5)

	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, MatchedViaSlug, matches[0].MatchedVia)
	assert.Equal(t, f.byName["Semi-Sweet Chips"].ID(), matches[0].Ingredient.ID())
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestAliasService_ResolveLabel_ThroughAlias(t *testing.T) {
	f := newResolveFixture(t)

	matches, err := f.service.ResolveLabel(context.Background(), "Choc Chips", 5)

	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, MatchedViaAlias, matches[0].MatchedVia)
	assert.NotEmpty(t, matches[0].AliasID)
	assert.Equal(t, f.byName["Semi-Sweet Chips"].ID(), matches[0].Ingredient.ID())
}

func TestAliasService_ResolveLabel_FuzzyOverlap(t *testing.T) {
	f := newResolveFixture(t)

	matches, err := f.service.ResolveLabel(context.Background(), "chocolate bar", 5)

	// "chocolate" covers half the label's words for both chocolate nodes.
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, MatchedViaFuzzy, m.MatchedVia)
		assert.InDelta(t, 0.5, m.Score, 1e-9)
	}
	// Equal scores fall back to display-name order.
	assert.Equal(t, "Dark Chocolate", matches[0].Ingredient.Name().Display())
	assert.Equal(t, "Milk Chocolate", matches[1].Ingredient.Name().Display())
}

func TestAliasService_ResolveLabel_CapsMatches(t *testing.T) {
	f := newResolveFixture(t)

	matches, err := f.service.ResolveLabel(context.Background(), "chocolate", 1)

	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestAliasService_ResolveLabel_NoMatch(t *testing.T) {
	f := newResolveFixture(t)

	matches, err := f.service.ResolveLabel(context.Background(), "plutonium", 5)

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestAliasService_ResolveLabel_EmptyLabel(t *testing.T) {
	f := newResolveFixture(t)

	_, err := f.service.ResolveLabel(context.Background(), "   ", 5)

	assert.Error(t, err)
}
