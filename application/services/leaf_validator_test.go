package services

import (
	"context"
	"testing"

	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/infrastructure/persistence/memory"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leafFixture struct {
	validator *CatalogLeafValidator
	category  *entities.Ingredient
	leaf      *entities.Ingredient
}

func newLeafFixture(t *testing.T) *leafFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	ingredients := memory.NewIngredientRepository(store)
	cfg := config.DefaultDomainConfig()

	save := func(display, slug string, parent *entities.Ingredient) *entities.Ingredient {
		name, err := valueobjects.NewIngredientName(display, slug)
		require.NoError(t, err)
		var node *entities.Ingredient
		if parent == nil {
			node, err = entities.NewRootIngredient(name, "")
		} else {
			node, err = entities.NewIngredient(name, parent, "")
		}
		require.NoError(t, err)
		node.MarkEventsAsCommitted()
		require.NoError(t, ingredients.Save(ctx, node))
		return node
	}

	chocolate := save("Chocolate", "chocolate", nil)
	dark := save("Dark Chocolate", "dark-chocolate", chocolate)
	chips := save("Semi-Sweet Chips", "semi-sweet-chips", dark)

	return &leafFixture{
		validator: NewCatalogLeafValidator(ingredients, domainservices.NewHierarchyService(cfg), cfg),
		category:  dark,
		leaf:      chips,
	}
}

func TestCatalogLeafValidator_IsLeaf(t *testing.T) {
	f := newLeafFixture(t)
	ctx := context.Background()

	leaf, err := f.validator.IsLeaf(ctx, f.leaf.ID())
	require.NoError(t, err)
	assert.True(t, leaf)

	leaf, err = f.validator.IsLeaf(ctx, f.category.ID())
	require.NoError(t, err)
	assert.False(t, leaf)
}

func TestCatalogLeafValidator_ValidateLeaf(t *testing.T) {
	f := newLeafFixture(t)
	ctx := context.Background()

	require.NoError(t, f.validator.ValidateLeaf(ctx, f.leaf.ID()))

	err := f.validator.ValidateLeaf(ctx, f.category.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsHierarchyValidation(err))

	// The failure names concrete leaves the caller can offer instead.
	domainErr := pkgerrors.GetDomainError(err)
	require.NotNil(t, domainErr)
	assert.Contains(t, domainErr.Details["suggested_leaves"], "Semi-Sweet Chips")
}

func TestCatalogLeafValidator_UnknownIngredient(t *testing.T) {
	f := newLeafFixture(t)

	_, err := f.validator.IsLeaf(context.Background(), valueobjects.NewIngredientID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIngredientNotFound(err))
}
