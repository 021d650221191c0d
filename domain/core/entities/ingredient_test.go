package entities

import (
	"testing"

	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngredient_UnderParent(t *testing.T) {
	// Arrange
	root := createTestRoot(t, "Chocolate", "chocolate")
	name := mustName(t, "Dark Chocolate", "dark-chocolate")

	// Act
	child, err := NewIngredient(name, root, "baking")

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, 1, child.Level().Int())
	require.NotNil(t, child.ParentID())
	assert.True(t, child.ParentID().Equals(root.ID()))
	assert.Equal(t, "baking", child.Category())
	assert.Equal(t, 1, child.Version())
}

func TestNewIngredient_ParentlessDefaultsToLeafLevel(t *testing.T) {
	// The pre-hierarchy catalog created every ingredient flat; a parentless
	// create still lands at the leaf level rather than becoming a root.
	name := mustName(t, "Vanilla Extract", "vanilla-extract")

	ingredient, err := NewIngredient(name, nil, "baking")

	assert.NoError(t, err)
	require.NotNil(t, ingredient)
	assert.Equal(t, 2, ingredient.Level().Int())
	assert.Nil(t, ingredient.ParentID())
	assert.False(t, ingredient.IsRoot())
}

func TestNewIngredient_RejectsCreateUnderLeafLevel(t *testing.T) {
	// Arrange: walk down to the deepest allowed level
	root := createTestRoot(t, "Chocolate", "chocolate")
	mid, err := NewIngredient(mustName(t, "Dark Chocolate", "dark-chocolate"), root, "baking")
	require.NoError(t, err)
	leaf, err := NewIngredient(mustName(t, "Semi-Sweet Chips", "semi-sweet-chips"), mid, "baking")
	require.NoError(t, err)

	// Act
	_, err = NewIngredient(mustName(t, "Mini Chips", "mini-chips"), leaf, "baking")

	// Assert
	assert.Error(t, err)
	assert.True(t, pkgerrors.IsMaxDepthExceeded(err))
}

func TestNewRootIngredient(t *testing.T) {
	// Act
	root, err := NewRootIngredient(mustName(t, "Chocolate", "chocolate"), "")

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, 0, root.Level().Int())
	assert.True(t, root.IsRoot())
	assert.Nil(t, root.ParentID())

	events := root.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "ingredient.created", events[0].GetEventType())
}

func TestIngredient_Rename(t *testing.T) {
	// Arrange
	ingredient := createTestLeaf(t, "Semi-Sweet Chips", "semi-sweet-chips")

	// Act
	err := ingredient.Rename("Semisweet Chocolate Chips")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "Semisweet Chocolate Chips", ingredient.Name().Display())
	assert.Equal(t, "semi-sweet-chips", ingredient.Name().Slug(), "slug is immutable across renames")
	assert.Equal(t, 2, ingredient.Version())

	events := ingredient.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "ingredient.renamed", events[0].GetEventType())
}

func TestIngredient_RenameToSameNameIsNoOp(t *testing.T) {
	ingredient := createTestLeaf(t, "Semi-Sweet Chips", "semi-sweet-chips")

	err := ingredient.Rename("Semi-Sweet Chips")

	assert.NoError(t, err)
	assert.Equal(t, 1, ingredient.Version())
	assert.Empty(t, ingredient.GetUncommittedEvents())
}

func TestIngredient_RelocateToRoot(t *testing.T) {
	// Arrange: a legacy parentless leaf promoted to a root category
	ingredient := createTestLeaf(t, "Spices", "spices")

	// Act
	err := ingredient.Relocate(nil, valueobjects.Level(0), nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, ingredient.Level().Int())
	assert.Nil(t, ingredient.ParentID())
	assert.Equal(t, 2, ingredient.Version())

	events := ingredient.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "ingredient.moved", events[0].GetEventType())
}

func TestIngredient_RelocateUnderParent(t *testing.T) {
	// Arrange
	root := createTestRoot(t, "Chocolate", "chocolate")
	ingredient := createTestLeaf(t, "Cocoa Powder", "cocoa-powder")
	rootID := root.ID()

	// Act
	err := ingredient.Relocate(&rootID, valueobjects.Level(1), []string{"child-a", "child-b"})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 1, ingredient.Level().Int())
	require.NotNil(t, ingredient.ParentID())
	assert.True(t, ingredient.ParentID().Equals(rootID))
}

func TestIngredient_RelocateRejectsParentlessNonRoot(t *testing.T) {
	ingredient := createTestLeaf(t, "Spices", "spices")

	err := ingredient.Relocate(nil, valueobjects.Level(1), nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "root level")
}

func TestIngredient_RelocateRejectsRootLevelWithParent(t *testing.T) {
	root := createTestRoot(t, "Chocolate", "chocolate")
	ingredient := createTestLeaf(t, "Spices", "spices")
	rootID := root.ID()

	err := ingredient.Relocate(&rootID, valueobjects.Level(0), nil)

	assert.Error(t, err)
}

func TestIngredient_RelocateSamePlacementIsNoOp(t *testing.T) {
	root := createTestRoot(t, "Chocolate", "chocolate")
	child, err := NewIngredient(mustName(t, "Dark Chocolate", "dark-chocolate"), root, "")
	require.NoError(t, err)
	child.MarkEventsAsCommitted()
	rootID := root.ID()

	err = child.Relocate(&rootID, valueobjects.Level(1), nil)

	assert.NoError(t, err)
	assert.Empty(t, child.GetUncommittedEvents())
	assert.Equal(t, 1, child.Version())
}

func TestIngredient_Relevel(t *testing.T) {
	// Arrange
	ingredient := createTestLeaf(t, "Semi-Sweet Chips", "semi-sweet-chips")

	// Act
	err := ingredient.Relevel(valueobjects.Level(1))

	// Assert: version moves but no event is raised for cascade re-levels
	assert.NoError(t, err)
	assert.Equal(t, 1, ingredient.Level().Int())
	assert.Equal(t, 2, ingredient.Version())
	assert.Empty(t, ingredient.GetUncommittedEvents())
}

func TestIngredient_DomainEvents(t *testing.T) {
	// Arrange & Act
	name := mustName(t, "Vanilla Extract", "vanilla-extract")
	ingredient, err := NewIngredient(name, nil, "baking")
	require.NoError(t, err)

	// Assert - should have creation event
	events := ingredient.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "ingredient.created", events[0].GetEventType())

	// Act - rename
	require.NoError(t, ingredient.Rename("Pure Vanilla Extract"))

	events = ingredient.GetUncommittedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "ingredient.renamed", events[1].GetEventType())

	// Act - mark as committed
	ingredient.MarkEventsAsCommitted()

	assert.Empty(t, ingredient.GetUncommittedEvents())
}

func TestAlias_CrosswalkFieldsTravelTogether(t *testing.T) {
	owner := createTestLeaf(t, "Semi-Sweet Chips", "semi-sweet-chips")

	_, err := NewAlias(owner.ID(), "choc chips", "usda", "")
	assert.Error(t, err)

	alias, err := NewAlias(owner.ID(), "choc chips", "usda", "19081")
	assert.NoError(t, err)
	require.NotNil(t, alias)
	assert.True(t, alias.HasCrosswalk())

	plain, err := NewAlias(owner.ID(), "chocolate morsels", "", "")
	assert.NoError(t, err)
	assert.False(t, plain.HasCrosswalk())
}

// Helper functions

func mustName(t *testing.T, display, slug string) valueobjects.IngredientName {
	t.Helper()
	name, err := valueobjects.NewIngredientName(display, slug)
	require.NoError(t, err)
	return name
}

func createTestRoot(t *testing.T, display, slug string) *Ingredient {
	t.Helper()
	root, err := NewRootIngredient(mustName(t, display, slug), "")
	require.NoError(t, err)
	root.MarkEventsAsCommitted()
	return root
}

func createTestLeaf(t *testing.T, display, slug string) *Ingredient {
	t.Helper()
	leaf, err := NewIngredient(mustName(t, display, slug), nil, "legacy")
	require.NoError(t, err)
	leaf.MarkEventsAsCommitted()
	return leaf
}
