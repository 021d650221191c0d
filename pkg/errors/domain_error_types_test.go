package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaxDepthExceeded(t *testing.T) {
	err := NewMaxDepthExceeded("abc", 3, 2)

	assert.True(t, IsMaxDepthExceeded(err))
	assert.Equal(t, 422, err.StatusCode)
	assert.Equal(t, 3, err.Details["attempted_level"])
	assert.Equal(t, 2, err.Details["max_level"])
	assert.Contains(t, err.Message, "capped at level 2")
}

func TestNewCircularReference_SelfParentMessage(t *testing.T) {
	err := NewCircularReference("abc", "abc")
	assert.True(t, IsCircularReference(err))
	assert.Contains(t, err.Message, "cannot be its own parent")

	err = NewCircularReference("abc", "def")
	assert.Contains(t, err.Message, "would create a cycle")
}

func TestNewHierarchyValidation_CarriesSuggestions(t *testing.T) {
	err := NewHierarchyValidation("abc", 1, []int{2}, []string{"Semi-Sweet Chips", "Bittersweet Bar"})

	assert.True(t, IsHierarchyValidation(err))
	assert.Equal(t, 400, err.StatusCode)
	assert.Equal(t, 1, err.Details["current_level"])
	assert.Contains(t, err.Message, "select a specific ingredient, e.g. Semi-Sweet Chips, Bittersweet Bar")

	suggestions, ok := err.Details["suggested_leaves"].([]string)
	require.True(t, ok)
	assert.Len(t, suggestions, 2)
}

func TestNewIngredientInUse(t *testing.T) {
	err := NewIngredientInUse("abc", BlockingCounts{Products: 3, Recipes: 5})

	// The in-use failure is a subtype of the hierarchy validation failure.
	assert.True(t, IsIngredientInUse(err))
	assert.True(t, IsHierarchyValidation(err))

	assert.Equal(t, 3, err.Details["blocking_products"])
	assert.Equal(t, 5, err.Details["blocking_recipes"])
	assert.Equal(t, 0, err.Details["blocking_children"])
	assert.Contains(t, err.Message, "3 product(s), 5 recipe(s)")
	assert.NotContains(t, err.Message, "child")
}

func TestBlockingCounts_Total(t *testing.T) {
	assert.Equal(t, 0, BlockingCounts{}.Total())
	assert.Equal(t, 6, BlockingCounts{Products: 1, Recipes: 2, Children: 3}.Total())
}

func TestIsIngredientNotFound_CoversParents(t *testing.T) {
	assert.True(t, IsIngredientNotFound(NewIngredientNotFound("abc")))
	assert.True(t, IsIngredientNotFound(NewParentNotFound("abc")))
	assert.False(t, IsIngredientNotFound(NewSlugTaken("chocolate")))
	assert.False(t, IsIngredientNotFound(nil))
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading parent: %w", NewParentNotFound("abc"))

	assert.True(t, IsIngredientNotFound(wrapped))
	domainErr := GetDomainError(wrapped)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeParentNotFound, domainErr.Code)
}

func TestDomainError_Is(t *testing.T) {
	a := NewSlugTaken("chocolate")
	b := NewSlugTaken("spices")

	// Same type and code compare equal regardless of payload.
	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, NewIngredientNotFound("abc"))
}
