package entities

import (
	"testing"
	"time"

	"pantry-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotLine(t *testing.T) {
	ingredientID := valueobjects.NewIngredientID()

	line, err := NewSnapshotLine("snap-2026-01", ingredientID, 2.5, "kg")

	require.NoError(t, err)
	assert.NotEmpty(t, line.ID())
	assert.Equal(t, "snap-2026-01", line.SnapshotID())
	require.NotNil(t, line.IngredientID())
	assert.True(t, line.References(ingredientID))
	assert.False(t, line.IsDetached())
	assert.Empty(t, line.IngredientNameSnapshot())
}

func TestNewSnapshotLine_Validation(t *testing.T) {
	ingredientID := valueobjects.NewIngredientID()

	_, err := NewSnapshotLine("", ingredientID, 1, "kg")
	assert.Error(t, err)

	_, err = NewSnapshotLine("snap", valueobjects.IngredientID{}, 1, "kg")
	assert.Error(t, err)

	_, err = NewSnapshotLine("snap", ingredientID, -1, "kg")
	assert.Error(t, err)
}

func TestSnapshotLine_Denormalize(t *testing.T) {
	ingredientID := valueobjects.NewIngredientID()
	line, err := NewSnapshotLine("snap-2026-01", ingredientID, 1, "kg")
	require.NoError(t, err)

	err = line.Denormalize("Semi-Sweet Chips", "Dark Chocolate", "Chocolate")

	require.NoError(t, err)
	assert.True(t, line.IsDetached())
	assert.Nil(t, line.IngredientID())
	assert.Equal(t, "Semi-Sweet Chips", line.IngredientNameSnapshot())
	assert.Equal(t, "Dark Chocolate", line.ParentL1NameSnapshot())
	assert.Equal(t, "Chocolate", line.ParentL0NameSnapshot())
	assert.False(t, line.References(ingredientID))
}

func TestSnapshotLine_Denormalize_ShallowNodeHasEmptyAncestors(t *testing.T) {
	// A legacy parentless leaf has no ancestors to copy.
	line, err := NewSnapshotLine("snap", valueobjects.NewIngredientID(), 1, "pc")
	require.NoError(t, err)

	require.NoError(t, line.Denormalize("Vanilla Extract", "", ""))

	assert.True(t, line.IsDetached())
	assert.Equal(t, "Vanilla Extract", line.IngredientNameSnapshot())
	assert.Empty(t, line.ParentL1NameSnapshot())
	assert.Empty(t, line.ParentL0NameSnapshot())
}

func TestSnapshotLine_Denormalize_RequiresName(t *testing.T) {
	line, err := NewSnapshotLine("snap", valueobjects.NewIngredientID(), 1, "pc")
	require.NoError(t, err)

	err = line.Denormalize("  ", "Dark Chocolate", "Chocolate")

	assert.Error(t, err)
	assert.False(t, line.IsDetached())
}

func TestSnapshotLine_Denormalize_IdempotentOnceDetached(t *testing.T) {
	line, err := NewSnapshotLine("snap", valueobjects.NewIngredientID(), 1, "pc")
	require.NoError(t, err)
	require.NoError(t, line.Denormalize("Semi-Sweet Chips", "Dark Chocolate", "Chocolate"))

	// A second pass must not overwrite the recorded history.
	require.NoError(t, line.Denormalize("Renamed Later", "Other", "Other"))

	assert.Equal(t, "Semi-Sweet Chips", line.IngredientNameSnapshot())
}

func TestReconstructSnapshotLine_DetachedNeedsNameSnapshot(t *testing.T) {
	_, err := ReconstructSnapshotLine("line-1", "snap", nil, 1, "kg", time.Now(), "", "", "")
	assert.Error(t, err)

	line, err := ReconstructSnapshotLine("line-1", "snap", nil, 1, "kg", time.Now(), "Semi-Sweet Chips", "Dark Chocolate", "Chocolate")
	require.NoError(t, err)
	assert.True(t, line.IsDetached())
}
