package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngredientID_Unique(t *testing.T) {
	a := NewIngredientID()
	b := NewIngredientID()

	assert.False(t, a.IsZero())
	assert.False(t, a.Equals(b))
}

func TestNewIngredientIDFromString(t *testing.T) {
	valid := NewIngredientID().String()

	id, err := NewIngredientIDFromString(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, id.String())

	_, err = NewIngredientIDFromString("")
	assert.Error(t, err)

	_, err = NewIngredientIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestIngredientID_JSONRoundTrip(t *testing.T) {
	id := NewIngredientID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded IngredientID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, id.Equals(decoded))
}

func TestIngredientName_Validation(t *testing.T) {
	name, err := NewIngredientName("Semi-Sweet Chips", "semi-sweet-chips")
	require.NoError(t, err)
	assert.Equal(t, "Semi-Sweet Chips", name.Display())
	assert.Equal(t, "semi-sweet-chips", name.Slug())

	_, err = NewIngredientName("", "slug")
	assert.Error(t, err)

	_, err = NewIngredientName("Name", "")
	assert.Error(t, err)

	_, err = NewIngredientName("Name", "Not A Slug")
	assert.Error(t, err)

	_, err = NewIngredientName("Name", "trailing-")
	assert.Error(t, err)
}

func TestIngredientName_MatchesQuery(t *testing.T) {
	name, err := NewIngredientName("Dark Chocolate", "dark-chocolate")
	require.NoError(t, err)

	assert.True(t, name.MatchesQuery("choc"))
	assert.True(t, name.MatchesQuery("DARK"))
	assert.False(t, name.MatchesQuery("vanilla"))
	assert.False(t, name.MatchesQuery(""))
}

func TestIngredientName_WithDisplay(t *testing.T) {
	name, err := NewIngredientName("Corriander", "coriander")
	require.NoError(t, err)

	renamed, err := name.WithDisplay("Coriander")
	require.NoError(t, err)
	assert.Equal(t, "Coriander", renamed.Display())
	assert.Equal(t, "coriander", renamed.Slug())
	// Original is untouched; value objects are immutable.
	assert.Equal(t, "Corriander", name.Display())
}
