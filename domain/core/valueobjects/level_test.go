package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"root level", 0, false},
		{"mid level", 1, false},
		{"leaf level", 2, false},
		{"negative", -1, true},
		{"past the depth cap", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := NewLevel(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, level.Int())
		})
	}
}

func TestLevel_Child(t *testing.T) {
	root, err := NewLevel(0)
	require.NoError(t, err)

	mid, err := root.Child()
	require.NoError(t, err)
	assert.Equal(t, 1, mid.Int())

	leaf, err := mid.Child()
	require.NoError(t, err)
	assert.Equal(t, 2, leaf.Int())

	// No level exists below the leaf tier.
	_, err = leaf.Child()
	assert.Error(t, err)
}

func TestLevel_IsRoot(t *testing.T) {
	assert.True(t, Level(0).IsRoot())
	assert.False(t, Level(1).IsRoot())
}

func TestLevel_In(t *testing.T) {
	assert.True(t, Level(2).In([]int{2}))
	assert.True(t, Level(1).In([]int{1, 2}))
	assert.False(t, Level(0).In([]int{2}))
	assert.False(t, Level(0).In(nil))
}
