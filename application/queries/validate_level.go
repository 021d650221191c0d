package queries

import "errors"

// ValidateLevelQuery checks whether a node may be linked by a consumer.
// Recipes and products accept leaves only; a category pick fails with leaf
// suggestions the caller can offer instead.
type ValidateLevelQuery struct {
	IngredientID string
	// AllowedLevels optionally narrows which levels pass. Empty means the
	// leaf rule: any node with zero children qualifies.
	AllowedLevels []int
}

// Validate validates the ValidateLevelQuery
func (q ValidateLevelQuery) Validate() error {
	if q.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	for _, level := range q.AllowedLevels {
		if level < 0 {
			return errors.New("allowed levels cannot be negative")
		}
	}
	return nil
}

// ValidateLevelResult reports the verdict. On failure SuggestedLeaves lists
// up to a handful of concrete picks ("select a specific ingredient, e.g.
// Semi-Sweet Chips").
type ValidateLevelResult struct {
	IngredientID    string   `json:"ingredient_id"`
	Level           int      `json:"level"`
	IsLeaf          bool     `json:"is_leaf"`
	Valid           bool     `json:"valid"`
	Reason          string   `json:"reason,omitempty"`
	SuggestedLeaves []string `json:"suggested_leaves,omitempty"`
}
