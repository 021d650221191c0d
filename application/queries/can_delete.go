package queries

import "errors"

// CanDeleteQuery asks whether a node could be deleted right now, without
// attempting the deletion. UIs call this to disable the delete button and
// list what still blocks it.
type CanDeleteQuery struct {
	IngredientID string
}

// Validate validates the CanDeleteQuery
func (q CanDeleteQuery) Validate() error {
	if q.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	return nil
}

// CanDeleteResult reports the full blocking picture in one round trip:
// every blocker count is present even when the first one already vetoes,
// plus the number of snapshot lines a deletion would detach (those never
// block; they are informational).
type CanDeleteResult struct {
	IngredientID     string `json:"ingredient_id"`
	CanDelete        bool   `json:"can_delete"`
	BlockingProducts int    `json:"blocking_products"`
	BlockingRecipes  int    `json:"blocking_recipes"`
	BlockingChildren int    `json:"blocking_children"`
	DetachableLines  int    `json:"detachable_lines"`
}
