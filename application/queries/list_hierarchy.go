package queries

import "errors"

// ListChildrenQuery returns the direct children of a node, for incremental
// tree expansion in pickers.
type ListChildrenQuery struct {
	IngredientID string
}

// Validate validates the ListChildrenQuery
func (q ListChildrenQuery) Validate() error {
	if q.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	return nil
}

// ListAncestorsQuery returns the parent chain of a node, nearest-first.
type ListAncestorsQuery struct {
	IngredientID string
}

// Validate validates the ListAncestorsQuery
func (q ListAncestorsQuery) Validate() error {
	if q.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	return nil
}

// ListDescendantsQuery returns the whole subtree below a node, breadth-first.
type ListDescendantsQuery struct {
	IngredientID string
}

// Validate validates the ListDescendantsQuery
func (q ListDescendantsQuery) Validate() error {
	if q.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	return nil
}

// ListRootsQuery returns all top-level categories.
type ListRootsQuery struct{}

// Validate validates the ListRootsQuery
func (q ListRootsQuery) Validate() error {
	return nil
}

// IngredientListResult is the shared result shape of the hierarchy listing
// queries.
type IngredientListResult struct {
	Items []IngredientView `json:"items"`
	Total int              `json:"total"`
}
