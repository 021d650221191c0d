package services

import (
	"context"

	"pantry-backend/domain/core/valueobjects"
)

// LeafValidator is the single capability recipe and product linking code
// depends on. Consumers never see the tree, the store, or the hierarchy
// internals; they ask one question and surface the returned error's
// suggested leaf names verbatim when the answer is no.
type LeafValidator interface {
	// IsLeaf reports whether the ingredient has zero children.
	IsLeaf(ctx context.Context, id valueobjects.IngredientID) (bool, error)

	// ValidateLeaf fails with a suggestion-carrying validation error when
	// the ingredient is a category rather than a concrete leaf.
	ValidateLeaf(ctx context.Context, id valueobjects.IngredientID) error
}
