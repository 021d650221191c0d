package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// CanDeleteHandler answers the pre-deletion probe. It mirrors the delete
// command's integrity guard byte for byte, but reports instead of acting, so
// a UI can disable the button and explain why in one round trip.
type CanDeleteHandler struct {
	ingredientRepo ports.IngredientRepository
	snapshotLines  ports.SnapshotLineRepository
	usageReader    ports.UsageReader
	logger         *zap.Logger
}

// NewCanDeleteHandler creates a new handler instance
func NewCanDeleteHandler(
	ingredientRepo ports.IngredientRepository,
	snapshotLines ports.SnapshotLineRepository,
	usageReader ports.UsageReader,
	logger *zap.Logger,
) *CanDeleteHandler {
	return &CanDeleteHandler{
		ingredientRepo: ingredientRepo,
		snapshotLines:  snapshotLines,
		usageReader:    usageReader,
		logger:         logger,
	}
}

// Handle executes the can-delete probe
func (h *CanDeleteHandler) Handle(ctx context.Context, query queries.CanDeleteQuery) (*queries.CanDeleteResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(query.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(query.IngredientID)
	}

	if _, err := h.ingredientRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	products, err := h.usageReader.CountProductReferences(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count product references: %w", err)
	}
	recipes, err := h.usageReader.CountRecipeReferences(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipe references: %w", err)
	}
	children, err := h.ingredientRepo.GetByParentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load children: %w", err)
	}
	lines, err := h.snapshotLines.CountByIngredientID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count snapshot lines: %w", err)
	}

	return &queries.CanDeleteResult{
		IngredientID:     id.String(),
		CanDelete:        products == 0 && recipes == 0 && len(children) == 0,
		BlockingProducts: products,
		BlockingRecipes:  recipes,
		BlockingChildren: len(children),
		DetachableLines:  lines,
	}, nil
}
