package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/config"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// ListChildrenHandler serves direct-children listings for incremental tree
// expansion.
type ListChildrenHandler struct {
	ingredientRepo ports.IngredientRepository
	hierarchy      *domainservices.HierarchyService
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewListChildrenHandler creates a new handler instance
func NewListChildrenHandler(
	ingredientRepo ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ListChildrenHandler {
	return &ListChildrenHandler{
		ingredientRepo: ingredientRepo,
		hierarchy:      hierarchy,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the list children query
func (h *ListChildrenHandler) Handle(ctx context.Context, query queries.ListChildrenQuery) (*queries.IngredientListResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(query.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(query.IngredientID)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	children, err := h.hierarchy.GetChildren(tax, id)
	if err != nil {
		return nil, err
	}

	views := viewsOf(tax, children)
	return &queries.IngredientListResult{Items: views, Total: len(views)}, nil
}

// ListAncestorsHandler serves nearest-first ancestor chains.
type ListAncestorsHandler struct {
	ingredientRepo ports.IngredientRepository
	hierarchy      *domainservices.HierarchyService
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewListAncestorsHandler creates a new handler instance
func NewListAncestorsHandler(
	ingredientRepo ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ListAncestorsHandler {
	return &ListAncestorsHandler{
		ingredientRepo: ingredientRepo,
		hierarchy:      hierarchy,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the list ancestors query
func (h *ListAncestorsHandler) Handle(ctx context.Context, query queries.ListAncestorsQuery) (*queries.IngredientListResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(query.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(query.IngredientID)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	ancestors, err := h.hierarchy.GetAncestors(tax, id)
	if err != nil {
		return nil, err
	}

	views := viewsOf(tax, ancestors)
	return &queries.IngredientListResult{Items: views, Total: len(views)}, nil
}

// ListDescendantsHandler serves breadth-first subtree listings.
type ListDescendantsHandler struct {
	ingredientRepo ports.IngredientRepository
	hierarchy      *domainservices.HierarchyService
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewListDescendantsHandler creates a new handler instance
func NewListDescendantsHandler(
	ingredientRepo ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ListDescendantsHandler {
	return &ListDescendantsHandler{
		ingredientRepo: ingredientRepo,
		hierarchy:      hierarchy,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the list descendants query
func (h *ListDescendantsHandler) Handle(ctx context.Context, query queries.ListDescendantsQuery) (*queries.IngredientListResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(query.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(query.IngredientID)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	descendants, err := h.hierarchy.GetDescendants(tax, id)
	if err != nil {
		return nil, err
	}

	views := viewsOf(tax, descendants)
	return &queries.IngredientListResult{Items: views, Total: len(views)}, nil
}

// ListRootsHandler serves the top-level categories.
type ListRootsHandler struct {
	ingredientRepo ports.IngredientRepository
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewListRootsHandler creates a new handler instance
func NewListRootsHandler(
	ingredientRepo ports.IngredientRepository,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ListRootsHandler {
	return &ListRootsHandler{
		ingredientRepo: ingredientRepo,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the list roots query
func (h *ListRootsHandler) Handle(ctx context.Context, query queries.ListRootsQuery) (*queries.IngredientListResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	views := viewsOf(tax, tax.Roots())
	return &queries.IngredientListResult{Items: views, Total: len(views)}, nil
}
