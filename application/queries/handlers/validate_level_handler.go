package handlers

import (
	"context"
	"errors"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/config"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// ValidateLevelHandler answers the link-eligibility probe recipes and
// products run before referencing a node. An ineligible pick is a normal
// answer here, not an error: the result carries the reason and concrete
// leaf suggestions instead.
type ValidateLevelHandler struct {
	ingredientRepo ports.IngredientRepository
	hierarchy      *domainservices.HierarchyService
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewValidateLevelHandler creates a new handler instance
func NewValidateLevelHandler(
	ingredientRepo ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ValidateLevelHandler {
	return &ValidateLevelHandler{
		ingredientRepo: ingredientRepo,
		hierarchy:      hierarchy,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the validate level query
func (h *ValidateLevelHandler) Handle(ctx context.Context, query queries.ValidateLevelQuery) (*queries.ValidateLevelResult, error) {
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

	node, err := tax.Node(id)
	if err != nil {
		return nil, err
	}
	leaf, err := tax.IsLeaf(id)
	if err != nil {
		return nil, err
	}

	result := &queries.ValidateLevelResult{
		IngredientID: id.String(),
		Level:        node.Level().Int(),
		IsLeaf:       leaf,
	}

	var verdict error
	if len(query.AllowedLevels) == 0 {
		verdict = h.hierarchy.ValidateLeaf(tax, id)
	} else {
		verdict = h.hierarchy.ValidateHierarchyLevel(tax, id, query.AllowedLevels)
	}

	if verdict == nil {
		result.Valid = true
		return result, nil
	}

	var domainErr *pkgerrors.DomainError
	if errors.As(verdict, &domainErr) && pkgerrors.IsHierarchyValidation(verdict) {
		result.Valid = false
		result.Reason = domainErr.Message
		result.SuggestedLeaves = tax.LeafSuggestions(id, h.domainCfg.MaxLeafSuggestions)
		return result, nil
	}

	return nil, verdict
}
