package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// GetIngredientHandler serves single-node lookups by ID or slug, with the
// root-first path and the node's aliases in the same response.
type GetIngredientHandler struct {
	ingredientRepo ports.IngredientRepository
	aliasRepo      ports.AliasRepository
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewGetIngredientHandler creates a new handler instance
func NewGetIngredientHandler(
	ingredientRepo ports.IngredientRepository,
	aliasRepo ports.AliasRepository,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *GetIngredientHandler {
	return &GetIngredientHandler{
		ingredientRepo: ingredientRepo,
		aliasRepo:      aliasRepo,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the get ingredient query
func (h *GetIngredientHandler) Handle(ctx context.Context, query queries.GetIngredientQuery) (*queries.GetIngredientResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	var node *entities.Ingredient
	if query.IngredientID != "" {
		id, err := valueobjects.NewIngredientIDFromString(query.IngredientID)
		if err != nil {
			return nil, pkgerrors.NewIngredientNotFound(query.IngredientID)
		}
		node, err = tax.Node(id)
		if err != nil {
			return nil, err
		}
	} else {
		node, err = tax.NodeBySlug(query.Slug)
		if err != nil {
			return nil, err
		}
	}

	path, err := tax.Path(node.ID())
	if err != nil {
		return nil, err
	}

	aliases, err := h.aliasRepo.GetByIngredientID(ctx, node.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	leaf, _ := tax.IsLeaf(node.ID())
	result := &queries.GetIngredientResult{
		Ingredient: queries.NewIngredientView(node, leaf),
		Path:       viewsOf(tax, path),
	}
	for _, alias := range aliases {
		result.Aliases = append(result.Aliases, queries.NewAliasView(alias))
	}

	return result, nil
}
