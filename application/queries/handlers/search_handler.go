package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/application/services"
	"pantry-backend/domain/config"
	domainservices "pantry-backend/domain/core/services"

	"go.uber.org/zap"
)

// SearchIngredientsHandler serves name search with breadcrumbs.
type SearchIngredientsHandler struct {
	ingredientRepo ports.IngredientRepository
	hierarchy      *domainservices.HierarchyService
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewSearchIngredientsHandler creates a new handler instance
func NewSearchIngredientsHandler(
	ingredientRepo ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *SearchIngredientsHandler {
	return &SearchIngredientsHandler{
		ingredientRepo: ingredientRepo,
		hierarchy:      hierarchy,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the search query
func (h *SearchIngredientsHandler) Handle(ctx context.Context, query queries.SearchIngredientsQuery) (*queries.SearchIngredientsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	matches, err := h.hierarchy.SearchIngredients(tax, query.Query)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 || limit > h.domainCfg.MaxSearchResults {
		limit = h.domainCfg.MaxSearchResults
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := &queries.SearchIngredientsResult{
		Query: query.Query,
		Hits:  make([]queries.SearchHit, 0, len(matches)),
	}
	for _, match := range matches {
		leaf, _ := tax.IsLeaf(match.Ingredient.ID())
		// Breadcrumbs render root-first; the chain arrives nearest-first.
		breadcrumb := make([]queries.IngredientView, 0, len(match.Ancestors))
		for i := len(match.Ancestors) - 1; i >= 0; i-- {
			ancestorLeaf, _ := tax.IsLeaf(match.Ancestors[i].ID())
			breadcrumb = append(breadcrumb, queries.NewIngredientView(match.Ancestors[i], ancestorLeaf))
		}
		result.Hits = append(result.Hits, queries.SearchHit{
			Ingredient: queries.NewIngredientView(match.Ingredient, leaf),
			Breadcrumb: breadcrumb,
		})
	}
	result.Total = len(result.Hits)

	return result, nil
}

// ResolveLabelHandler maps free-text labels to catalog candidates through
// the alias service.
type ResolveLabelHandler struct {
	aliasService   *services.AliasService
	ingredientRepo ports.IngredientRepository
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewResolveLabelHandler creates a new handler instance
func NewResolveLabelHandler(
	aliasService *services.AliasService,
	ingredientRepo ports.IngredientRepository,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ResolveLabelHandler {
	return &ResolveLabelHandler{
		aliasService:   aliasService,
		ingredientRepo: ingredientRepo,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the resolve label query
func (h *ResolveLabelHandler) Handle(ctx context.Context, query queries.ResolveLabelQuery) (*queries.ResolveLabelResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	matches, err := h.aliasService.ResolveLabel(ctx, query.Label, query.Limit)
	if err != nil {
		return nil, err
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	result := &queries.ResolveLabelResult{
		Label:   query.Label,
		Matches: make([]queries.ResolvedLabel, 0, len(matches)),
	}
	for _, match := range matches {
		leaf, _ := tax.IsLeaf(match.Ingredient.ID())
		result.Matches = append(result.Matches, queries.ResolvedLabel{
			Ingredient: queries.NewIngredientView(match.Ingredient, leaf),
			MatchedVia: match.MatchedVia,
			AliasID:    match.AliasID,
			Score:      match.Score,
		})
	}

	return result, nil
}
