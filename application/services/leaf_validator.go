package services

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/core/valueobjects"
)

// CatalogLeafValidator answers the one question recipe and product linking
// code asks of the catalog: is this ingredient a concrete leaf? It rebuilds
// the tree snapshot from the store per call, so an answer always reflects
// the committed catalog.
type CatalogLeafValidator struct {
	ingredients ports.IngredientRepository
	hierarchy   *domainservices.HierarchyService
	domainCfg   *config.DomainConfig
}

// NewCatalogLeafValidator creates the leaf validator consumers depend on
func NewCatalogLeafValidator(
	ingredients ports.IngredientRepository,
	hierarchy *domainservices.HierarchyService,
	domainCfg *config.DomainConfig,
) *CatalogLeafValidator {
	if domainCfg == nil {
		domainCfg = config.DefaultDomainConfig()
	}
	return &CatalogLeafValidator{
		ingredients: ingredients,
		hierarchy:   hierarchy,
		domainCfg:   domainCfg,
	}
}

// IsLeaf reports whether the ingredient has zero children
func (v *CatalogLeafValidator) IsLeaf(ctx context.Context, id valueobjects.IngredientID) (bool, error) {
	tax, err := v.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return v.hierarchy.IsLeaf(tax, id)
}

// ValidateLeaf fails with a suggestion-carrying validation error when the
// ingredient is a category rather than a concrete leaf
func (v *CatalogLeafValidator) ValidateLeaf(ctx context.Context, id valueobjects.IngredientID) error {
	tax, err := v.snapshot(ctx)
	if err != nil {
		return err
	}
	return v.hierarchy.ValidateLeaf(tax, id)
}

func (v *CatalogLeafValidator) snapshot(ctx context.Context) (*aggregates.Taxonomy, error) {
	all, err := v.ingredients.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	tax, err := aggregates.BuildTaxonomy(all, v.domainCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy: %w", err)
	}
	return tax, nil
}

var _ domainservices.LeafValidator = (*CatalogLeafValidator)(nil)
