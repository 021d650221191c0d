package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
)

// loadTaxonomy builds the read-side tree snapshot every hierarchy query
// works from. The catalog is bounded, so a full load per query is cheaper
// and simpler than maintaining an incremental view.
func loadTaxonomy(ctx context.Context, repo ports.IngredientRepository, cfg *config.DomainConfig) (*aggregates.Taxonomy, error) {
	all, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	tax, err := aggregates.BuildTaxonomy(all, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy: %w", err)
	}
	return tax, nil
}

// viewsOf maps entities to their read-model shape, resolving each node's
// leaf flag against the snapshot.
func viewsOf(tax *aggregates.Taxonomy, nodes []*entities.Ingredient) []queries.IngredientView {
	views := make([]queries.IngredientView, 0, len(nodes))
	for _, node := range nodes {
		leaf, _ := tax.IsLeaf(node.ID())
		views = append(views, queries.NewIngredientView(node, leaf))
	}
	return views
}
