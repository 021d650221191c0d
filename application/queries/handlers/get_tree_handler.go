package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// GetTreeHandler renders the catalog as nested nodes for picker UIs. The
// assembly is a breadth-first worklist processed in reverse, so subtrees are
// complete before their parents consume them and no recursion is involved.
type GetTreeHandler struct {
	ingredientRepo ports.IngredientRepository
	domainCfg      *config.DomainConfig
	logger         *zap.Logger
}

// NewGetTreeHandler creates a new handler instance
func NewGetTreeHandler(
	ingredientRepo ports.IngredientRepository,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *GetTreeHandler {
	return &GetTreeHandler{
		ingredientRepo: ingredientRepo,
		domainCfg:      domainCfg,
		logger:         logger,
	}
}

// Handle executes the get tree query
func (h *GetTreeHandler) Handle(ctx context.Context, query queries.GetTreeQuery) (*queries.GetTreeResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	tax, err := loadTaxonomy(ctx, h.ingredientRepo, h.domainCfg)
	if err != nil {
		return nil, err
	}

	var roots []*entities.Ingredient
	if query.RootID != "" {
		id, err := valueobjects.NewIngredientIDFromString(query.RootID)
		if err != nil {
			return nil, pkgerrors.NewIngredientNotFound(query.RootID)
		}
		node, err := tax.Node(id)
		if err != nil {
			return nil, err
		}
		roots = []*entities.Ingredient{node}
	} else {
		roots = tax.Roots()
	}

	// Worklist pass one: breadth-first visit order from the chosen roots.
	order := []valueobjects.IngredientID{}
	queue := make([]valueobjects.IngredientID, 0, len(roots))
	for _, root := range roots {
		queue = append(queue, root.ID())
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		children, err := tax.Children(id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			queue = append(queue, child.ID())
		}
	}

	// Pass two: assemble deepest-first, so every node's children already
	// exist when the node is built.
	built := make(map[valueobjects.IngredientID]queries.TreeNode, len(order))
	leafCount := 0
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		node, err := tax.Node(id)
		if err != nil {
			return nil, err
		}
		children, err := tax.Children(id)
		if err != nil {
			return nil, err
		}

		treeNode := queries.TreeNode{
			IngredientView: queries.NewIngredientView(node, len(children) == 0),
			Children:       make([]queries.TreeNode, 0, len(children)),
		}
		for _, child := range children {
			treeNode.Children = append(treeNode.Children, built[child.ID()])
		}
		if len(children) == 0 {
			leafCount++
		}
		built[id] = treeNode
	}

	result := &queries.GetTreeResult{
		Roots: make([]queries.TreeNode, 0, len(roots)),
		Stats: treeStats(tax, query.RootID == "", len(order), len(roots), leafCount),
	}
	for _, root := range roots {
		result.Roots = append(result.Roots, built[root.ID()])
	}

	// Parentless legacy leaves render as their own group on the full
	// tree, matching the GetRoots convention that roots are level 0.
	if query.RootID == "" {
		for _, orphan := range tax.Orphans() {
			result.Orphans = append(result.Orphans, queries.TreeNode{
				IngredientView: queries.NewIngredientView(orphan, true),
				Children:       []queries.TreeNode{},
			})
		}
	}

	h.logger.Debug("Tree rendered",
		zap.Int("nodes", len(order)),
		zap.Int("roots", len(roots)),
	)

	return result, nil
}

// treeStats reports catalog-wide stats for a full render and scope-local
// counts for a subtree render.
func treeStats(tax *aggregates.Taxonomy, fullTree bool, nodeCount, rootCount, leafCount int) queries.TreeStats {
	if fullTree {
		stats := tax.Stats()
		return queries.TreeStats{
			NodeCount:   stats.NodeCount,
			RootCount:   stats.RootCount,
			LeafCount:   stats.LeafCount,
			OrphanCount: stats.OrphanCount,
		}
	}
	return queries.TreeStats{
		NodeCount: nodeCount,
		RootCount: rootCount,
		LeafCount: leafCount,
	}
}
