package services

import (
	"sort"
	"strings"

	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"
)

// HierarchyService is the query core of the taxonomy: ancestor and
// descendant walks, the leaf test, cycle detection, level validation, and
// name search. It holds no tree state of its own; every call takes the
// taxonomy snapshot the caller built from the store.
type HierarchyService struct {
	config *config.DomainConfig
}

// SearchMatch pairs one search hit with its full ancestor chain so a
// consumer can render the breadcrumb without another round trip.
type SearchMatch struct {
	Ingredient *entities.Ingredient
	Ancestors  []*entities.Ingredient
}

// NewHierarchyService creates a hierarchy service with the given rules
func NewHierarchyService(cfg *config.DomainConfig) *HierarchyService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &HierarchyService{config: cfg}
}

// GetAncestors walks parent references from the node to its root,
// nearest-first. Pure read; safe to retry.
func (s *HierarchyService) GetAncestors(tax *aggregates.Taxonomy, id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	return tax.Ancestors(id)
}

// GetDescendants returns every node of the subtree below the given node,
// breadth-first.
func (s *HierarchyService) GetDescendants(tax *aggregates.Taxonomy, id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	return tax.Descendants(id)
}

// GetChildren returns the direct children only, for incremental tree expansion.
func (s *HierarchyService) GetChildren(tax *aggregates.Taxonomy, id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	return tax.Children(id)
}

// IsLeaf reports whether the node has zero children. Recipe and product
// linking calls this before every catalog link.
func (s *HierarchyService) IsLeaf(tax *aggregates.Taxonomy, id valueobjects.IngredientID) (bool, error) {
	return tax.IsLeaf(id)
}

// WouldCreateCycle reports whether the node appears in the candidate
// parent's ancestor chain, the node itself included. Every reparent is
// gated on this check.
func (s *HierarchyService) WouldCreateCycle(tax *aggregates.Taxonomy, id, candidateParentID valueobjects.IngredientID) (bool, error) {
	return tax.WouldCreateCycle(id, candidateParentID)
}

// ValidateHierarchyLevel checks that the node sits at one of the allowed
// levels. The failure carries the current level and up to a handful of leaf
// suggestions so the caller can render "select a specific ingredient,
// e.g. X, Y, Z" without re-querying.
func (s *HierarchyService) ValidateHierarchyLevel(tax *aggregates.Taxonomy, id valueobjects.IngredientID, allowedLevels []int) error {
	node, err := tax.Node(id)
	if err != nil {
		return err
	}

	if node.Level().In(allowedLevels) {
		return nil
	}

	suggestions := tax.LeafSuggestions(id, s.config.MaxLeafSuggestions)
	return pkgerrors.NewHierarchyValidation(id.String(), node.Level().Int(), allowedLevels, suggestions)
}

// ValidateLeaf enforces the leaf rule recipe and product linking depends
// on: a node qualifies iff it has zero children. Categories fail with the
// same suggestion-carrying error as ValidateHierarchyLevel.
func (s *HierarchyService) ValidateLeaf(tax *aggregates.Taxonomy, id valueobjects.IngredientID) error {
	leaf, err := tax.IsLeaf(id)
	if err != nil {
		return err
	}
	if !leaf {
		node, _ := tax.Node(id)
		suggestions := tax.LeafSuggestions(id, s.config.MaxLeafSuggestions)
		return pkgerrors.NewHierarchyValidation(id.String(), node.Level().Int(), []int{s.config.LeafLevel}, suggestions)
	}

	return nil
}

// SearchIngredients matches the query case-insensitively against display
// names and returns the hits sorted by display name, each with its ancestor
// chain. An empty query matches nothing.
func (s *HierarchyService) SearchIngredients(tax *aggregates.Taxonomy, query string) ([]SearchMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchMatch{}, nil
	}

	matches := []SearchMatch{}
	for _, node := range tax.All() {
		if !node.Name().MatchesQuery(query) {
			continue
		}
		ancestors, err := tax.Ancestors(node.ID())
		if err != nil {
			return nil, err
		}
		matches = append(matches, SearchMatch{Ingredient: node, Ancestors: ancestors})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Ingredient.Name().Display() < matches[j].Ingredient.Name().Display()
	})

	if len(matches) > s.config.MaxSearchResults {
		matches = matches[:s.config.MaxSearchResults]
	}

	return matches, nil
}
