package queries

import "errors"

// SearchIngredientsQuery matches display names case-insensitively. Each hit
// carries its ancestor chain for breadcrumb rendering.
type SearchIngredientsQuery struct {
	Query string
	Limit int
}

// Validate validates the SearchIngredientsQuery
func (q SearchIngredientsQuery) Validate() error {
	if q.Query == "" {
		return errors.New("search query is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	return nil
}

// SearchHit is one search match with its root-first breadcrumb.
type SearchHit struct {
	Ingredient IngredientView   `json:"ingredient"`
	Breadcrumb []IngredientView `json:"breadcrumb"`
}

// SearchIngredientsResult is the full search response.
type SearchIngredientsResult struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

// ResolveLabelQuery maps a free-text label (receipt line, recipe text) to
// candidate ingredients via slugs, aliases, and word overlap.
type ResolveLabelQuery struct {
	Label string
	Limit int
}

// Validate validates the ResolveLabelQuery
func (q ResolveLabelQuery) Validate() error {
	if q.Label == "" {
		return errors.New("label is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	return nil
}

// ResolvedLabel is one candidate for a resolved label.
type ResolvedLabel struct {
	Ingredient IngredientView `json:"ingredient"`
	MatchedVia string         `json:"matched_via"`
	AliasID    string         `json:"alias_id,omitempty"`
	Score      float64        `json:"score"`
}

// ResolveLabelResult is the full resolution response.
type ResolveLabelResult struct {
	Label   string          `json:"label"`
	Matches []ResolvedLabel `json:"matches"`
}
