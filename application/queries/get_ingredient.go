package queries

import (
	"errors"
	"time"

	"pantry-backend/domain/core/entities"
)

// GetIngredientQuery fetches a single ingredient by ID or by slug. Exactly
// one of the two must be set.
type GetIngredientQuery struct {
	IngredientID string
	Slug         string
}

// Validate validates the GetIngredientQuery
func (q GetIngredientQuery) Validate() error {
	if q.IngredientID == "" && q.Slug == "" {
		return errors.New("ingredient ID or slug is required")
	}
	if q.IngredientID != "" && q.Slug != "" {
		return errors.New("ingredient ID and slug are mutually exclusive")
	}
	return nil
}

// IngredientView is the read-model shape of a catalog node. Every query that
// returns ingredients returns this.
type IngredientView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	ParentID  *string `json:"parent_id,omitempty"`
	Level     int     `json:"level"`
	IsLeaf    bool    `json:"is_leaf"`
	Category  string  `json:"category,omitempty"`
	Version   int     `json:"version"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// GetIngredientResult pairs the node with its root-first path so consumers
// can render the breadcrumb without another round trip.
type GetIngredientResult struct {
	Ingredient IngredientView   `json:"ingredient"`
	Path       []IngredientView `json:"path"`
	Aliases    []AliasView      `json:"aliases,omitempty"`
}

// AliasView is the read-model shape of an alias/crosswalk entry.
type AliasView struct {
	ID           string `json:"id"`
	IngredientID string `json:"ingredient_id"`
	Name         string `json:"name"`
	Scheme       string `json:"scheme,omitempty"`
	Code         string `json:"code,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// NewIngredientView converts an entity to its read-model shape. isLeaf comes
// from the taxonomy; the entity alone cannot know it.
func NewIngredientView(node *entities.Ingredient, isLeaf bool) IngredientView {
	view := IngredientView{
		ID:        node.ID().String(),
		Name:      node.Name().Display(),
		Slug:      node.Name().Slug(),
		Level:     node.Level().Int(),
		IsLeaf:    isLeaf,
		Category:  node.Category(),
		Version:   node.Version(),
		CreatedAt: node.CreatedAt().Format(time.RFC3339),
		UpdatedAt: node.UpdatedAt().Format(time.RFC3339),
	}
	if pid := node.ParentID(); pid != nil {
		s := pid.String()
		view.ParentID = &s
	}
	return view
}

// NewAliasView converts an alias entity to its read-model shape.
func NewAliasView(alias *entities.Alias) AliasView {
	return AliasView{
		ID:           alias.ID(),
		IngredientID: alias.IngredientID().String(),
		Name:         alias.Name(),
		Scheme:       alias.Scheme(),
		Code:         alias.Code(),
		CreatedAt:    alias.CreatedAt().Format(time.RFC3339),
	}
}
