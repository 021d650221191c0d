// Package memory provides an in-memory implementation of the catalog
// persistence ports used for tests and local development.
package memory

import (
	"fmt"
	"sync"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/events"
)

// catalogState holds every collection the catalog persists. Maps store
// private clones keyed by ID; the slugs map indexes ingredient IDs by slug.
// Nothing inside escapes without being cloned again.
type catalogState struct {
	ingredients   map[string]*entities.Ingredient
	slugs         map[string]string
	aliases       map[string]*entities.Alias
	snapshotLines map[string]*entities.SnapshotLine
}

func newCatalogState() catalogState {
	return catalogState{
		ingredients:   make(map[string]*entities.Ingredient),
		slugs:         make(map[string]string),
		aliases:       make(map[string]*entities.Alias),
		snapshotLines: make(map[string]*entities.SnapshotLine),
	}
}

func (s catalogState) clone() catalogState {
	cloned := newCatalogState()
	for id, ingredient := range s.ingredients {
		cloned.ingredients[id] = cloneIngredient(ingredient)
	}
	for slug, id := range s.slugs {
		cloned.slugs[slug] = id
	}
	for id, alias := range s.aliases {
		cloned.aliases[id] = cloneAlias(alias)
	}
	for id, line := range s.snapshotLines {
		cloned.snapshotLines[id] = cloneSnapshotLine(line)
	}
	return cloned
}

// Store is the shared in-memory backing for all catalog repositories. Units
// of work clone the state, mutate the clone, and swap it back on commit, so
// readers never observe a half-applied operation.
type Store struct {
	mu     sync.RWMutex
	state  catalogState
	events []events.DomainEvent

	// Reference counts normally owned by the product and recipe services
	productRefs map[string]int
	recipeRefs  map[string]int
}

// NewStore constructs an empty in-memory store
func NewStore() *Store {
	return &Store{
		state:       newCatalogState(),
		productRefs: make(map[string]int),
		recipeRefs:  make(map[string]int),
	}
}

// SetProductReferences fixes the product reference count for an ingredient.
// Tests and local seeds use this to exercise the deletion integrity guard.
func (s *Store) SetProductReferences(ingredientID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productRefs[ingredientID] = count
}

// SetRecipeReferences fixes the recipe reference count for an ingredient
func (s *Store) SetRecipeReferences(ingredientID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipeRefs[ingredientID] = count
}

func cloneIngredient(ingredient *entities.Ingredient) *entities.Ingredient {
	cloned, err := entities.ReconstructIngredient(
		ingredient.ID(),
		ingredient.Name(),
		ingredient.ParentID(),
		ingredient.Level(),
		ingredient.Category(),
		ingredient.CreatedAt(),
		ingredient.UpdatedAt(),
		ingredient.Version(),
	)
	if err != nil {
		panic(fmt.Errorf("memory: clone ingredient: %w", err))
	}
	return cloned
}

func cloneAlias(alias *entities.Alias) *entities.Alias {
	cloned, err := entities.ReconstructAlias(
		alias.ID(),
		alias.IngredientID(),
		alias.Name(),
		alias.Scheme(),
		alias.Code(),
		alias.CreatedAt(),
	)
	if err != nil {
		panic(fmt.Errorf("memory: clone alias: %w", err))
	}
	return cloned
}

func cloneSnapshotLine(line *entities.SnapshotLine) *entities.SnapshotLine {
	cloned, err := entities.ReconstructSnapshotLine(
		line.ID(),
		line.SnapshotID(),
		line.IngredientID(),
		line.Quantity(),
		line.Unit(),
		line.RecordedAt(),
		line.IngredientNameSnapshot(),
		line.ParentL1NameSnapshot(),
		line.ParentL0NameSnapshot(),
	)
	if err != nil {
		panic(fmt.Errorf("memory: clone snapshot line: %w", err))
	}
	return cloned
}

// State mutators used by the repositories and unit of work. Callers hold
// the appropriate lock.

func (s *catalogState) putIngredient(ingredient *entities.Ingredient) {
	id := ingredient.ID().String()
	if existing, ok := s.ingredients[id]; ok {
		delete(s.slugs, existing.Name().Slug())
	}
	s.ingredients[id] = cloneIngredient(ingredient)
	s.slugs[ingredient.Name().Slug()] = id
}

func (s *catalogState) removeIngredient(id string) {
	if existing, ok := s.ingredients[id]; ok {
		delete(s.slugs, existing.Name().Slug())
		delete(s.ingredients, id)
	}
}

func (s *catalogState) putAlias(alias *entities.Alias) {
	s.aliases[alias.ID()] = cloneAlias(alias)
}

func (s *catalogState) putSnapshotLine(line *entities.SnapshotLine) {
	s.snapshotLines[line.ID()] = cloneSnapshotLine(line)
}
