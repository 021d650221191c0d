package memory

import (
	"context"
	"sort"
	"strings"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"
)

// IngredientRepository implements ports.IngredientRepository over the store
type IngredientRepository struct {
	store *Store
}

// NewIngredientRepository creates an in-memory ingredient repository
func NewIngredientRepository(store *Store) *IngredientRepository {
	return &IngredientRepository{store: store}
}

// Save persists an ingredient clone into the committed state
func (r *IngredientRepository) Save(ctx context.Context, ingredient *entities.Ingredient) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.putIngredient(ingredient)
	return nil
}

// GetByID retrieves an ingredient by its ID
func (r *IngredientRepository) GetByID(ctx context.Context, id valueobjects.IngredientID) (*entities.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return findIngredient(&r.store.state, id.String())
}

// GetBySlug retrieves an ingredient by its globally unique slug
func (r *IngredientRepository) GetBySlug(ctx context.Context, slug string) (*entities.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.state.slugs[slug]
	if !ok {
		return nil, pkgerrors.NewIngredientNotFound(slug)
	}
	return findIngredient(&r.store.state, id)
}

// GetAll loads the whole catalog, ordered by slug for determinism
func (r *IngredientRepository) GetAll(ctx context.Context) ([]*entities.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return allIngredients(&r.store.state), nil
}

// GetByParentID retrieves the direct children of a node
func (r *IngredientRepository) GetByParentID(ctx context.Context, parentID valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var children []*entities.Ingredient
	for _, ingredient := range r.store.state.ingredients {
		if pid := ingredient.ParentID(); pid != nil && pid.Equals(parentID) {
			children = append(children, cloneIngredient(ingredient))
		}
	}
	sortBySlug(children)
	return children, nil
}

// GetRoots retrieves all top-level categories. Parentless legacy orphans
// live at leaf level and are excluded.
func (r *IngredientRepository) GetRoots(ctx context.Context) ([]*entities.Ingredient, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var roots []*entities.Ingredient
	for _, ingredient := range r.store.state.ingredients {
		if ingredient.IsRoot() {
			roots = append(roots, cloneIngredient(ingredient))
		}
	}
	sortBySlug(roots)
	return roots, nil
}

// Delete removes an ingredient from the committed state
func (r *IngredientRepository) Delete(ctx context.Context, id valueobjects.IngredientID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.removeIngredient(id.String())
	return nil
}

// BulkSave saves multiple ingredients in one pass
func (r *IngredientRepository) BulkSave(ctx context.Context, ingredients []*entities.Ingredient) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, ingredient := range ingredients {
		r.store.state.putIngredient(ingredient)
	}
	return nil
}

// AliasRepository implements ports.AliasRepository over the store
type AliasRepository struct {
	store *Store
}

// NewAliasRepository creates an in-memory alias repository
func NewAliasRepository(store *Store) *AliasRepository {
	return &AliasRepository{store: store}
}

// Save persists an alias
func (r *AliasRepository) Save(ctx context.Context, alias *entities.Alias) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.putAlias(alias)
	return nil
}

// GetByID retrieves an alias by its ID
func (r *AliasRepository) GetByID(ctx context.Context, id string) (*entities.Alias, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	alias, ok := r.store.state.aliases[id]
	if !ok {
		return nil, pkgerrors.NewAliasNotFound(id)
	}
	return cloneAlias(alias), nil
}

// GetByIngredientID retrieves all aliases owned by an ingredient
func (r *AliasRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.Alias, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return aliasesOf(&r.store.state, ingredientID), nil
}

// FindByName retrieves aliases whose name matches, case-insensitively
func (r *AliasRepository) FindByName(ctx context.Context, name string) ([]*entities.Alias, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matches []*entities.Alias
	for _, alias := range r.store.state.aliases {
		if strings.EqualFold(alias.Name(), strings.TrimSpace(name)) {
			matches = append(matches, cloneAlias(alias))
		}
	}
	sortAliases(matches)
	return matches, nil
}

// Delete removes a single alias
func (r *AliasRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.state.aliases, id)
	return nil
}

// DeleteByIngredientID removes every alias owned by an ingredient
func (r *AliasRepository) DeleteByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, alias := range r.store.state.aliases {
		if alias.IngredientID().Equals(ingredientID) {
			delete(r.store.state.aliases, id)
		}
	}
	return nil
}

// CountByIngredientID returns the number of aliases owned by an ingredient
func (r *AliasRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, alias := range r.store.state.aliases {
		if alias.IngredientID().Equals(ingredientID) {
			count++
		}
	}
	return count, nil
}

// SnapshotLineRepository implements ports.SnapshotLineRepository over the store
type SnapshotLineRepository struct {
	store *Store
}

// NewSnapshotLineRepository creates an in-memory snapshot line repository
func NewSnapshotLineRepository(store *Store) *SnapshotLineRepository {
	return &SnapshotLineRepository{store: store}
}

// Save persists a snapshot line, attached or detached
func (r *SnapshotLineRepository) Save(ctx context.Context, line *entities.SnapshotLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.state.putSnapshotLine(line)
	return nil
}

// GetByID retrieves one snapshot line
func (r *SnapshotLineRepository) GetByID(ctx context.Context, id string) (*entities.SnapshotLine, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	line, ok := r.store.state.snapshotLines[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("snapshot line " + id)
	}
	return cloneSnapshotLine(line), nil
}

// GetByIngredientID finds every line still referencing the ingredient
func (r *SnapshotLineRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.SnapshotLine, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return linesOf(&r.store.state, ingredientID), nil
}

// GetBySnapshotID retrieves all lines of one snapshot document
func (r *SnapshotLineRepository) GetBySnapshotID(ctx context.Context, snapshotID string) ([]*entities.SnapshotLine, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var lines []*entities.SnapshotLine
	for _, line := range r.store.state.snapshotLines {
		if line.SnapshotID() == snapshotID {
			lines = append(lines, cloneSnapshotLine(line))
		}
	}
	sortLines(lines)
	return lines, nil
}

// CountByIngredientID returns the number of lines still referencing the ingredient
func (r *SnapshotLineRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, line := range r.store.state.snapshotLines {
		if line.References(ingredientID) {
			count++
		}
	}
	return count, nil
}

// UsageReader implements ports.UsageReader over the store's reference counts
type UsageReader struct {
	store *Store
}

// NewUsageReader creates an in-memory usage reader
func NewUsageReader(store *Store) *UsageReader {
	return &UsageReader{store: store}
}

// CountProductReferences returns how many purchasable products link the ingredient
func (r *UsageReader) CountProductReferences(ctx context.Context, id valueobjects.IngredientID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.productRefs[id.String()], nil
}

// CountRecipeReferences returns how many recipes use the ingredient
func (r *UsageReader) CountRecipeReferences(ctx context.Context, id valueobjects.IngredientID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.recipeRefs[id.String()], nil
}

// Shared query helpers operating on a state the caller has locked or owns

func findIngredient(state *catalogState, id string) (*entities.Ingredient, error) {
	ingredient, ok := state.ingredients[id]
	if !ok {
		return nil, pkgerrors.NewIngredientNotFound(id)
	}
	return cloneIngredient(ingredient), nil
}

func allIngredients(state *catalogState) []*entities.Ingredient {
	out := make([]*entities.Ingredient, 0, len(state.ingredients))
	for _, ingredient := range state.ingredients {
		out = append(out, cloneIngredient(ingredient))
	}
	sortBySlug(out)
	return out
}

func aliasesOf(state *catalogState, ingredientID valueobjects.IngredientID) []*entities.Alias {
	var out []*entities.Alias
	for _, alias := range state.aliases {
		if alias.IngredientID().Equals(ingredientID) {
			out = append(out, cloneAlias(alias))
		}
	}
	sortAliases(out)
	return out
}

func linesOf(state *catalogState, ingredientID valueobjects.IngredientID) []*entities.SnapshotLine {
	var out []*entities.SnapshotLine
	for _, line := range state.snapshotLines {
		if line.References(ingredientID) {
			out = append(out, cloneSnapshotLine(line))
		}
	}
	sortLines(out)
	return out
}

func sortBySlug(ingredients []*entities.Ingredient) {
	sort.Slice(ingredients, func(i, j int) bool {
		return ingredients[i].Name().Slug() < ingredients[j].Name().Slug()
	})
}

func sortAliases(aliases []*entities.Alias) {
	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].Name() != aliases[j].Name() {
			return aliases[i].Name() < aliases[j].Name()
		}
		return aliases[i].ID() < aliases[j].ID()
	})
}

func sortLines(lines []*entities.SnapshotLine) {
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ID() < lines[j].ID()
	})
}
