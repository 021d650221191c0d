package services

import (
	"testing"

	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogFixture struct {
	taxonomy *aggregates.Taxonomy
	byName   map[string]*entities.Ingredient
}

// buildCatalog assembles the chocolate/spices fixture used across the
// hierarchy tests:
//
//	Chocolate (0) > Dark Chocolate (1) > {Semi-Sweet Chips (2), Bittersweet Bar (2)}
//	Chocolate (0) > Milk Chocolate (1)
//	Spices (0) > Cinnamon (1)
func buildCatalog(t *testing.T) *catalogFixture {
	t.Helper()

	f := &catalogFixture{byName: map[string]*entities.Ingredient{}}

	name := func(display, slug string) valueobjects.IngredientName {
		n, err := valueobjects.NewIngredientName(display, slug)
		require.NoError(t, err)
		return n
	}

	chocolate, err := entities.NewRootIngredient(name("Chocolate", "chocolate"), "")
	require.NoError(t, err)
	dark, err := entities.NewIngredient(name("Dark Chocolate", "dark-chocolate"), chocolate, "")
	require.NoError(t, err)
	chips, err := entities.NewIngredient(name("Semi-Sweet Chips", "semi-sweet-chips"), dark, "")
	require.NoError(t, err)
	bar, err := entities.NewIngredient(name("Bittersweet Bar", "bittersweet-bar"), dark, "")
	require.NoError(t, err)
	milk, err := entities.NewIngredient(name("Milk Chocolate", "milk-chocolate"), chocolate, "")
	require.NoError(t, err)
	spices, err := entities.NewRootIngredient(name("Spices", "spices"), "")
	require.NoError(t, err)
	cinnamon, err := entities.NewIngredient(name("Cinnamon", "cinnamon"), spices, "")
	require.NoError(t, err)

	all := []*entities.Ingredient{chocolate, dark, chips, bar, milk, spices, cinnamon}
	for _, ing := range all {
		ing.MarkEventsAsCommitted()
		f.byName[ing.Name().Display()] = ing
	}

	taxonomy, err := aggregates.BuildTaxonomy(all, nil)
	require.NoError(t, err)
	f.taxonomy = taxonomy

	return f
}

func (f *catalogFixture) id(name string) valueobjects.IngredientID {
	return f.byName[name].ID()
}

func TestHierarchyService_GetAncestors(t *testing.T) {
	// Arrange
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	// Act
	ancestors, err := svc.GetAncestors(f.taxonomy, f.id("Semi-Sweet Chips"))

	// Assert: nearest parent first, root last
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Dark Chocolate", ancestors[0].Name().Display())
	assert.Equal(t, "Chocolate", ancestors[1].Name().Display())
}

func TestHierarchyService_GetAncestors_UnknownNode(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	_, err := svc.GetAncestors(f.taxonomy, valueobjects.NewIngredientID())

	assert.True(t, pkgerrors.IsIngredientNotFound(err))
}

func TestHierarchyService_IsLeaf(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	leaf, err := svc.IsLeaf(f.taxonomy, f.id("Semi-Sweet Chips"))
	require.NoError(t, err)
	assert.True(t, leaf)

	leaf, err = svc.IsLeaf(f.taxonomy, f.id("Dark Chocolate"))
	require.NoError(t, err)
	assert.False(t, leaf)
}

func TestHierarchyService_WouldCreateCycle(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	// Reparenting a root under its own grandchild closes a loop
	cycle, err := svc.WouldCreateCycle(f.taxonomy, f.id("Chocolate"), f.id("Semi-Sweet Chips"))
	require.NoError(t, err)
	assert.True(t, cycle)

	// Self-parenting counts as a cycle
	cycle, err = svc.WouldCreateCycle(f.taxonomy, f.id("Cinnamon"), f.id("Cinnamon"))
	require.NoError(t, err)
	assert.True(t, cycle)

	cycle, err = svc.WouldCreateCycle(f.taxonomy, f.id("Cinnamon"), f.id("Dark Chocolate"))
	require.NoError(t, err)
	assert.False(t, cycle)
}

func TestHierarchyService_ValidateHierarchyLevel_Passes(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	err := svc.ValidateHierarchyLevel(f.taxonomy, f.id("Semi-Sweet Chips"), []int{2})

	assert.NoError(t, err)
}

func TestHierarchyService_ValidateHierarchyLevel_SuggestsLeaves(t *testing.T) {
	// Arrange
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	// Act: Dark Chocolate is a level-1 category, not a selectable leaf
	err := svc.ValidateHierarchyLevel(f.taxonomy, f.id("Dark Chocolate"), []int{2})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsHierarchyValidation(err))

	domainErr := pkgerrors.GetDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 1, domainErr.Details["current_level"])

	suggestions, ok := domainErr.Details["suggested_leaves"].([]string)
	require.True(t, ok)
	assert.Contains(t, suggestions, "Semi-Sweet Chips")
	assert.LessOrEqual(t, len(suggestions), 3)
	assert.Contains(t, domainErr.Message, "select a specific ingredient")
}

func TestHierarchyService_ValidateLeaf(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	assert.NoError(t, svc.ValidateLeaf(f.taxonomy, f.id("Semi-Sweet Chips")))

	err := svc.ValidateLeaf(f.taxonomy, f.id("Chocolate"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsHierarchyValidation(err))
}

func TestHierarchyService_SearchIngredients(t *testing.T) {
	// Arrange
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	// Act: match is case-insensitive
	matches, err := svc.SearchIngredients(f.taxonomy, "CHOC")

	// Assert: sorted by display name
	require.NoError(t, err)
	require.Len(t, matches, 3)

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Ingredient.Name().Display()
	}
	assert.Equal(t, []string{"Chocolate", "Dark Chocolate", "Milk Chocolate"}, names)
}

func TestHierarchyService_SearchIngredients_CarriesAncestorChain(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	matches, err := svc.SearchIngredients(f.taxonomy, "chips")

	// One hit, with the chain a consumer renders as
	// "Chocolate > Dark Chocolate > Semi-Sweet Chips"
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Semi-Sweet Chips", matches[0].Ingredient.Name().Display())
	require.Len(t, matches[0].Ancestors, 2)
	assert.Equal(t, "Dark Chocolate", matches[0].Ancestors[0].Name().Display())
	assert.Equal(t, "Chocolate", matches[0].Ancestors[1].Name().Display())
}

func TestHierarchyService_SearchIngredients_EmptyQueryMatchesNothing(t *testing.T) {
	f := buildCatalog(t)
	svc := NewHierarchyService(nil)

	matches, err := svc.SearchIngredients(f.taxonomy, "   ")

	require.NoError(t, err)
	assert.Empty(t, matches)
}
