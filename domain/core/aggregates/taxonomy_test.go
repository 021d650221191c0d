package aggregates

import (
	"testing"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTree builds the standard fixture catalog:
//
//	Chocolate (0)
//	├── Dark Chocolate (1)
//	│   ├── Bittersweet Bar (2)
//	│   └── Semi-Sweet Chips (2)
//	└── Milk Chocolate (1)
//	Spices (0)
//	└── Cinnamon (1)
//	    └── Ceylon Cinnamon (2)
//	Vanilla Extract (parentless legacy leaf, 2)
type testTree struct {
	taxonomy *Taxonomy
	byName   map[string]*entities.Ingredient
}

func buildTestTree(t *testing.T) *testTree {
	t.Helper()

	tree := &testTree{byName: map[string]*entities.Ingredient{}}

	addRoot := func(display, slug string) *entities.Ingredient {
		root, err := entities.NewRootIngredient(mustTaxName(t, display, slug), "")
		require.NoError(t, err)
		root.MarkEventsAsCommitted()
		tree.byName[display] = root
		return root
	}
	addChild := func(display, slug string, parent *entities.Ingredient) *entities.Ingredient {
		child, err := entities.NewIngredient(mustTaxName(t, display, slug), parent, "")
		require.NoError(t, err)
		child.MarkEventsAsCommitted()
		tree.byName[display] = child
		return child
	}

	chocolate := addRoot("Chocolate", "chocolate")
	dark := addChild("Dark Chocolate", "dark-chocolate", chocolate)
	addChild("Bittersweet Bar", "bittersweet-bar", dark)
	addChild("Semi-Sweet Chips", "semi-sweet-chips", dark)
	addChild("Milk Chocolate", "milk-chocolate", chocolate)

	spices := addRoot("Spices", "spices")
	cinnamon := addChild("Cinnamon", "cinnamon", spices)
	addChild("Ceylon Cinnamon", "ceylon-cinnamon", cinnamon)

	vanilla, err := entities.NewIngredient(mustTaxName(t, "Vanilla Extract", "vanilla-extract"), nil, "baking")
	require.NoError(t, err)
	vanilla.MarkEventsAsCommitted()
	tree.byName["Vanilla Extract"] = vanilla

	all := make([]*entities.Ingredient, 0, len(tree.byName))
	for _, ing := range tree.byName {
		all = append(all, ing)
	}
	taxonomy, err := BuildTaxonomy(all, nil)
	require.NoError(t, err)
	tree.taxonomy = taxonomy

	return tree
}

func (tt *testTree) id(name string) valueobjects.IngredientID {
	return tt.byName[name].ID()
}

func TestBuildTaxonomy_RejectsDuplicateSlug(t *testing.T) {
	a, err := entities.NewRootIngredient(mustTaxName(t, "Chocolate", "chocolate"), "")
	require.NoError(t, err)
	b, err := entities.NewRootIngredient(mustTaxName(t, "Chocolate Bars", "chocolate"), "")
	require.NoError(t, err)

	_, err = BuildTaxonomy([]*entities.Ingredient{a, b}, nil)

	assert.Error(t, err)
	assert.True(t, pkgerrors.IsSlugTaken(err))
}

func TestTaxonomy_RootsExcludeLegacyOrphans(t *testing.T) {
	tree := buildTestTree(t)

	roots := tree.taxonomy.Roots()
	rootNames := make([]string, len(roots))
	for i, r := range roots {
		rootNames[i] = r.Name().Display()
	}
	assert.Equal(t, []string{"Chocolate", "Spices"}, rootNames)

	orphans := tree.taxonomy.Orphans()
	require.Len(t, orphans, 1)
	assert.Equal(t, "Vanilla Extract", orphans[0].Name().Display())

	stats := tree.taxonomy.Stats()
	assert.Equal(t, 2, stats.RootCount)
	assert.Equal(t, 1, stats.OrphanCount)
}

func TestTaxonomy_AncestorsNearestFirst(t *testing.T) {
	tree := buildTestTree(t)

	ancestors, err := tree.taxonomy.Ancestors(tree.id("Semi-Sweet Chips"))

	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "Dark Chocolate", ancestors[0].Name().Display())
	assert.Equal(t, "Chocolate", ancestors[1].Name().Display())
}

func TestTaxonomy_AncestorsOfRootIsEmpty(t *testing.T) {
	tree := buildTestTree(t)

	ancestors, err := tree.taxonomy.Ancestors(tree.id("Chocolate"))

	require.NoError(t, err)
	assert.Empty(t, ancestors)
}

func TestTaxonomy_AncestorsOfUnknownNode(t *testing.T) {
	tree := buildTestTree(t)

	_, err := tree.taxonomy.Ancestors(valueobjects.NewIngredientID())

	assert.True(t, pkgerrors.IsIngredientNotFound(err))
}

func TestTaxonomy_PathIsRootFirst(t *testing.T) {
	tree := buildTestTree(t)

	path, err := tree.taxonomy.Path(tree.id("Semi-Sweet Chips"))

	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, "Chocolate", path[0].Name().Display())
	assert.Equal(t, "Dark Chocolate", path[1].Name().Display())
	assert.Equal(t, "Semi-Sweet Chips", path[2].Name().Display())
}

func TestTaxonomy_DescendantsBreadthFirst(t *testing.T) {
	tree := buildTestTree(t)

	descendants, err := tree.taxonomy.Descendants(tree.id("Chocolate"))

	require.NoError(t, err)
	names := make([]string, len(descendants))
	for i, d := range descendants {
		names[i] = d.Name().Display()
	}
	// Level-1 children (sorted by name) come before any level-2 grandchild.
	assert.Equal(t, []string{"Dark Chocolate", "Milk Chocolate", "Bittersweet Bar", "Semi-Sweet Chips"}, names)
}

func TestTaxonomy_ChildrenSortedByDisplayName(t *testing.T) {
	tree := buildTestTree(t)

	children, err := tree.taxonomy.Children(tree.id("Dark Chocolate"))

	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Bittersweet Bar", children[0].Name().Display())
	assert.Equal(t, "Semi-Sweet Chips", children[1].Name().Display())
}

func TestTaxonomy_IsLeaf(t *testing.T) {
	tree := buildTestTree(t)

	leaf, err := tree.taxonomy.IsLeaf(tree.id("Semi-Sweet Chips"))
	require.NoError(t, err)
	assert.True(t, leaf)

	leaf, err = tree.taxonomy.IsLeaf(tree.id("Dark Chocolate"))
	require.NoError(t, err)
	assert.False(t, leaf)

	leaf, err = tree.taxonomy.IsLeaf(tree.id("Vanilla Extract"))
	require.NoError(t, err)
	assert.True(t, leaf, "a parentless legacy ingredient is a leaf")
}

func TestTaxonomy_WouldCreateCycle(t *testing.T) {
	tree := buildTestTree(t)

	// A node is always a cycle against itself
	cycle, err := tree.taxonomy.WouldCreateCycle(tree.id("Chocolate"), tree.id("Chocolate"))
	require.NoError(t, err)
	assert.True(t, cycle)

	// Moving an ancestor under its own descendant closes a loop
	cycle, err = tree.taxonomy.WouldCreateCycle(tree.id("Chocolate"), tree.id("Semi-Sweet Chips"))
	require.NoError(t, err)
	assert.True(t, cycle)

	// Unrelated subtrees are fine
	cycle, err = tree.taxonomy.WouldCreateCycle(tree.id("Cinnamon"), tree.id("Dark Chocolate"))
	require.NoError(t, err)
	assert.False(t, cycle)
}

func TestTaxonomy_PlanMoveRejectsCycle(t *testing.T) {
	tree := buildTestTree(t)
	target := tree.id("Semi-Sweet Chips")

	_, err := tree.taxonomy.PlanMove(tree.id("Chocolate"), &target)

	assert.True(t, pkgerrors.IsCircularReference(err))
}

func TestTaxonomy_PlanMoveRejectsOverDepthDescendants(t *testing.T) {
	tree := buildTestTree(t)

	// Spices carries a two-level subtree; parking it under a root would push
	// Ceylon Cinnamon to level 3.
	target := tree.id("Chocolate")
	_, err := tree.taxonomy.PlanMove(tree.id("Spices"), &target)

	assert.True(t, pkgerrors.IsMaxDepthExceeded(err))
}

func TestTaxonomy_PlanMoveComputesRelevelSteps(t *testing.T) {
	tree := buildTestTree(t)

	// Dark Chocolate (1) promoted to a root drops every child from 2 to 1.
	plan, err := tree.taxonomy.PlanMove(tree.id("Dark Chocolate"), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, plan.OldLevel.Int())
	assert.Equal(t, 0, plan.NewLevel.Int())
	require.Len(t, plan.Releveled, 2)
	for _, step := range plan.Releveled {
		assert.Equal(t, 2, step.OldLevel.Int())
		assert.Equal(t, 1, step.NewLevel.Int())
	}
}

func TestTaxonomy_PlanMoveBetweenSameDepthParentsRelevelsNothing(t *testing.T) {
	tree := buildTestTree(t)

	target := tree.id("Spices")
	plan, err := tree.taxonomy.PlanMove(tree.id("Dark Chocolate"), &target)

	require.NoError(t, err)
	assert.Equal(t, plan.OldLevel, plan.NewLevel)
	assert.Empty(t, plan.Releveled)
}

func TestTaxonomy_ApplyMove(t *testing.T) {
	// Arrange
	tree := buildTestTree(t)
	plan, err := tree.taxonomy.PlanMove(tree.id("Dark Chocolate"), nil)
	require.NoError(t, err)

	// Act
	err = tree.taxonomy.ApplyMove(plan)

	// Assert
	require.NoError(t, err)
	moved := tree.byName["Dark Chocolate"]
	assert.Nil(t, moved.ParentID())
	assert.Equal(t, 0, moved.Level().Int())
	assert.Equal(t, 1, tree.byName["Semi-Sweet Chips"].Level().Int())
	assert.Equal(t, 1, tree.byName["Bittersweet Bar"].Level().Int())

	roots := tree.taxonomy.Roots()
	rootNames := make([]string, len(roots))
	for i, r := range roots {
		rootNames[i] = r.Name().Display()
	}
	assert.Contains(t, rootNames, "Dark Chocolate")

	chocolateChildren, err := tree.taxonomy.Children(tree.id("Chocolate"))
	require.NoError(t, err)
	require.Len(t, chocolateChildren, 1)
	assert.Equal(t, "Milk Chocolate", chocolateChildren[0].Name().Display())

	assert.NoError(t, tree.taxonomy.Validate())
}

func TestTaxonomy_ApplyMoveRaisesSingleMoveEvent(t *testing.T) {
	tree := buildTestTree(t)
	plan, err := tree.taxonomy.PlanMove(tree.id("Dark Chocolate"), nil)
	require.NoError(t, err)

	require.NoError(t, tree.taxonomy.ApplyMove(plan))

	moveEvents := tree.byName["Dark Chocolate"].GetUncommittedEvents()
	require.Len(t, moveEvents, 1)
	assert.Equal(t, "ingredient.moved", moveEvents[0].GetEventType())
	assert.Empty(t, tree.byName["Semi-Sweet Chips"].GetUncommittedEvents(),
		"releveled descendants ride along in the ancestor's event")
}

func TestTaxonomy_LeafSuggestionsPreferDescendants(t *testing.T) {
	tree := buildTestTree(t)

	suggestions := tree.taxonomy.LeafSuggestions(tree.id("Dark Chocolate"), 3)

	require.NotEmpty(t, suggestions)
	assert.Contains(t, suggestions, "Semi-Sweet Chips")
	assert.Contains(t, suggestions, "Bittersweet Bar")
	assert.LessOrEqual(t, len(suggestions), 3)
}

func TestTaxonomy_LeafSuggestionsFallBackToSiblings(t *testing.T) {
	tree := buildTestTree(t)

	// Milk Chocolate has no descendants; its leaf suggestions come from the
	// Dark Chocolate side of the family.
	suggestions := tree.taxonomy.LeafSuggestions(tree.id("Milk Chocolate"), 3)

	assert.NotContains(t, suggestions, "Milk Chocolate")
	assert.Contains(t, suggestions, "Semi-Sweet Chips")
}

func TestTaxonomy_AddNodeEnforcesSlugUniqueness(t *testing.T) {
	tree := buildTestTree(t)
	dup, err := entities.NewRootIngredient(mustTaxName(t, "Chocolate Again", "chocolate"), "")
	require.NoError(t, err)

	err = tree.taxonomy.AddNode(dup)

	assert.True(t, pkgerrors.IsSlugTaken(err))
}

func TestTaxonomy_ValidateAcceptsLegacyOrphans(t *testing.T) {
	tree := buildTestTree(t)

	assert.NoError(t, tree.taxonomy.Validate())

	stats := tree.taxonomy.Stats()
	assert.Equal(t, 9, stats.NodeCount)
	assert.Equal(t, 2, stats.RootCount)
	assert.Equal(t, 1, stats.OrphanCount)
	assert.Equal(t, 5, stats.LeafCount)
}

func mustTaxName(t *testing.T, display, slug string) valueobjects.IngredientName {
	t.Helper()
	name, err := valueobjects.NewIngredientName(display, slug)
	require.NoError(t, err)
	return name
}
