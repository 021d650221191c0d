package integration

import (
	"context"
	"testing"

	"pantry-backend/application/commands"
	cmdhandlers "pantry-backend/application/commands/handlers"
	"pantry-backend/application/queries"
	qryhandlers "pantry-backend/application/queries/handlers"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/versioning"
	"pantry-backend/infrastructure/messaging/local"
	"pantry-backend/infrastructure/persistence/memory"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// env wires the full command/query stack over the in-memory driver, the same
// shape cmd/api assembles through DI.
type env struct {
	store     *memory.Store
	ingRepo   *memory.IngredientRepository
	lineRepo  *memory.SnapshotLineRepository
	aliasRepo *memory.AliasRepository
	usage     *memory.UsageReader

	create   *commands.CreateIngredientHandler
	move     *cmdhandlers.MoveIngredientHandler
	del      *cmdhandlers.DeleteIngredientHandler
	imp      *cmdhandlers.ImportCatalogHandler
	validate *qryhandlers.ValidateLevelHandler
	canDel   *qryhandlers.CanDeleteHandler
	search   *qryhandlers.SearchIngredientsHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := zap.NewNop()
	cfg := config.DefaultDomainConfig()
	store := memory.NewStore()
	uowFactory := memory.NewUnitOfWorkFactory(store)
	lock := memory.NewCatalogLock()
	bus := local.NewBus(logger)
	hierarchy := domainservices.NewHierarchyService(cfg)
	ingRepo := memory.NewIngredientRepository(store)
	lineRepo := memory.NewSnapshotLineRepository(store)
	aliasRepo := memory.NewAliasRepository(store)
	usage := memory.NewUsageReader(store)

	return &env{
		store:     store,
		ingRepo:   ingRepo,
		lineRepo:  lineRepo,
		aliasRepo: aliasRepo,
		usage:     usage,
		create:    commands.NewCreateIngredientHandler(uowFactory, lock, bus, logger),
		move:      cmdhandlers.NewMoveIngredientHandler(uowFactory, lock, bus, cfg, logger),
		del:       cmdhandlers.NewDeleteIngredientHandler(uowFactory, usage, lock, bus, cfg, logger),
		imp:       cmdhandlers.NewImportCatalogHandler(uowFactory, lock, bus, versioning.NewVersioningService(10, true), cfg, logger),
		validate:  qryhandlers.NewValidateLevelHandler(ingRepo, hierarchy, cfg, logger),
		canDel:    qryhandlers.NewCanDeleteHandler(ingRepo, lineRepo, usage, logger),
		search:    qryhandlers.NewSearchIngredientsHandler(ingRepo, hierarchy, cfg, logger),
	}
}

// seedChocolate imports the three-level fixture and returns IDs by name:
// Chocolate (0) > Dark Chocolate (1) > Semi-Sweet Chips (2).
func (e *env) seedChocolate(t *testing.T) map[string]string {
	t.Helper()
	ctx := context.Background()

	_, err := e.imp.Handle(ctx, commands.ImportCatalogCommand{
		BatchID: "seed-chocolate",
		ActorID: "test",
		Records: []commands.ImportRecord{
			{Name: "Chocolate", Slug: "chocolate"},
			{Name: "Dark Chocolate", Slug: "dark-chocolate", ParentSlug: "chocolate"},
			{Name: "Semi-Sweet Chips", Slug: "semi-sweet-chips", ParentSlug: "dark-chocolate"},
		},
	})
	require.NoError(t, err)

	ids := map[string]string{}
	for _, slug := range []string{"chocolate", "dark-chocolate", "semi-sweet-chips"} {
		node, err := e.ingRepo.GetBySlug(ctx, slug)
		require.NoError(t, err)
		ids[node.Name().Display()] = node.ID().String()
	}
	return ids
}

func (e *env) mustID(t *testing.T, raw string) valueobjects.IngredientID {
	t.Helper()
	id, err := valueobjects.NewIngredientIDFromString(raw)
	require.NoError(t, err)
	return id
}

// seedSnapshotLines writes one historical inventory line per snapshot ID,
// each referencing the given ingredient.
func seedSnapshotLines(t *testing.T, repo *memory.SnapshotLineRepository, ingredientID valueobjects.IngredientID, snapshotIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for _, snapshotID := range snapshotIDs {
		line, err := entities.NewSnapshotLine(snapshotID, ingredientID, 1.5, "kg")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, line))
	}
}

func seedAlias(t *testing.T, repo *memory.AliasRepository, ingredientID valueobjects.IngredientID, name string) {
	t.Helper()
	alias, err := entities.NewAlias(ingredientID, name, "", "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), alias))
}

func TestCatalogFlow_CreateThreeLevels(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	root, err := e.imp.Handle(ctx, commands.ImportCatalogCommand{
		ActorID: "test",
		Records: []commands.ImportRecord{{Name: "Chocolate", Slug: "chocolate"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, root.Created)

	rootNode, err := e.ingRepo.GetBySlug(ctx, "chocolate")
	require.NoError(t, err)
	assert.Equal(t, 0, rootNode.Level().Int())

	dark, err := e.create.Handle(ctx, commands.CreateIngredientCommand{
		Name: "Dark Chocolate", ParentID: rootNode.ID().String(), ActorID: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dark.Level().Int())

	chips, err := e.create.Handle(ctx, commands.CreateIngredientCommand{
		Name: "Semi-Sweet Chips", ParentID: dark.ID().String(), ActorID: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, chips.Level().Int())

	// The leaf probe drives recipe/product linking: the grandchild passes,
	// the mid-level category does not.
	leafResult, err := e.validate.Handle(ctx, queries.ValidateLevelQuery{IngredientID: chips.ID().String()})
	require.NoError(t, err)
	assert.True(t, leafResult.Valid)
	assert.True(t, leafResult.IsLeaf)

	catResult, err := e.validate.Handle(ctx, queries.ValidateLevelQuery{IngredientID: dark.ID().String()})
	require.NoError(t, err)
	assert.False(t, catResult.Valid)
	assert.False(t, catResult.IsLeaf)
	assert.Contains(t, catResult.SuggestedLeaves, "Semi-Sweet Chips")
}

func TestCatalogFlow_CreateWithoutParentIsLegacyLeaf(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Flat pre-hierarchy creates land at the leaf level, not at the root.
	node, err := e.create.Handle(ctx, commands.CreateIngredientCommand{
		Name: "Vanilla Extract", ActorID: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, node.Level().Int())
	assert.Nil(t, node.ParentID())
}

func TestCatalogFlow_TreeListsLegacyLeavesApartFromRoots(t *testing.T) {
	e := newEnv(t)
	e.seedChocolate(t)
	ctx := context.Background()

	_, err := e.create.Handle(ctx, commands.CreateIngredientCommand{
		Name: "Vanilla Extract", ActorID: "test",
	})
	require.NoError(t, err)

	tree := qryhandlers.NewGetTreeHandler(e.ingRepo, config.DefaultDomainConfig(), zap.NewNop())
	result, err := tree.Handle(ctx, queries.GetTreeQuery{})
	require.NoError(t, err)

	// The legacy leaf is neither a root nor hidden: it renders in its own
	// group, matching what GetRoots returns.
	require.Len(t, result.Roots, 1)
	assert.Equal(t, "Chocolate", result.Roots[0].Name)
	require.Len(t, result.Orphans, 1)
	assert.Equal(t, "Vanilla Extract", result.Orphans[0].Name)
	assert.True(t, result.Orphans[0].IsLeaf)
	assert.Equal(t, 1, result.Stats.RootCount)
	assert.Equal(t, 1, result.Stats.OrphanCount)

	roots, err := e.ingRepo.GetRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Chocolate", roots[0].Name().Display())
}

func TestCatalogFlow_CreateUnderLeafRejected(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	_, err := e.create.Handle(ctx, commands.CreateIngredientCommand{
		Name: "Mini Chips", ParentID: ids["Semi-Sweet Chips"], ActorID: "test",
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsMaxDepthExceeded(err))

	_, getErr := e.ingRepo.GetBySlug(ctx, "mini-chips")
	assert.True(t, pkgerrors.IsIngredientNotFound(getErr))
}

func TestCatalogFlow_MoveCycleRejectedAndStoreUnchanged(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	before, err := e.store.ExportState()
	require.NoError(t, err)

	chips := ids["Semi-Sweet Chips"]
	_, err = e.move.Handle(ctx, commands.MoveIngredientCommand{
		IngredientID: ids["Chocolate"],
		NewParentID:  &chips,
		ActorID:      "test",
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsCircularReference(err))

	after, err := e.store.ExportState()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCatalogFlow_MoveDepthOverflowOnDescendantRejected(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	// A second tree whose mid-level node will be the illegal target.
	_, err := e.imp.Handle(ctx, commands.ImportCatalogCommand{
		ActorID: "test",
		Records: []commands.ImportRecord{
			{Name: "Baking", Slug: "baking"},
			{Name: "Sweeteners", Slug: "sweeteners", ParentSlug: "baking"},
		},
	})
	require.NoError(t, err)
	sweeteners, err := e.ingRepo.GetBySlug(ctx, "sweeteners")
	require.NoError(t, err)

	before, err := e.store.ExportState()
	require.NoError(t, err)

	// Moving Dark Chocolate (with its leaf child) under a level-1 node would
	// push Semi-Sweet Chips to level 3.
	target := sweeteners.ID().String()
	_, err = e.move.Handle(ctx, commands.MoveIngredientCommand{
		IngredientID: ids["Dark Chocolate"],
		NewParentID:  &target,
		ActorID:      "test",
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsMaxDepthExceeded(err))

	// Rejection leaves no partial re-leveling behind.
	after, err := e.store.ExportState()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCatalogFlow_MoveRelevelsDescendants(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	// Promote Dark Chocolate to a root; its child must follow one level up.
	result, err := e.move.Handle(ctx, commands.MoveIngredientCommand{
		IngredientID: ids["Dark Chocolate"],
		NewParentID:  nil,
		ActorID:      "test",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.OldLevel)
	assert.Equal(t, 0, result.NewLevel)
	require.Len(t, result.ReleveledIDs, 1)
	assert.Equal(t, ids["Semi-Sweet Chips"], result.ReleveledIDs[0])

	dark, err := e.ingRepo.GetByID(ctx, e.mustID(t, ids["Dark Chocolate"]))
	require.NoError(t, err)
	assert.Nil(t, dark.ParentID())
	assert.Equal(t, 0, dark.Level().Int())

	chips, err := e.ingRepo.GetByID(ctx, e.mustID(t, ids["Semi-Sweet Chips"]))
	require.NoError(t, err)
	assert.Equal(t, 1, chips.Level().Int())
	require.NotNil(t, chips.ParentID())
	assert.Equal(t, ids["Dark Chocolate"], chips.ParentID().String())
}

func TestCatalogFlow_DeleteDenormalizesSnapshotLines(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	chipsID := e.mustID(t, ids["Semi-Sweet Chips"])
	seedSnapshotLines(t, e.lineRepo, chipsID, "snap-2026-01", "snap-2026-02")
	seedAlias(t, e.aliasRepo, chipsID, "Choc Chips")

	probe, err := e.canDel.Handle(ctx, queries.CanDeleteQuery{IngredientID: chipsID.String()})
	require.NoError(t, err)
	assert.True(t, probe.CanDelete)
	assert.Equal(t, 2, probe.DetachableLines)

	result, err := e.del.Handle(ctx, commands.DeleteIngredientCommand{
		IngredientID: chipsID.String(), ActorID: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DetachedLines)
	assert.Equal(t, 1, result.RemovedAliases)

	// The node and its aliases are gone.
	_, err = e.ingRepo.GetByID(ctx, chipsID)
	assert.True(t, pkgerrors.IsIngredientNotFound(err))
	remaining, err := e.aliasRepo.GetByIngredientID(ctx, chipsID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Both snapshot lines carry the full denormalized chain and a null
	// reference, so the history stays readable without the catalog.
	for _, snapshotID := range []string{"snap-2026-01", "snap-2026-02"} {
		lines, err := e.lineRepo.GetBySnapshotID(ctx, snapshotID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		line := lines[0]
		assert.True(t, line.IsDetached())
		assert.Equal(t, "Semi-Sweet Chips", line.IngredientNameSnapshot())
		assert.Equal(t, "Dark Chocolate", line.ParentL1NameSnapshot())
		assert.Equal(t, "Chocolate", line.ParentL0NameSnapshot())
	}
}

func TestCatalogFlow_DeleteBlockedByChildren(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	_, err := e.del.Handle(ctx, commands.DeleteIngredientCommand{
		IngredientID: ids["Dark Chocolate"], ActorID: "test",
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsIngredientInUse(err))
	domainErr := pkgerrors.GetDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 1, domainErr.Details["blocking_children"])

	// The refusal changed nothing.
	_, err = e.ingRepo.GetByID(ctx, e.mustID(t, ids["Dark Chocolate"]))
	assert.NoError(t, err)
}

func TestCatalogFlow_DeleteBlockedByUsageReportsAllCounts(t *testing.T) {
	e := newEnv(t)
	ids := e.seedChocolate(t)
	ctx := context.Background()

	e.store.SetProductReferences(ids["Semi-Sweet Chips"], 3)
	e.store.SetRecipeReferences(ids["Semi-Sweet Chips"], 5)

	probe, err := e.canDel.Handle(ctx, queries.CanDeleteQuery{IngredientID: ids["Semi-Sweet Chips"]})
	require.NoError(t, err)
	assert.False(t, probe.CanDelete)
	assert.Equal(t, 3, probe.BlockingProducts)
	assert.Equal(t, 5, probe.BlockingRecipes)
	assert.Equal(t, 0, probe.BlockingChildren)

	_, err = e.del.Handle(ctx, commands.DeleteIngredientCommand{
		IngredientID: ids["Semi-Sweet Chips"], ActorID: "test",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIngredientInUse(err))

	domainErr := pkgerrors.GetDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, 3, domainErr.Details["blocking_products"])
	assert.Equal(t, 5, domainErr.Details["blocking_recipes"])
}

func TestCatalogFlow_SearchCarriesBreadcrumb(t *testing.T) {
	e := newEnv(t)
	e.seedChocolate(t)
	ctx := context.Background()

	result, err := e.search.Handle(ctx, queries.SearchIngredientsQuery{Query: "chips"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)

	// The breadcrumb is the root-first ancestor chain; the hit itself sits
	// next to it, so a consumer renders
	// "Chocolate > Dark Chocolate > Semi-Sweet Chips".
	hit := result.Hits[0]
	assert.Equal(t, "Semi-Sweet Chips", hit.Ingredient.Name)
	require.Len(t, hit.Breadcrumb, 2)
	assert.Equal(t, "Chocolate", hit.Breadcrumb[0].Name)
	assert.Equal(t, "Dark Chocolate", hit.Breadcrumb[1].Name)
}

func TestCatalogFlow_ImportRejectsWholeBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	before, err := e.store.ExportState()
	require.NoError(t, err)

	// The third record points at a parent that would exceed the depth cap;
	// the first two are valid on their own but must not land.
	_, err = e.imp.Handle(ctx, commands.ImportCatalogCommand{
		ActorID: "test",
		Records: []commands.ImportRecord{
			{Name: "Nuts", Slug: "nuts"},
			{Name: "Almonds", Slug: "almonds", ParentSlug: "nuts"},
			{Name: "Sliced Almonds", Slug: "sliced-almonds", ParentSlug: "almonds"},
			{Name: "Thin Sliced", Slug: "thin-sliced", ParentSlug: "sliced-almonds"},
		},
	})

	require.Error(t, err)
	after, err := e.store.ExportState()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, getErr := e.ingRepo.GetBySlug(ctx, "nuts")
	assert.True(t, pkgerrors.IsIngredientNotFound(getErr))
}
