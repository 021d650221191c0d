package memory

import (
	"context"
	"testing"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngredient(t *testing.T, display, slug string) *entities.Ingredient {
	t.Helper()
	name, err := valueobjects.NewIngredientName(display, slug)
	require.NoError(t, err)
	ingredient, err := entities.NewRootIngredient(name, "")
	require.NoError(t, err)
	ingredient.MarkEventsAsCommitted()
	return ingredient
}

func TestUnitOfWork_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := NewUnitOfWorkFactory(store)

	uow, err := factory.New(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Begin(ctx))

	ingredient := newTestIngredient(t, "Chocolate", "chocolate")
	require.NoError(t, uow.Ingredients().Save(ctx, ingredient))

	// Readers outside the transaction see nothing until commit.
	outside := NewIngredientRepository(store)
	_, err = outside.GetByID(ctx, ingredient.ID())
	assert.True(t, pkgerrors.IsIngredientNotFound(err))

	require.NoError(t, uow.Commit(ctx))

	committed, err := outside.GetByID(ctx, ingredient.ID())
	require.NoError(t, err)
	assert.Equal(t, "Chocolate", committed.Name().Display())
}

func TestUnitOfWork_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := NewUnitOfWorkFactory(store)

	seeded := newTestIngredient(t, "Spices", "spices")
	require.NoError(t, NewIngredientRepository(store).Save(ctx, seeded))

	uow, err := factory.New(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Begin(ctx))

	// Mix of writes across every collection, all staged then dropped.
	require.NoError(t, uow.Ingredients().Delete(ctx, seeded.ID()))
	extra := newTestIngredient(t, "Chocolate", "chocolate")
	require.NoError(t, uow.Ingredients().Save(ctx, extra))
	alias, err := entities.NewAlias(seeded.ID(), "Seasoning", "", "")
	require.NoError(t, err)
	require.NoError(t, uow.Aliases().Save(ctx, alias))

	require.NoError(t, uow.Rollback())

	outside := NewIngredientRepository(store)
	_, err = outside.GetByID(ctx, seeded.ID())
	assert.NoError(t, err, "rolled-back delete must leave the node in place")
	_, err = outside.GetBySlug(ctx, "chocolate")
	assert.True(t, pkgerrors.IsIngredientNotFound(err))
	aliases, err := NewAliasRepository(store).GetByIngredientID(ctx, seeded.ID())
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestUnitOfWork_RollbackAfterCommitIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := NewUnitOfWorkFactory(store)

	uow, err := factory.New(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Begin(ctx))

	ingredient := newTestIngredient(t, "Chocolate", "chocolate")
	require.NoError(t, uow.Ingredients().Save(ctx, ingredient))
	require.NoError(t, uow.Commit(ctx))

	// The deferred Rollback in every handler runs after Commit.
	require.NoError(t, uow.Rollback())

	_, err = NewIngredientRepository(store).GetByID(ctx, ingredient.ID())
	assert.NoError(t, err)
}

func TestUnitOfWork_WritesRequireOpenTransaction(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(NewStore())

	uow, err := factory.New(ctx)
	require.NoError(t, err)

	ingredient := newTestIngredient(t, "Chocolate", "chocolate")
	assert.Error(t, uow.Ingredients().Save(ctx, ingredient))
	assert.Error(t, uow.Commit(ctx))
}

func TestUnitOfWork_EventsStagedUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	factory := NewUnitOfWorkFactory(store)

	name, err := valueobjects.NewIngredientName("Chocolate", "chocolate")
	require.NoError(t, err)
	ingredient, err := entities.NewRootIngredient(name, "")
	require.NoError(t, err)

	uow, err := factory.New(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Ingredients().Save(ctx, ingredient))
	require.NoError(t, uow.Events().SaveEvents(ctx, ingredient.GetUncommittedEvents()))

	eventStore := NewEventStore(store)
	staged, err := eventStore.GetEvents(ctx, ingredient.ID().String())
	require.NoError(t, err)
	assert.Empty(t, staged)

	require.NoError(t, uow.Commit(ctx))

	committed, err := eventStore.GetEvents(ctx, ingredient.ID().String())
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, "ingredient.created", committed[0].GetEventType())
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewIngredientRepository(store)

	ingredient := newTestIngredient(t, "Chocolate", "chocolate")
	require.NoError(t, repo.Save(ctx, ingredient))
	store.SetProductReferences(ingredient.ID().String(), 2)

	state, err := store.ExportState()
	require.NoError(t, err)

	restored := NewStore()
	require.NoError(t, restored.ImportState(state))

	loaded, err := NewIngredientRepository(restored).GetByID(ctx, ingredient.ID())
	require.NoError(t, err)
	assert.Equal(t, "chocolate", loaded.Name().Slug())

	count, err := NewUsageReader(restored).CountProductReferences(ctx, ingredient.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
