package handlers

import (
	"context"
	"fmt"
	"time"

	"pantry-backend/application/commands"
	"pantry-backend/application/ports"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// DeleteIngredientHandler removes a node from the catalog behind the
// integrity guard: products, recipes, and direct children all block the
// deletion, and every count is gathered before the refusal so the caller
// sees the full picture in one round trip. Historical snapshot lines never
// block; their ingredient reference is replaced by denormalized name copies
// inside the same transaction that removes the node.
type DeleteIngredientHandler struct {
	uowFactory  ports.UnitOfWorkFactory
	usageReader ports.UsageReader
	catalogLock ports.CatalogLock
	eventBus    ports.EventBus
	domainCfg   *config.DomainConfig
	logger      *zap.Logger
}

// NewDeleteIngredientHandler creates a new handler instance
func NewDeleteIngredientHandler(
	uowFactory ports.UnitOfWorkFactory,
	usageReader ports.UsageReader,
	catalogLock ports.CatalogLock,
	eventBus ports.EventBus,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *DeleteIngredientHandler {
	return &DeleteIngredientHandler{
		uowFactory:  uowFactory,
		usageReader: usageReader,
		catalogLock: catalogLock,
		eventBus:    eventBus,
		domainCfg:   domainCfg,
		logger:      logger,
	}
}

// Handle executes the delete ingredient command
func (h *DeleteIngredientHandler) Handle(ctx context.Context, cmd commands.DeleteIngredientCommand) (*commands.DeleteIngredientResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(cmd.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(cmd.IngredientID)
	}

	owner := fmt.Sprintf("delete-%s", id.String())
	if err := h.catalogLock.Acquire(ctx, owner, 30*time.Second, 5*time.Second); err != nil {
		return nil, fmt.Errorf("failed to acquire catalog lock: %w", err)
	}
	defer func() {
		if releaseErr := h.catalogLock.Release(ctx, owner); releaseErr != nil {
			h.logger.Warn("Failed to release catalog lock",
				zap.String("owner", owner),
				zap.Error(releaseErr),
			)
		}
	}()

	uow, err := h.uowFactory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit of work: %w", err)
	}
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // Will be no-op if commit succeeds

	node, err := uow.Ingredients().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// All three blocking counts are gathered unconditionally so a refusal
	// reports everything the caller has to resolve, not just the first hit.
	counts, err := h.gatherBlockingCounts(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if counts.Products > 0 || counts.Recipes > 0 || counts.Children > 0 {
		return nil, pkgerrors.NewIngredientInUse(id.String(), counts)
	}

	names, err := h.ancestorNames(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	// Snapshot lines keep their history by copying the names they referenced.
	lines, err := uow.SnapshotLines().GetByIngredientID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot lines: %w", err)
	}
	for _, line := range lines {
		if err := line.Denormalize(node.Name().Display(), names.LevelOne, names.LevelZero); err != nil {
			return nil, fmt.Errorf("failed to denormalize snapshot line %s: %w", line.ID(), err)
		}
		if err := uow.SnapshotLines().Save(ctx, line); err != nil {
			return nil, fmt.Errorf("failed to save snapshot line %s: %w", line.ID(), err)
		}
	}

	// Aliases are owned by the node and cascade with it.
	aliasCount, err := uow.Aliases().CountByIngredientID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count aliases: %w", err)
	}
	if aliasCount > 0 {
		if err := uow.Aliases().DeleteByIngredientID(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to remove aliases: %w", err)
		}
	}

	if err := uow.Ingredients().Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete ingredient: %w", err)
	}

	node.MarkDeleted(names.Parent, names.Root, len(lines), aliasCount)
	events := node.GetUncommittedEvents()
	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish delete events",
				zap.Error(err),
				zap.String("ingredientID", id.String()),
			)
		}
	}
	node.MarkEventsAsCommitted()

	h.logger.Info("Ingredient deleted",
		zap.String("ingredientID", id.String()),
		zap.String("slug", node.Name().Slug()),
		zap.Int("detachedLines", len(lines)),
		zap.Int("removedAliases", aliasCount),
		zap.String("actorID", cmd.ActorID),
	)

	return &commands.DeleteIngredientResult{
		IngredientID:   id.String(),
		DetachedLines:  len(lines),
		RemovedAliases: aliasCount,
	}, nil
}

// gatherBlockingCounts collects the product, recipe, and child counts that
// veto a deletion.
func (h *DeleteIngredientHandler) gatherBlockingCounts(ctx context.Context, uow ports.UnitOfWork, id valueobjects.IngredientID) (pkgerrors.BlockingCounts, error) {
	var counts pkgerrors.BlockingCounts

	products, err := h.usageReader.CountProductReferences(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("failed to count product references: %w", err)
	}
	counts.Products = products

	recipes, err := h.usageReader.CountRecipeReferences(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("failed to count recipe references: %w", err)
	}
	counts.Recipes = recipes

	children, err := uow.Ingredients().GetByParentID(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("failed to load children: %w", err)
	}
	counts.Children = len(children)

	return counts, nil
}

// ancestorContext carries the display names the deletion preserves: the
// direct parent and root for the event, plus the level-1 and level-0
// ancestors snapshot lines copy. Any of them may be empty for shallow nodes.
type ancestorContext struct {
	Parent    string
	Root      string
	LevelOne  string
	LevelZero string
}

func (h *DeleteIngredientHandler) ancestorNames(ctx context.Context, uow ports.UnitOfWork, id valueobjects.IngredientID) (ancestorContext, error) {
	var names ancestorContext

	all, err := uow.Ingredients().GetAll(ctx)
	if err != nil {
		return names, fmt.Errorf("failed to load catalog: %w", err)
	}
	tax, err := aggregates.BuildTaxonomy(all, h.domainCfg)
	if err != nil {
		return names, fmt.Errorf("failed to build taxonomy: %w", err)
	}

	ancestors, err := tax.Ancestors(id)
	if err != nil {
		return names, err
	}
	if len(ancestors) > 0 {
		names.Parent = ancestors[0].Name().Display()
		names.Root = ancestors[len(ancestors)-1].Name().Display()
	}
	for _, ancestor := range ancestors {
		switch ancestor.Level().Int() {
		case 1:
			names.LevelOne = ancestor.Name().Display()
		case 0:
			names.LevelZero = ancestor.Name().Display()
		}
	}
	return names, nil
}
