package handlers

import (
	"context"
	"fmt"
	"time"

	"pantry-backend/application/commands"
	"pantry-backend/application/ports"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// MoveIngredientHandler re-parents a node anywhere in the tree. The whole
// validation sequence (target exists, no cycle, depth bound holds for the
// node and every descendant) runs against an in-memory view of the catalog
// before a single row is written, and the node plus all releveled
// descendants are persisted in one transaction.
type MoveIngredientHandler struct {
	uowFactory  ports.UnitOfWorkFactory
	catalogLock ports.CatalogLock
	eventBus    ports.EventBus
	domainCfg   *config.DomainConfig
	logger      *zap.Logger
}

// NewMoveIngredientHandler creates a new handler instance
func NewMoveIngredientHandler(
	uowFactory ports.UnitOfWorkFactory,
	catalogLock ports.CatalogLock,
	eventBus ports.EventBus,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *MoveIngredientHandler {
	return &MoveIngredientHandler{
		uowFactory:  uowFactory,
		catalogLock: catalogLock,
		eventBus:    eventBus,
		domainCfg:   domainCfg,
		logger:      logger,
	}
}

// Handle executes the move ingredient command
func (h *MoveIngredientHandler) Handle(ctx context.Context, cmd commands.MoveIngredientCommand) (*commands.MoveIngredientResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(cmd.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(cmd.IngredientID)
	}

	var newParentID *valueobjects.IngredientID
	if cmd.NewParentID != nil {
		parentID, err := valueobjects.NewIngredientIDFromString(*cmd.NewParentID)
		if err != nil {
			return nil, pkgerrors.NewParentNotFound(*cmd.NewParentID)
		}
		newParentID = &parentID
	}

	// Moves read the whole tree and rewrite a subtree's levels, so they are
	// serialized behind the catalog writer lock.
	owner := fmt.Sprintf("move-%s", id.String())
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

	all, err := uow.Ingredients().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	tax, err := aggregates.BuildTaxonomy(all, h.domainCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy: %w", err)
	}

	// Plan first, mutate second. A plan error (unknown target, cycle, depth
	// overflow anywhere in the subtree) aborts before any entity changed.
	plan, err := tax.PlanMove(id, newParentID)
	if err != nil {
		return nil, err
	}
	if err := tax.ApplyMove(plan); err != nil {
		return nil, err
	}

	node, err := tax.Node(id)
	if err != nil {
		return nil, err
	}

	dirty := make([]*entities.Ingredient, 0, len(plan.Releveled)+1)
	dirty = append(dirty, node)
	for _, step := range plan.Releveled {
		descendant, err := tax.Node(step.ID)
		if err != nil {
			return nil, err
		}
		dirty = append(dirty, descendant)
	}
	if err := uow.Ingredients().BulkSave(ctx, dirty); err != nil {
		return nil, fmt.Errorf("failed to save moved subtree: %w", err)
	}

	events := node.GetUncommittedEvents()
	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish move events",
				zap.Error(err),
				zap.String("ingredientID", id.String()),
			)
		}
	}
	node.MarkEventsAsCommitted()

	releveledIDs := make([]string, 0, len(plan.Releveled))
	for _, step := range plan.Releveled {
		releveledIDs = append(releveledIDs, step.ID.String())
	}

	h.logger.Info("Ingredient moved",
		zap.String("ingredientID", id.String()),
		zap.Int("oldLevel", plan.OldLevel.Int()),
		zap.Int("newLevel", plan.NewLevel.Int()),
		zap.Int("releveledDescendants", len(releveledIDs)),
		zap.String("actorID", cmd.ActorID),
	)

	return &commands.MoveIngredientResult{
		IngredientID: id.String(),
		NewParentID:  cmd.NewParentID,
		OldLevel:     plan.OldLevel.Int(),
		NewLevel:     plan.NewLevel.Int(),
		ReleveledIDs: releveledIDs,
	}, nil
}
