package handlers

import (
	"context"
	"fmt"

	"pantry-backend/application/commands"
	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// UpdateIngredientHandler renames an ingredient or reassigns its legacy
// category. The slug never changes, so snapshot lines, aliases, and external
// crosswalks keep resolving across renames, and no structural validation is
// needed: the node stays exactly where it is.
type UpdateIngredientHandler struct {
	uowFactory ports.UnitOfWorkFactory
	eventBus   ports.EventBus
	logger     *zap.Logger
}

// NewUpdateIngredientHandler creates a new handler instance
func NewUpdateIngredientHandler(
	uowFactory ports.UnitOfWorkFactory,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *UpdateIngredientHandler {
	return &UpdateIngredientHandler{
		uowFactory: uowFactory,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle executes the update ingredient command
func (h *UpdateIngredientHandler) Handle(ctx context.Context, cmd commands.UpdateIngredientCommand) (*entities.Ingredient, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	id, err := valueobjects.NewIngredientIDFromString(cmd.IngredientID)
	if err != nil {
		return nil, pkgerrors.NewIngredientNotFound(cmd.IngredientID)
	}

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

	oldName := node.Name().Display()
	if cmd.Name != nil {
		if err := node.Rename(*cmd.Name); err != nil {
			return nil, err
		}
	}
	if cmd.Category != nil {
		node.SetCategory(*cmd.Category)
	}

	if err := uow.Ingredients().Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save ingredient: %w", err)
	}

	events := node.GetUncommittedEvents()
	if len(events) > 0 {
		if err := uow.Events().SaveEvents(ctx, events); err != nil {
			return nil, fmt.Errorf("failed to store events: %w", err)
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish rename events",
				zap.Error(err),
				zap.String("ingredientID", id.String()),
			)
		}
	}
	node.MarkEventsAsCommitted()

	h.logger.Info("Ingredient updated",
		zap.String("ingredientID", id.String()),
		zap.String("oldName", oldName),
		zap.String("newName", node.Name().Display()),
		zap.String("actorID", cmd.ActorID),
	)

	return node, nil
}
