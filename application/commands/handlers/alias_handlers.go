package handlers

import (
	"context"
	"fmt"
	"strings"

	"pantry-backend/application/commands"
	"pantry-backend/application/ports"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"go.uber.org/zap"
)

// AddAliasHandler attaches an alternate name to an ingredient. Aliases are
// lookup helpers, not nodes: they never appear in the tree and carry no
// level, so no structural validation is involved.
type AddAliasHandler struct {
	uowFactory ports.UnitOfWorkFactory
	eventBus   ports.EventBus
	domainCfg  *config.DomainConfig
	logger     *zap.Logger
}

// NewAddAliasHandler creates a new handler instance
func NewAddAliasHandler(
	uowFactory ports.UnitOfWorkFactory,
	eventBus ports.EventBus,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *AddAliasHandler {
	return &AddAliasHandler{
		uowFactory: uowFactory,
		eventBus:   eventBus,
		domainCfg:  domainCfg,
		logger:     logger,
	}
}

// Handle executes the add alias command
func (h *AddAliasHandler) Handle(ctx context.Context, cmd commands.AddAliasCommand) (*entities.Alias, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	ingredientID, err := valueobjects.NewIngredientIDFromString(cmd.IngredientID)
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

	if _, err := uow.Ingredients().GetByID(ctx, ingredientID); err != nil {
		return nil, err
	}

	existing, err := uow.Aliases().GetByIngredientID(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}
	if len(existing) >= h.domainCfg.MaxAliasesPerIngredient {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("ingredient already has %d aliases", len(existing)))
	}
	for _, a := range existing {
		if strings.EqualFold(a.Name(), strings.TrimSpace(cmd.Name)) {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("alias %q already exists for this ingredient", cmd.Name))
		}
	}

	alias, err := entities.NewAlias(ingredientID, cmd.Name, cmd.Scheme, cmd.Code)
	if err != nil {
		return nil, err
	}

	if err := uow.Aliases().Save(ctx, alias); err != nil {
		return nil, fmt.Errorf("failed to save alias: %w", err)
	}

	events := alias.GetUncommittedEvents()
	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish alias events",
				zap.Error(err),
				zap.String("aliasID", alias.ID()),
			)
		}
	}
	alias.MarkEventsAsCommitted()

	h.logger.Info("Alias added",
		zap.String("aliasID", alias.ID()),
		zap.String("ingredientID", ingredientID.String()),
		zap.String("name", alias.Name()),
		zap.String("actorID", cmd.ActorID),
	)

	return alias, nil
}

// RemoveAliasHandler detaches a single alias from its ingredient.
type RemoveAliasHandler struct {
	uowFactory ports.UnitOfWorkFactory
	eventBus   ports.EventBus
	logger     *zap.Logger
}

// NewRemoveAliasHandler creates a new handler instance
func NewRemoveAliasHandler(
	uowFactory ports.UnitOfWorkFactory,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *RemoveAliasHandler {
	return &RemoveAliasHandler{
		uowFactory: uowFactory,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle executes the remove alias command
func (h *RemoveAliasHandler) Handle(ctx context.Context, cmd commands.RemoveAliasCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	uow, err := h.uowFactory.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create unit of work: %w", err)
	}
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // Will be no-op if commit succeeds

	alias, err := uow.Aliases().GetByID(ctx, cmd.AliasID)
	if err != nil {
		return err
	}
	if alias == nil {
		return pkgerrors.NewAliasNotFound(cmd.AliasID)
	}

	alias.MarkRemoved()

	if err := uow.Aliases().Delete(ctx, cmd.AliasID); err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}

	events := alias.GetUncommittedEvents()
	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish alias events",
				zap.Error(err),
				zap.String("aliasID", cmd.AliasID),
			)
		}
	}
	alias.MarkEventsAsCommitted()

	h.logger.Info("Alias removed",
		zap.String("aliasID", cmd.AliasID),
		zap.String("ingredientID", alias.IngredientID().String()),
		zap.String("actorID", cmd.ActorID),
	)

	return nil
}
