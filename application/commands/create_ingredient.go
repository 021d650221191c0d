package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/utils"
	"go.uber.org/zap"
)

// CreateIngredientCommand represents the command to add a node to the catalog.
// With a parent the node lands one level below it; without one it keeps the
// flat-catalog behavior and is created as a standalone leaf.
type CreateIngredientCommand struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Slug     string `json:"slug" validate:"omitempty,max=140"`
	ParentID string `json:"parent_id" validate:"omitempty,uuid"`
	Category string `json:"category" validate:"max=255"`
	ActorID  string `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd CreateIngredientCommand) Validate() error {
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	if cmd.Name == "" {
		return errors.New("name is required")
	}
	if len(cmd.Name) > MaxDisplayNameLength {
		return errors.New("name exceeds maximum length")
	}
	if len(cmd.Slug) > MaxSlugLength {
		return errors.New("slug exceeds maximum length")
	}
	return nil
}

const (
	MaxDisplayNameLength = 120
	MaxSlugLength        = 140
)

// CreateIngredientHandler handles the CreateIngredientCommand
type CreateIngredientHandler struct {
	uowFactory  ports.UnitOfWorkFactory
	catalogLock ports.CatalogLock
	eventBus    ports.EventBus
	logger      *zap.Logger
}

// NewCreateIngredientHandler creates a new handler instance
func NewCreateIngredientHandler(
	uowFactory ports.UnitOfWorkFactory,
	catalogLock ports.CatalogLock,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *CreateIngredientHandler {
	return &CreateIngredientHandler{
		uowFactory:  uowFactory,
		catalogLock: catalogLock,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Handle executes the create ingredient command
func (h *CreateIngredientHandler) Handle(ctx context.Context, cmd CreateIngredientCommand) (*entities.Ingredient, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	// Build the name value object; the slug is derived from the display
	// name unless the caller provided one.
	slug := cmd.Slug
	if slug == "" {
		slug = utils.Slugify(cmd.Name)
	}
	name, err := valueobjects.NewIngredientName(cmd.Name, slug)
	if err != nil {
		return nil, err
	}

	// Slug uniqueness is a read-then-write check, so the create runs under
	// the writer lock like every other mutation.
	owner := fmt.Sprintf("create-%s", name.Slug())
	lockDuration := 30 * time.Second
	lockTimeout := 5 * time.Second

	if err := h.catalogLock.Acquire(ctx, owner, lockDuration, lockTimeout); err != nil {
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

	// Reject duplicate slugs before touching anything
	if existing, err := uow.Ingredients().GetBySlug(ctx, name.Slug()); err == nil && existing != nil {
		return nil, pkgerrors.NewSlugTaken(name.Slug())
	} else if err != nil && !pkgerrors.IsIngredientNotFound(err) {
		return nil, fmt.Errorf("failed to check slug uniqueness: %w", err)
	}

	// Resolve the parent when one was named
	var parent *entities.Ingredient
	if cmd.ParentID != "" {
		parentID, err := valueobjects.NewIngredientIDFromString(cmd.ParentID)
		if err != nil {
			return nil, pkgerrors.NewParentNotFound(cmd.ParentID)
		}
		parent, err = uow.Ingredients().GetByID(ctx, parentID)
		if err != nil {
			if pkgerrors.IsIngredientNotFound(err) {
				return nil, pkgerrors.NewParentNotFound(cmd.ParentID)
			}
			return nil, fmt.Errorf("failed to load parent: %w", err)
		}
	}

	// The entity derives its level from the parent and rejects placements
	// below the deepest tier.
	ingredient, err := entities.NewIngredient(name, parent, cmd.Category)
	if err != nil {
		return nil, err
	}

	if err := uow.Ingredients().Save(ctx, ingredient); err != nil {
		return nil, fmt.Errorf("failed to save ingredient: %w", err)
	}

	events := ingredient.GetUncommittedEvents()
	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Publish after commit; the stored copy is the source of truth and the
	// relay re-delivers anything that fails here.
	if len(events) > 0 {
		if err := h.eventBus.PublishBatch(ctx, events); err != nil {
			h.logger.Warn("Failed to publish ingredient events",
				zap.Error(err),
				zap.Int("eventCount", len(events)),
				zap.String("ingredientID", ingredient.ID().String()),
			)
		}
	}
	ingredient.MarkEventsAsCommitted()

	h.logger.Info("Ingredient created",
		zap.String("ingredientID", ingredient.ID().String()),
		zap.String("slug", name.Slug()),
		zap.Int("level", ingredient.Level().Int()),
		zap.String("actorID", cmd.ActorID),
	)

	return ingredient, nil
}
