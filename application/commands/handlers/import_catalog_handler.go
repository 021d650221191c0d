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
	domainevents "pantry-backend/domain/events"
	"pantry-backend/domain/versioning"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportCatalogHandler loads a batch of ingredients in one transaction.
// Rows are staged against an in-memory copy of the live tree, so parents may
// be earlier rows of the same batch or existing nodes, and every rule (slug
// uniqueness, depth bound, known parent) is checked before anything is
// written. One bad row rejects the whole batch.
type ImportCatalogHandler struct {
	uowFactory  ports.UnitOfWorkFactory
	catalogLock ports.CatalogLock
	eventBus    ports.EventBus
	versioning  *versioning.VersioningService
	domainCfg   *config.DomainConfig
	logger      *zap.Logger
}

// NewImportCatalogHandler creates a new handler instance
func NewImportCatalogHandler(
	uowFactory ports.UnitOfWorkFactory,
	catalogLock ports.CatalogLock,
	eventBus ports.EventBus,
	versioningService *versioning.VersioningService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ImportCatalogHandler {
	return &ImportCatalogHandler{
		uowFactory:  uowFactory,
		catalogLock: catalogLock,
		eventBus:    eventBus,
		versioning:  versioningService,
		domainCfg:   domainCfg,
		logger:      logger,
	}
}

// Handle executes the import catalog command
func (h *ImportCatalogHandler) Handle(ctx context.Context, cmd commands.ImportCatalogCommand) (*commands.ImportCatalogResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	batchID := cmd.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	owner := fmt.Sprintf("import-%s", batchID)
	if err := h.catalogLock.Acquire(ctx, owner, 60*time.Second, 10*time.Second); err != nil {
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

	created, err := h.stageRecords(tax, batchID, cmd.Records)
	if err != nil {
		return nil, err
	}

	if err := uow.Ingredients().BulkSave(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to save import batch: %w", err)
	}

	checksum, err := h.versioning.CalculateChecksum(tax)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum catalog: %w", err)
	}

	events := make([]domainevents.DomainEvent, 0, len(created)+1)
	for _, node := range created {
		events = append(events, node.GetUncommittedEvents()...)
	}
	events = append(events, domainevents.NewCatalogImported(batchID, len(created), checksum, time.Now()))

	if err := uow.Events().SaveEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := h.eventBus.PublishBatch(ctx, events); err != nil {
		h.logger.Warn("Failed to publish import events",
			zap.Error(err),
			zap.String("batchID", batchID),
			zap.Int("eventCount", len(events)),
		)
	}
	for _, node := range created {
		node.MarkEventsAsCommitted()
	}

	h.logger.Info("Catalog batch imported",
		zap.String("batchID", batchID),
		zap.Int("created", len(created)),
		zap.String("checksum", checksum),
		zap.String("actorID", cmd.ActorID),
	)

	return &commands.ImportCatalogResult{
		BatchID:  batchID,
		Created:  len(created),
		Checksum: checksum,
	}, nil
}

// stageRecords applies every record to the staged tree in order. Parents are
// resolved by slug against the staged view, so a parent introduced three rows
// earlier is as valid as one that existed before the batch.
func (h *ImportCatalogHandler) stageRecords(tax *aggregates.Taxonomy, batchID string, records []commands.ImportRecord) ([]*entities.Ingredient, error) {
	created := make([]*entities.Ingredient, 0, len(records))

	for i, rec := range records {
		slug := rec.Slug
		if slug == "" {
			slug = utils.Slugify(rec.Name)
		}
		name, err := valueobjects.NewIngredientName(rec.Name, slug)
		if err != nil {
			return nil, pkgerrors.NewImportBatchInvalid(batchID, fmt.Sprintf("record %d (%q): %v", i, rec.Name, err))
		}

		var node *entities.Ingredient
		if rec.ParentSlug == "" {
			// Import names its top-level categories explicitly, so a
			// parentless row is a root rather than a legacy orphan.
			node, err = entities.NewRootIngredient(name, rec.Category)
		} else {
			var parent *entities.Ingredient
			parent, err = tax.NodeBySlug(rec.ParentSlug)
			if err != nil {
				return nil, pkgerrors.NewImportBatchInvalid(batchID, fmt.Sprintf("record %d (%q): unknown parent slug %q", i, rec.Name, rec.ParentSlug))
			}
			node, err = entities.NewIngredient(name, parent, rec.Category)
		}
		if err != nil {
			return nil, pkgerrors.NewImportBatchInvalid(batchID, fmt.Sprintf("record %d (%q): %v", i, rec.Name, err))
		}

		if err := tax.AddNode(node); err != nil {
			return nil, pkgerrors.NewImportBatchInvalid(batchID, fmt.Sprintf("record %d (%q): %v", i, rec.Name, err))
		}
		created = append(created, node)
	}

	return created, nil
}
