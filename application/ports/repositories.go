package ports

import (
	"context"
	"time"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"
)

// IngredientRepository defines the interface for catalog persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type IngredientRepository interface {
	// Save persists an ingredient (create or update)
	Save(ctx context.Context, ingredient *entities.Ingredient) error

	// GetByID retrieves an ingredient by its ID
	GetByID(ctx context.Context, id valueobjects.IngredientID) (*entities.Ingredient, error)

	// GetBySlug retrieves an ingredient by its globally unique slug
	GetBySlug(ctx context.Context, slug string) (*entities.Ingredient, error)

	// GetAll loads the whole catalog. The tree is bounded (hundreds of
	// nodes), so hierarchy operations build their taxonomy view from this.
	GetAll(ctx context.Context) ([]*entities.Ingredient, error)

	// GetByParentID retrieves the direct children of a node
	GetByParentID(ctx context.Context, parentID valueobjects.IngredientID) ([]*entities.Ingredient, error)

	// GetRoots retrieves the top-level categories (level 0). Parentless
	// legacy leaves are not roots and are excluded.
	GetRoots(ctx context.Context) ([]*entities.Ingredient, error)

	// Delete removes an ingredient
	Delete(ctx context.Context, id valueobjects.IngredientID) error

	// BulkSave saves multiple ingredients in one batch
	BulkSave(ctx context.Context, ingredients []*entities.Ingredient) error
}

// AliasRepository defines the interface for alias/crosswalk persistence
type AliasRepository interface {
	// Save persists an alias
	Save(ctx context.Context, alias *entities.Alias) error

	// GetByID retrieves an alias by its ID
	GetByID(ctx context.Context, id string) (*entities.Alias, error)

	// GetByIngredientID retrieves all aliases owned by an ingredient
	GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.Alias, error)

	// FindByName retrieves aliases whose name matches, case-insensitively
	FindByName(ctx context.Context, name string) ([]*entities.Alias, error)

	// Delete removes a single alias
	Delete(ctx context.Context, id string) error

	// DeleteByIngredientID removes every alias owned by an ingredient
	DeleteByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) error

	// CountByIngredientID returns the number of aliases owned by an ingredient
	CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error)
}

// SnapshotLineRepository is the historical-record collaborator: inventory
// snapshot lines that reference catalog ingredients and must be updatable
// transactionally alongside a node deletion.
type SnapshotLineRepository interface {
	// Save persists a snapshot line (create or update after denormalization)
	Save(ctx context.Context, line *entities.SnapshotLine) error

	// GetByID retrieves one snapshot line
	GetByID(ctx context.Context, id string) (*entities.SnapshotLine, error)

	// GetByIngredientID finds every line still referencing the ingredient
	GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.SnapshotLine, error)

	// GetBySnapshotID retrieves all lines of one snapshot document
	GetBySnapshotID(ctx context.Context, snapshotID string) ([]*entities.SnapshotLine, error)

	// CountByIngredientID returns the number of lines still referencing the ingredient
	CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error)
}

// UsageReader exposes the blocking-reference counts owned by downstream
// catalog entities. Reads only; this service never mutates recipe or
// product data.
type UsageReader interface {
	// CountProductReferences returns how many purchasable products link the ingredient
	CountProductReferences(ctx context.Context, id valueobjects.IngredientID) (int, error)

	// CountRecipeReferences returns how many recipes use the ingredient
	CountRecipeReferences(ctx context.Context, id valueobjects.IngredientID) (int, error)
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)
}

// UnitOfWork defines a transaction boundary for catalog operations. Every
// mutation is all-or-nothing: either every write registered inside the unit
// commits or none do.
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction
	Rollback() error

	// Ingredients returns the ingredient repository for this transaction
	Ingredients() IngredientRepository

	// Aliases returns the alias repository for this transaction
	Aliases() AliasRepository

	// SnapshotLines returns the snapshot line repository for this transaction
	SnapshotLines() SnapshotLineRepository

	// Events returns the event store for this transaction
	Events() EventStore
}

// UnitOfWorkFactory builds a fresh unit of work per operation
type UnitOfWorkFactory interface {
	New(ctx context.Context) (UnitOfWork, error)
}

// CatalogLock serializes catalog mutations: a single global lock is enough
// at this catalog's scale. Reads never take it.
type CatalogLock interface {
	// Acquire blocks up to lockTimeout trying to take the catalog lock,
	// holding it for at most lockDuration.
	Acquire(ctx context.Context, owner string, lockDuration, lockTimeout time.Duration) error

	// Release frees the lock if still held by the owner
	Release(ctx context.Context, owner string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
