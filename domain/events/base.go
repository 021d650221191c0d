package events

import (
	"time"

	"pantry-backend/domain/core/valueobjects"
)

// SourcePantry identifies this service on the event bus.
const SourcePantry = "pantry.catalog"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Ingredient Events

// IngredientCreated is raised when a new ingredient enters the catalog
type IngredientCreated struct {
	BaseEvent
	IngredientID valueobjects.IngredientID `json:"ingredient_id"`
	DisplayName  string                    `json:"display_name"`
	Slug         string                    `json:"slug"`
	ParentID     string                    `json:"parent_id,omitempty"`
	Level        int                       `json:"level"`
}

// NewIngredientCreated creates an IngredientCreated event
func NewIngredientCreated(id valueobjects.IngredientID, displayName, slug, parentID string, level int, timestamp time.Time) IngredientCreated {
	return IngredientCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "ingredient.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		IngredientID: id,
		DisplayName:  displayName,
		Slug:         slug,
		ParentID:     parentID,
		Level:        level,
	}
}

// IngredientRenamed is raised when the display name or legacy category
// label changes. The slug never changes.
type IngredientRenamed struct {
	BaseEvent
	IngredientID valueobjects.IngredientID `json:"ingredient_id"`
	OldName      string                    `json:"old_name"`
	NewName      string                    `json:"new_name"`
}

// NewIngredientRenamed creates an IngredientRenamed event
func NewIngredientRenamed(id valueobjects.IngredientID, oldName, newName string, timestamp time.Time) IngredientRenamed {
	return IngredientRenamed{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "ingredient.renamed",
			Timestamp:   timestamp,
			Version:     1,
		},
		IngredientID: id,
		OldName:      oldName,
		NewName:      newName,
	}
}

// IngredientMoved is raised after a reparent commits. ReleveledIDs lists
// every descendant whose level changed along with the moved node itself,
// so downstream caches can invalidate the whole affected subtree.
type IngredientMoved struct {
	BaseEvent
	IngredientID valueobjects.IngredientID `json:"ingredient_id"`
	OldParentID  string                    `json:"old_parent_id,omitempty"`
	NewParentID  string                    `json:"new_parent_id,omitempty"`
	OldLevel     int                       `json:"old_level"`
	NewLevel     int                       `json:"new_level"`
	ReleveledIDs []string                  `json:"releveled_ids,omitempty"`
}

// NewIngredientMoved creates an IngredientMoved event
func NewIngredientMoved(id valueobjects.IngredientID, oldParentID, newParentID string, oldLevel, newLevel int, releveledIDs []string, timestamp time.Time) IngredientMoved {
	return IngredientMoved{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "ingredient.moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		IngredientID: id,
		OldParentID:  oldParentID,
		NewParentID:  newParentID,
		OldLevel:     oldLevel,
		NewLevel:     newLevel,
		ReleveledIDs: releveledIDs,
	}
}

// IngredientDeleted is raised after a safe delete commits. The denormalized
// names ride along so consumers that only see the event can still label the
// departed ingredient.
type IngredientDeleted struct {
	BaseEvent
	IngredientID  valueobjects.IngredientID `json:"ingredient_id"`
	DisplayName   string                    `json:"display_name"`
	Slug          string                    `json:"slug"`
	ParentName    string                    `json:"parent_name,omitempty"`
	RootName      string                    `json:"root_name,omitempty"`
	SnapshotCount int                       `json:"snapshot_count"`
	AliasCount    int                       `json:"alias_count"`
}

// NewIngredientDeleted creates an IngredientDeleted event
func NewIngredientDeleted(id valueobjects.IngredientID, displayName, slug, parentName, rootName string, snapshotCount, aliasCount int, timestamp time.Time) IngredientDeleted {
	return IngredientDeleted{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   "ingredient.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		IngredientID:  id,
		DisplayName:   displayName,
		Slug:          slug,
		ParentName:    parentName,
		RootName:      rootName,
		SnapshotCount: snapshotCount,
		AliasCount:    aliasCount,
	}
}

// Alias Events

// AliasAdded is raised when an alias or crosswalk record is attached
type AliasAdded struct {
	BaseEvent
	AliasID      string                    `json:"alias_id"`
	IngredientID valueobjects.IngredientID `json:"ingredient_id"`
	Name         string                    `json:"name"`
	Scheme       string                    `json:"scheme,omitempty"`
}

// NewAliasAdded creates an AliasAdded event
func NewAliasAdded(aliasID string, ingredientID valueobjects.IngredientID, name, scheme string, timestamp time.Time) AliasAdded {
	return AliasAdded{
		BaseEvent: BaseEvent{
			AggregateID: ingredientID.String(),
			EventType:   "ingredient.alias_added",
			Timestamp:   timestamp,
			Version:     1,
		},
		AliasID:      aliasID,
		IngredientID: ingredientID,
		Name:         name,
		Scheme:       scheme,
	}
}

// AliasRemoved is raised when an alias or crosswalk record is detached
type AliasRemoved struct {
	BaseEvent
	AliasID      string                    `json:"alias_id"`
	IngredientID valueobjects.IngredientID `json:"ingredient_id"`
}

// NewAliasRemoved creates an AliasRemoved event
func NewAliasRemoved(aliasID string, ingredientID valueobjects.IngredientID, timestamp time.Time) AliasRemoved {
	return AliasRemoved{
		BaseEvent: BaseEvent{
			AggregateID: ingredientID.String(),
			EventType:   "ingredient.alias_removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		AliasID:      aliasID,
		IngredientID: ingredientID,
	}
}

// Catalog Events

// CatalogImported is raised after a batch import commits
type CatalogImported struct {
	BaseEvent
	BatchID      string `json:"batch_id"`
	RecordCount  int    `json:"record_count"`
	CatalogCheck string `json:"catalog_checksum,omitempty"`
}

// NewCatalogImported creates a CatalogImported event
func NewCatalogImported(batchID string, recordCount int, checksum string, timestamp time.Time) CatalogImported {
	return CatalogImported{
		BaseEvent: BaseEvent{
			AggregateID: batchID,
			EventType:   "catalog.imported",
			Timestamp:   timestamp,
			Version:     1,
		},
		BatchID:      batchID,
		RecordCount:  recordCount,
		CatalogCheck: checksum,
	}
}
