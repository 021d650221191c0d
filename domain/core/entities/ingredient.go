package entities

import (
	"strings"
	"time"

	"pantry-backend/domain/config"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"
	pkgerrors "pantry-backend/pkg/errors"
)

// Ingredient is the catalog entity for one node of the ingredient taxonomy.
// This is a rich domain model with encapsulated business logic: hierarchy
// placement (parent reference and level) can only change through methods
// that keep the bounded-depth invariants intact.
type Ingredient struct {
	// Private fields ensure encapsulation
	id        valueobjects.IngredientID
	name      valueobjects.IngredientName
	parentID  *valueobjects.IngredientID
	level     valueobjects.Level
	category  string // legacy free-text field, not authoritative once the hierarchy is populated
	createdAt time.Time
	updatedAt time.Time
	version   int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewIngredient creates a new catalog entry under the given parent.
//
// A nil parent preserves the legacy flat-catalog behavior: the ingredient
// lands at the leaf level with no ancestry. Pre-hierarchy imports created
// every ingredient this way, and changing the default would silently
// reclassify that data, so the asymmetry stays.
func NewIngredient(name valueobjects.IngredientName, parent *Ingredient, category string) (*Ingredient, error) {
	return NewIngredientWithConfig(name, parent, category, config.DefaultDomainConfig())
}

// NewIngredientWithConfig creates a new catalog entry with explicit configuration.
func NewIngredientWithConfig(name valueobjects.IngredientName, parent *Ingredient, category string, cfg *config.DomainConfig) (*Ingredient, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if name.IsEmpty() {
		return nil, pkgerrors.NewValidationError("ingredient name cannot be empty")
	}

	category = strings.TrimSpace(category)
	if category == "" && !cfg.AllowEmptyCategory {
		return nil, pkgerrors.NewValidationError("category cannot be empty")
	}

	var (
		level    valueobjects.Level
		parentID *valueobjects.IngredientID
	)
	if parent == nil {
		orphanLevel, err := valueobjects.NewLevelWithConfig(cfg.LegacyOrphanLevel, cfg)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
		level = orphanLevel
	} else {
		childLevel, err := parent.Level().Child()
		if err != nil {
			return nil, pkgerrors.NewMaxDepthExceeded(parent.ID().String(), parent.Level().Int()+1, cfg.MaxLevel)
		}
		level = childLevel
		pid := parent.ID()
		parentID = &pid
	}

	now := time.Now()
	ingredient := &Ingredient{
		id:        valueobjects.NewIngredientID(),
		name:      name,
		parentID:  parentID,
		level:     level,
		category:  category,
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	ingredient.addEvent(events.NewIngredientCreated(
		ingredient.id,
		name.Display(),
		name.Slug(),
		parentIDString(parentID),
		level.Int(),
		now,
	))

	return ingredient, nil
}

// NewRootIngredient creates a top-level category (level 0, no parent).
// Import tooling names its roots explicitly; the interactive create path
// never produces one.
func NewRootIngredient(name valueobjects.IngredientName, category string) (*Ingredient, error) {
	if name.IsEmpty() {
		return nil, pkgerrors.NewValidationError("ingredient name cannot be empty")
	}

	now := time.Now()
	ingredient := &Ingredient{
		id:        valueobjects.NewIngredientID(),
		name:      name,
		parentID:  nil,
		level:     valueobjects.Level(0),
		category:  strings.TrimSpace(category),
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	ingredient.addEvent(events.NewIngredientCreated(
		ingredient.id,
		name.Display(),
		name.Slug(),
		"",
		0,
		now,
	))

	return ingredient, nil
}

// ReconstructIngredient rebuilds an ingredient from repository data with
// preserved timestamps and version. No events are raised.
func ReconstructIngredient(
	id valueobjects.IngredientID,
	name valueobjects.IngredientName,
	parentID *valueobjects.IngredientID,
	level valueobjects.Level,
	category string,
	createdAt, updatedAt time.Time,
	version int,
) (*Ingredient, error) {
	if name.IsEmpty() {
		return nil, pkgerrors.NewValidationError("ingredient name cannot be empty")
	}
	if version < 1 {
		version = 1
	}

	return &Ingredient{
		id:        id,
		name:      name,
		parentID:  copyParentID(parentID),
		level:     level,
		category:  category,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the ingredient's unique identifier
func (i *Ingredient) ID() valueobjects.IngredientID {
	return i.id
}

// Name returns the ingredient's display name and slug
func (i *Ingredient) Name() valueobjects.IngredientName {
	return i.name
}

// ParentID returns a copy of the parent reference, nil for parentless nodes
func (i *Ingredient) ParentID() *valueobjects.IngredientID {
	return copyParentID(i.parentID)
}

// Level returns the ingredient's depth in the hierarchy
func (i *Ingredient) Level() valueobjects.Level {
	return i.level
}

// Category returns the legacy free-text category
func (i *Ingredient) Category() string {
	return i.category
}

// HasParent reports whether the ingredient sits under another node
func (i *Ingredient) HasParent() bool {
	return i.parentID != nil
}

// IsRoot reports whether the ingredient is a top-level category
func (i *Ingredient) IsRoot() bool {
	return i.level.IsRoot() && i.parentID == nil
}

// Version returns the ingredient's version for optimistic locking
func (i *Ingredient) Version() int {
	return i.version
}

// CreatedAt returns when the ingredient was created
func (i *Ingredient) CreatedAt() time.Time {
	return i.createdAt
}

// UpdatedAt returns when the ingredient was last updated
func (i *Ingredient) UpdatedAt() time.Time {
	return i.updatedAt
}

// Rename changes the display name. The slug is immutable so historical
// references and external crosswalks stay valid across renames.
func (i *Ingredient) Rename(display string) error {
	renamed, err := i.name.WithDisplay(display)
	if err != nil {
		return err
	}

	if renamed.Equals(i.name) {
		return nil // No change needed
	}

	oldDisplay := i.name.Display()
	i.name = renamed
	i.updatedAt = time.Now()
	i.version++

	i.addEvent(events.NewIngredientRenamed(i.id, oldDisplay, renamed.Display(), i.updatedAt))

	return nil
}

// SetCategory updates the legacy category field. No event is raised; the
// field is informational only once the hierarchy is populated.
func (i *Ingredient) SetCategory(category string) {
	i.category = strings.TrimSpace(category)
	i.updatedAt = time.Now()
}

// Relocate applies a validated reparent to this ingredient.
//
// Cycle safety is the caller's responsibility: it requires walking the
// candidate parent's ancestor chain, which the entity cannot see. What the
// entity can verify locally it does verify: the level bound, and that a
// parentless placement is a root one. releveledIDs lists the descendants
// whose levels the same commit recomputes.
func (i *Ingredient) Relocate(newParentID *valueobjects.IngredientID, newLevel valueobjects.Level, releveledIDs []string) error {
	if !newLevel.WithinMax() {
		return pkgerrors.NewMaxDepthExceeded(i.id.String(), newLevel.Int(), config.DefaultDomainConfig().MaxLevel)
	}
	if newParentID == nil && !newLevel.IsRoot() {
		return pkgerrors.NewValidationError("a parentless move must target the root level")
	}
	if newParentID != nil && newLevel.IsRoot() {
		return pkgerrors.NewValidationError("a root placement cannot carry a parent reference")
	}

	if sameParent(i.parentID, newParentID) && i.level == newLevel {
		return nil // No movement needed
	}

	oldParentID := i.parentID
	oldLevel := i.level
	i.parentID = copyParentID(newParentID)
	i.level = newLevel
	i.updatedAt = time.Now()
	i.version++

	i.addEvent(events.NewIngredientMoved(
		i.id,
		parentIDString(oldParentID),
		parentIDString(newParentID),
		oldLevel.Int(),
		newLevel.Int(),
		releveledIDs,
		i.updatedAt,
	))

	return nil
}

// Relevel recomputes this ingredient's depth as part of an ancestor's move.
// No event is raised here; the move event on the relocated ancestor carries
// the full set of releveled IDs.
func (i *Ingredient) Relevel(level valueobjects.Level) error {
	if !level.WithinMax() {
		return pkgerrors.NewMaxDepthExceeded(i.id.String(), level.Int(), config.DefaultDomainConfig().MaxLevel)
	}

	if i.level == level {
		return nil
	}

	i.level = level
	i.updatedAt = time.Now()
	i.version++

	return nil
}

// MarkDeleted records the deletion event with the denormalized context the
// delete flow gathered: the parent and root names copied into snapshot lines
// and the number of dependent records that were detached or removed.
func (i *Ingredient) MarkDeleted(parentName, rootName string, snapshotCount, aliasCount int) {
	i.addEvent(events.NewIngredientDeleted(
		i.id,
		i.name.Display(),
		i.name.Slug(),
		parentName,
		rootName,
		snapshotCount,
		aliasCount,
		time.Now(),
	))
}

// GetUncommittedEvents returns all uncommitted domain events
func (i *Ingredient) GetUncommittedEvents() []events.DomainEvent {
	return i.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (i *Ingredient) MarkEventsAsCommitted() {
	i.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (i *Ingredient) addEvent(event events.DomainEvent) {
	i.events = append(i.events, event)
}

func copyParentID(id *valueobjects.IngredientID) *valueobjects.IngredientID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func sameParent(a, b *valueobjects.IngredientID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(*b)
}

func parentIDString(id *valueobjects.IngredientID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
