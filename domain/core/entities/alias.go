package entities

import (
	"strings"
	"time"

	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"
	pkgerrors "pantry-backend/pkg/errors"
)

// Alias is a crosswalk record owned by exactly one ingredient: an alternate
// lookup name, optionally mapped to a code in an external scheme (USDA,
// GS1, a supplier catalog). Aliases are removed in the same transaction
// that deletes their owner.
type Alias struct {
	id           string
	ingredientID valueobjects.IngredientID
	name         string
	scheme       string
	code         string
	createdAt    time.Time

	events []events.DomainEvent
}

// NewAlias creates an alias owned by the given ingredient. scheme and code
// travel together: a scheme without a code maps to nothing.
func NewAlias(ingredientID valueobjects.IngredientID, name, scheme, code string) (*Alias, error) {
	if ingredientID.IsZero() {
		return nil, pkgerrors.NewValidationError("alias owner cannot be empty")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("alias name cannot be empty")
	}

	scheme = strings.TrimSpace(scheme)
	code = strings.TrimSpace(code)
	if (scheme == "") != (code == "") {
		return nil, pkgerrors.NewValidationError("crosswalk scheme and code must be supplied together")
	}

	now := time.Now()
	alias := &Alias{
		id:           generateAliasID(),
		ingredientID: ingredientID,
		name:         name,
		scheme:       scheme,
		code:         code,
		createdAt:    now,
		events:       []events.DomainEvent{},
	}

	alias.addEvent(events.NewAliasAdded(alias.id, ingredientID, name, scheme, now))

	return alias, nil
}

// ReconstructAlias rebuilds an alias from repository data. No events are raised.
func ReconstructAlias(id string, ingredientID valueobjects.IngredientID, name, scheme, code string, createdAt time.Time) (*Alias, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("alias id cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("alias name cannot be empty")
	}

	return &Alias{
		id:           id,
		ingredientID: ingredientID,
		name:         name,
		scheme:       scheme,
		code:         code,
		createdAt:    createdAt,
		events:       []events.DomainEvent{},
	}, nil
}

// ID returns the alias's unique identifier
func (a *Alias) ID() string {
	return a.id
}

// IngredientID returns the owning ingredient
func (a *Alias) IngredientID() valueobjects.IngredientID {
	return a.ingredientID
}

// Name returns the alternate lookup name
func (a *Alias) Name() string {
	return a.name
}

// Scheme returns the external coding scheme, empty when the alias is a plain name
func (a *Alias) Scheme() string {
	return a.scheme
}

// Code returns the code within the external scheme
func (a *Alias) Code() string {
	return a.code
}

// HasCrosswalk reports whether the alias maps to an external scheme
func (a *Alias) HasCrosswalk() bool {
	return a.scheme != ""
}

// CreatedAt returns when the alias was created
func (a *Alias) CreatedAt() time.Time {
	return a.createdAt
}

// MarkRemoved records the removal event before the record is deleted
func (a *Alias) MarkRemoved() {
	a.addEvent(events.NewAliasRemoved(a.id, a.ingredientID, time.Now()))
}

// GetUncommittedEvents returns all uncommitted domain events
func (a *Alias) GetUncommittedEvents() []events.DomainEvent {
	return a.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (a *Alias) MarkEventsAsCommitted() {
	a.events = []events.DomainEvent{}
}

func (a *Alias) addEvent(event events.DomainEvent) {
	a.events = append(a.events, event)
}

// generateAliasID generates a unique alias ID
func generateAliasID() string {
	return valueobjects.NewIngredientID().String() // Reuse UUID generation
}
