package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"
)

// State is the portable JSON image of the whole store. Persistent drivers
// snapshot it after each commit and reload it on startup.
type State struct {
	Ingredients   []IngredientRecord `json:"ingredients"`
	Aliases       []AliasRecord      `json:"aliases"`
	SnapshotLines []LineRecord       `json:"snapshot_lines"`
	Events        []EventRecord      `json:"events"`
	ProductRefs   map[string]int     `json:"product_refs,omitempty"`
	RecipeRefs    map[string]int     `json:"recipe_refs,omitempty"`
}

// IngredientRecord is the flat serialized form of a catalog node
type IngredientRecord struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Slug        string    `json:"slug"`
	ParentID    string    `json:"parent_id,omitempty"`
	Level       int       `json:"level"`
	Category    string    `json:"category,omitempty"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AliasRecord is the flat serialized form of an alias or crosswalk entry
type AliasRecord struct {
	ID           string    `json:"id"`
	IngredientID string    `json:"ingredient_id"`
	Name         string    `json:"name"`
	Scheme       string    `json:"scheme,omitempty"`
	Code         string    `json:"code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LineRecord is the flat serialized form of an inventory snapshot line. An
// empty IngredientID marks a detached line.
type LineRecord struct {
	ID                     string    `json:"id"`
	SnapshotID             string    `json:"snapshot_id"`
	IngredientID           string    `json:"ingredient_id,omitempty"`
	Quantity               float64   `json:"quantity"`
	Unit                   string    `json:"unit"`
	RecordedAt             time.Time `json:"recorded_at"`
	IngredientNameSnapshot string    `json:"ingredient_name_snapshot,omitempty"`
	ParentL1NameSnapshot   string    `json:"parent_l1_name_snapshot,omitempty"`
	ParentL0NameSnapshot   string    `json:"parent_l0_name_snapshot,omitempty"`
}

// EventRecord wraps a serialized domain event with enough type information
// to rebuild the concrete event on load
type EventRecord struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// ExportState returns a deep copy of the current store contents
func (s *Store) ExportState() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		ProductRefs: make(map[string]int, len(s.productRefs)),
		RecipeRefs:  make(map[string]int, len(s.recipeRefs)),
	}

	for _, ingredient := range s.state.ingredients {
		state.Ingredients = append(state.Ingredients, ingredientRecord(ingredient))
	}
	sort.Slice(state.Ingredients, func(i, j int) bool {
		return state.Ingredients[i].Slug < state.Ingredients[j].Slug
	})

	for _, alias := range s.state.aliases {
		state.Aliases = append(state.Aliases, aliasRecord(alias))
	}
	sort.Slice(state.Aliases, func(i, j int) bool {
		return state.Aliases[i].ID < state.Aliases[j].ID
	})

	for _, line := range s.state.snapshotLines {
		state.SnapshotLines = append(state.SnapshotLines, lineRecord(line))
	}
	sort.Slice(state.SnapshotLines, func(i, j int) bool {
		return state.SnapshotLines[i].ID < state.SnapshotLines[j].ID
	})

	for _, event := range s.events {
		record, err := encodeEvent(event)
		if err != nil {
			return State{}, err
		}
		state.Events = append(state.Events, record)
	}

	for id, count := range s.productRefs {
		state.ProductRefs[id] = count
	}
	for id, count := range s.recipeRefs {
		state.RecipeRefs[id] = count
	}

	return state, nil
}

// ImportState replaces the store contents with the given image
func (s *Store) ImportState(state State) error {
	fresh := newCatalogState()

	for _, record := range state.Ingredients {
		ingredient, err := record.toEntity()
		if err != nil {
			return fmt.Errorf("import ingredient %s: %w", record.ID, err)
		}
		fresh.putIngredient(ingredient)
	}
	for _, record := range state.Aliases {
		alias, err := record.toEntity()
		if err != nil {
			return fmt.Errorf("import alias %s: %w", record.ID, err)
		}
		fresh.putAlias(alias)
	}
	for _, record := range state.SnapshotLines {
		line, err := record.toEntity()
		if err != nil {
			return fmt.Errorf("import snapshot line %s: %w", record.ID, err)
		}
		fresh.putSnapshotLine(line)
	}

	var log []events.DomainEvent
	for _, record := range state.Events {
		event, err := decodeEvent(record)
		if err != nil {
			return fmt.Errorf("import event: %w", err)
		}
		log = append(log, event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = fresh
	s.events = log
	s.productRefs = make(map[string]int, len(state.ProductRefs))
	for id, count := range state.ProductRefs {
		s.productRefs[id] = count
	}
	s.recipeRefs = make(map[string]int, len(state.RecipeRefs))
	for id, count := range state.RecipeRefs {
		s.recipeRefs[id] = count
	}
	return nil
}

func ingredientRecord(ingredient *entities.Ingredient) IngredientRecord {
	record := IngredientRecord{
		ID:          ingredient.ID().String(),
		DisplayName: ingredient.Name().Display(),
		Slug:        ingredient.Name().Slug(),
		Level:       ingredient.Level().Int(),
		Category:    ingredient.Category(),
		Version:     ingredient.Version(),
		CreatedAt:   ingredient.CreatedAt(),
		UpdatedAt:   ingredient.UpdatedAt(),
	}
	if parentID := ingredient.ParentID(); parentID != nil {
		record.ParentID = parentID.String()
	}
	return record
}

func (r IngredientRecord) toEntity() (*entities.Ingredient, error) {
	id, err := valueobjects.NewIngredientIDFromString(r.ID)
	if err != nil {
		return nil, err
	}
	name, err := valueobjects.NewIngredientName(r.DisplayName, r.Slug)
	if err != nil {
		return nil, err
	}
	level, err := valueobjects.NewLevel(r.Level)
	if err != nil {
		return nil, err
	}
	var parentID *valueobjects.IngredientID
	if r.ParentID != "" {
		pid, err := valueobjects.NewIngredientIDFromString(r.ParentID)
		if err != nil {
			return nil, err
		}
		parentID = &pid
	}
	return entities.ReconstructIngredient(id, name, parentID, level, r.Category, r.CreatedAt, r.UpdatedAt, r.Version)
}

func aliasRecord(alias *entities.Alias) AliasRecord {
	return AliasRecord{
		ID:           alias.ID(),
		IngredientID: alias.IngredientID().String(),
		Name:         alias.Name(),
		Scheme:       alias.Scheme(),
		Code:         alias.Code(),
		CreatedAt:    alias.CreatedAt(),
	}
}

func (r AliasRecord) toEntity() (*entities.Alias, error) {
	ingredientID, err := valueobjects.NewIngredientIDFromString(r.IngredientID)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructAlias(r.ID, ingredientID, r.Name, r.Scheme, r.Code, r.CreatedAt)
}

func lineRecord(line *entities.SnapshotLine) LineRecord {
	record := LineRecord{
		ID:                     line.ID(),
		SnapshotID:             line.SnapshotID(),
		Quantity:               line.Quantity(),
		Unit:                   line.Unit(),
		RecordedAt:             line.RecordedAt(),
		IngredientNameSnapshot: line.IngredientNameSnapshot(),
		ParentL1NameSnapshot:   line.ParentL1NameSnapshot(),
		ParentL0NameSnapshot:   line.ParentL0NameSnapshot(),
	}
	if ingredientID := line.IngredientID(); ingredientID != nil {
		record.IngredientID = ingredientID.String()
	}
	return record
}

func (r LineRecord) toEntity() (*entities.SnapshotLine, error) {
	var ingredientID *valueobjects.IngredientID
	if r.IngredientID != "" {
		id, err := valueobjects.NewIngredientIDFromString(r.IngredientID)
		if err != nil {
			return nil, err
		}
		ingredientID = &id
	}
	return entities.ReconstructSnapshotLine(
		r.ID,
		r.SnapshotID,
		ingredientID,
		r.Quantity,
		r.Unit,
		r.RecordedAt,
		r.IngredientNameSnapshot,
		r.ParentL1NameSnapshot,
		r.ParentL0NameSnapshot,
	)
}

func encodeEvent(event events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode event %s: %w", event.GetEventType(), err)
	}
	return EventRecord{EventType: event.GetEventType(), Payload: payload}, nil
}

func decodeEvent(record EventRecord) (events.DomainEvent, error) {
	switch record.EventType {
	case "ingredient.created":
		var event events.IngredientCreated
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "ingredient.renamed":
		var event events.IngredientRenamed
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "ingredient.moved":
		var event events.IngredientMoved
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "ingredient.deleted":
		var event events.IngredientDeleted
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "ingredient.alias_added":
		var event events.AliasAdded
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "ingredient.alias_removed":
		var event events.AliasRemoved
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	case "catalog.imported":
		var event events.CatalogImported
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	default:
		var event events.BaseEvent
		if err := json.Unmarshal(record.Payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	}
}
