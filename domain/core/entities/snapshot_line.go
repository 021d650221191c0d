package entities

import (
	"strings"
	"time"

	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"
)

// SnapshotLine is one line of a historical inventory snapshot. While its
// ingredient still exists in the catalog the line references it by ID; when
// the ingredient is deleted, the delete flow copies the ingredient's own
// name plus its level-1 and level-0 ancestor names into the line and nulls
// the reference, so the record stays human-readable forever regardless of
// how the catalog evolves afterwards.
type SnapshotLine struct {
	id           string
	snapshotID   string
	ingredientID *valueobjects.IngredientID
	quantity     float64
	unit         string
	recordedAt   time.Time

	ingredientNameSnapshot string
	parentL1NameSnapshot   string
	parentL0NameSnapshot   string
}

// NewSnapshotLine records a quantity of a live catalog ingredient inside an
// inventory snapshot document.
func NewSnapshotLine(snapshotID string, ingredientID valueobjects.IngredientID, quantity float64, unit string) (*SnapshotLine, error) {
	if strings.TrimSpace(snapshotID) == "" {
		return nil, pkgerrors.NewValidationError("snapshot id cannot be empty")
	}
	if ingredientID.IsZero() {
		return nil, pkgerrors.NewValidationError("snapshot line must reference an ingredient")
	}
	if quantity < 0 {
		return nil, pkgerrors.NewValidationError("quantity cannot be negative")
	}

	ref := ingredientID
	return &SnapshotLine{
		id:           generateAliasID(),
		snapshotID:   snapshotID,
		ingredientID: &ref,
		quantity:     quantity,
		unit:         strings.TrimSpace(unit),
		recordedAt:   time.Now(),
	}, nil
}

// ReconstructSnapshotLine rebuilds a snapshot line from repository data,
// detached lines included (nil ingredientID with populated name snapshots).
func ReconstructSnapshotLine(
	id, snapshotID string,
	ingredientID *valueobjects.IngredientID,
	quantity float64,
	unit string,
	recordedAt time.Time,
	ingredientNameSnapshot, parentL1NameSnapshot, parentL0NameSnapshot string,
) (*SnapshotLine, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("snapshot line id cannot be empty")
	}
	if ingredientID == nil && ingredientNameSnapshot == "" {
		return nil, pkgerrors.NewValidationError("detached snapshot line must carry a name snapshot")
	}

	return &SnapshotLine{
		id:                     id,
		snapshotID:             snapshotID,
		ingredientID:           copyParentID(ingredientID),
		quantity:               quantity,
		unit:                   unit,
		recordedAt:             recordedAt,
		ingredientNameSnapshot: ingredientNameSnapshot,
		parentL1NameSnapshot:   parentL1NameSnapshot,
		parentL0NameSnapshot:   parentL0NameSnapshot,
	}, nil
}

// ID returns the line's unique identifier
func (s *SnapshotLine) ID() string {
	return s.id
}

// SnapshotID returns the owning snapshot document
func (s *SnapshotLine) SnapshotID() string {
	return s.snapshotID
}

// IngredientID returns a copy of the catalog reference, nil once detached
func (s *SnapshotLine) IngredientID() *valueobjects.IngredientID {
	return copyParentID(s.ingredientID)
}

// Quantity returns the recorded amount
func (s *SnapshotLine) Quantity() float64 {
	return s.quantity
}

// Unit returns the measurement unit
func (s *SnapshotLine) Unit() string {
	return s.unit
}

// RecordedAt returns when the snapshot was taken
func (s *SnapshotLine) RecordedAt() time.Time {
	return s.recordedAt
}

// IngredientNameSnapshot returns the denormalized ingredient name, empty
// while the catalog reference is still live
func (s *SnapshotLine) IngredientNameSnapshot() string {
	return s.ingredientNameSnapshot
}

// ParentL1NameSnapshot returns the denormalized level-1 ancestor name
func (s *SnapshotLine) ParentL1NameSnapshot() string {
	return s.parentL1NameSnapshot
}

// ParentL0NameSnapshot returns the denormalized root ancestor name
func (s *SnapshotLine) ParentL0NameSnapshot() string {
	return s.parentL0NameSnapshot
}

// IsDetached reports whether the line has been cut loose from the catalog
func (s *SnapshotLine) IsDetached() bool {
	return s.ingredientID == nil
}

// References reports whether the line points at the given ingredient
func (s *SnapshotLine) References(id valueobjects.IngredientID) bool {
	return s.ingredientID != nil && s.ingredientID.Equals(id)
}

// Denormalize copies the ingredient's display name and its ancestor names
// into the line, then nulls the catalog reference. Parent names may be empty
// when the deleted node was a root or a parentless legacy leaf. Idempotent:
// a line that is already detached is left untouched.
func (s *SnapshotLine) Denormalize(ingredientName, parentL1Name, parentL0Name string) error {
	if s.ingredientID == nil {
		return nil
	}
	if strings.TrimSpace(ingredientName) == "" {
		return pkgerrors.NewValidationError("denormalized ingredient name cannot be empty")
	}

	s.ingredientNameSnapshot = ingredientName
	s.parentL1NameSnapshot = parentL1Name
	s.parentL0NameSnapshot = parentL0Name
	s.ingredientID = nil

	return nil
}
