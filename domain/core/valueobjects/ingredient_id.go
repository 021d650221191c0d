package valueobjects

import (
	"errors"
	"github.com/google/uuid"
)

// IngredientID is a value object representing a unique ingredient identifier
// Value objects are immutable and have no identity beyond their value
type IngredientID struct {
	value string
}

// NewIngredientID creates a new random IngredientID
func NewIngredientID() IngredientID {
	return IngredientID{value: uuid.New().String()}
}

// NewIngredientIDFromString creates an IngredientID from an existing string
func NewIngredientIDFromString(id string) (IngredientID, error) {
	if id == "" {
		return IngredientID{}, errors.New("ingredient ID cannot be empty")
	}
	if !isValidUUID(id) {
		return IngredientID{}, errors.New("ingredient ID must be a valid UUID")
	}
	return IngredientID{value: id}, nil
}

// String returns the string representation of the IngredientID
func (id IngredientID) String() string {
	return id.value
}

// Equals checks if two IngredientIDs are equal
func (id IngredientID) Equals(other IngredientID) bool {
	return id.value == other.value
}

// IsZero checks if the IngredientID is the zero value
func (id IngredientID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id IngredientID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *IngredientID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("IngredientID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
