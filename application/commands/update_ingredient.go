package commands

import "errors"

// UpdateIngredientCommand renames an ingredient or reassigns its legacy
// category. Nil fields are left untouched; the slug never changes.
type UpdateIngredientCommand struct {
	IngredientID string  `json:"ingredient_id" validate:"required,uuid"`
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category     *string `json:"category,omitempty" validate:"omitempty,max=255"`
	ActorID      string  `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd UpdateIngredientCommand) Validate() error {
	if cmd.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	if cmd.Name == nil && cmd.Category == nil {
		return errors.New("nothing to update")
	}
	if cmd.Name != nil {
		if *cmd.Name == "" {
			return errors.New("name cannot be blank")
		}
		if len(*cmd.Name) > MaxDisplayNameLength {
			return errors.New("name exceeds maximum length")
		}
	}
	return nil
}
