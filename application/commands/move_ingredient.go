package commands

import "errors"

// MoveIngredientCommand re-parents a node anywhere in the tree. A nil
// NewParentID promotes the node to a root.
type MoveIngredientCommand struct {
	IngredientID string  `json:"ingredient_id" validate:"required,uuid"`
	NewParentID  *string `json:"new_parent_id" validate:"omitempty,uuid"`
	ActorID      string  `json:"actor_id" validate:"required"`
}

// Validate validates the command. Cycle and depth rules are checked against
// the live tree by the handler, not here.
func (cmd MoveIngredientCommand) Validate() error {
	if cmd.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	if cmd.NewParentID != nil && *cmd.NewParentID == "" {
		return errors.New("new parent ID cannot be blank")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}

// MoveIngredientResult reports the placement after a move
type MoveIngredientResult struct {
	IngredientID string   `json:"ingredient_id"`
	NewParentID  *string  `json:"new_parent_id,omitempty"`
	OldLevel     int      `json:"old_level"`
	NewLevel     int      `json:"new_level"`
	ReleveledIDs []string `json:"releveled_ids,omitempty"`
}
