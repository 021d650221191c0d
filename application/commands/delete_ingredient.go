package commands

import "errors"

// DeleteIngredientCommand removes a node from the catalog. The handler
// refuses when products, recipes, or children still depend on the node;
// historical snapshot lines never block because they are denormalized
// in the same transaction.
type DeleteIngredientCommand struct {
	IngredientID string `json:"ingredient_id" validate:"required,uuid"`
	ActorID      string `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd DeleteIngredientCommand) Validate() error {
	if cmd.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}

// DeleteIngredientResult reports what the deletion touched
type DeleteIngredientResult struct {
	IngredientID   string `json:"ingredient_id"`
	DetachedLines  int    `json:"detached_lines"`
	RemovedAliases int    `json:"removed_aliases"`
}
