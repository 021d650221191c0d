package commands

import "errors"

// AddAliasCommand attaches an alternate name to an ingredient, optionally
// carrying an external-scheme crosswalk (scheme + code travel together).
type AddAliasCommand struct {
	IngredientID string `json:"ingredient_id" validate:"required,uuid"`
	Name         string `json:"name" validate:"required,min=1,max=120"`
	Scheme       string `json:"scheme,omitempty" validate:"omitempty,max=64"`
	Code         string `json:"code,omitempty" validate:"omitempty,max=64"`
	ActorID      string `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd AddAliasCommand) Validate() error {
	if cmd.IngredientID == "" {
		return errors.New("ingredient ID is required")
	}
	if cmd.Name == "" {
		return errors.New("alias name is required")
	}
	if (cmd.Scheme == "") != (cmd.Code == "") {
		return errors.New("crosswalk scheme and code must be supplied together")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}

// RemoveAliasCommand detaches a single alias from its ingredient
type RemoveAliasCommand struct {
	AliasID string `json:"alias_id" validate:"required"`
	ActorID string `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd RemoveAliasCommand) Validate() error {
	if cmd.AliasID == "" {
		return errors.New("alias ID is required")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}
