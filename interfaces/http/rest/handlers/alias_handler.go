package handlers

import (
	"encoding/json"
	"net/http"

	"pantry-backend/application/commands"
	"pantry-backend/application/commands/bus"
	"pantry-backend/application/queries"
	querybus "pantry-backend/application/queries/bus"
	"pantry-backend/domain/core/entities"
	"pantry-backend/pkg/auth"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AliasHandler serves the alias sub-resource. Aliases are alternate names
// and crosswalk codes that feed label resolution; they never affect the
// tree shape.
type AliasHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewAliasHandler creates a new alias handler
func NewAliasHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *AliasHandler {
	return &AliasHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// AliasListResponse is the body of GET /ingredients/{id}/aliases
type AliasListResponse struct {
	IngredientID string              `json:"ingredient_id"`
	Items        []queries.AliasView `json:"items"`
	Total        int                 `json:"total"`
}

// List handles GET /api/v2/ingredients/{ingredientID}/aliases
func (h *AliasHandler) List(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	result, err := h.queryBus.Ask(r.Context(), queries.GetIngredientQuery{
		IngredientID: ingredientID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	details, ok := result.(*queries.GetIngredientResult)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected lookup result"))
		return
	}

	aliases := details.Aliases
	if aliases == nil {
		aliases = []queries.AliasView{}
	}

	respondJSON(w, h.logger, http.StatusOK, AliasListResponse{
		IngredientID: ingredientID,
		Items:        aliases,
		Total:        len(aliases),
	})
}

// AddAliasRequest is the body of POST /ingredients/{id}/aliases. Scheme and
// code are optional crosswalk coordinates (USDA FDC IDs, GTINs and the like).
type AddAliasRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=120"`
	Scheme string `json:"scheme,omitempty" validate:"omitempty,max=64"`
	Code   string `json:"code,omitempty" validate:"omitempty,max=64"`
}

// Add handles POST /api/v2/ingredients/{ingredientID}/aliases
func (h *AliasHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddAliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.AddAliasCommand{
		IngredientID: chi.URLParam(r, "ingredientID"),
		Name:         req.Name,
		Scheme:       req.Scheme,
		Code:         req.Code,
		ActorID:      user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	alias, ok := result.(*entities.Alias)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected alias result"))
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, queries.NewAliasView(alias))
}

// Remove handles DELETE /api/v2/ingredients/{ingredientID}/aliases/{aliasID}
func (h *AliasHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	if _, err := h.commandBus.Send(r.Context(), commands.RemoveAliasCommand{
		AliasID: chi.URLParam(r, "aliasID"),
		ActorID: user.UserID,
	}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusNoContent, nil)
}
