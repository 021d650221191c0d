package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"pantry-backend/application/commands"
	"pantry-backend/application/commands/bus"
	"pantry-backend/application/queries"
	querybus "pantry-backend/application/queries/bus"
	"pantry-backend/domain/core/entities"
	"pantry-backend/pkg/auth"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngredientHandler serves the ingredient resource: create, rename, move,
// guarded deletion, level validation, batch import, and the consistency
// sweep. Reads go through the query bus, mutations through the command bus;
// nothing here touches the stores directly.
type IngredientHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewIngredientHandler creates a new ingredient handler
func NewIngredientHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *IngredientHandler {
	return &IngredientHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateIngredientRequest is the body of POST /ingredients. The slug is
// derived from the name when omitted; a missing parent creates a standalone
// leaf, the legacy flat-catalog behavior.
type CreateIngredientRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Slug     string `json:"slug,omitempty" validate:"omitempty,max=140"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	Category string `json:"category,omitempty" validate:"omitempty,max=255"`
}

// CreateIngredientResponse reports the stored placement
type CreateIngredientResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	ParentID  *string `json:"parent_id,omitempty"`
	Level     int     `json:"level"`
	CreatedAt string  `json:"created_at"`
}

// Create handles POST /api/v2/ingredients
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIngredientRequest
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

	result, err := h.commandBus.Send(r.Context(), commands.CreateIngredientCommand{
		Name:     req.Name,
		Slug:     req.Slug,
		ParentID: req.ParentID,
		Category: req.Category,
		ActorID:  user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	ingredient, ok := result.(*entities.Ingredient)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected create result"))
		return
	}

	resp := CreateIngredientResponse{
		ID:        ingredient.ID().String(),
		Name:      ingredient.Name().Display(),
		Slug:      ingredient.Name().Slug(),
		Level:     ingredient.Level().Int(),
		CreatedAt: ingredient.CreatedAt().Format(time.RFC3339),
	}
	if pid := ingredient.ParentID(); pid != nil {
		s := pid.String()
		resp.ParentID = &s
	}

	w.Header().Set("Location", "/api/v2/ingredients/"+resp.ID)
	respondJSON(w, h.logger, http.StatusCreated, resp)
}

// Get handles GET /api/v2/ingredients/{ingredientID}. The path segment is
// an ID or, for anything that does not parse as a UUID, a slug.
func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ingredientID")

	query := queries.GetIngredientQuery{}
	if _, err := uuid.Parse(ref); err == nil {
		query.IngredientID = ref
	} else {
		query.Slug = ref
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// UpdateIngredientRequest is the body of PUT /ingredients/{id}. Omitted
// fields are left untouched; the slug never changes so historical references
// stay resolvable.
type UpdateIngredientRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=255"`
}

// UpdateIngredientResponse reports the state after the rename
type UpdateIngredientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Category  string `json:"category,omitempty"`
	Version   int    `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

// Update handles PUT /api/v2/ingredients/{ingredientID}
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	var req UpdateIngredientRequest
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

	result, err := h.commandBus.Send(r.Context(), commands.UpdateIngredientCommand{
		IngredientID: ingredientID,
		Name:         req.Name,
		Category:     req.Category,
		ActorID:      user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	ingredient, ok := result.(*entities.Ingredient)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected update result"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, UpdateIngredientResponse{
		ID:        ingredient.ID().String(),
		Name:      ingredient.Name().Display(),
		Slug:      ingredient.Name().Slug(),
		Category:  ingredient.Category(),
		Version:   ingredient.Version(),
		UpdatedAt: ingredient.UpdatedAt().Format(time.RFC3339),
	})
}

// Delete handles DELETE /api/v2/ingredients/{ingredientID}. Blocked
// deletions return 400 with every blocking count; a committed deletion
// reports what it detached and cascaded.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.DeleteIngredientCommand{
		IngredientID: ingredientID,
		ActorID:      user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// MoveIngredientRequest is the body of POST /ingredients/{id}/move. A null
// new_parent_id promotes the node to a root.
type MoveIngredientRequest struct {
	NewParentID *string `json:"new_parent_id" validate:"omitempty,uuid"`
}

// Move handles POST /api/v2/ingredients/{ingredientID}/move
func (h *IngredientHandler) Move(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	var req MoveIngredientRequest
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

	result, err := h.commandBus.Send(r.Context(), commands.MoveIngredientCommand{
		IngredientID: ingredientID,
		NewParentID:  req.NewParentID,
		ActorID:      user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// CanDelete handles GET /api/v2/ingredients/{ingredientID}/can-delete
func (h *IngredientHandler) CanDelete(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.CanDeleteQuery{
		IngredientID: chi.URLParam(r, "ingredientID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ValidateLevelRequest is the body of POST /ingredients/{id}/validate-level.
// Empty allowed_levels means the leaf rule.
type ValidateLevelRequest struct {
	AllowedLevels []int `json:"allowed_levels,omitempty" validate:"omitempty,dive,min=0,max=2"`
}

// ValidateLevel handles POST /api/v2/ingredients/{ingredientID}/validate-level
func (h *IngredientHandler) ValidateLevel(w http.ResponseWriter, r *http.Request) {
	var req ValidateLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ValidateLevelQuery{
		IngredientID:  chi.URLParam(r, "ingredientID"),
		AllowedLevels: req.AllowedLevels,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ImportRecordRequest is one row of an import batch
type ImportRecordRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=120"`
	Slug       string `json:"slug,omitempty" validate:"omitempty,max=140"`
	ParentSlug string `json:"parent_slug,omitempty" validate:"omitempty,max=140"`
	Category   string `json:"category,omitempty" validate:"omitempty,max=255"`
}

// ImportCatalogRequest is the body of POST /import. The whole batch commits
// or none of it does.
type ImportCatalogRequest struct {
	BatchID string                `json:"batch_id,omitempty"`
	Records []ImportRecordRequest `json:"records" validate:"required,min=1,max=1000,dive"`
}

// Import handles POST /api/v2/import
func (h *IngredientHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportCatalogRequest
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

	records := make([]commands.ImportRecord, 0, len(req.Records))
	for _, rec := range req.Records {
		records = append(records, commands.ImportRecord{
			Name:       rec.Name,
			Slug:       rec.Slug,
			ParentSlug: rec.ParentSlug,
			Category:   rec.Category,
		})
	}

	result, err := h.commandBus.Send(r.Context(), commands.ImportCatalogCommand{
		BatchID: req.BatchID,
		Records: records,
		ActorID: user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, result)
}

// CheckConsistency handles POST /api/v2/consistency-check
func (h *IngredientHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError(""))
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.CheckConsistencyCommand{
		ActorID: user.UserID,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
