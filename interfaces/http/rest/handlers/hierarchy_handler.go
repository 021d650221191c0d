package handlers

import (
	"net/http"
	"strconv"

	"pantry-backend/application/queries"
	querybus "pantry-backend/application/queries/bus"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HierarchyHandler serves the read side of the tree: full renders, roots,
// per-node traversals, search, and free-text label resolution.
type HierarchyHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewHierarchyHandler creates a new hierarchy handler
func NewHierarchyHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *HierarchyHandler {
	return &HierarchyHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// GetTree handles GET /api/v2/tree. An optional ?root=<id> restricts the
// render to one subtree.
func (h *HierarchyHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTreeQuery{
		RootID: r.URL.Query().Get("root"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListRoots handles GET /api/v2/ingredients/roots
func (h *HierarchyHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListRootsQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListChildren handles GET /api/v2/ingredients/{ingredientID}/children
func (h *HierarchyHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListChildrenQuery{
		IngredientID: chi.URLParam(r, "ingredientID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListAncestors handles GET /api/v2/ingredients/{ingredientID}/ancestors.
// The chain is ordered parent first, so a two-element result reads
// [parent, root].
func (h *HierarchyHandler) ListAncestors(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListAncestorsQuery{
		IngredientID: chi.URLParam(r, "ingredientID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ListDescendants handles GET /api/v2/ingredients/{ingredientID}/descendants
func (h *HierarchyHandler) ListDescendants(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListDescendantsQuery{
		IngredientID: chi.URLParam(r, "ingredientID"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// Search handles GET /api/v2/search?q=<term>&limit=<n>
func (h *HierarchyHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("query parameter 'q' is required"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.SearchIngredientsQuery{
		Query: term,
		Limit: queryLimit(r, 50),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// ResolveLabel handles GET /api/v2/resolve?label=<text>&limit=<n>. It maps
// free text from receipts or recipe imports onto catalog entries, exact slug
// and alias hits first.
func (h *HierarchyHandler) ResolveLabel(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("query parameter 'label' is required"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ResolveLabelQuery{
		Label: label,
		Limit: queryLimit(r, 10),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}

// queryLimit reads ?limit= with a fallback. Values out of range keep the
// fallback; the query layer enforces its own ceiling besides.
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
