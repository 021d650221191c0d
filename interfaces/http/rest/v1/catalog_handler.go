package v1

import (
	"net/http"
	"sort"
	"strings"

	"pantry-backend/application/queries"
	querybus "pantry-backend/application/queries/bus"
	"pantry-backend/pkg/common"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// apiVersion stamps v1 response metadata
const apiVersion = "v1"

// CatalogHandler serves the legacy read endpoints. v1 clients never learned
// about nesting, so the hierarchy is folded into a " > " joined path column
// on an otherwise flat record.
type CatalogHandler struct {
	queryBus *querybus.QueryBus
	logger   *zap.Logger
}

// NewCatalogHandler creates a new legacy catalog handler
func NewCatalogHandler(queryBus *querybus.QueryBus, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		queryBus: queryBus,
		logger:   logger,
	}
}

// LegacyIngredient is the flat v1 wire shape
type LegacyIngredient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Category  string `json:"category,omitempty"`
	Path      string `json:"path"`
	Level     int    `json:"level"`
	IsLeaf    bool   `json:"is_leaf"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListIngredients handles GET /api/v1/ingredients. The tree is flattened in
// display order; page/page_size window it and sort=name re-sorts it.
func (h *CatalogHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTreeQuery{})
	if err != nil {
		h.respondError(w, err)
		return
	}

	tree, ok := result.(*queries.GetTreeResult)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected tree result")
		return
	}

	items := flattenTree(tree.Roots)
	items = append(items, flattenTree(tree.Orphans)...)

	params := common.ExtractPaginationParams(r)
	if params.Sort == "name" {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
			if params.Order == "desc" {
				return a > b
			}
			return a < b
		})
	}

	total := len(items)
	start, end := params.Bounds(total)

	meta := common.NewMeta(r, apiVersion).
		WithPagination(common.BuildPaginationMeta(params.Page, params.PageSize, total))
	common.RespondWithMeta(w, http.StatusOK, items[start:end], meta)
}

// GetIngredient handles GET /api/v1/ingredients/{id}. The id segment also
// accepts a slug, matching v2.
func (h *CatalogHandler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]

	query := queries.GetIngredientQuery{}
	if _, err := uuid.Parse(ref); err == nil {
		query.IngredientID = ref
	} else {
		query.Slug = ref
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.respondError(w, err)
		return
	}

	details, ok := result.(*queries.GetIngredientResult)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected lookup result")
		return
	}

	item := toLegacy(details.Ingredient, joinNames(details.Path))
	common.RespondWithMeta(w, http.StatusOK, item, common.NewMeta(r, apiVersion))
}

// ListChildren handles GET /api/v1/ingredients/{id}/children
func (h *CatalogHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]

	query := queries.GetIngredientQuery{}
	if _, err := uuid.Parse(ref); err == nil {
		query.IngredientID = ref
	} else {
		query.Slug = ref
	}

	// The parent lookup supplies the path prefix every child shares.
	parentResult, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.respondError(w, err)
		return
	}
	parent, ok := parentResult.(*queries.GetIngredientResult)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected lookup result")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListChildrenQuery{
		IngredientID: parent.Ingredient.ID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	list, ok := result.(*queries.IngredientListResult)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected list result")
		return
	}

	prefix := joinNames(parent.Path)
	items := make([]LegacyIngredient, 0, len(list.Items))
	for _, view := range list.Items {
		items = append(items, toLegacy(view, prefix+" > "+view.Name))
	}

	common.RespondWithMeta(w, http.StatusOK, items, common.NewMeta(r, apiVersion))
}

// Search handles GET /api/v1/search?q=<term>
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter 'q' is required")
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.SearchIngredientsQuery{
		Query: term,
		Limit: 50,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	search, ok := result.(*queries.SearchIngredientsResult)
	if !ok {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected search result")
		return
	}

	items := make([]LegacyIngredient, 0, len(search.Hits))
	for _, hit := range search.Hits {
		path := hit.Ingredient.Name
		if crumb := joinNames(hit.Breadcrumb); crumb != "" {
			path = crumb + " > " + path
		}
		items = append(items, toLegacy(hit.Ingredient, path))
	}

	common.RespondWithMeta(w, http.StatusOK, items, common.NewMeta(r, apiVersion))
}

// respondError translates bus failures into the legacy envelope
func (h *CatalogHandler) respondError(w http.ResponseWriter, err error) {
	if de := pkgerrors.GetDomainError(err); de != nil {
		common.RespondErrorWithDetails(w, de.StatusCode, de.Code, de.Message, de.Details)
		return
	}
	if ae := pkgerrors.GetAppError(err); ae != nil {
		common.RespondError(w, ae.HTTPStatus, string(ae.Type), ae.Message)
		return
	}

	h.logger.Error("legacy endpoint failed", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// toLegacy converts a read-model view into the flat v1 record
func toLegacy(view queries.IngredientView, path string) LegacyIngredient {
	return LegacyIngredient{
		ID:        view.ID,
		Name:      view.Name,
		Slug:      view.Slug,
		Category:  view.Category,
		Path:      path,
		Level:     view.Level,
		IsLeaf:    view.IsLeaf,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
}

// flattenTree walks the rendered tree depth-first, building each node's
// joined path as it descends
func flattenTree(roots []queries.TreeNode) []LegacyIngredient {
	items := make([]LegacyIngredient, 0, len(roots)*4)

	var walk func(node queries.TreeNode, prefix string)
	walk = func(node queries.TreeNode, prefix string) {
		path := node.Name
		if prefix != "" {
			path = prefix + " > " + node.Name
		}
		items = append(items, toLegacy(node.IngredientView, path))
		for _, child := range node.Children {
			walk(child, path)
		}
	}

	for _, root := range roots {
		walk(root, "")
	}
	return items
}

// joinNames renders views as the legacy breadcrumb column
func joinNames(views []queries.IngredientView) string {
	if len(views) == 0 {
		return ""
	}
	names := make([]string, 0, len(views))
	for _, view := range views {
		names = append(names, view.Name)
	}
	return strings.Join(names, " > ")
}
