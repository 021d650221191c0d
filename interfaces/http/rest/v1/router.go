package v1

import (
	"net/http"

	querybus "pantry-backend/application/queries/bus"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates the legacy v1 API router. v1 predates the hierarchy
// work and serves the catalog as a flat, read-only listing; every mutation
// lives in v2. The main router mounts this under /api/v1 and stamps the
// deprecation headers.
func NewRouter(
	queryBus *querybus.QueryBus,
	authenticate func(http.Handler) http.Handler,
	logger *zap.Logger,
) http.Handler {
	router := mux.NewRouter()

	// Health stays reachable without credentials
	router.HandleFunc("/api/v1/health", healthCheck).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(authenticate)

	handler := NewCatalogHandler(queryBus, logger)
	v1.HandleFunc("/ingredients", handler.ListIngredients).Methods("GET")
	v1.HandleFunc("/ingredients/{id}", handler.GetIngredient).Methods("GET")
	v1.HandleFunc("/ingredients/{id}/children", handler.ListChildren).Methods("GET")
	v1.HandleFunc("/search", handler.Search).Methods("GET")

	return router
}

// healthCheck provides the legacy health endpoint
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"v1"}`))
}
