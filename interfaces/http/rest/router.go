package rest

import (
	"fmt"
	"net/http"
	"strings"

	"pantry-backend/application/commands/bus"
	querybus "pantry-backend/application/queries/bus"
	"pantry-backend/infrastructure/config"
	"pantry-backend/interfaces/http/rest/handlers"
	"pantry-backend/interfaces/http/rest/middleware"
	v1 "pantry-backend/interfaces/http/rest/v1"
	"pantry-backend/pkg/auth"
	pkgerrors "pantry-backend/pkg/errors"
	"pantry-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// devSigningSecret signs tokens when no JWT_SECRET is configured. Config
// validation rejects that combination in production, so this only ever
// signs local traffic.
const devSigningSecret = "pantry-local-development-secret"

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	validator  *auth.JWTValidator
	limiter    auth.RateLimiter
	metrics    *observability.Metrics
	errors     *pkgerrors.ErrorHandler
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	limiter auth.RateLimiter,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) (*Router, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be configured in production")
		}
		secret = devSigningSecret
		logger.Warn("JWT_SECRET is not set, using the development signing key")
	}

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure token validation: %w", err)
	}

	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		validator:  validator,
		limiter:    limiter,
		metrics:    metrics,
		errors:     pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment()),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))
	router.Use(versionMiddleware)

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.pantryapp.com"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-API-Version", "X-API-Deprecated"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	authenticate := middleware.Authenticate(rt.validator, rt.logger)

	// API v1 routes (legacy, read only, scheduled for sunset)
	router.Mount("/api/v1", v1.NewRouter(rt.queryBus, authenticate, rt.logger))

	// API v2 routes (current)
	router.Route("/api/v2", func(r chi.Router) {
		r.Use(authenticate)

		ingredientHandler := handlers.NewIngredientHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
		hierarchyHandler := handlers.NewHierarchyHandler(rt.queryBus, rt.errors, rt.logger)
		aliasHandler := handlers.NewAliasHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)

		r.Route("/ingredients", func(r chi.Router) {
			// Static segments are matched before the {ingredientID} wildcard,
			// so /roots stays reachable.
			r.Get("/roots", hierarchyHandler.ListRoots)
			r.Get("/{ingredientID}", ingredientHandler.Get)
			r.Get("/{ingredientID}/children", hierarchyHandler.ListChildren)
			r.Get("/{ingredientID}/ancestors", hierarchyHandler.ListAncestors)
			r.Get("/{ingredientID}/descendants", hierarchyHandler.ListDescendants)
			r.Get("/{ingredientID}/can-delete", ingredientHandler.CanDelete)
			r.Get("/{ingredientID}/aliases", aliasHandler.List)
			r.Post("/{ingredientID}/validate-level", ingredientHandler.ValidateLevel)

			// Mutations require the editor role and count against the
			// write rate limit.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleEditor, auth.RoleAdmin))
				r.Use(middleware.RateLimit(rt.limiter, rt.logger))
				r.Post("/", ingredientHandler.Create)
				r.Put("/{ingredientID}", ingredientHandler.Update)
				r.Delete("/{ingredientID}", ingredientHandler.Delete)
				r.Post("/{ingredientID}/move", ingredientHandler.Move)
				r.Post("/{ingredientID}/aliases", aliasHandler.Add)
				r.Delete("/{ingredientID}/aliases/{aliasID}", aliasHandler.Remove)
			})
		})

		// Hierarchy reads
		r.Get("/tree", hierarchyHandler.GetTree)
		r.Get("/search", hierarchyHandler.Search)
		r.Get("/resolve", hierarchyHandler.ResolveLabel)

		// Batch import shares the mutation guard
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleEditor, auth.RoleAdmin))
			r.Use(middleware.RateLimit(rt.limiter, rt.logger))
			r.Post("/import", ingredientHandler.Import)
		})

		// The consistency sweep walks the whole catalog, admins only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Use(middleware.RateLimit(rt.limiter, rt.logger))
			r.Post("/consistency-check", ingredientHandler.CheckConsistency)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests. The buses are wired at
// startup or not at all, so reachability is the readiness signal.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.HasPrefix(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")

		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
			w.Header().Set("X-API-Deprecation-Date", "2025-09-01")
			w.Header().Set("X-API-Sunset-Date", "2026-12-31")
		}

		next.ServeHTTP(w, r)
	})
}
