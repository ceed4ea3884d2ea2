// Package rest wires the HTTP surface of the relationship engine.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/infrastructure/di"
	"github.com/pmacom/fivethirtynews-relate/interfaces/http/rest/handlers"
	"github.com/pmacom/fivethirtynews-relate/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.container.Config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.fivethirtynews.com"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	signalHandler := handlers.NewSignalHandler(rt.container.Aggregator, rt.logger)
	relatedHandler := handlers.NewRelatedHandler(rt.container.Ranker, rt.logger)
	tagHandler := handlers.NewTagHandler(rt.container.Aggregator, rt.container.Ranker, rt.container.Curator, rt.logger)

	adminOnly := middleware.RequireRole(rt.container.JWTValidator != nil, "admin")

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.container.JWTValidator, rt.logger))

		// Signal ingestion sees the highest traffic; cap it separately.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(600))
			r.Post("/signals", signalHandler.RecordSignal)
			r.Post("/tags/co-occurrence", tagHandler.RecordCoOccurrence)
		})

		r.Get("/signals", signalHandler.ListSignals)

		r.Route("/content/{contentID}", func(r chi.Router) {
			r.Get("/related", relatedHandler.GetRelated)
			r.Get("/edge/{otherID}", relatedHandler.GetEdge)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/{tagID}/co-occurring", tagHandler.GetCoOccurring)

			r.Route("/relationships", func(r chi.Router) {
				r.Get("/", tagHandler.ListRelationships)
				r.With(adminOnly).Put("/", tagHandler.UpsertRelationship)
				r.With(adminOnly).Delete("/{relationshipID}", tagHandler.DeleteRelationship)
			})
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

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
