package router

import (
	"nabil-inventory-api/internal/handler"
	"nabil-inventory-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	CatalogHandler *handler.CatalogHandler
	SyncHandler    *handler.SyncHandler
	AuthHandler    *handler.AuthHandler
	Sessions       middleware.SessionSource
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no session required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// SESSION-GATED routes: the presence of a logged-in user is the
		// sole gate for all catalog and sync operations.
		r.Group(func(r chi.Router) {
			if cfg.Sessions != nil {
				r.Use(middleware.RequireSession(cfg.Sessions))
			}

			if cfg.AuthHandler != nil {
				r.Post("/auth/logout", cfg.AuthHandler.Logout)
				r.Get("/auth/me", cfg.AuthHandler.Me)
			}

			if cfg.CatalogHandler != nil {
				r.Get("/state", cfg.CatalogHandler.GetState)
				r.Post("/categories", cfg.CatalogHandler.AddCategory)
				r.Delete("/categories/{id}", cfg.CatalogHandler.DeleteCategory)
				r.Post("/products", cfg.CatalogHandler.AddProduct)
				r.Get("/products/barcode/{code}", cfg.CatalogHandler.GetProductByBarcode)
				r.Delete("/products/{id}", cfg.CatalogHandler.DeleteProduct)
				r.Post("/sales", cfg.CatalogHandler.RecordSale)
			}

			if cfg.SyncHandler != nil {
				r.Post("/sync", cfg.SyncHandler.ManualSync)
				r.Get("/export", cfg.SyncHandler.Export)
				r.Post("/import", cfg.SyncHandler.Import)
			}
		})
	})

	return r
}
