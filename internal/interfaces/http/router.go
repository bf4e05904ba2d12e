// Package http exposes the resolution and query services over gin.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MedKG-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/MedKG-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  A nil handler leaves its routes unregistered.
type RouterConfig struct {
	EntityHandler  *handlers.EntityHandler
	GraphHandler   *handlers.GraphHandler
	GenericHandler *handlers.GenericHandler
	AdminHandler   *handlers.AdminHandler
	HealthHandler  *handlers.HealthHandler

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	if len(cfg.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.AllowedOrigins
		r.Use(middleware.CORS(cors))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	r.Use(middleware.Metrics(cfg.Metrics))

	if h := cfg.HealthHandler; h != nil {
		r.GET("/health", h.Liveness)
		r.GET("/ready", h.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	registerEntityRoutes(api, cfg.EntityHandler, cfg.GraphHandler)
	registerGraphRoutes(api, cfg.GraphHandler)
	registerGenericRoutes(api, cfg.GenericHandler)

	if h := cfg.AdminHandler; h != nil {
		r.POST("/admin/reload", h.Reload)
	}
	return r
}

// registerEntityRoutes mounts resolution and per-entity endpoints under
// /entities.  The fixed segments share the tree with :name.
func registerEntityRoutes(api *gin.RouterGroup, h *handlers.EntityHandler, g *handlers.GraphHandler) {
	entities := api.Group("/entities")
	if h != nil {
		entities.GET("/search", h.Resolve)
		entities.POST("/resolve", h.ResolveBatch)
		entities.GET("/fuzzy", h.Search)
		entities.GET("/:name/aliases", h.Aliases)
	}
	if g != nil {
		entities.GET("/:name/neighbors", g.Neighbors)
	}
}

// registerGraphRoutes mounts the typed neighbor shortcuts.
func registerGraphRoutes(api *gin.RouterGroup, h *handlers.GraphHandler) {
	if h == nil {
		return
	}
	api.GET("/drugs/:name/targets", h.DrugTargets)
	api.GET("/drugs/:name/diseases", h.DrugDiseases)
	api.GET("/targets/:name/drugs", h.TargetDrugs)
}

func registerGenericRoutes(api *gin.RouterGroup, h *handlers.GenericHandler) {
	if h == nil {
		return
	}
	api.GET("/generic/search", h.Search)
	api.GET("/generic/products", h.Products)
	api.GET("/statistics", h.Statistics)
}

//Personal.AI order the ending
