// Package api exposes the knowledge graph, interaction log and import pipeline over
// HTTP.
package api

import (
	"context"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/document"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/importer"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/interactions"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// GraphBackend is what the API reads from the graph store directly
type GraphBackend interface {
	IsAvailable() bool
	Stats(ctx context.Context, ns model.Namespace) (graph.NamespaceStats, error)
}

// Deps are the components the handlers share
type Deps struct {
	Graph        GraphBackend
	Interactions *interactions.Log
	Pipeline     *importer.Pipeline
	Documents    *document.Holder
	Namespace    model.Namespace
	Logger       *zap.Logger
}

// Handler serves the HTTP API
type Handler struct {
	graph        GraphBackend
	interactions *interactions.Log
	pipeline     *importer.Pipeline
	documents    *document.Holder
	ns           model.Namespace
	logger       *zap.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps Deps) *gin.Engine {
	h := &Handler{
		graph:        deps.Graph,
		interactions: deps.Interactions,
		pipeline:     deps.Pipeline,
		documents:    deps.Documents,
		ns:           deps.Namespace,
		logger:       logger.OrDefault(deps.Logger),
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(h.logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/graph", h.getGraph)
		api.GET("/graph/nodes/:id", h.getNode)
		api.GET("/graph/nodes/:id/neighborhood", h.getNeighborhood)

		api.POST("/interactions", h.recordInteraction)
		api.GET("/interactions", h.listInteractions)
		api.DELETE("/interactions", h.clearInteractions)
		api.GET("/students/:id/interactions", h.listStudentInteractions)

		api.GET("/stats", h.stats)
	}

	admin := router.Group("/api/admin")
	{
		admin.POST("/rebuild", h.rebuild)
		admin.POST("/warehouse", h.newWarehouse)
	}

	return router
}
