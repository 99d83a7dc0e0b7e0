package router

import (
	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/httpapi/handler"
)

// SetupRoutes mounts the read-only status/reference/checkpoint surface
// (spec.md §6) under /api/v1.
func SetupRoutes(r *gin.Engine, svc *httpapi.Service) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		StatusRouter(v1, handler.NewStatusHandler(svc))
		ConceptRouter(v1, handler.NewConceptHandler(svc))
		CheckpointRouter(v1, handler.NewCheckpointHandler(svc))
	}
}
