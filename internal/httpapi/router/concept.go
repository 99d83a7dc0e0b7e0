package router

import (
	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi/handler"
)

func ConceptRouter(rg *gin.RouterGroup, h *handler.ConceptHandler) {
	rg.GET("/runs/:run_id/concepts/:concept_name", h.Get)
}
