package router

import (
	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi/handler"
)

func CheckpointRouter(rg *gin.RouterGroup, h *handler.CheckpointHandler) {
	rg.GET("/runs/:run_id/checkpoint", h.Get)
}
