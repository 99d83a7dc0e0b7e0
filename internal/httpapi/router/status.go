package router

import (
	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi/handler"
)

func StatusRouter(rg *gin.RouterGroup, h *handler.StatusHandler) {
	rg.GET("/runs", h.ListRuns)
	rg.GET("/runs/:run_id/status", h.Get)
}
