package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi"
)

type StatusHandler struct {
	svc *httpapi.Service
}

func NewStatusHandler(svc *httpapi.Service) *StatusHandler {
	return &StatusHandler{svc: svc}
}

func (h *StatusHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")

	status, err := h.svc.Status(ctx, runID)
	if err != nil {
		slog.WarnContext(ctx, "run status lookup failed", "run_id", runID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *StatusHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	runs, err := h.svc.ListRuns(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "list runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
