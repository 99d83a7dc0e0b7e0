package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi"
)

type CheckpointHandler struct {
	svc *httpapi.Service
}

func NewCheckpointHandler(svc *httpapi.Service) *CheckpointHandler {
	return &CheckpointHandler{svc: svc}
}

// Get returns a run's snapshot. A "cycle" query parameter selects a
// specific cycle; omitting it returns the latest snapshot.
func (h *CheckpointHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")

	cycle := -1
	if raw := c.Query("cycle"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cycle must be an integer"})
			return
		}
		cycle = n
	}

	snap, err := h.svc.Checkpoint(ctx, runID, cycle)
	if err != nil {
		slog.WarnContext(ctx, "checkpoint lookup failed", "run_id", runID, "cycle", cycle, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
