package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"normcode.dev/core/internal/httpapi"
)

type ConceptHandler struct {
	svc *httpapi.Service
}

func NewConceptHandler(svc *httpapi.Service) *ConceptHandler {
	return &ConceptHandler{svc: svc}
}

func (h *ConceptHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")
	name := c.Param("concept_name")

	ref, err := h.svc.Concept(ctx, runID, name)
	if err != nil {
		slog.WarnContext(ctx, "concept lookup failed", "run_id", runID, "concept", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ref)
}
