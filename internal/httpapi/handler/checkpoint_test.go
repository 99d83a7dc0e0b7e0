package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/httpapi/handler"
	"normcode.dev/core/internal/reference"
)

var _ = Describe("CheckpointHandler", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		store := checkpoint.NewMemoryStore()
		board := blackboard.New()
		for _, cycle := range []int{1, 2} {
			snap := checkpoint.Snapshot{
				RunID:       "run-1",
				Cycle:       cycle,
				ConceptRefs: map[string]*reference.Reference{},
				Blackboard:  board.Snapshot(),
			}
			Expect(store.SaveSnapshot(context.Background(), snap, "sig")).To(Succeed())
		}

		svc := httpapi.NewService(store, nil)
		router = gin.New()
		router.GET("/runs/:run_id/checkpoint", handler.NewCheckpointHandler(svc).Get)
	})

	It("returns the latest snapshot when no cycle is given", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/checkpoint", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp checkpoint.Snapshot
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Cycle).To(Equal(2))
	})

	It("returns a specific cycle's snapshot", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/checkpoint?cycle=1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp checkpoint.Snapshot
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Cycle).To(Equal(1))
	})

	It("returns 400 for a non-integer cycle", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/checkpoint?cycle=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
