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
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/httpapi/handler"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
)

var _ = Describe("StatusHandler", func() {
	var (
		router *gin.Engine
		store  checkpoint.Store
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		store = checkpoint.NewMemoryStore()

		board := blackboard.New()
		board.SetStatus("1", model.StatusCompleted)
		snap := checkpoint.Snapshot{
			RunID: "run-1",
			Cycle: 2,
			ConceptRefs: map[string]*reference.Reference{
				"sum": reference.NewSingleton(element.NewPrimitive(10.0)),
			},
			Blackboard: board.Snapshot(),
		}
		Expect(store.SaveSnapshot(context.Background(), snap, "sig")).To(Succeed())

		svc := httpapi.NewService(store, nil)
		router = gin.New()
		router.GET("/runs", handler.NewStatusHandler(svc).ListRuns)
		router.GET("/runs/:run_id/status", handler.NewStatusHandler(svc).Get)
	})

	It("returns the checkpointed status for a known run", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp httpapi.RunStatus
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Cycle).To(Equal(2))
		Expect(resp.Entries).To(ContainElement(httpapi.InferenceStatus{FlowIndex: "1", Status: "completed"}))
	})

	It("returns 404 for an unknown run", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/missing/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("lists every checkpointed run", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string][]checkpoint.RunInfo
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["runs"]).To(HaveLen(1))
		Expect(resp["runs"][0].RunID).To(Equal("run-1"))
	})
})
