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
	"normcode.dev/core/internal/reference"
)

var _ = Describe("ConceptHandler", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		store := checkpoint.NewMemoryStore()
		snap := checkpoint.Snapshot{
			RunID: "run-1",
			Cycle: 1,
			ConceptRefs: map[string]*reference.Reference{
				"sum": reference.NewSingleton(element.NewPrimitive(10.0)),
			},
			Blackboard: blackboard.New().Snapshot(),
		}
		Expect(store.SaveSnapshot(context.Background(), snap, "sig")).To(Succeed())

		svc := httpapi.NewService(store, nil)
		router = gin.New()
		router.GET("/runs/:run_id/concepts/:concept_name", handler.NewConceptHandler(svc).Get)
	})

	It("returns a populated concept's reference", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/concepts/sum", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp reference.Reference
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Tensor).To(HaveLen(1))
		Expect(resp.Tensor[0].Primitive).To(Equal(10.0))
	})

	It("returns 404 for an unpopulated concept", func() {
		req := httptest.NewRequest(http.MethodGet, "/runs/run-1/concepts/nonexistent", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
