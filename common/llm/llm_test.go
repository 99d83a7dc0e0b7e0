package llm_test

import (
	"testing"

	"github.com/invopop/jsonschema"

	"normcode.dev/core/common/llm"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type structuredPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLLM(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "llm suite")
}

var _ = Describe("GenerateSchemaFrom", func() {
	It("reflects a struct into a JSON schema with no external refs", func() {
		schema, ok := llm.GenerateSchemaFrom(structuredPayload{}).(*jsonschema.Schema)
		Expect(ok).To(BeTrue())
		Expect(schema.Properties.Len()).To(Equal(2))
		Expect(schema.AdditionalProperties).To(Equal(jsonschema.FalseSchema))
	})
})
