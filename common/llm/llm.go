// Package llm holds the small pieces of LLM plumbing shared across the
// runtime that aren't specific to one Body tool's request/response shape.
package llm

import (
	"github.com/invopop/jsonschema"
)

// GenerateSchemaFrom generates a JSON schema from an instance value.
// Useful when the type is not known at compile time.
func GenerateSchemaFrom(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}
