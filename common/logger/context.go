package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where run
// context (run_id, cycle, flow_index, ...) is automatically included in all log statements.
type LogFields struct {
	RunID       *string // Orchestrator run ID
	Cycle       *int    // Current scheduling cycle
	FlowIndex   *string // Inference entry being executed
	ConceptName *string // Concept being read or written
	ExecutionID *int64  // Snowflake ID correlating one sequence execution's logs
	Component   string  // Component name (OTel semantic convention style, e.g., "normcode.orchestrator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.Cycle != nil {
		result.Cycle = new.Cycle
	}
	if new.FlowIndex != nil {
		result.FlowIndex = new.FlowIndex
	}
	if new.ConceptName != nil {
		result.ConceptName = new.ConceptName
	}
	if new.ExecutionID != nil {
		result.ExecutionID = new.ExecutionID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(runID)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like queries or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
