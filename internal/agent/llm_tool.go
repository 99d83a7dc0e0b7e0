package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"normcode.dev/core/common/llm"
	"normcode.dev/core/internal/element"
)

// LLMRequest is the bound-at-MFP configuration for one paradigm's model
// call: system/user prompt templates (already rendered by MVP) and the
// structured-output schema name.
type LLMRequest struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	Temperature  *float64
}

// LLMTool wraps an OpenAI-compatible chat client as the "llm" Body tool.
// Invoke expects args[0] to be an LLMRequest wrapped as a primitive and
// returns the parsed structured-output payload as a Map element.
type LLMTool struct {
	client openai.Client
	model  string
}

// NewLLMTool builds the llm tool bound to model, using apiKey/baseURL for
// the underlying OpenAI-compatible client.
func NewLLMTool(apiKey, baseURL, model string) (*LLMTool, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm tool: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLMTool{client: openai.NewClient(opts...), model: model}, nil
}

func (t *LLMTool) Name() string { return "llm" }

func (t *LLMTool) Invoke(ctx context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.Element{}, fmt.Errorf("llm tool: missing request argument")
	}
	req, ok := args[0].Primitive.(LLMRequest)
	if !ok {
		return element.Element{}, fmt.Errorf("llm tool: argument is not an LLMRequest")
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        req.SchemaName,
		Description: openai.String("paradigm structured output"),
		Schema:      req.Schema,
		Strict:      openai.Bool(true),
	}
	params := openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return element.Element{}, fmt.Errorf("llm tool: chat completion: %w", err)
	}
	slog.DebugContext(ctx, "llm tool invoked",
		"model", t.model,
		"duration_ms", time.Since(start).Milliseconds())

	if len(resp.Choices) == 0 {
		return element.Element{}, fmt.Errorf("llm tool: no choices in response")
	}

	var decoded any
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &decoded); err != nil {
		return element.Element{}, fmt.Errorf("llm tool: decoding structured output: %w", err)
	}
	return jsonToElement(decoded), nil
}

func jsonToElement(v any) element.Element {
	switch t := v.(type) {
	case map[string]any:
		m := make(element.Map, len(t))
		for k, vv := range t {
			m[k] = jsonToElement(vv)
		}
		return element.NewPrimitive(m)
	case []any:
		l := make(element.List, len(t))
		for i, vv := range t {
			l[i] = jsonToElement(vv)
		}
		return element.NewPrimitive(l)
	default:
		return element.NewPrimitive(t)
	}
}

// GenerateSchema reflects T into a JSON schema, the same reflector
// configuration the paradigm registry uses to bind judgement assertion
// and imperative output shapes.
func GenerateSchema[T any]() any {
	var v T
	return llm.GenerateSchemaFrom(v)
}

// ErrNotRetryable marks an error the retry policy must not retry.
var ErrNotRetryable = errors.New("llm tool: not retryable")

// IsRetryable classifies an llm tool error per the retry policy in §7:
// rate limits and 5xx are retryable; context cancellation and 4xx
// (other than 429) are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return true
		}
		return false
	}
	return true
}
