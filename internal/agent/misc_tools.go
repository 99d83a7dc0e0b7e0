package agent

import (
	"context"
	"fmt"
	"strings"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/perception"
)

// UserInputTool is the "user_input" Body tool: it blocks on a
// channel-delivered response, letting an external driver (CLI prompt,
// HTTP callback) satisfy a plan's human-in-the-loop step.
type UserInputTool struct {
	responses <-chan element.Element
}

// NewUserInputTool builds the tool reading from responses. Callers own
// the send side and must deliver exactly one value per Invoke call in
// flight order.
func NewUserInputTool(responses <-chan element.Element) *UserInputTool {
	return &UserInputTool{responses: responses}
}

func (t *UserInputTool) Name() string { return "user_input" }

func (t *UserInputTool) Invoke(ctx context.Context, _ element.List) (element.Element, error) {
	select {
	case v, ok := <-t.responses:
		if !ok {
			return element.Element{}, fmt.Errorf("user_input tool: response channel closed")
		}
		return v, nil
	case <-ctx.Done():
		return element.Element{}, ctx.Err()
	}
}

// PromptTool is the "prompt_tool" Body tool: fills a template string
// (already resolved by the prompt-location perception norm) with named
// values. Invoke expects args[0] = template, args[1] = a Map of
// substitutions.
type PromptTool struct{}

func NewPromptTool() *PromptTool { return &PromptTool{} }

func (PromptTool) Name() string { return "prompt_tool" }

func (PromptTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.Element{}, fmt.Errorf("prompt_tool: missing template argument")
	}
	tmpl, _ := args[0].Primitive.(string)
	if len(args) > 1 {
		if vars, ok := args[1].Primitive.(element.Map); ok {
			tmpl = fillTemplate(tmpl, vars)
		}
	}
	return element.NewPrimitive(tmpl), nil
}

func fillTemplate(tmpl string, vars element.Map) string {
	for k, v := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{{"+k+"}}", fmt.Sprint(v.Primitive))
	}
	return tmpl
}

// PerceptionRouterTool is the "perception_router" Body tool: it lets a
// paradigm's horizontal plan request transmutation of a perceptual sign
// mid-composition (distinct from the implicit transmutation MVP performs
// via value_selectors' branch directive).
type PerceptionRouterTool struct {
	router *perception.Router
}

func NewPerceptionRouterTool(router *perception.Router) *PerceptionRouterTool {
	return &PerceptionRouterTool{router: router}
}

func (t *PerceptionRouterTool) Name() string { return "perception_router" }

func (t *PerceptionRouterTool) Invoke(ctx context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 || args[0].Kind != element.KindSign {
		return element.Element{}, fmt.Errorf("perception_router tool: expected a perceptual sign argument")
	}
	return t.router.Resolve(ctx, args[0].Sign)
}
