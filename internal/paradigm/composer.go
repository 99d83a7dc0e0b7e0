package paradigm

import (
	"context"
	"fmt"

	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/element"
)

// Callable is the compiled form of a paradigm specification: $\Phi(V)$
// applied elementwise inside TVA via cross_action.
type Callable interface {
	Invoke(ctx context.Context, values element.List) (element.Element, error)
}

type callable struct {
	body     *agent.Body
	vertical VerticalSpec
	steps    []HorizontalStep
	setup    element.Element
}

// Compose performs vertical setup (binding verticalValues into the
// paradigm's tool) then returns a Callable that performs horizontal
// composition (the ordered h_* steps) at each TVA invocation.
func Compose(spec *Spec, body *agent.Body, verticalValues element.List) (Callable, error) {
	tool, err := body.Tool(spec.Vertical.Tool)
	if err != nil {
		return nil, fmt.Errorf("paradigm %q: vertical tool: %w", spec.ParadigmID, err)
	}
	setup, err := tool.Invoke(context.Background(), verticalValues)
	if err != nil {
		return nil, fmt.Errorf("paradigm %q: vertical setup: %w", spec.ParadigmID, err)
	}
	return &callable{body: body, vertical: spec.Vertical, steps: spec.Horizontal, setup: setup}, nil
}

// Invoke runs the horizontal plan in order, invoking the vertical tool
// once per step. A step's arguments are the scope entries its
// c_input_args name: "_setup", "_values", or an earlier step's
// o_output_as. h_method labels the step in error messages.
func (c *callable) Invoke(ctx context.Context, values element.List) (element.Element, error) {
	scope := element.Map{"_setup": c.setup, "_values": element.NewPrimitive(values)}
	var last element.Element = c.setup

	for _, step := range c.steps {
		tool, err := c.body.Tool(c.vertical.Tool)
		if err != nil {
			return element.Element{}, fmt.Errorf("horizontal step %q: %w", step.Method, err)
		}
		args := make(element.List, 0, len(step.InputArgs))
		for _, key := range step.InputArgs {
			v, ok := scope[key]
			if !ok {
				return element.Element{}, fmt.Errorf("horizontal step %q: undeclared input %q", step.Method, key)
			}
			args = append(args, v)
		}
		out, err := tool.Invoke(ctx, args)
		if err != nil {
			return element.Element{}, fmt.Errorf("horizontal step %q: %w", step.Method, err)
		}
		if step.OutputAs != "" {
			scope[step.OutputAs] = out
		}
		last = out
	}
	return last, nil
}
