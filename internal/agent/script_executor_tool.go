package agent

import (
	"context"
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"normcode.dev/core/internal/element"
)

// scriptEntryFunc is the function name every script file evaluated by
// ScriptExecutorTool must define: func Run(args []any) (any, error).
const scriptEntryFunc = "Run"

// ScriptExecutorTool is the "script_executor" Body tool. It evaluates a
// Go source file through an embedded yaegi interpreter and invokes its
// exported Run(args []any) (any, error) entry point. Invoke expects
// args[0] to carry the script path (as produced by the script-location
// perception norm) and the remaining args to be passed to Run.
type ScriptExecutorTool struct{}

func NewScriptExecutorTool() *ScriptExecutorTool { return &ScriptExecutorTool{} }

func (ScriptExecutorTool) Name() string { return "script_executor" }

func (ScriptExecutorTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.Element{}, fmt.Errorf("script_executor tool: missing script handle argument")
	}
	handle, ok := args[0].Primitive.(element.Map)
	if !ok {
		return element.Element{}, fmt.Errorf("script_executor tool: argument is not a script handle")
	}
	pathElem, ok := handle["script_path"]
	if !ok {
		return element.Element{}, fmt.Errorf("script_executor tool: handle missing script_path")
	}
	path, _ := pathElem.Primitive.(string)

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return element.Element{}, fmt.Errorf("script_executor tool: loading stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return element.Element{}, fmt.Errorf("script_executor tool: interpreting %q: %w", path, err)
	}
	fnValue, err := i.Eval(scriptEntryFunc)
	if err != nil {
		return element.Element{}, fmt.Errorf("script_executor tool: %q must define %s(args []any) (any, error): %w", path, scriptEntryFunc, err)
	}

	scriptArgs := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		scriptArgs = append(scriptArgs, elementToAny(a))
	}

	result, callErr := invokeRun(fnValue, scriptArgs)
	if callErr != nil {
		return element.Element{}, fmt.Errorf("script_executor tool: %q: %w", path, callErr)
	}
	return jsonToElement(result), nil
}

func invokeRun(fnValue reflect.Value, args []any) (any, error) {
	if !fnValue.IsValid() {
		return nil, fmt.Errorf("missing %s function", scriptEntryFunc)
	}
	in := []reflect.Value{reflect.ValueOf(args)}
	out := fnValue.Call(in)
	if len(out) != 2 {
		return nil, fmt.Errorf("%s must return (any, error)", scriptEntryFunc)
	}
	if !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func elementToAny(e element.Element) any {
	switch e.Kind {
	case element.KindSkip:
		return nil
	case element.KindSign:
		return e.Sign.String()
	default:
		switch v := e.Primitive.(type) {
		case element.Map:
			m := make(map[string]any, len(v))
			for k, vv := range v {
				m[k] = elementToAny(vv)
			}
			return m
		case element.List:
			l := make([]any, len(v))
			for i, vv := range v {
				l[i] = elementToAny(vv)
			}
			return l
		default:
			return v
		}
	}
}
