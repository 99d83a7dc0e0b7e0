// Package agent implements the Subject concept's runtime bundle: a Body
// of named tools and an AgentFrame that selects sequence variants and the
// paradigm interpretation mode.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"normcode.dev/core/internal/element"
)

// ErrUnknownTool is returned when a Body is asked for a tool name it does
// not carry.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is a named capability a Body exposes to the Paradigm Composer.
// Invoke receives already-transmuted arguments (perceptual signs are
// resolved by MVP before TVA calls Invoke) and returns a single element.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, args element.List) (element.Element, error)
}

// Body is the registry of named tools available to inferences executing
// under one Agent: llm, file_system, script_executor, user_input,
// prompt_tool, perception_router.
type Body struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewBody builds a Body from the given tools, keyed by their own Name().
func NewBody(tools ...Tool) *Body {
	b := &Body{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		b.tools[t.Name()] = t
	}
	return b
}

// Register installs or replaces a tool.
func (b *Body) Register(t Tool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools[t.Name()] = t
}

// Tool returns the named tool.
func (b *Body) Tool(name string) (Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, ErrUnknownTool)
	}
	return t, nil
}

// Names returns every registered tool name.
func (b *Body) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.tools))
	for n := range b.tools {
		out = append(out, n)
	}
	return out
}
