// Package perception implements the PerceptionRouter: resolution of
// perceptual signs to concrete in-memory values on demand.
package perception

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"normcode.dev/core/internal/element"
)

// ErrUnknownPerceptionNorm is returned when a sign names a norm with no
// registered Transmuter.
var ErrUnknownPerceptionNorm = errors.New("unknown perception norm")

// Transmuter resolves a sign's signifier into a concrete element. It must
// be idempotent and side-effect-free apart from the I/O its norm implies
// (e.g. a filesystem read).
type Transmuter interface {
	Transmute(ctx context.Context, sign *element.Sign) (element.Element, error)
}

// TransmuterFunc adapts a function to the Transmuter interface.
type TransmuterFunc func(ctx context.Context, sign *element.Sign) (element.Element, error)

func (f TransmuterFunc) Transmute(ctx context.Context, sign *element.Sign) (element.Element, error) {
	return f(ctx, sign)
}

// Router maps a perception norm to the Transmuter responsible for it.
type Router struct {
	mu    sync.RWMutex
	norms map[string]Transmuter
}

// NewRouter builds an empty Router. Callers register norms with
// RegisterNorm; New* constructors in this package provide the required
// norms (file-location, prompt-location, script-location,
// memorized-parameter, literal).
func NewRouter() *Router {
	return &Router{norms: make(map[string]Transmuter)}
}

// RegisterNorm installs or replaces the Transmuter for a norm name.
func (r *Router) RegisterNorm(norm string, t Transmuter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.norms[norm] = t
}

// Resolve transmutes a sign through its registered norm.
func (r *Router) Resolve(ctx context.Context, sign *element.Sign) (element.Element, error) {
	r.mu.RLock()
	t, ok := r.norms[sign.Norm]
	r.mu.RUnlock()
	if !ok {
		return element.Element{}, fmt.Errorf("perception norm %q: %w", sign.Norm, ErrUnknownPerceptionNorm)
	}
	e, err := t.Transmute(ctx, sign)
	if err != nil {
		return element.Element{}, fmt.Errorf("transmuting sign %s: %w", sign, err)
	}
	return e, nil
}
