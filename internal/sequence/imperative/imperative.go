// Package imperative implements the imperative semantic sequence: IR,
// MFP, MVP, TVA (§4.8), with no truth assertion stage.
package imperative

import (
	"context"
	"fmt"

	"normcode.dev/core/internal/sequence"
	"normcode.dev/core/internal/sequence/semantic"
)

// Sequence implements sequence.Sequence for sequence_kind "imperative".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(ctx context.Context, f *sequence.Frame) (*sequence.Result, error) {
	out, _, err := semantic.Run(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("imperative: %w", err)
	}
	return &sequence.Result{Output: out}, nil
}
