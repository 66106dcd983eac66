package actionnode

import (
	"context"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

// RequestTransition advances the stage once the action's effects are in place.
func RequestTransition(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	if in.Err != nil || in.Effects.Next == "" {
		return in, nil
	}
	if err := in.Runtime.Transitioner.Advance(ctx, in.Stage, in.Effects.Next); err != nil {
		in.Err = err
	}
	return in, nil
}
