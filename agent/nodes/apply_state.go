package actionnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

// ApplyState runs the action against Shared State.
func ApplyState(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	if in.Action.Apply == nil {
		return in.halt("the action has nothing to do", fmt.Errorf("%w: %s has no apply step", contractx.ErrInvariant, in.Action.Name)), nil
	}

	effects, err := in.Action.Apply(ctx, in.Payload, in.Response)
	if err != nil {
		switch {
		case errors.Is(err, contractx.ErrAlreadyConfirmed):
			return in.halt("this order has already been confirmed", err), nil
		case errors.Is(err, contractx.ErrValidation):
			return in.halt(err.Error(), err), nil
		default:
			return in.halt("the request could not be processed", err), nil
		}
	}
	in.Effects = effects
	return in, nil
}
