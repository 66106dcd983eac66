package actionnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

// AwaitConfirmation shows render actions to the user and waits for the
// answer. Records produced while presenting are kept even if the user
// declines.
func AwaitConfirmation(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	if in.Action.Present == nil {
		in.Response = contractx.Response{Accepted: true}
		return in, nil
	}

	p, recs, err := in.Action.Present(ctx, in.Payload)
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
	for _, rec := range recs {
		in.Runtime.Recorder.Insert(rec)
	}
	in.Presentation = &p

	resp, err := in.Runtime.Presenter.Present(ctx, p)
	if err != nil {
		return in.halt("the customer could not be asked", err), nil
	}
	in.Response = resp
	if !resp.Accepted {
		in.halt(awaitingMessage(p), nil)
		in.Result.Data = p
		return in, nil
	}
	return in, nil
}

func awaitingMessage(p contractx.Presentation) string {
	if p.Kind == contractx.RenderChoose {
		return "Waiting for the customer to choose: " + p.Prompt
	}
	return "The customer did not confirm: " + p.Prompt
}
