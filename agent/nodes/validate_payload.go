package actionnode

import (
	"errors"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

// ValidatePayload binds the raw arguments. Invalid payloads halt with the
// reason and leave Shared State untouched.
func ValidatePayload(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	if in.Action.Bind == nil {
		in.Payload = in.Args
		return in, nil
	}

	payload, err := in.Action.Bind(in.Args)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			return in.halt(err.Error(), err), nil
		}
		return in.halt("the request could not be processed", err), nil
	}
	in.Payload = payload
	return in, nil
}
