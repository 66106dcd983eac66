package actionnode

import (
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

func FinalizeResult(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}

	if in.Halted {
		return GraphOutput{
			Result:       in.Result,
			Presentation: in.Presentation,
			Err:          in.Err,
		}, nil
	}

	res := contractx.Result{
		Accepted: in.Err == nil,
		Message:  in.Effects.Message,
		Stage:    in.Runtime.Shared.Stage(),
		Data:     in.Effects.Data,
	}
	if in.Err != nil {
		res.Message = "the request could not be completed"
	}
	return GraphOutput{
		Result:       res,
		Effects:      in.Effects,
		Presentation: in.Presentation,
		Err:          in.Err,
	}, nil
}
