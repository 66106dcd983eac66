package actionnode

import (
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

func MarkFlag(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	for _, f := range in.Effects.Flags {
		if err := in.Runtime.Recorder.MarkFlag(f.Flag, f.Value); err != nil {
			in.Err = fmt.Errorf("%w: mark %s: %v", contractx.ErrInvariant, f.Flag, err)
			return in, nil
		}
	}
	return in, nil
}
