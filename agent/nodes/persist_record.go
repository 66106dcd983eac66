package actionnode

import (
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

// PersistRecord enqueues the action's durable records. Demotion runs first
// so a new final selection is not demoted with the old ones.
func PersistRecord(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrInvariant)
	}
	if in.Effects.DemoteSelections {
		in.Runtime.Recorder.DemoteSelections()
	}
	for _, rec := range in.Effects.Records {
		if rec == nil {
			continue
		}
		in.Runtime.Recorder.Insert(rec)
	}
	return in, nil
}
