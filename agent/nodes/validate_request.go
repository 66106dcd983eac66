// Package actionnode holds the steps of the action invocation pipeline.
package actionnode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/modules"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
)

// Recorder mirrors accepted changes to the durable store.
type Recorder interface {
	Insert(rec persist.Record)
	DemoteSelections()
	MarkFlag(flag statex.Flag, v bool) error
}

// Transitioner moves the conversation to another stage.
type Transitioner interface {
	Advance(ctx context.Context, from, to statex.Stage) error
}

// Runtime is the conversation an invocation runs against.
type Runtime struct {
	Shared       *statex.Shared
	Recorder     Recorder
	Transitioner Transitioner
	Presenter    contractx.Presenter
}

type GraphInput struct {
	Stage   statex.Stage
	Action  *modules.ActionSpec
	Args    map[string]any
	Runtime Runtime
}

type GraphOutput struct {
	Result       contractx.Result
	Effects      modules.Effects
	Presentation *contractx.Presentation
	// Err is set when the action was refused or failed. Result still
	// carries the message for the agent.
	Err error
}

type GraphState struct {
	Stage   statex.Stage
	Action  *modules.ActionSpec
	Args    map[string]any
	Runtime Runtime

	Payload      any
	Presentation *contractx.Presentation
	Response     contractx.Response
	Effects      modules.Effects

	Halted bool
	Err    error
	Result contractx.Result
}

// halt stops the pipeline before any further mutation.
func (s *GraphState) halt(msg string, err error) *GraphState {
	s.Halted = true
	s.Err = err
	s.Result = contractx.Result{
		Accepted: false,
		Message:  msg,
		Stage:    s.Runtime.Shared.Stage(),
	}
	return s
}

func ValidateRequest(in GraphInput) (*GraphState, error) {
	if in.Action == nil || strings.TrimSpace(in.Action.Name) == "" {
		return nil, fmt.Errorf("%w: action is required", contractx.ErrInvariant)
	}
	if !in.Stage.Valid() {
		return nil, fmt.Errorf("%w: %q", statex.ErrUnknownStage, in.Stage)
	}
	rt := in.Runtime
	if rt.Shared == nil || rt.Recorder == nil || rt.Transitioner == nil {
		return nil, fmt.Errorf("%w: runtime for %s is incomplete", contractx.ErrInvariant, in.Action.Name)
	}
	if rt.Presenter == nil {
		rt.Presenter = contractx.ContextPresenter{}
	}

	args := in.Args
	if args == nil {
		args = map[string]any{}
	}
	return &GraphState{
		Stage:   in.Stage,
		Action:  in.Action,
		Args:    args,
		Runtime: rt,
	}, nil
}
