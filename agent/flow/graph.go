package flow

import (
	"context"
	"fmt"

	nodex "github.com/autoosone/auto-state/agent/nodes"
	"github.com/cloudwego/eino/compose"
)

const nodeFinalize = "finalize_result"

// compileInvokeGraph builds the action pipeline. Steps that halt jump
// straight to finalize_result so nothing after them runs.
func compileInvokeGraph(ctx context.Context) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("validate_payload",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidatePayload(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_payload: %w", err)
	}

	if err := graph.AddLambdaNode("await_confirmation",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AwaitConfirmation(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node await_confirmation: %w", err)
	}

	if err := graph.AddLambdaNode("apply_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyState(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_state: %w", err)
	}

	if err := graph.AddLambdaNode("persist_record",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistRecord(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_record: %w", err)
	}

	if err := graph.AddLambdaNode("mark_flag",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MarkFlag(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node mark_flag: %w", err)
	}

	if err := graph.AddLambdaNode("request_transition",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RequestTransition(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node request_transition: %w", err)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResult(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_result: %w", err)
	}

	branches := [][2]string{
		{"validate_payload", "await_confirmation"},
		{"await_confirmation", "apply_state"},
		{"apply_state", "persist_record"},
	}
	for _, b := range branches {
		if err := graph.AddBranch(b[0], haltOr(b[1])); err != nil {
			return nil, fmt.Errorf("add branch after %s: %w", b[0], err)
		}
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "validate_payload"},
		{"persist_record", "mark_flag"},
		{"mark_flag", "request_transition"},
		{"request_transition", nodeFinalize},
		{nodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("flow.invoke_action"))
	if err != nil {
		return nil, fmt.Errorf("compile invoke graph: %w", err)
	}
	return runner, nil
}

func haltOr(next string) *compose.GraphBranch {
	return compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.Halted {
				return nodeFinalize, nil
			}
			return next, nil
		},
		map[string]bool{
			next:         true,
			nodeFinalize: true,
		},
	)
}
