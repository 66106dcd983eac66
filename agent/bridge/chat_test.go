package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	contractx "github.com/autoosone/auto-state/agent/contract"
	statex "github.com/autoosone/auto-state/agent/state"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	idx       int
	seenTools [][]string
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	options := einomodel.GetCommonOptions(&einomodel.Options{}, opts...)
	names := make([]string, 0, len(options.Tools))
	for _, info := range options.Tools {
		names = append(names, info.Name)
	}
	f.seenTools = append(f.seenTools, names)
	f.inputs = append(f.inputs, input)

	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

// fakeTarget enables getContactInformation until it is called, then showCar.
type fakeTarget struct {
	surface *Surface
	calls   []string
}

func newFakeTarget() *fakeTarget {
	ft := &fakeTarget{surface: NewSurface()}
	ft.publish(statex.StageContactInfo)
	return ft
}

func (f *fakeTarget) publish(active statex.Stage) {
	f.surface.RegisterAction(contractx.Action{
		Name:    "getContactInformation",
		Stage:   statex.StageContactInfo,
		Params:  contractx.Params{"name": {Type: contractx.ParamString, Required: true}},
		Handler: f.handle,
	}, active == statex.StageContactInfo)
	f.surface.RegisterAction(contractx.Action{
		Name:    "showCar",
		Stage:   statex.StageSelection,
		Handler: f.handle,
	}, active == statex.StageSelection)
	f.surface.PublishReadable(contractx.Readable{Name: "stage", Description: "Current stage", Value: active}, true)
}

func (f *fakeTarget) handle(ctx context.Context, args map[string]any) (contractx.Result, error) {
	return contractx.Result{}, nil
}

func (f *fakeTarget) LocalID() string   { return "session-test" }
func (f *fakeTarget) Surface() *Surface { return f.surface }

func (f *fakeTarget) Invoke(ctx context.Context, name string, args map[string]any) (contractx.Result, error) {
	f.calls = append(f.calls, name)
	if name == "showCar" && !f.surface.IsEnabled("showCar") {
		return contractx.Result{Message: "not available"}, contractx.ErrStageInactive
	}
	if name == "getContactInformation" {
		if args["name"] != "Ada" {
			return contractx.Result{Message: "name is required"}, contractx.ErrValidation
		}
		f.publish(statex.StageSelection)
		return contractx.Result{Accepted: true, Message: "contact saved", Stage: statex.StageSelection}, nil
	}
	return contractx.Result{Accepted: true, Stage: statex.StageSelection}, nil
}

func toolCall(id, name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       id,
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestChatAgentRunsToolLoop(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		toolCall("call-1", "getContactInformation", `{"name":"Ada"}`),
		{Role: schema.Assistant, Content: "Thanks Ada, which car do you like?"},
	}}
	agent, err := NewChatAgent(context.Background(), fake, "You sell cars.\n{instructions}\n{context}")
	if err != nil {
		t.Fatalf("NewChatAgent() error = %v", err)
	}
	target := newFakeTarget()

	reply, err := agent.Converse(context.Background(), target, "Hi, I'm Ada")
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply.Message != "Thanks Ada, which car do you like?" {
		t.Fatalf("Message = %q", reply.Message)
	}
	if len(reply.Actions) != 1 || !reply.Actions[0].Accepted {
		t.Fatalf("Actions = %#v", reply.Actions)
	}
	if len(fake.seenTools) != 2 {
		t.Fatalf("model rounds = %d, want 2", len(fake.seenTools))
	}
	if got := fake.seenTools[0]; len(got) != 1 || got[0] != "getContactInformation" {
		t.Fatalf("first round tools = %v", got)
	}
	if got := fake.seenTools[1]; len(got) != 1 || got[0] != "showCar" {
		t.Fatalf("second round tools = %v", got)
	}

	history := agent.History(target.LocalID())
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[2].Role != schema.Tool || history[2].ToolCallID != "call-1" {
		t.Fatalf("history[2] = %+v, want tool result for call-1", history[2])
	}
}

func TestChatAgentFeedsValidationBack(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		toolCall("call-1", "getContactInformation", `{}`),
		{Role: schema.Assistant, Content: "What is your name?"},
	}}
	agent, err := NewChatAgent(context.Background(), fake, "You sell cars.\n{instructions}\n{context}")
	if err != nil {
		t.Fatalf("NewChatAgent() error = %v", err)
	}
	target := newFakeTarget()

	reply, err := agent.Converse(context.Background(), target, "hello")
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if len(reply.Actions) != 1 || reply.Actions[0].Accepted {
		t.Fatalf("Actions = %#v, want one rejected", reply.Actions)
	}
	if target.surface.IsEnabled("showCar") {
		t.Fatalf("stage moved after rejected contact")
	}
}

func TestChatAgentStopsAfterMaxRounds(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		toolCall("call-1", "showCar", `{}`),
		toolCall("call-2", "showCar", `{}`),
	}}
	agent, err := NewChatAgent(context.Background(), fake, "You sell cars.\n{instructions}\n{context}", WithMaxToolRounds(2))
	if err != nil {
		t.Fatalf("NewChatAgent() error = %v", err)
	}

	reply, err := agent.Converse(context.Background(), newFakeTarget(), "show me a car")
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply.Message == "" {
		t.Fatalf("expected fallback message")
	}
	if len(reply.Actions) != 2 {
		t.Fatalf("Actions = %d, want 2", len(reply.Actions))
	}
}

func TestChatAgentRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	agent, err := NewChatAgent(context.Background(), &fakeToolCallingModel{}, "prompt")
	if err != nil {
		t.Fatalf("NewChatAgent() error = %v", err)
	}
	_, err = agent.Converse(context.Background(), newFakeTarget(), "   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Converse() error = %v, want ErrValidation", err)
	}
}

func TestTrimHistoryStartsAtUserMessage(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{
		schema.UserMessage("a"),
		toolCall("c1", "showCar", `{}`),
		schema.ToolMessage("{}", "c1"),
		schema.AssistantMessage("b", nil),
		schema.UserMessage("c"),
		schema.AssistantMessage("d", nil),
	}
	got := trimHistory(msgs, 4)
	if len(got) != 2 || got[0].Content != "c" {
		t.Fatalf("trimHistory() = %d messages starting with %q", len(got), got[0].Content)
	}
}

func TestToActionCallsRejectsBadArgs(t *testing.T) {
	t.Parallel()

	_, err := toActionCalls([]schema.ToolCall{{Function: schema.FunctionCall{Name: "showCar", Arguments: "{"}}})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("toActionCalls() error = %v, want ErrModelInvoke", err)
	}
}
