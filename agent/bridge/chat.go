package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/autoosone/auto-state/agent/contract"
	toolx "github.com/autoosone/auto-state/agent/tool"
	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxToolRounds = 4
	defaultHistoryLimit  = 20
)

// Target is the conversation a chat turn acts on.
type Target interface {
	LocalID() string
	Surface() *Surface
	Invoke(ctx context.Context, name string, args map[string]any) (contractx.Result, error)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Message string             `json:"message"`
	Actions []contractx.Result `json:"actions,omitempty"`
}

type ChatOption func(*ChatAgent)

func WithMaxToolRounds(n int) ChatOption {
	return func(a *ChatAgent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

func WithHistoryLimit(n int) ChatOption {
	return func(a *ChatAgent) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

// ChatAgent drives conversations with a tool calling model. The tools offered
// on each round are the actions the conversation's surface has enabled.
type ChatAgent struct {
	runner       compose.Runnable[map[string]any, *schema.Message]
	maxRounds    int
	historyLimit int

	mu      sync.Mutex
	history map[string][]*schema.Message
}

func NewChatAgent(ctx context.Context, chatModel einomodel.ToolCallingChatModel, systemPrompt string, opts ...ChatOption) (*ChatAgent, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt is empty", contractx.ErrPromptMissing)
	}

	runner, err := compileChatGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile chat graph: %v", contractx.ErrModelInvoke, err)
	}

	a := &ChatAgent{
		runner:       runner,
		maxRounds:    defaultMaxToolRounds,
		historyLimit: defaultHistoryLimit,
		history:      make(map[string][]*schema.Message),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Converse runs one user turn: the model may call enabled actions for a
// bounded number of rounds before it must answer in text.
func (a *ChatAgent) Converse(ctx context.Context, target Target, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	msgs := append(a.History(target.LocalID()), schema.UserMessage(text))
	var reply Reply

	for round := 0; round < a.maxRounds; round++ {
		surface := target.Surface()
		caps := surface.Capabilities()

		msg, err := a.runner.Invoke(ctx, map[string]any{
			"instructions": strings.Join(caps.Instructions, "\n"),
			"context":      renderReadables(caps.Readables),
			"history":      msgs,
		}, compose.WithChatModelOption(einomodel.WithTools(toolx.Infos(caps.Actions))))
		if err != nil {
			return reply, fmt.Errorf("%w: chat invoke: %v", contractx.ErrModelInvoke, err)
		}
		if msg == nil {
			return reply, fmt.Errorf("%w: empty chat response", contractx.ErrModelInvoke)
		}
		msgs = append(msgs, msg)

		calls, err := toActionCalls(msg.ToolCalls)
		if err != nil {
			return reply, err
		}
		if len(calls) == 0 {
			reply.Message = strings.TrimSpace(msg.Content)
			a.remember(target.LocalID(), msgs)
			return reply, nil
		}

		for _, call := range calls {
			res, err := target.Invoke(ctx, call.name, call.args)
			if err != nil && !isRecoverable(err) {
				return reply, err
			}
			if err != nil {
				log.Debug().Err(err).Str("action", call.name).Str("session_id", target.LocalID()).Msg("action refused")
			}
			reply.Actions = append(reply.Actions, res)
			msgs = append(msgs, schema.ToolMessage(toolContent(res), call.id))
		}
	}

	reply.Message = "Sorry, I could not finish that. Could you rephrase?"
	a.remember(target.LocalID(), msgs)
	return reply, nil
}

// History returns a copy of the stored messages for a conversation.
func (a *ChatAgent) History(localID string) []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.history[localID]
	out := make([]*schema.Message, len(h))
	copy(out, h)
	return out
}

// Forget drops a conversation's history.
func (a *ChatAgent) Forget(localID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, localID)
}

func (a *ChatAgent) remember(localID string, msgs []*schema.Message) {
	msgs = trimHistory(msgs, a.historyLimit)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history[localID] = msgs
}

// trimHistory keeps at most limit messages and never starts with a tool
// message whose call was cut off.
func trimHistory(msgs []*schema.Message, limit int) []*schema.Message {
	if len(msgs) <= limit {
		return msgs
	}
	msgs = msgs[len(msgs)-limit:]
	for len(msgs) > 0 && msgs[0].Role != schema.User {
		msgs = msgs[1:]
	}
	return msgs
}

func isRecoverable(err error) bool {
	return errors.Is(err, contractx.ErrValidation) ||
		errors.Is(err, contractx.ErrStageInactive) ||
		errors.Is(err, contractx.ErrUnknownAction) ||
		errors.Is(err, contractx.ErrAlreadyConfirmed)
}

type actionCall struct {
	id   string
	name string
	args map[string]any
}

func toActionCalls(calls []schema.ToolCall) ([]actionCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	out := make([]actionCall, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrModelInvoke)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrModelInvoke, name, err)
			}
		}

		out = append(out, actionCall{id: call.ID, name: name, args: args})
	}
	return out, nil
}

func toolContent(res contractx.Result) string {
	b, err := json.Marshal(res)
	if err != nil {
		return res.Message
	}
	return string(b)
}

func renderReadables(readables []contractx.Readable) string {
	if len(readables) == 0 {
		return "nothing"
	}
	var sb strings.Builder
	for _, r := range readables {
		value, err := json.Marshal(r.Value)
		if err != nil {
			value = []byte(`null`)
		}
		fmt.Fprintf(&sb, "%s (%s): %s\n", r.Name, r.Description, value)
	}
	return strings.TrimSpace(sb.String())
}

func compileChatGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", false),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add chat prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add chat edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add chat edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add chat edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("bridge.chat_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}
	return runner, nil
}
