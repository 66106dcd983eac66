// Package bridge holds what the conversational agent can currently see and
// call, and the chat agent that drives it.
package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	contractx "github.com/autoosone/auto-state/agent/contract"
	statex "github.com/autoosone/auto-state/agent/state"
)

type instruction struct {
	text    string
	enabled bool
}

type readable struct {
	value   contractx.Readable
	enabled bool
}

type action struct {
	value   contractx.Action
	enabled bool
}

// Surface is an in-memory agent bridge for one conversation.
type Surface struct {
	mu           sync.RWMutex
	instructions map[statex.Stage]instruction
	readables    map[string]readable
	actions      map[string]action
}

var _ contractx.Bridge = (*Surface)(nil)

func NewSurface() *Surface {
	return &Surface{
		instructions: make(map[statex.Stage]instruction),
		readables:    make(map[string]readable),
		actions:      make(map[string]action),
	}
}

func (s *Surface) SetInstructions(stage statex.Stage, text string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions[stage] = instruction{text: text, enabled: enabled}
}

func (s *Surface) PublishReadable(r contractx.Readable, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readables[r.Name] = readable{value: r, enabled: enabled}
}

func (s *Surface) RegisterAction(a contractx.Action, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.Name] = action{value: a, enabled: enabled}
}

// Capabilities is the enabled part of the surface.
type Capabilities struct {
	Instructions []string             `json:"instructions"`
	Readables    []contractx.Readable `json:"readables"`
	Actions      []contractx.Action   `json:"actions"`
}

func (s *Surface) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Capabilities{
		Instructions: []string{},
		Readables:    []contractx.Readable{},
		Actions:      []contractx.Action{},
	}
	for _, st := range statex.Stages() {
		if in, ok := s.instructions[st]; ok && in.enabled {
			out.Instructions = append(out.Instructions, in.text)
		}
	}
	for _, r := range s.readables {
		if r.enabled {
			out.Readables = append(out.Readables, r.value)
		}
	}
	for _, a := range s.actions {
		if a.enabled {
			out.Actions = append(out.Actions, a.value)
		}
	}
	sort.Slice(out.Readables, func(i, j int) bool { return out.Readables[i].Name < out.Readables[j].Name })
	sort.Slice(out.Actions, func(i, j int) bool { return out.Actions[i].Name < out.Actions[j].Name })
	return out
}

// EnabledActions lists actions the agent may call right now.
func (s *Surface) EnabledActions() []contractx.Action {
	return s.Capabilities().Actions
}

// Instructions joins the enabled stage instructions.
func (s *Surface) Instructions() string {
	return strings.Join(s.Capabilities().Instructions, "\n")
}

// IsEnabled reports whether the named action is currently enabled.
func (s *Surface) IsEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[name]
	return ok && a.enabled
}

// Invoke calls a registered action. Disabled actions still reach their
// handler, which refuses them.
func (s *Surface) Invoke(ctx context.Context, name string, args map[string]any) (contractx.Result, error) {
	s.mu.RLock()
	a, ok := s.actions[name]
	s.mu.RUnlock()
	if !ok || a.value.Handler == nil {
		return contractx.Result{Message: fmt.Sprintf("unknown action %s", name)},
			fmt.Errorf("%w: %s", contractx.ErrUnknownAction, name)
	}
	return a.value.Handler(ctx, args)
}
