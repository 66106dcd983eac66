// Package registry sequences the stage modules and gates what the agent
// may see and call.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/modules"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/rs/zerolog/log"
)

const ReadableCurrentInformation = "currentlySpecifiedInformation"

// Advancer moves Shared State to a new stage and mirrors it.
type Advancer interface {
	AdvanceStage(to statex.Stage) statex.Stage
}

// Invoker runs an action of stage through the invocation pipeline.
type Invoker func(ctx context.Context, stage statex.Stage, action string, args map[string]any) (contractx.Result, error)

type Option func(*Registry)

// WithStrict makes invariant violations panic.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

func WithInvoker(fn Invoker) Option {
	return func(r *Registry) { r.invoke = fn }
}

type Registry struct {
	shared   *statex.Shared
	advancer Advancer
	bridge   contractx.Bridge
	modules  map[statex.Stage]modules.Module
	invoke   Invoker
	strict   bool

	publishMu sync.Mutex
}

func New(shared *statex.Shared, advancer Advancer, mods []modules.Module, bridge contractx.Bridge, opts ...Option) (*Registry, error) {
	if shared == nil {
		return nil, errors.New("shared state is required")
	}
	if advancer == nil {
		return nil, errors.New("stage advancer is required")
	}
	if bridge == nil {
		return nil, errors.New("agent bridge is required")
	}

	r := &Registry{
		shared:   shared,
		advancer: advancer,
		bridge:   bridge,
		modules:  make(map[statex.Stage]modules.Module, len(mods)),
	}
	for _, m := range mods {
		if m == nil {
			continue
		}
		if _, dup := r.modules[m.Stage()]; dup {
			return nil, fmt.Errorf("duplicate module for stage %s", m.Stage())
		}
		r.modules[m.Stage()] = m
	}
	for _, st := range statex.Stages() {
		if _, ok := r.modules[st]; !ok {
			return nil, fmt.Errorf("no module for stage %s", st)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// IsActive reports whether stage is the current stage.
func (r *Registry) IsActive(stage statex.Stage) bool {
	return r.shared.Stage() == stage
}

func (r *Registry) Active() modules.Module {
	return r.modules[r.shared.Stage()]
}

// Begin activates the current stage's module and publishes capabilities.
func (r *Registry) Begin(ctx context.Context) {
	r.Active().Activate(ctx, r.Publish)
	r.Publish()
}

// Lookup finds an action by name. Actions of inactive stages are refused.
func (r *Registry) Lookup(name string) (*modules.ActionSpec, statex.Stage, error) {
	for _, st := range statex.Stages() {
		for _, a := range r.modules[st].Actions() {
			if a.Name != name {
				continue
			}
			if !r.IsActive(st) {
				return nil, st, fmt.Errorf("%w: %s belongs to %s, current stage is %s",
					contractx.ErrStageInactive, name, st, r.shared.Stage())
			}
			return a, st, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", contractx.ErrUnknownAction, name)
}

// Advance moves from the active stage to next, swapping modules and
// republishing capabilities.
func (r *Registry) Advance(ctx context.Context, from, to statex.Stage) error {
	current := r.shared.Stage()
	switch {
	case from != current:
		return r.violation(fmt.Errorf("transition requested by %s while %s is active", from, current))
	case !to.Valid():
		return r.violation(fmt.Errorf("transition to unknown stage %q", to))
	case from.Terminal():
		return r.violation(fmt.Errorf("transition out of terminal stage %s", from))
	}

	r.modules[from].Deactivate()
	r.advancer.AdvanceStage(to)
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	log.Info().Str("from", string(from)).Str("to", string(to)).Bool("backward", to.Before(from)).
		Str("session_id", r.shared.Session().LocalID).Msg("stage advanced")

	r.modules[to].Activate(ctx, r.Publish)
	r.Publish()
	return nil
}

// Publish pushes every module's capabilities to the bridge. Only the active
// module's are enabled; the global snapshot readable always is.
func (r *Registry) Publish() {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	active := r.shared.Stage()
	for _, st := range statex.Stages() {
		m := r.modules[st]
		enabled := st == active

		r.bridge.SetInstructions(st, m.Instructions(), enabled)
		for _, readable := range m.Readables() {
			r.bridge.PublishReadable(readable, enabled)
		}
		for _, a := range m.Actions() {
			r.bridge.RegisterAction(contractx.Action{
				Name:        a.Name,
				Description: a.Description,
				Stage:       st,
				Params:      a.Params,
				Render:      a.Render,
				Handler:     r.handler(st, a.Name),
			}, enabled)
		}
	}

	r.bridge.PublishReadable(contractx.Readable{
		Name:        ReadableCurrentInformation,
		Description: "Currently Specified Information",
		Value:       r.shared.Snapshot(),
	}, true)
}

func (r *Registry) handler(stage statex.Stage, name string) contractx.Handler {
	return func(ctx context.Context, args map[string]any) (contractx.Result, error) {
		if !r.IsActive(stage) {
			current := r.shared.Stage()
			return contractx.Result{
				Message: fmt.Sprintf("%s is not available during %s", name, current),
				Stage:   current,
			}, fmt.Errorf("%w: %s", contractx.ErrStageInactive, name)
		}
		if r.invoke == nil {
			return contractx.Result{}, r.violation(fmt.Errorf("no invoker for %s", name))
		}
		return r.invoke(ctx, stage, name, args)
	}
}

// violation reports a broken flow invariant. Strict registries panic.
func (r *Registry) violation(err error) error {
	err = fmt.Errorf("%w: %v", contractx.ErrInvariant, err)
	if r.strict {
		panic(err)
	}
	log.Error().Err(err).Str("session_id", r.shared.Session().LocalID).Msg("flow invariant violated")
	return err
}
