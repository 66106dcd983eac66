package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/autoosone/auto-state/agent/bridge"
	contractx "github.com/autoosone/auto-state/agent/contract"
	nodex "github.com/autoosone/auto-state/agent/nodes"
	"github.com/autoosone/auto-state/agent/registry"
	"github.com/autoosone/auto-state/agent/session"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/rs/zerolog/log"
)

// Conversation is one customer's run through the sales stages. Invocations
// on the same conversation are serialized.
type Conversation struct {
	flow     *Flow
	ctrl     *session.Controller
	registry *registry.Registry
	surface  *bridge.Surface

	mu sync.Mutex
}

var _ bridge.Target = (*Conversation)(nil)

func (c *Conversation) LocalID() string { return c.ctrl.LocalID() }

func (c *Conversation) DurableID() (int64, bool) { return c.ctrl.DurableID() }

func (c *Conversation) Stage() statex.Stage { return c.ctrl.Shared().Stage() }

func (c *Conversation) Snapshot() statex.Snapshot { return c.ctrl.Shared().Snapshot() }

// Surface is what the agent can currently see and call.
func (c *Conversation) Surface() *bridge.Surface { return c.surface }

// Invoke calls an action by name as the agent would. Actions of inactive
// stages are refused without touching state.
func (c *Conversation) Invoke(ctx context.Context, name string, args map[string]any) (contractx.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.surface.Invoke(ctx, name, args)
	label := name
	if errors.Is(err, contractx.ErrUnknownAction) {
		label = "unknown"
	}
	actionsTotal.WithLabelValues(label, resultLabel(err, res.Accepted)).Inc()
	return res, err
}

// run is the registry's invoker; it is reached only for the active stage.
func (c *Conversation) run(ctx context.Context, stage statex.Stage, name string, args map[string]any) (contractx.Result, error) {
	spec, st, err := c.registry.Lookup(name)
	if err != nil {
		return contractx.Result{Message: err.Error(), Stage: c.Stage()}, err
	}
	if st != stage {
		return contractx.Result{Stage: c.Stage()},
			fmt.Errorf("%w: %s resolved to %s, expected %s", contractx.ErrInvariant, name, st, stage)
	}

	out, err := c.flow.runner.Invoke(ctx, nodex.GraphInput{
		Stage:  st,
		Action: spec,
		Args:   args,
		Runtime: nodex.Runtime{
			Shared:       c.ctrl.Shared(),
			Recorder:     c.ctrl,
			Transitioner: c.registry,
			Presenter:    c.flow.presenter,
		},
	})
	if err != nil {
		return contractx.Result{Stage: c.Stage()}, fmt.Errorf("%w: action pipeline: %v", contractx.ErrInvariant, err)
	}

	logger := log.With().Str("session_id", c.LocalID()).Str("stage", string(st)).Str("action", name).Logger()

	switch {
	case out.Err == nil && out.Result.Accepted:
		logger.Info().Str("next_stage", string(out.Result.Stage)).Msg("action accepted")
		c.registry.Publish()
		c.flow.saveSnapshot(ctx, c)
		if out.Effects.Order != nil {
			c.flow.notifyOrder(ctx, c, *out.Effects.Order)
			c.flow.release(c)
		}
	case errors.Is(out.Err, contractx.ErrInvariant):
		logger.Error().Err(out.Err).Msg("action failed")
		if c.flow.strict {
			panic(out.Err)
		}
	case out.Err != nil:
		logger.Debug().Err(out.Err).Msg("action refused")
	default:
		logger.Debug().Msg("action awaiting customer")
	}
	return out.Result, out.Err
}

func resultLabel(err error, accepted bool) string {
	switch {
	case err == nil && accepted:
		return "accepted"
	case err == nil:
		return "pending"
	case errors.Is(err, contractx.ErrValidation):
		return "invalid"
	case errors.Is(err, contractx.ErrStageInactive):
		return "inactive"
	case errors.Is(err, contractx.ErrAlreadyConfirmed):
		return "already_confirmed"
	case errors.Is(err, contractx.ErrUnknownAction):
		return "unknown"
	default:
		return "error"
	}
}
