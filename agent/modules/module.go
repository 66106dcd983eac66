// Package modules implements the six sales stages. Each module exposes its
// capabilities only while it is the active stage.
package modules

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	toolx "github.com/autoosone/auto-state/agent/tool"
	"github.com/shopspring/decimal"
)

type Module interface {
	Stage() statex.Stage
	Instructions() string
	Readables() []contractx.Readable
	Actions() []*ActionSpec
	// Activate runs when the stage becomes active. changed must be called
	// whenever a readable's inputs change outside an action.
	Activate(ctx context.Context, changed func())
	Deactivate()
}

type FlagMark struct {
	Flag  statex.Flag
	Value bool
}

// Effects is what a successful action leaves behind once Shared State has
// been updated.
type Effects struct {
	Records          []persist.Record
	DemoteSelections bool
	Flags            []FlagMark
	Next             statex.Stage
	Message          string
	Data             any
	Order            *statex.Order
}

// ActionSpec is one invocable action of a module.
type ActionSpec struct {
	Name        string
	Description string
	Params      contractx.Params
	Render      contractx.RenderKind

	// Bind validates raw arguments into the action payload.
	Bind func(args map[string]any) (any, error)
	// Present builds what the user sees before answering. Records it returns
	// are persisted whether or not the user accepts.
	Present func(ctx context.Context, payload any) (contractx.Presentation, []persist.Record, error)
	// Apply mutates Shared State.
	Apply func(ctx context.Context, payload any, resp contractx.Response) (Effects, error)
}

func newAction[T any](
	name string,
	desc string,
	params contractx.Params,
	apply func(ctx context.Context, in T, resp contractx.Response) (Effects, error),
) *ActionSpec {
	return &ActionSpec{
		Name:        name,
		Description: desc,
		Params:      params,
		Bind: func(args map[string]any) (any, error) {
			return toolx.Bind[T](params, args)
		},
		Apply: func(ctx context.Context, payload any, resp contractx.Response) (Effects, error) {
			in, ok := payload.(T)
			if !ok {
				return Effects{}, fmt.Errorf("%w: %s payload has type %T", contractx.ErrInvariant, name, payload)
			}
			return apply(ctx, in, resp)
		},
	}
}

func withPresent[T any](
	a *ActionSpec,
	kind contractx.RenderKind,
	present func(ctx context.Context, in T) (contractx.Presentation, []persist.Record, error),
) *ActionSpec {
	a.Render = kind
	a.Present = func(ctx context.Context, payload any) (contractx.Presentation, []persist.Record, error) {
		in, ok := payload.(T)
		if !ok {
			return contractx.Presentation{}, nil, fmt.Errorf("%w: %s payload has type %T", contractx.ErrInvariant, a.Name, payload)
		}
		return present(ctx, in)
	}
	return a
}

// Deps are shared by every module of one conversation.
type Deps struct {
	Shared     *statex.Shared
	Catalog    contractx.Catalog
	AnnualRate decimal.Decimal
	Now        func() time.Time
}

// All returns one module per stage, in stage order.
func All(d Deps) []Module {
	if d.Now == nil {
		d.Now = time.Now
	}
	return []Module{
		newContactInfo(d),
		newSelection(d),
		newFinancingOffer(d),
		newFinancingDetails(d),
		newPaymentDetails(d),
		newConfirmation(d),
	}
}

type base struct {
	stage  statex.Stage
	shared *statex.Shared
	now    func() time.Time
}

func (b *base) Stage() statex.Stage { return b.stage }

// next is the default forward successor of the module's stage.
func (b *base) next() statex.Stage {
	st, _ := b.stage.Next()
	return st
}

func (b *base) Readables() []contractx.Readable { return nil }

func (b *base) Activate(context.Context, func()) {}

func (b *base) Deactivate() {}

func (b *base) selected(action string) (statex.Product, error) {
	p, ok := b.shared.SelectedProduct()
	if !ok {
		return statex.Product{}, fmt.Errorf("%w: %s requires a selected product", contractx.ErrInvariant, action)
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", contractx.ErrValidation, fmt.Sprintf(format, args...))
}

func flag(f statex.Flag) FlagMark { return FlagMark{Flag: f, Value: true} }
