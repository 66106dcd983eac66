package contract

import (
	"context"

	statex "github.com/autoosone/auto-state/agent/state"
)

// Bridge receives capability registrations for the conversational agent.
type Bridge interface {
	SetInstructions(stage statex.Stage, text string, enabled bool)
	PublishReadable(r Readable, enabled bool)
	RegisterAction(a Action, enabled bool)
}

type Presenter interface {
	Present(ctx context.Context, p Presentation) (Response, error)
}

type Catalog interface {
	ListAvailable(ctx context.Context, f Filter) ([]statex.Product, error)
}

type Notifier interface {
	NotifyOrder(ctx context.Context, ev OrderEvent) error
}

type responseKey struct{}

// WithResponse attaches the user's answer for the next render action.
func WithResponse(ctx context.Context, resp Response) context.Context {
	return context.WithValue(ctx, responseKey{}, resp)
}

func ResponseFrom(ctx context.Context) (Response, bool) {
	resp, ok := ctx.Value(responseKey{}).(Response)
	return resp, ok
}

// ContextPresenter answers with the response carried by ctx. Without one,
// confirmations are accepted and choices stay open.
type ContextPresenter struct{}

func (ContextPresenter) Present(ctx context.Context, p Presentation) (Response, error) {
	if resp, ok := ResponseFrom(ctx); ok {
		return resp, nil
	}
	if p.Kind == RenderConfirm {
		return Response{Accepted: true}, nil
	}
	return Response{}, nil
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyOrder(context.Context, OrderEvent) error { return nil }
