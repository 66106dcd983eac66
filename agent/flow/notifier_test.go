package flow

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/autoosone/auto-state/agent/contract"
	statex "github.com/autoosone/auto-state/agent/state"
	qstashx "github.com/autoosone/auto-state/pkg/qstash"
)

type fakePublisher struct {
	destination string
	body        any
	dedupID     string
	err         error
}

func (f *fakePublisher) PublishJSON(_ context.Context, destination string, body any, dedupID string) (*qstashx.PublishResult, error) {
	f.destination = destination
	f.body = body
	f.dedupID = dedupID
	if f.err != nil {
		return nil, f.err
	}
	return &qstashx.PublishResult{MessageID: "msg-1"}, nil
}

func TestQStashNotifierPublishesOrder(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n, err := NewQStashNotifier(pub, " https://hooks.example.com/orders ")
	if err != nil {
		t.Fatalf("NewQStashNotifier() error = %v", err)
	}

	ev := contractx.OrderEvent{LocalID: "session-1", Order: statex.Order{OrderNumber: "ORD-1234ABCD"}}
	if err := n.NotifyOrder(context.Background(), ev); err != nil {
		t.Fatalf("NotifyOrder() error = %v", err)
	}
	if pub.destination != "https://hooks.example.com/orders" {
		t.Fatalf("destination = %q", pub.destination)
	}
	if pub.dedupID != "ORD-1234ABCD" {
		t.Fatalf("dedupID = %q, want order number", pub.dedupID)
	}
	if got, ok := pub.body.(contractx.OrderEvent); !ok || got.LocalID != "session-1" {
		t.Fatalf("body = %#v", pub.body)
	}
}

func TestQStashNotifierPropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("qstash down")
	n, err := NewQStashNotifier(&fakePublisher{err: boom}, "https://hooks.example.com/orders")
	if err != nil {
		t.Fatalf("NewQStashNotifier() error = %v", err)
	}
	if err := n.NotifyOrder(context.Background(), contractx.OrderEvent{}); !errors.Is(err, boom) {
		t.Fatalf("NotifyOrder() error = %v, want %v", err, boom)
	}
}

func TestNewQStashNotifierRequiresDestination(t *testing.T) {
	t.Parallel()

	if _, err := NewQStashNotifier(&fakePublisher{}, "  "); !errors.Is(err, qstashx.ErrNoDestination) {
		t.Fatalf("NewQStashNotifier() error = %v, want ErrNoDestination", err)
	}
}
