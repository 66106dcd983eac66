package flow

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/autoosone/auto-state/agent/contract"
	qstashx "github.com/autoosone/auto-state/pkg/qstash"
	"github.com/rs/zerolog/log"
)

// Publisher sends a JSON body to a QStash destination.
type Publisher interface {
	PublishJSON(ctx context.Context, destination string, body any, dedupID string) (*qstashx.PublishResult, error)
}

var _ Publisher = (*qstashx.Client)(nil)

// QStashNotifier publishes confirmed orders through QStash. The order
// number is the deduplication id, so retries do not double-deliver.
type QStashNotifier struct {
	publisher   Publisher
	destination string
}

var _ contractx.Notifier = (*QStashNotifier)(nil)

func NewQStashNotifier(publisher Publisher, destination string) (*QStashNotifier, error) {
	if publisher == nil {
		return nil, errors.New("qstash publisher is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, qstashx.ErrNoDestination
	}
	return &QStashNotifier{publisher: publisher, destination: destination}, nil
}

func (n *QStashNotifier) NotifyOrder(ctx context.Context, ev contractx.OrderEvent) error {
	res, err := n.publisher.PublishJSON(ctx, n.destination, ev, ev.Order.OrderNumber)
	if err != nil {
		return err
	}
	if res != nil {
		log.Info().Str("session_id", ev.LocalID).Str("order_number", ev.Order.OrderNumber).
			Str("message_id", res.MessageID).Bool("deduplicated", res.Deduplicated).Msg("order published")
	}
	return nil
}
