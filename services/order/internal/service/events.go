package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/shopsana/pkg/logging"
)

const (
	TopicCartEvents  = "cart_events"
	TopicOrderEvents = "order_events"

	publishTimeout = 5 * time.Second
)

// EventPublisher is satisfied by mykafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }

// publish runs after the transaction has committed; a broker failure is
// logged and never turned into a request error.
func publish(ctx context.Context, p EventPublisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(pctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error",
			"topic", topic,
			"type", event["type"],
			"error", err,
		)
	}
}
